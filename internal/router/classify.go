package router

import (
	"regexp"

	"github.com/tenxhq/tenx/internal/chat"
)

// shortQueryLimit is the length under which a simple query routes superfast.
const shortQueryLimit = 80

var (
	complexityPattern  = regexp.MustCompile(`(?i)\b(implement|refactor|debug|analyze|design|architecture|migrate|complex|multi-step)\b`)
	simpleQueryPattern = regexp.MustCompile(`(?i)\b(what is|how do|explain|define|list|show)\b`)
)

// classify selects a tier for the user text under auto routing.
func classify(text string, def chat.Tier) chat.Tier {
	if complexityPattern.MatchString(text) {
		return chat.TierSmart
	}
	if simpleQueryPattern.MatchString(text) {
		if len(text) <= shortQueryLimit {
			return chat.TierSuperfast
		}
		return chat.TierFast
	}
	return def
}
