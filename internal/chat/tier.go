package chat

import "fmt"

// Tier is the coarse model category a turn is routed to. Each tier maps to a
// concrete upstream model id at runtime.
type Tier string

const (
	TierSuperfast Tier = "superfast"
	TierFast      Tier = "fast"
	TierSmart     Tier = "smart"
)

// RoutingMode selects either a fixed tier or automatic classification.
type RoutingMode string

const (
	RouteAuto      RoutingMode = "auto"
	RouteSuperfast RoutingMode = "superfast"
	RouteFast      RoutingMode = "fast"
	RouteSmart     RoutingMode = "smart"
)

// ParseTier validates a tier string.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierSuperfast, TierFast, TierSmart:
		return Tier(s), nil
	}
	return "", fmt.Errorf("invalid model tier: %q", s)
}

// ParseRoutingMode validates a routing mode string.
func ParseRoutingMode(s string) (RoutingMode, error) {
	switch RoutingMode(s) {
	case RouteAuto, RouteSuperfast, RouteFast, RouteSmart:
		return RoutingMode(s), nil
	}
	return "", fmt.Errorf("invalid routing mode: %q", s)
}

// TierOf returns the fixed tier for a non-auto routing mode.
func (m RoutingMode) TierOf() (Tier, bool) {
	switch m {
	case RouteSuperfast:
		return TierSuperfast, true
	case RouteFast:
		return TierFast, true
	case RouteSmart:
		return TierSmart, true
	}
	return "", false
}
