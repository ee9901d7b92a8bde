package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tenxhq/tenx/internal/chat"
	"github.com/tenxhq/tenx/internal/permission"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	m := NewManagerAt(t.TempDir())
	cfg, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultTier != chat.TierSmart || cfg.RoutingMode != chat.RouteAuto {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Permissions == nil {
		t.Error("missing default permissions")
	}
	if cfg.Models[chat.TierFast] == "" {
		t.Error("missing default model table")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := NewManagerAt(t.TempDir())
	in := &Config{
		APIKey:      "sk-test",
		DefaultTier: chat.TierFast,
		RoutingMode: chat.RouteFast,
		MaxToolHops: 10,
		Models:      map[chat.Tier]string{chat.TierSmart: "custom/model"},
	}
	if err := m.Save(in); err != nil {
		t.Fatal(err)
	}
	if !m.Exists() {
		t.Fatal("config file not created")
	}

	info, err := os.Stat(m.Path())
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %o, want 600", info.Mode().Perm())
	}

	out, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	if out.APIKey != "sk-test" || out.DefaultTier != chat.TierFast || out.MaxToolHops != 10 {
		t.Errorf("loaded = %+v", out)
	}
	if out.Models[chat.TierSmart] != "custom/model" {
		t.Errorf("model override lost: %v", out.Models)
	}
	// unset tiers fall back to the built-in table
	if out.Models[chat.TierSuperfast] == "" {
		t.Error("missing tier not defaulted")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	m := NewManagerAt(t.TempDir())
	if err := m.Save(&Config{APIKey: "from-file", MaxRetries: 1}); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TENX_API_KEY", "from-env")
	t.Setenv("TENX_MAX_RETRIES", "7")
	t.Setenv("TENX_ROUTING_MODE", "smart")

	cfg, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIKey != "from-env" || cfg.MaxRetries != 7 || cfg.RoutingMode != chat.RouteSmart {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsInvalidTier(t *testing.T) {
	m := NewManagerAt(t.TempDir())
	t.Setenv("TENX_DEFAULT_TIER", "turbo")
	if _, err := m.Load(); err == nil {
		t.Error("invalid tier accepted")
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{nope"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewManagerAt(dir).Load(); err == nil {
		t.Error("malformed json accepted")
	}
}

func TestPermissionsSurviveRoundTrip(t *testing.T) {
	m := NewManagerAt(t.TempDir())
	in := &Config{
		Permissions: permission.Config{
			"bash": {Default: permission.Deny, Rules: []permission.Rule{{Pattern: "git *", Action: permission.Allow}}},
		},
	}
	if err := m.Save(in); err != nil {
		t.Fatal(err)
	}
	out, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	bash := out.Permissions["bash"]
	if bash.Default != permission.Deny || len(bash.Rules) != 1 || bash.Rules[0].Pattern != "git *" {
		t.Errorf("permissions = %+v", bash)
	}
}
