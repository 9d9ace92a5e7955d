package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-floor/pkg/gandalf"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"FLOOR_VARIANT", "FLOOR_TICK_MS", "FLOOR_ACTION_CEILING_MS", "FLOOR_PARTNER",
		"FLOOR_SCENARIO", "FLOOR_WEB_PORT", "FLOOR_WEB_ENABLED", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Variant != gandalf.MultiParty {
		t.Fatalf("expected default variant multi, got %q", c.Variant)
	}
	if c.Tick != 50*time.Millisecond || c.ActionCeiling != 2*time.Second {
		t.Fatalf("unexpected timing %v / %v", c.Tick, c.ActionCeiling)
	}
	if !c.Web.Enabled || c.Web.Port != DefaultWebPort {
		t.Fatalf("unexpected web config %+v", c.Web)
	}
	if c.LogLevel != "info" {
		t.Fatalf("expected default log level info, got %q", c.LogLevel)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("FLOOR_VARIANT", "gandalf")
	t.Setenv("FLOOR_TICK_MS", "20")
	t.Setenv("FLOOR_PARTNER", "2")
	t.Setenv("FLOOR_WEB_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "debug")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Variant != gandalf.SingleParty || c.Tick != 20*time.Millisecond || c.Partner != 2 {
		t.Fatalf("env not applied: %+v", c)
	}
	if c.Web.Enabled || c.LogLevel != "debug" {
		t.Fatalf("env not applied: %+v", c)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "floor.yaml")
	data := "variant: single\naction_ceiling_ms: 1500\nscenario: demo.yaml\nweb:\n  port: 9000\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	// Environment beats the file.
	t.Setenv("FLOOR_WEB_PORT", "9100")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Variant != gandalf.SingleParty || c.ActionCeiling != 1500*time.Millisecond || c.Scenario != "demo.yaml" {
		t.Fatalf("file not applied: %+v", c)
	}
	if c.Web.Port != 9100 {
		t.Fatalf("expected env port 9100, got %d", c.Web.Port)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing config file should fail")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("FLOOR_VARIANT", "triadic")
	if _, err := Load(""); err == nil {
		t.Fatal("unknown variant should fail")
	}

	clearEnv(t)
	t.Setenv("FLOOR_TICK_MS", "0")
	t.Setenv("FLOOR_WEB_PORT", "70000")
	_, err := Load("")
	if err == nil {
		t.Fatal("zero tick and bad port should fail")
	}
	if !strings.Contains(err.Error(), "tick") || !strings.Contains(err.Error(), "70000") {
		t.Errorf("error should name every problem: %v", err)
	}
}
