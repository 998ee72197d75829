package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Port int `env:"CAMPAIGN_VIEWER_TEST_PORT" envDefault:"123"`
}

type prefixedTestConfig struct {
	Dir string `env:"DIR" envDefault:"data"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("CAMPAIGN_VIEWER_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestParseEnvWithPrefix(t *testing.T) {
	t.Setenv(EnvPrefix+"DIR", "/srv/campaigns")

	var cfg prefixedTestConfig
	if err := ParseEnvWithPrefix(&cfg, EnvPrefix); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Dir != "/srv/campaigns" {
		t.Fatalf("dir = %q, want %q", cfg.Dir, "/srv/campaigns")
	}
}
