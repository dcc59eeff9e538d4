package config

import (
	"os"
	"testing"
)

// unsetenv clears a variable for the test and restores it afterwards.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, os.Getenv(key))
	os.Unsetenv(key)
}

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	unsetenv(t, "AUTH_SECRET")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetenv(t, "PORT")
	unsetenv(t, "REPORT_CACHE_TTL_SECONDS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.ReportCacheTTLSeconds != 60 {
		t.Fatalf("expected default report cache ttl 60, got %d", cfg.ReportCacheTTLSeconds)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}
