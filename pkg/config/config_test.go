package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetIntFallsBackOnInvalidValue(t *testing.T) {
	t.Setenv("NEBULA_TEST_INT", "abc")
	if got := GetInt("NEBULA_TEST_INT", 7); got != 7 {
		t.Fatalf("expected fallback 7, got %d", got)
	}
	t.Setenv("NEBULA_TEST_INT", "42")
	if got := GetInt("NEBULA_TEST_INT", 7); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestGetBool(t *testing.T) {
	t.Setenv("NEBULA_TEST_BOOL", "true")
	if !GetBool("NEBULA_TEST_BOOL", false) {
		t.Fatalf("expected true")
	}
	t.Setenv("NEBULA_TEST_BOOL", "maybe")
	if GetBool("NEBULA_TEST_BOOL", false) {
		t.Fatalf("expected fallback false")
	}
}

func TestGetDuration(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want time.Duration
	}{
		{"bare integer uses unit", "3", 3 * time.Second},
		{"go duration", "1m30s", 90 * time.Second},
		{"padded", " 5 ", 5 * time.Second},
		{"garbage", "soon", 10 * time.Second},
		{"zero", "0", 10 * time.Second},
		{"negative", "-2s", 10 * time.Second},
		{"empty", "", 10 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("NEBULA_TEST_DURATION", tc.raw)
			if got := GetDuration("NEBULA_TEST_DURATION", 10*time.Second, time.Second); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestLoadAPIConfigTokenLifetimes(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")
	t.Setenv("REFRESH_TOKEN_TTL_HOURS", "36h")
	cfg := LoadAPIConfig()
	if cfg.AccessTokenTTL != 15*time.Minute || cfg.RefreshTokenTTL != 36*time.Hour {
		t.Fatalf("unexpected lifetimes %v %v", cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	}
}

func TestLoadDashboardConfig(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("DASHBOARD_REQUEST_TIMEOUT_SECONDS", "3")
	cfg := LoadDashboardConfig()
	if cfg.SessionSecret != "s3cret" || cfg.RequestTimeout != 3*time.Second {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.CookieName != "nebula_session" {
		t.Fatalf("unexpected cookie name %q", cfg.CookieName)
	}
}

func TestCLIConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nebula", "config.json")
	t.Setenv("API_BASE_URL", "http://api.test")

	cfg, err := LoadCLIConfig(path)
	if err != nil {
		t.Fatalf("load missing config: %v", err)
	}
	if cfg.APIBaseURL != "http://api.test" || cfg.AccessToken != "" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}

	cfg.AccessToken = "token"
	cfg.Email = "ada@example.com"
	if err := SaveCLIConfig(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}
	loaded, err := LoadCLIConfig(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded != cfg {
		t.Fatalf("expected %+v, got %+v", cfg, loaded)
	}
}

func TestCLIConfigPathOverride(t *testing.T) {
	t.Setenv("NEBULA_CONFIG", "/tmp/nebula-test.json")
	path, err := CLIConfigPath()
	if err != nil || path != "/tmp/nebula-test.json" {
		t.Fatalf("unexpected path %q (%v)", path, err)
	}
}
