package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LocalBasePath != "route-data/geojson" {
		t.Errorf("LocalBasePath = %q", cfg.LocalBasePath)
	}
	if cfg.ManifestURL != "route-data/routes.json" {
		t.Errorf("ManifestURL = %q", cfg.ManifestURL)
	}
	if cfg.OverpassEndpoint != "https://overpass-api.de/api/interpreter" {
		t.Errorf("OverpassEndpoint = %q", cfg.OverpassEndpoint)
	}
	if cfg.RedisEnabled {
		t.Error("redis should be disabled by default")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routemap.yml")
	yml := `
logLevel: debug
localBasePath: /srv/geojson
manifestUrl: https://maps.example.org/routes.json
fetchTimeout: 15s
redis:
  enabled: true
  addr: redis:6379
  ttl: 1h
rateLimit:
  perWindow: 30
  whitelist: [10.0.0.1]
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("OVERPASS_ENDPOINT", "https://overpass.kumi.systems/api/interpreter")
	t.Setenv("LOCAL_BASE_PATH", "/data/geojson")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"log level from file", cfg.LogLevel, slog.LevelDebug},
		{"base path from env", cfg.LocalBasePath, "/data/geojson"},
		{"manifest from file", cfg.ManifestURL, "https://maps.example.org/routes.json"},
		{"endpoint from env", cfg.OverpassEndpoint, "https://overpass.kumi.systems/api/interpreter"},
		{"fetch timeout from file", cfg.FetchTimeout, 15 * time.Second},
		{"redis enabled from file", cfg.RedisEnabled, true},
		{"redis addr from file", cfg.RedisAddr, "redis:6379"},
		{"cache ttl from file", cfg.CacheTTL, time.Hour},
		{"rate limit from file", cfg.RateLimitPerWindow, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if len(cfg.RateLimitWhitelist) != 1 || cfg.RateLimitWhitelist[0] != "10.0.0.1" {
		t.Errorf("whitelist = %v", cfg.RateLimitWhitelist)
	}
}

func TestLoadFileZeroValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routemap.yml")
	yml := `
redis:
  db: 0
rateLimit:
  perWindow: 0
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RateLimitPerWindow != 0 {
		t.Errorf("RateLimitPerWindow = %d, want 0 to disable limiting", cfg.RateLimitPerWindow)
	}
	if cfg.RedisDB != 0 {
		t.Errorf("RedisDB = %d, want 0", cfg.RedisDB)
	}
	if cfg.WSSendBuffer != 256 {
		t.Errorf("WSSendBuffer = %d, want default 256 when unset", cfg.WSSendBuffer)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		yml  string
	}{
		{
			name: "bad endpoint",
			env:  map[string]string{"OVERPASS_ENDPOINT": "not a url"},
		},
		{
			name: "bad duration in file",
			yml:  "fetchTimeout: soon\n",
		},
		{
			name: "zero send buffer in file",
			yml:  "wsSendBuffer: 0\n",
		},
		{
			name: "malformed yaml",
			yml:  "redis: [\n",
		},
		{
			name: "missing config file",
			env:  map[string]string{"CONFIG_FILE": "/nonexistent/routemap.yml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CONFIG_FILE", "")
			if tt.yml != "" {
				path := filepath.Join(t.TempDir(), "c.yml")
				if err := os.WriteFile(path, []byte(tt.yml), 0o644); err != nil {
					t.Fatal(err)
				}
				t.Setenv("CONFIG_FILE", path)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			if _, err := Load(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGetCSVEnv(t *testing.T) {
	t.Setenv("RATE_LIMIT_WHITELIST", " 10.0.0.1, ,192.168.1.1 ")
	got := getCSVEnv("RATE_LIMIT_WHITELIST")
	if len(got) != 2 || got[0] != "10.0.0.1" || got[1] != "192.168.1.1" {
		t.Errorf("getCSVEnv = %v", got)
	}
}
