package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseCSV(t *testing.T) {
	got := parseCSV("a, b, ,c,,")
	if len(got) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got))
	}
	if got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected values: %#v", got)
	}
}

func TestParseAnyCSV(t *testing.T) {
	raw := []any{"x", " ", "y"}
	got := parseAnyCSV(raw)
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if got[0] != "x" || got[1] != "y" {
		t.Fatalf("unexpected values: %#v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("CONFIG_PATH", "")
	cfg, problems := Load("api", 8080)
	if len(problems) != 0 {
		t.Fatalf("unexpected problems: %#v", problems)
	}
	if cfg.APIMode != APIModeLocal {
		t.Fatalf("expected local mode by default, got %q", cfg.APIMode)
	}
	if cfg.StoreDriver != StoreDriverMemory {
		t.Fatalf("expected memory store by default, got %q", cfg.StoreDriver)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Fatalf("unexpected request timeout %v", cfg.RequestTimeout)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	data := `{"ENV": "staging", "API_MODE": "remote", "API_BASE_URL": "http://backend/api/", "HTTP_PORT": 9000, "ASYNQ_ENABLED": true, "REDIS_ADDR": "redis:6379"}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ENV", "")
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("SIMULATED_LATENCY_SCALE", "0")

	cfg, problems := Load("api", 8080)
	if len(problems) != 0 {
		t.Fatalf("unexpected problems: %#v", problems)
	}
	if cfg.Env != "staging" || cfg.APIMode != APIModeRemote {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.APIBaseURL != "http://backend/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.APIBaseURL)
	}
	if cfg.HTTPPort != 9100 {
		t.Fatalf("expected env to override file port, got %d", cfg.HTTPPort)
	}
	if cfg.AsynqRedisAddr != "redis:6379" {
		t.Fatalf("expected asynq to reuse REDIS_ADDR, got %q", cfg.AsynqRedisAddr)
	}
	if got := cfg.LatencyFor(600 * time.Millisecond); got != 0 {
		t.Fatalf("expected zero latency at scale 0, got %v", got)
	}
}

func TestLoadReportsProblems(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("API_MODE", "carrier-pigeon")
	t.Setenv("STORE_DRIVER", "redis")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("REDIS_DB", "abc")

	cfg, problems := Load("api", 8080)
	fields := map[string]bool{}
	for _, p := range problems {
		fields[p.Field] = true
	}
	for _, want := range []string{"API_MODE", "REDIS_ADDR", "REDIS_DB"} {
		if !fields[want] {
			t.Fatalf("expected problem for %s, got %#v", want, problems)
		}
	}
	if cfg.APIMode != APIModeLocal {
		t.Fatalf("expected fallback to local mode, got %q", cfg.APIMode)
	}
}

func TestLoadCORSSettings(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://*.renttalk.app, http://localhost:5173")
	t.Setenv("CORS_MAX_AGE_SECONDS", "120")

	cfg, problems := Load("api", 8080)
	if len(problems) != 0 {
		t.Fatalf("unexpected problems: %#v", problems)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[0] != "https://*.renttalk.app" {
		t.Fatalf("unexpected origins %#v", cfg.CORSAllowedOrigins)
	}
	if cfg.CORSMaxAgeSec != 120 {
		t.Fatalf("unexpected max age %d", cfg.CORSMaxAgeSec)
	}
}

func TestLoadRejectsWildcardWithCredentials(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	cfg, problems := Load("api", 8080)
	found := false
	for _, p := range problems {
		if p.Field == "CORS_ALLOWED_ORIGINS" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected CORS_ALLOWED_ORIGINS problem, got %#v", problems)
	}
	if cfg.CORSAllowCredentials {
		t.Fatalf("expected credentials to be switched off")
	}
}
