package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("ZOHO_ACCESS_TOKEN", "zoho-token")
	t.Setenv("ZOHO_TEAM_ID", "669462816")
	t.Setenv("ZOHO_PROJECT_ID", "28091000000003109")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected port 8080, got %q", cfg.Port)
	}
	if cfg.Dedup.TTL != 10*time.Minute || cfg.Dedup.Size != 1000 {
		t.Fatalf("unexpected dedup defaults: %+v", cfg.Dedup)
	}
	if cfg.Zoho.ReadAuthScheme != "Bearer" || cfg.Zoho.WriteAuthScheme != "Zoho-oauthtoken" {
		t.Fatalf("unexpected auth schemes: %+v", cfg.Zoho)
	}
	if cfg.Zoho.BaseURL != "https://sprintsapi.zoho.com/zsapi" {
		t.Fatalf("unexpected base url %q", cfg.Zoho.BaseURL)
	}
	if len(cfg.APIKeys) != 0 {
		t.Fatalf("expected no api keys, got %v", cfg.APIKeys)
	}
	if cfg.OpenAI.Timeout != 10*time.Second {
		t.Fatalf("unexpected classification timeout %v", cfg.OpenAI.Timeout)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "")
	t.Setenv("ZOHO_ACCESS_TOKEN", "")
	t.Setenv("ZOHO_TEAM_ID", "")
	t.Setenv("ZOHO_PROJECT_ID", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing required config")
	}
	for _, name := range []string{"SLACK_BOT_TOKEN", "ZOHO_ACCESS_TOKEN", "ZOHO_TEAM_ID", "ZOHO_PROJECT_ID"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("error %q does not mention %s", err.Error(), name)
		}
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ZOHO_API_BASE_URL", "http://localhost:9999/zsapi/")
	t.Setenv("DEDUP_TTL", "30s")
	t.Setenv("WORKER_COUNT", "2")
	t.Setenv("API_KEYS", "u1:key-1, u2:key-2")
	t.Setenv("SPRINTBOT_USER_MAP", "U01ABC:28091000000403001")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Zoho.BaseURL != "http://localhost:9999/zsapi" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Zoho.BaseURL)
	}
	if cfg.Dedup.TTL != 30*time.Second {
		t.Fatalf("expected 30s ttl, got %v", cfg.Dedup.TTL)
	}
	if cfg.Worker.Count != 2 {
		t.Fatalf("expected 2 workers, got %d", cfg.Worker.Count)
	}
	if cfg.APIKeys["key-1"] != "u1" || cfg.APIKeys["key-2"] != "u2" {
		t.Fatalf("unexpected api keys %v", cfg.APIKeys)
	}
	if cfg.UserMap["U01ABC"] != "28091000000403001" {
		t.Fatalf("unexpected user map %v", cfg.UserMap)
	}
}

func TestLoad_BadAPIKeys(t *testing.T) {
	setRequired(t)
	t.Setenv("API_KEYS", "no-separator")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed API_KEYS")
	}
}

func TestParsePairs(t *testing.T) {
	tests := []struct {
		raw     string
		want    map[string]string
		wantErr bool
	}{
		{"", map[string]string{}, false},
		{"a:b", map[string]string{"a": "b"}, false},
		{" a : b ,, c:d ", map[string]string{"a": "b", "c": "d"}, false},
		{"a:", nil, true},
		{":b", nil, true},
	}
	for _, tt := range tests {
		got, err := parsePairs(tt.raw, "bad")
		if tt.wantErr {
			if err == nil {
				t.Fatalf("parsePairs(%q) expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parsePairs(%q) error = %v", tt.raw, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("parsePairs(%q) = %v, want %v", tt.raw, got, tt.want)
		}
		for k, v := range tt.want {
			if got[k] != v {
				t.Fatalf("parsePairs(%q)[%q] = %q, want %q", tt.raw, k, got[k], v)
			}
		}
	}
}

func TestZohoValidate(t *testing.T) {
	z := ZohoConfig{AccessToken: "tok", TeamID: "1"}
	err := z.Validate()
	if err == nil || !strings.Contains(err.Error(), "ZOHO_PROJECT_ID") || strings.Contains(err.Error(), "ZOHO_TEAM_ID") {
		t.Fatalf("unexpected error %v", err)
	}
	z.ProjectID = "2"
	if err := z.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}
