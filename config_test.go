package runeq

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigYAML(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config")
	data := "graph_url: https://graph.example.com\nclient_key_id: key-1\nclient_access_key: secret-1\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GraphURL != "https://graph.example.com" {
		t.Errorf("graph url = %q", cfg.GraphURL)
	}
	if cfg.StreamURL != defaultStreamURL {
		t.Errorf("stream url default not applied: %q", cfg.StreamURL)
	}
	if cfg.StriveURL != defaultStriveURL {
		t.Errorf("strive url default not applied: %q", cfg.StriveURL)
	}
	if cfg.AuthMethod != AuthMethodClientKeys {
		t.Errorf("auth method = %q", cfg.AuthMethod)
	}

	headers, err := cfg.AuthHeaders()
	if err != nil {
		t.Fatalf("auth headers: %v", err)
	}
	if headers["X-Rune-Client-Key-ID"] != "key-1" || headers["X-Rune-Client-Access-Key"] != "secret-1" {
		t.Errorf("headers = %v", headers)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("RUNEQ_ACCESS_TOKEN_ID", "tok-id")
	t.Setenv("RUNEQ_ACCESS_TOKEN_SECRET", "tok-secret")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.AuthMethod != AuthMethodAccessToken {
		t.Errorf("auth method = %q", cfg.AuthMethod)
	}
	headers, err := cfg.AuthHeaders()
	if err != nil {
		t.Fatalf("auth headers: %v", err)
	}
	if headers["X-Rune-User-Access-Token-Id"] != "tok-id" {
		t.Errorf("headers = %v", headers)
	}
}

func TestConfigInference(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{"jwt", Config{JWT: "j"}, AuthMethodJWT, false},
		{"client keys", Config{ClientKeyID: "k", ClientAccessKey: "s"}, AuthMethodClientKeys, false},
		{"no credentials", Config{}, "", true},
		{"ambiguous", Config{JWT: "j", ClientKeyID: "k", ClientAccessKey: "s"}, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.normalize()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			if tc.cfg.AuthMethod != tc.want {
				t.Errorf("auth method = %q, want %q", tc.cfg.AuthMethod, tc.want)
			}
		})
	}
}

func TestRefreshAuth(t *testing.T) {
	t.Parallel()
	cfg := &Config{JWT: "old"}
	if cfg.RefreshAuth() {
		t.Error("refresh without a hook must report false")
	}
	cfg.Refresh = func(c *Config) bool {
		c.JWT = "new"
		return true
	}
	if !cfg.RefreshAuth() || cfg.JWT != "new" {
		t.Error("refresh hook did not run")
	}
}
