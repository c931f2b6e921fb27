package config

import (
	"errors"
	"testing"
)

func TestGetAPIKeyFromEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-fromenv123456789012")

	key, err := GetAPIKey(&Config{})
	if err != nil {
		t.Fatal(err)
	}
	if key != "sk-ant-fromenv123456789012" {
		t.Errorf("unexpected key: %q", key)
	}
	if src := GetAPIKeySource(&Config{}); src != KeySourceEnv {
		t.Errorf("expected env source, got %s", src)
	}
}

func TestGetAPIKeyFromConfig(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg := &Config{}
	cfg.Provider.APIKey = "sk-ant-REDACTED"
	key, err := GetAPIKey(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if key != "sk-ant-REDACTED" {
		t.Errorf("unexpected key: %q", key)
	}
	if src := GetAPIKeySource(cfg); src != KeySourceConfig {
		t.Errorf("expected config source, got %s", src)
	}
}

func TestGetAPIKeyMissing(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	if _, err := GetAPIKey(&Config{}); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
	if src := GetAPIKeySource(&Config{}); src != KeySourceNone {
		t.Errorf("expected none source, got %s", src)
	}
}

func TestValidateAPIKey(t *testing.T) {
	cases := []struct {
		key     string
		wantErr bool
	}{
		{"", true},
		{"sk-ant-short", true},
		{"not-a-key-at-all-but-long", true},
		{"sk-ant-api03-valid-enough", false},
	}
	for _, tc := range cases {
		err := ValidateAPIKey(tc.key)
		if (err != nil) != tc.wantErr {
			t.Errorf("ValidateAPIKey(%q) = %v, wantErr %v", tc.key, err, tc.wantErr)
		}
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := MaskAPIKey(""); got != "(not set)" {
		t.Errorf("unexpected mask for empty: %q", got)
	}
	if got := MaskAPIKey("sk-ant-tiny"); got != "***" {
		t.Errorf("unexpected mask for short: %q", got)
	}
	if got := MaskAPIKey("sk-ant-api03-abcdefgh-wxyz"); got != "sk-ant-...wxyz" {
		t.Errorf("unexpected mask: %q", got)
	}
}
