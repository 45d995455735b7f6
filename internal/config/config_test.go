package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/pr-poehali-dev/alpha-omega-bot/internal/errors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"CONFIG_FILE", "HTTP_ADDR", "RECOGNIZER_URL", "RECOGNIZER_TIMEOUT",
		"INTERVAL_SECONDS", "HORIZON", "STRATEGY", "AUTO_CAPTURE",
		"HASH_DISTANCE", "WS_RATE_PER_SECOND", "WS_RATE_BURST",
		"LOG_LEVEL", "LOG_JSON",
	}
	for _, v := range envVars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.HTTPAddr != ":8000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8000")
	}
	if cfg.IntervalSeconds != DefaultIntervalSeconds {
		t.Errorf("IntervalSeconds = %d, want %d", cfg.IntervalSeconds, DefaultIntervalSeconds)
	}
	if cfg.Horizon != 3 {
		t.Errorf("Horizon = %d, want 3", cfg.Horizon)
	}
	if cfg.Strategy != "transitions" {
		t.Errorf("Strategy = %q, want transitions", cfg.Strategy)
	}
	if cfg.AutoCapture {
		t.Error("AutoCapture should default to false")
	}
	if cfg.RecognizerTimeout != 10*time.Second {
		t.Errorf("RecognizerTimeout = %v, want 10s", cfg.RecognizerTimeout)
	}
}

func TestLoadWithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("INTERVAL_SECONDS", "60")
	t.Setenv("HORIZON", "1")
	t.Setenv("STRATEGY", "majority")
	t.Setenv("AUTO_CAPTURE", "true")
	t.Setenv("RECOGNIZER_TIMEOUT", "3s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.HTTPAddr != ":9000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9000")
	}
	if cfg.IntervalSeconds != 60 {
		t.Errorf("IntervalSeconds = %d, want 60", cfg.IntervalSeconds)
	}
	if cfg.Horizon != 1 {
		t.Errorf("Horizon = %d, want 1", cfg.Horizon)
	}
	if cfg.Strategy != "majority" {
		t.Errorf("Strategy = %q, want majority", cfg.Strategy)
	}
	if !cfg.AutoCapture {
		t.Error("AutoCapture should be true")
	}
	if cfg.RecognizerTimeout != 3*time.Second {
		t.Errorf("RecognizerTimeout = %v, want 3s", cfg.RecognizerTimeout)
	}
}

func TestLoadWithYAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "httpAddr: \":7777\"\nintervalSeconds: 45\nstrategy: majority\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.HTTPAddr != ":7777" || cfg.IntervalSeconds != 45 || cfg.Strategy != "majority" {
		t.Errorf("yaml values not applied: %+v", cfg)
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("intervalSeconds: 45\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("INTERVAL_SECONDS", "90")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.IntervalSeconds != 90 {
		t.Errorf("IntervalSeconds = %d, env should win over yaml", cfg.IntervalSeconds)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"interval below minimum", "INTERVAL_SECONDS", "2"},
		{"interval above maximum", "INTERVAL_SECONDS", "300"},
		{"unknown strategy", "STRATEGY", "oracle"},
		{"zero horizon", "HORIZON", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			if _, err := Load(); !apperrors.IsCode(err, apperrors.CodeConfigInvalid) {
				t.Errorf("Load() error = %v, want config_invalid", err)
			}
		})
	}
}

func TestValidateInterval(t *testing.T) {
	for _, ok := range []int{5, 30, 120} {
		if err := ValidateInterval(ok); err != nil {
			t.Errorf("ValidateInterval(%d) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []int{0, 4, 121, -1} {
		if err := ValidateInterval(bad); err == nil {
			t.Errorf("ValidateInterval(%d) should fail", bad)
		}
	}
}
