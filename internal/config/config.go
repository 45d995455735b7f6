// Package config handles tracker configuration
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/pr-poehali-dev/alpha-omega-bot/internal/errors"
)

// Interval bounds for the auto-detection loop, in seconds.
const (
	MinIntervalSeconds     = 5
	MaxIntervalSeconds     = 120
	DefaultIntervalSeconds = 30
)

// Config captures everything needed to boot the tracker service.
type Config struct {
	HTTPAddr          string        `yaml:"httpAddr"`
	RecognizerURL     string        `yaml:"recognizerURL"`
	RecognizerTimeout time.Duration `yaml:"recognizerTimeout"`
	IntervalSeconds   int           `yaml:"intervalSeconds"`
	Horizon           int           `yaml:"horizon"`
	Strategy          string        `yaml:"strategy"`
	AutoCapture       bool          `yaml:"autoCapture"`
	HashDistance      int           `yaml:"hashDistance"` // max pHash Hamming distance treated as "same frame"
	WSRatePerSecond   float64       `yaml:"wsRatePerSecond"`
	WSRateBurst       int           `yaml:"wsRateBurst"`
	LogLevel          string        `yaml:"logLevel"`
	LogJSON           bool          `yaml:"logJSON"`
}

func defaults() *Config {
	return &Config{
		HTTPAddr:          ":8000",
		RecognizerURL:     "https://functions.poehali.dev/alpha-omega-ocr",
		RecognizerTimeout: 10 * time.Second,
		IntervalSeconds:   DefaultIntervalSeconds,
		Horizon:           3,
		Strategy:          "transitions",
		AutoCapture:       false,
		HashDistance:      10,
		WSRatePerSecond:   10,
		WSRateBurst:       20,
		LogLevel:          "info",
		LogJSON:           false,
	}
}

// Load builds the config from defaults, an optional YAML file named by
// CONFIG_FILE, and environment variable overrides, then validates it.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.Wrapf(err, apperrors.CodeConfigInvalid, "read config file %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.Wrapf(err, apperrors.CodeConfigInvalid, "parse config file %s", path)
		}
	}

	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.RecognizerURL = getEnv("RECOGNIZER_URL", cfg.RecognizerURL)
	cfg.RecognizerTimeout = getEnvDuration("RECOGNIZER_TIMEOUT", cfg.RecognizerTimeout)
	cfg.IntervalSeconds = getEnvInt("INTERVAL_SECONDS", cfg.IntervalSeconds)
	cfg.Horizon = getEnvInt("HORIZON", cfg.Horizon)
	cfg.Strategy = getEnv("STRATEGY", cfg.Strategy)
	cfg.AutoCapture = getEnvBool("AUTO_CAPTURE", cfg.AutoCapture)
	cfg.HashDistance = getEnvInt("HASH_DISTANCE", cfg.HashDistance)
	cfg.WSRatePerSecond = getEnvFloat("WS_RATE_PER_SECOND", cfg.WSRatePerSecond)
	cfg.WSRateBurst = getEnvInt("WS_RATE_BURST", cfg.WSRateBurst)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogJSON = getEnvBool("LOG_JSON", cfg.LogJSON)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks bounds; ValidateInterval is shared with the runtime
// interval setter.
func (c *Config) Validate() error {
	if err := ValidateInterval(c.IntervalSeconds); err != nil {
		return err
	}
	if c.Horizon < 1 || c.Horizon > 10 {
		return apperrors.Newf(apperrors.CodeConfigInvalid, "horizon %d out of range [1,10]", c.Horizon)
	}
	if c.Strategy != "transitions" && c.Strategy != "majority" {
		return apperrors.Newf(apperrors.CodeConfigInvalid, "unknown strategy %q", c.Strategy)
	}
	if c.RecognizerURL == "" {
		return apperrors.New(apperrors.CodeConfigInvalid, "recognizer URL is required")
	}
	return nil
}

// ValidateInterval enforces the [5,120] second bounds.
func ValidateInterval(seconds int) error {
	if seconds < MinIntervalSeconds || seconds > MaxIntervalSeconds {
		return apperrors.Newf(apperrors.CodeConfigInvalid,
			"interval %d out of range [%d,%d]", seconds, MinIntervalSeconds, MaxIntervalSeconds)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// Interval returns the loop interval as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// String renders the config for startup logging, without secrets.
func (c *Config) String() string {
	return fmt.Sprintf("http=%s interval=%ds horizon=%d strategy=%s autoCapture=%v",
		c.HTTPAddr, c.IntervalSeconds, c.Horizon, c.Strategy, c.AutoCapture)
}
