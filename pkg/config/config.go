package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/payback159/passwordanalyzer/pkg/models"
	"gopkg.in/yaml.v3"
)

// Config holds the server settings
type Config struct {
	Env               string `yaml:"env"`
	Addr              string `yaml:"addr"`
	LogLevel          string `yaml:"log_level"`
	TemplateDir       string `yaml:"template_dir"`
	CSRFKey           string `yaml:"csrf_key"`
	CookieHashKey     string `yaml:"cookie_hash_key"`
	RateLimit         int    `yaml:"rate_limit"`
	RateBurst         int    `yaml:"rate_burst"`
	SessionTimeout    int    `yaml:"session_timeout"`
	MaxPasswordLength int    `yaml:"max_password_length"`

	// TrustProxyHeaders keys the rate limiter on CF-Connecting-IP, X-Forwarded-For and
	// X-Real-IP. Only enable it behind a proxy that overwrites them.
	TrustProxyHeaders  bool     `yaml:"trust_proxy_headers"`
	// CSRFTrustedOrigins lists extra hosts allowed to submit forms, e.g. "www.example.com"
	CSRFTrustedOrigins []string `yaml:"csrf_trusted_origins"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Env:               "development",
		Addr:              ":8080",
		LogLevel:          "info",
		RateLimit:         models.RateLimit,
		RateBurst:         models.RateBurst,
		SessionTimeout:    models.SessionTimeout,
		MaxPasswordLength: models.MaxPasswordLength,
	}
}

// Load builds the configuration from defaults, an optional YAML file and the environment.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Addr = fmt.Sprintf(":%d", port)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CSRF_KEY"); v != "" {
		c.CSRFKey = v
	}
	if v := os.Getenv("COOKIE_HASH_KEY"); v != "" {
		c.CookieHashKey = v
	}
	if v := os.Getenv("TRUST_PROXY_HEADERS"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TRUST_PROXY_HEADERS %q: %w", v, err)
		}
		c.TrustProxyHeaders = trust
	}
	if v := os.Getenv("CSRF_TRUSTED_ORIGINS"); v != "" {
		c.CSRFTrustedOrigins = splitList(v)
	}
	return nil
}

// splitList splits a comma-separated value, dropping blanks
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks the configuration for values the server cannot run with
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit must be positive, got %d", c.RateLimit))
	}
	if c.RateBurst <= 0 {
		errs = append(errs, fmt.Errorf("rate_burst must be positive, got %d", c.RateBurst))
	}
	if c.SessionTimeout <= 0 {
		errs = append(errs, fmt.Errorf("session_timeout must be positive, got %d", c.SessionTimeout))
	}
	if c.MaxPasswordLength <= 0 {
		errs = append(errs, fmt.Errorf("max_password_length must be positive, got %d", c.MaxPasswordLength))
	}
	for _, origin := range c.CSRFTrustedOrigins {
		if strings.Contains(origin, "/") {
			errs = append(errs, fmt.Errorf("csrf_trusted_origins takes hosts without scheme, got %q", origin))
		}
	}
	if c.IsProduction() && len(c.CSRFKey) != 32 {
		errs = append(errs, errors.New("csrf_key must be exactly 32 bytes in production"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether CSRF protection and secure cookies are enabled
func (c Config) IsProduction() bool {
	return c.Env == "production"
}
