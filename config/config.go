// Package config provides YAML configuration parsing for dashfeed.
//
// This package enables running dashfeed as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	endpoint: https://script.google.com/macros/s/XXX/exec
//	refresh_interval: 60s
//	timeout: 15s
//	port: 8080
//	transports: [direct, jsonp, proxy]
//
//	headers:
//	  Authorization: Bearer ${DASH_TOKEN}
//
//	filters:
//	  student_id: s-42
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// minRefreshInterval prevents hammering the endpoint by accident.
	minRefreshInterval = 1 * time.Second

	defaultRefreshInterval = 60 * time.Second
	defaultPort            = 8080
	defaultProxyURL        = "https://api.allorigins.win/raw?url="
)

var defaultTransports = []string{"direct", "jsonp", "proxy"}

// Config is the root configuration structure for dashfeed.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Endpoint is the data endpoint URL.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Endpoint string `yaml:"endpoint"`

	// RefreshInterval is the time between refreshes. Defaults to 60s.
	RefreshInterval Duration `yaml:"refresh_interval"`

	// Timeout bounds each transport request. Zero means no timeout.
	Timeout Duration `yaml:"timeout"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// ProxyURL is the relay prefix for the proxy transport.
	ProxyURL string `yaml:"proxy_url"`

	// Transports lists the transports to try, in order.
	// Defaults to direct, jsonp, proxy.
	Transports []string `yaml:"transports"`

	// Headers are custom HTTP headers sent with each request.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Filters narrow the data requested by scheduled refreshes.
	Filters FiltersConfig `yaml:"filters"`
}

// FiltersConfig holds the optional request filters.
type FiltersConfig struct {
	StudentID string `yaml:"student_id"`
	Date      string `yaml:"date"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part, present when a default was given
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		sub := envVarPattern.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}

		name := sub[1]
		hasDefault := len(sub) > 2 && sub[2] != ""

		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		if hasDefault {
			return sub[3]
		}
		firstErr = fmt.Errorf("environment variable %q is not set", name)
		return match
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in Endpoint, ProxyURL and Header
// values. Defaults are applied for RefreshInterval (60s), Port (8080),
// ProxyURL and Transports.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = Duration(defaultRefreshInterval)
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.ProxyURL == "" {
		cfg.ProxyURL = defaultProxyURL
	}
	if len(cfg.Transports) == 0 {
		cfg.Transports = append([]string(nil), defaultTransports...)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	expanded, err := expandEnvVars(c.Endpoint)
	if err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}
	c.Endpoint = expanded
	if err := validateHTTPURL(c.Endpoint); err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}

	expanded, err = expandEnvVars(c.ProxyURL)
	if err != nil {
		return fmt.Errorf("proxy_url: %w", err)
	}
	c.ProxyURL = expanded
	if err := validateHTTPURL(c.ProxyURL); err != nil {
		return fmt.Errorf("proxy_url: %w", err)
	}

	if c.RefreshInterval.Duration() < minRefreshInterval {
		return fmt.Errorf("refresh_interval must be at least %s, got %s", minRefreshInterval, c.RefreshInterval.Duration())
	}
	if c.Timeout.Duration() < 0 {
		return fmt.Errorf("timeout cannot be negative, got %s", c.Timeout.Duration())
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	seen := make(map[string]bool, len(c.Transports))
	for i, name := range c.Transports {
		switch name {
		case "direct", "jsonp", "proxy":
		default:
			return fmt.Errorf("transports[%d]: unknown transport %q (expected direct, jsonp or proxy)", i, name)
		}
		if seen[name] {
			return fmt.Errorf("transports[%d]: duplicate transport %q", i, name)
		}
		seen[name] = true
	}

	for k, v := range c.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("headers[%s]: %w", k, err)
		}
		c.Headers[k] = expanded
	}

	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("url must have a scheme (http:// or https://)")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url must have a host")
	}
	return nil
}
