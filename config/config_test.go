package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParse_MinimalConfig(t *testing.T) {
	yaml := `
endpoint: https://script.example.com/exec
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// check defaults applied
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.RefreshInterval.Duration() != 60*time.Second {
		t.Errorf("RefreshInterval = %v, want 60s", cfg.RefreshInterval.Duration())
	}
	if cfg.Timeout.Duration() != 0 {
		t.Errorf("Timeout = %v, want 0", cfg.Timeout.Duration())
	}
	if cfg.ProxyURL != "https://api.allorigins.win/raw?url=" {
		t.Errorf("ProxyURL = %q", cfg.ProxyURL)
	}
	if diff := cmp.Diff([]string{"direct", "jsonp", "proxy"}, cfg.Transports); diff != "" {
		t.Errorf("Transports mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
endpoint: https://script.example.com/macros/s/abc/exec?deployment=prod
refresh_interval: 30s
timeout: 5s
port: 9090
proxy_url: https://relay.example.com/raw?url=
transports: [jsonp, proxy]
headers:
  Authorization: Bearer token123
  X-Custom: value
filters:
  student_id: s-42
  date: "2024-03-01"
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := &Config{
		Endpoint:        "https://script.example.com/macros/s/abc/exec?deployment=prod",
		RefreshInterval: Duration(30 * time.Second),
		Timeout:         Duration(5 * time.Second),
		Port:            9090,
		ProxyURL:        "https://relay.example.com/raw?url=",
		Transports:      []string{"jsonp", "proxy"},
		Headers:         map[string]string{"Authorization": "Bearer token123", "X-Custom": "value"},
		Filters:         FiltersConfig{StudentID: "s-42", Date: "2024-03-01"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	// t.Setenv auto-restores after test
	t.Setenv("TEST_SCRIPT_ID", "abc123")
	t.Setenv("TEST_DASH_TOKEN", "secret123")

	yaml := `
endpoint: https://script.example.com/macros/s/${TEST_SCRIPT_ID}/exec
proxy_url: https://${UNSET_RELAY:-relay.example.com}/raw?url=
headers:
  Authorization: "Bearer ${TEST_DASH_TOKEN}"
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Endpoint != "https://script.example.com/macros/s/abc123/exec" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if cfg.ProxyURL != "https://relay.example.com/raw?url=" {
		t.Errorf("ProxyURL = %q", cfg.ProxyURL)
	}
	if cfg.Headers["Authorization"] != "Bearer secret123" {
		t.Errorf("Headers[Authorization] = %q, want 'Bearer secret123'", cfg.Headers["Authorization"])
	}
}

func TestParse_EnvVarMissing(t *testing.T) {
	// MISSING_VAR is expected to not exist in the environment
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "endpoint",
			yaml: "endpoint: https://${MISSING_VAR}/exec",
			want: "endpoint",
		},
		{
			name: "header",
			yaml: "endpoint: https://example.com\nheaders:\n  X-Token: ${MISSING_VAR}",
			want: "headers[X-Token]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error for missing env var, got nil")
			}
			if !strings.Contains(err.Error(), "MISSING_VAR") || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error should mention %s and MISSING_VAR: %v", tt.want, err)
			}
		})
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing endpoint",
			yaml:    "port: 8080",
			wantErr: "endpoint is required",
		},
		{
			name:    "endpoint without scheme",
			yaml:    "endpoint: script.example.com/exec",
			wantErr: "url must have a scheme",
		},
		{
			name:    "endpoint with ftp scheme",
			yaml:    "endpoint: ftp://script.example.com/exec",
			wantErr: "url scheme must be http or https",
		},
		{
			name:    "endpoint without host",
			yaml:    "endpoint: https:///exec",
			wantErr: "url must have a host",
		},
		{
			name:    "bad proxy url",
			yaml:    "endpoint: https://example.com\nproxy_url: relay",
			wantErr: "proxy_url",
		},
		{
			name:    "refresh interval too short",
			yaml:    "endpoint: https://example.com\nrefresh_interval: 500ms",
			wantErr: "refresh_interval must be at least 1s",
		},
		{
			name:    "negative timeout",
			yaml:    "endpoint: https://example.com\ntimeout: -1s",
			wantErr: "timeout cannot be negative",
		},
		{
			name:    "port out of range",
			yaml:    "endpoint: https://example.com\nport: 70000",
			wantErr: "port must be between 1 and 65535",
		},
		{
			name:    "unknown transport",
			yaml:    "endpoint: https://example.com\ntransports: [direct, websocket]",
			wantErr: `transports[1]: unknown transport "websocket"`,
		},
		{
			name:    "duplicate transport",
			yaml:    "endpoint: https://example.com\ntransports: [proxy, proxy]",
			wantErr: `transports[1]: duplicate transport "proxy"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("endpoint: [unclosed"))
	if err == nil {
		t.Fatal("Parse() expected error for invalid YAML, got nil")
	}
	if !strings.Contains(err.Error(), "failed to parse YAML") {
		t.Errorf("error = %v, want 'failed to parse YAML'", err)
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"seconds", "10s", 10 * time.Second, false},
		{"milliseconds", "1500ms", 1500 * time.Millisecond, false},
		{"minutes", "2m", 2 * time.Minute, false},
		{"combined", "1m30s", 90 * time.Second, false},
		{"invalid", "not-a-duration", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yaml := "endpoint: https://example.com\ntimeout: " + tt.input

			cfg, err := Parse([]byte(yaml))
			if tt.wantErr {
				if err == nil {
					t.Fatal("Parse() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if cfg.Timeout.Duration() != tt.want {
				t.Errorf("Timeout = %v, want %v", cfg.Timeout.Duration(), tt.want)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "value")
	t.Setenv("EMPTY_VAR", "") // set but empty

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"no vars", "plain text", "plain text", false},
		{"simple var", "${TEST_VAR}", "value", false},
		{"var in text", "prefix ${TEST_VAR} suffix", "prefix value suffix", false},
		{"multiple vars", "${TEST_VAR}-${TEST_VAR}", "value-value", false},
		{"with default (var set)", "${TEST_VAR:-default}", "value", false},
		{"with default (var unset)", "${UNSET:-default}", "default", false},
		{"missing required", "${MISSING}", "", true},
		{"empty default (var unset)", "${UNSET:-}", "", false},
		{"set but empty var", "${EMPTY_VAR}", "", false},
		{"set but empty with default", "${EMPTY_VAR:-fallback}", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// UNSET and MISSING are expected to not exist in environment
			got, err := expandEnvVars(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expandEnvVars() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expandEnvVars() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashfeed.yaml")
	if err := os.WriteFile(path, []byte("endpoint: https://example.com/exec\nport: 9000\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Load() missing file error = %v", err)
	}
}
