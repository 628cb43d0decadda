package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jpalmerr/dashfeed"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// executeCmd runs the root command with args and returns captured stdout
// and stderr. Flag values left over from earlier runs are reset first.
func executeCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	rootCmd.SetOut(nil)
	rootCmd.SetErr(nil)
	return stdout.String(), stderr.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

const payload = `{"conversations":[{"id":"c1"},{"id":"c2"}],"students":{"s1":{"name":"Ada"}}}`

func TestRunValidate_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
endpoint: https://script.example.com/exec
refresh_interval: 30s
transports: [jsonp, proxy]
filters:
  student_id: s-42
`)

	output, _, err := executeCmd(t, "validate", "-c", path)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}

	for _, phrase := range []string{
		"Config is valid!",
		"Endpoint:         https://script.example.com/exec",
		"Port:             8080",
		"Refresh interval: 30s",
		"Timeout:          none",
		"Transports:       jsonp -> proxy",
		`studentID="s-42"`,
	} {
		if !strings.Contains(output, phrase) {
			t.Errorf("output missing %q\nGot: %s", phrase, output)
		}
	}
}

func TestRunValidate_OmitsEmptyFilters(t *testing.T) {
	path := writeConfig(t, "endpoint: https://script.example.com/exec\n")

	output, _, err := executeCmd(t, "validate", "-c", path)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}
	if strings.Contains(output, "Filters:") {
		t.Errorf("output should not list filters when none are set\nGot: %s", output)
	}
}

func TestRunValidate_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "port: 8080\n")

	_, _, err := executeCmd(t, "validate", "-c", path)
	if err == nil {
		t.Fatal("validate command expected error for invalid config, got nil")
	}
	if !strings.Contains(err.Error(), "endpoint is required") {
		t.Errorf("error should mention 'endpoint is required', got: %v", err)
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	_, _, err := executeCmd(t, "validate", "-c", "/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("validate command expected error for missing file, got nil")
	}
	if !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("error should mention 'failed to read', got: %v", err)
	}
}

func TestRunFetch_PrintsState(t *testing.T) {
	var gotStudent, gotDate string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStudent = r.URL.Query().Get("studentID")
		gotDate = r.URL.Query().Get("date")
		_, _ = w.Write([]byte(payload))
	}))
	defer ts.Close()

	path := writeConfig(t, fmt.Sprintf(`
endpoint: %s/exec
transports: [direct]
filters:
  student_id: from-config
  date: "2024-01-01"
`, ts.URL))

	stdout, stderr, err := executeCmd(t, "fetch", "-c", path, "--student-id", "s-9", "--log-level", "error")
	if err != nil {
		t.Fatalf("fetch command error = %v", err)
	}

	var state dashfeed.DashboardState
	if err := json.Unmarshal([]byte(stdout), &state); err != nil {
		t.Fatalf("stdout is not a state: %v\n%s", err, stdout)
	}
	if len(state.Conversations) != 2 || len(state.Students) != 1 {
		t.Errorf("state = %+v", state)
	}
	if !strings.Contains(stderr, "2 conversations, 1 students") {
		t.Errorf("stderr missing summary: %q", stderr)
	}
	if gotStudent != "s-9" {
		t.Errorf("studentID = %q, want flag value s-9", gotStudent)
	}
	if gotDate != "2024-01-01" {
		t.Errorf("date = %q, want config value", gotDate)
	}
}

func TestRunFetch_AllTransportsFail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	path := writeConfig(t, fmt.Sprintf("endpoint: %s\ntransports: [direct, jsonp]\n", ts.URL))

	stdout, _, err := executeCmd(t, "fetch", "-c", path, "--log-level", "error")
	if err == nil {
		t.Fatal("fetch command expected error, got nil")
	}
	if !errors.Is(err, dashfeed.ErrTransportExhausted) {
		t.Errorf("error = %v, want ErrTransportExhausted", err)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want nothing on failure", stdout)
	}
}

func TestRunPing(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))
	defer up.Close()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	stdout, _, err := executeCmd(t, "ping", "-c", writeConfig(t, "endpoint: "+up.URL+"\n"), "--log-level", "error")
	if err != nil {
		t.Fatalf("ping command error = %v", err)
	}
	if !strings.HasPrefix(stdout, "OK ") {
		t.Errorf("stdout = %q", stdout)
	}

	cfg := fmt.Sprintf("endpoint: %s\ntransports: [direct]\n", down.URL)
	_, _, err = executeCmd(t, "ping", "-c", writeConfig(t, cfg), "--log-level", "error")
	if !errors.Is(err, errPingFailed) {
		t.Errorf("ping error = %v, want errPingFailed", err)
	}
}

func TestVersion(t *testing.T) {
	stdout, _, err := executeCmd(t, "version")
	if err != nil {
		t.Fatalf("version command error = %v", err)
	}
	if !strings.Contains(stdout, "dashfeed dev") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		format  string
		level   string
		wantErr bool
	}{
		{format: "json", level: "info"},
		{format: "text", level: "debug"},
		{format: "dev", level: "warn"},
		{format: "xml", level: "info", wantErr: true},
		{format: "json", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format+"/"+tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := newLogger(&buf, tt.format, tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newLogger() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			logger.Error("boom", "took", time.Second)
			if !strings.Contains(buf.String(), "boom") {
				t.Errorf("logger wrote %q", buf.String())
			}
		})
	}
}

func TestNewLogger_JSONIsStructured(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "json", "info")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	logger.Info("data fetched", "transport", "jsonp")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["transport"] != "jsonp" {
		t.Errorf("entry = %v", entry)
	}
}

func TestIsTerminal(t *testing.T) {
	if isTerminal(&bytes.Buffer{}) {
		t.Error("isTerminal(buffer) = true, want false")
	}

	f, err := os.Create(filepath.Join(t.TempDir(), "log"))
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer f.Close()
	if isTerminal(f) {
		t.Error("isTerminal(regular file) = true, want false")
	}
}

func TestNewLogger_DevWithoutTerminalHasNoColor(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "dev", "info")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	logger.Error("transport failed", "transport", "direct")

	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("dev output to a non-terminal contains ANSI escapes: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "transport failed") {
		t.Errorf("dev output = %q", buf.String())
	}
}
