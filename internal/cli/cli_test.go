package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	RootCmd.SetOut(&buf)
	RootCmd.SetErr(&buf)
	RootCmd.SetArgs(args)
	err := RootCmd.Execute()
	return buf.String(), err
}

func TestEndpointName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "root"},
		{"", "root"},
		{"/items", "items"},
		{"/items/all", "items_all"},
		{"/Search?q=shoes", "search_q_shoes"},
	}
	for _, tt := range tests {
		if got := endpointName(tt.path); got != tt.want {
			t.Errorf("endpointName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestEnvCommandListsEnvironments(t *testing.T) {
	out, err := execute(t, "env")
	if err != nil {
		t.Fatalf("env: %v", err)
	}
	for _, name := range []string{"dev", "qa", "staging", "prod"} {
		if !strings.Contains(out, name) {
			t.Errorf("env listing missing %q\n%s", name, out)
		}
	}
	if !strings.Contains(out, "*") {
		t.Errorf("env listing should mark the selected environment\n%s", out)
	}
}

func TestEnvCommandShowsOne(t *testing.T) {
	out, err := execute(t, "env", "qa")
	if err != nil {
		t.Fatalf("env qa: %v", err)
	}
	if !strings.Contains(out, "qa") || !strings.Contains(out, "Base URL") {
		t.Errorf("unexpected detail output:\n%s", out)
	}
	if !strings.Contains(out, "Thresholds:") || !strings.Contains(out, "http_req_duration") {
		t.Errorf("detail output missing resolved thresholds:\n%s", out)
	}
}

func TestEnvCommandUnknownName(t *testing.T) {
	if _, err := execute(t, "env", "moon"); err == nil {
		t.Error("expected error for unknown environment")
	}
}

func TestRunCommandEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/status":
			w.Write([]byte(`{"status":"ok"}`))
		case "/items":
			w.Write([]byte(`{"items":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	t.Setenv("DEV_BASE_URL", server.URL)
	// Shrink the smoke profile's single ramp stage so the test stays fast.
	t.Setenv("RAMP_UP_DURATION", "500ms")

	reportPath := filepath.Join(t.TempDir(), "report.json")

	out, err := execute(t,
		"run", "--env", "dev", "--type", "smoke",
		"--path", "/items", "--no-color", "--report", reportPath)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}

	if !strings.Contains(out, "PASSED") {
		t.Errorf("expected PASSED verdict:\n%s", out)
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("report file: %v", err)
	}
	if !strings.Contains(string(data), `"environment": "dev"`) {
		t.Errorf("report file missing environment:\n%s", data)
	}
}

func TestRunCommandFailsOnUnreachableTarget(t *testing.T) {
	t.Setenv("DEV_BASE_URL", "http://127.0.0.1:1")
	t.Setenv("RAMP_UP_DURATION", "200ms")

	if _, err := execute(t, "run", "--env", "dev", "--type", "smoke", "--no-color"); err == nil {
		t.Error("expected error when the health probe cannot reach the target")
	}
}
