package env

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "envs.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileRejectsWrongTypes(t *testing.T) {
	path := writeTemp(t, `
environments:
  qa:
    baseUrl: "https://qa.example.com"
    maxVUs: "fifty"
`)
	if _, err := LoadFile(path); err == nil {
		t.Error("expected schema error for string maxVUs")
	}
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	path := writeTemp(t, `
environments:
  qa:
    baseUrl: "https://qa.example.com"
    timeout: 30
`)
	if _, err := LoadFile(path); err == nil {
		t.Error("expected schema error for unknown key")
	}
}

func TestLoadFileRejectsEmptyEnvironments(t *testing.T) {
	path := writeTemp(t, `environments: {}`)
	if _, err := LoadFile(path); err == nil {
		t.Error("expected schema error for empty environments map")
	}
}

func TestLoadFileConfigReadsThresholds(t *testing.T) {
	path := writeTemp(t, `
environments:
  prod:
    apiKey: "vault-key"
thresholds:
  "http_req_duration{endpoint:checkout}":
    - "p(95)<900"
`)
	file, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig: %v", err)
	}
	got := file.Thresholds["http_req_duration{endpoint:checkout}"]
	if len(got) != 1 || got[0] != "p(95)<900" {
		t.Errorf("thresholds = %v", got)
	}
}

func TestLoadFileRejectsNonStringThresholds(t *testing.T) {
	path := writeTemp(t, `
environments:
  qa:
    maxVUs: 10
thresholds:
  http_req_failed:
    - 0.01
`)
	if _, err := LoadFile(path); err == nil {
		t.Error("expected schema error for numeric threshold condition")
	}
}

func TestLoadFileAcceptsValidFile(t *testing.T) {
	path := writeTemp(t, `
environments:
  qa:
    baseUrl: "https://qa.internal.example.com"
    apiKey: "qa-key"
    maxVUs: 75
    description: "shared QA cluster"
`)
	overrides, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if overrides["qa"].MaxVUs != 75 {
		t.Errorf("maxVUs = %d, want 75", overrides["qa"].MaxVUs)
	}
}
