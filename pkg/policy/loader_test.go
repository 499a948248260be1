package policy

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func writePolicyFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
}

func TestLoadFromFile_Rego(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	loader := NewLoader(logger)

	tmpDir := t.TempDir()
	policyFile := filepath.Join(tmpDir, "no-staging.rego")

	writePolicyFile(t, policyFile, `package migrator.custom.staging

# Refuses to migrate the staging database
# severity: error

import rego.v1

deny contains msg if {
	input.database == "staging"
	msg := "staging is frozen"
}`)

	policy, err := loader.loadFromFile(context.Background(), policyFile)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}

	if policy.Name != "no-staging" {
		t.Errorf("Expected name 'no-staging', got '%s'", policy.Name)
	}
	if policy.Description != "Refuses to migrate the staging database" {
		t.Errorf("Unexpected description: %q", policy.Description)
	}
	if policy.Severity != SeverityError {
		t.Errorf("Expected severity error, got %s", policy.Severity)
	}
	if !policy.Enabled {
		t.Error("Expected policy to be enabled")
	}
	if policy.Metadata["source"] != policyFile {
		t.Errorf("Expected source metadata %s, got %v", policyFile, policy.Metadata["source"])
	}
}

func TestLoadFromFile_RegoDefaultSeverity(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	loader := NewLoader(logger)

	policyFile := filepath.Join(t.TempDir(), "plain.rego")
	writePolicyFile(t, policyFile, "package migrator.custom.plain\n\nimport rego.v1\n\ndeny contains \"x\" if { false }\n")

	policy, err := loader.loadFromFile(context.Background(), policyFile)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}
	if policy.Severity != SeverityWarning {
		t.Errorf("Expected default severity warning, got %s", policy.Severity)
	}
	if policy.Description != "" {
		t.Errorf("Expected empty description, got %q", policy.Description)
	}
}

func TestLoadFromFile_JSON(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	loader := NewLoader(logger)

	policyFile := filepath.Join(t.TempDir(), "policy.json")
	writePolicyFile(t, policyFile, `{
  "name": "json-policy",
  "description": "Loaded from JSON",
  "enabled": true,
  "tags": ["custom"],
  "rego": "package migrator.custom.json\n\nimport rego.v1\n\ndeny contains \"no\" if { input.prefix == \"tmp\" }"
}`)

	policy, err := loader.loadFromFile(context.Background(), policyFile)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}

	if policy.Name != "json-policy" {
		t.Errorf("Expected name 'json-policy', got '%s'", policy.Name)
	}
	if policy.Severity != SeverityWarning {
		t.Errorf("Expected default severity warning, got %s", policy.Severity)
	}
	if len(policy.Tags) != 1 || policy.Tags[0] != "custom" {
		t.Errorf("Unexpected tags: %v", policy.Tags)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	loader := NewLoader(logger)
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "json without name", file: "anonymous.json", content: `{"rego": "package x"}`},
		{name: "malformed json", file: "broken.json", content: `{"name":`},
		{name: "unsupported type", file: "policy.txt", content: "deny"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.file)
			writePolicyFile(t, path, tt.content)

			if _, err := loader.loadFromFile(context.Background(), path); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestLoadFromPaths_Directory(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	loader := NewLoader(logger)

	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "nested")
	if err := os.Mkdir(nested, 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	writePolicyFile(t, filepath.Join(tmpDir, "a.rego"), "package migrator.custom.a\n\nimport rego.v1\n\ndeny contains \"a\" if { false }\n")
	writePolicyFile(t, filepath.Join(nested, "b.rego"), "package migrator.custom.b\n\nimport rego.v1\n\ndeny contains \"b\" if { false }\n")
	writePolicyFile(t, filepath.Join(tmpDir, "README.md"), "not a policy")
	writePolicyFile(t, filepath.Join(tmpDir, "bad.json"), "{")

	policies, err := loader.LoadFromPaths(context.Background(), []string{tmpDir})
	if err != nil {
		t.Fatalf("LoadFromPaths failed: %v", err)
	}

	if len(policies) != 2 {
		t.Fatalf("Expected 2 policies, got %d", len(policies))
	}

	if _, err := loader.LoadFromPaths(context.Background(), []string{filepath.Join(tmpDir, "missing")}); err == nil {
		t.Error("Expected error for missing path")
	}
}

func TestLoadPolicies_Engine(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	tmpDir := t.TempDir()
	writePolicyFile(t, filepath.Join(tmpDir, "no-tmp.rego"), `package migrator.custom.tmp

# severity: critical

import rego.v1

deny contains msg if {
	input.prefix == "tmp"
	msg := "temporary prefixes are not allowed"
}`)

	if err := eng.LoadPolicies(ctx, []string{tmpDir}); err != nil {
		t.Fatalf("LoadPolicies failed: %v", err)
	}

	result, err := eng.Evaluate(ctx, &Input{Operation: "migrate", Adapter: "sqlite", Database: "cms.db", Prefix: "tmp"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Allowed {
		t.Fatal("Expected loaded policy to deny")
	}
	if result.Violations[0].Severity != SeverityCritical {
		t.Errorf("Expected critical severity, got %s", result.Violations[0].Severity)
	}
}

func TestClearCache(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	loader := NewLoader(logger)

	policyFile := filepath.Join(t.TempDir(), "cached.rego")
	writePolicyFile(t, policyFile, "package migrator.custom.cached\n\n# first\n")

	first, err := loader.loadFromFile(context.Background(), policyFile)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}

	writePolicyFile(t, policyFile, "package migrator.custom.cached\n\n# second\n")

	cached, err := loader.loadFromFile(context.Background(), policyFile)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}
	if cached.Description != first.Description {
		t.Errorf("Expected cached policy, got description %q", cached.Description)
	}

	loader.ClearCache()

	fresh, err := loader.loadFromFile(context.Background(), policyFile)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}
	if fresh.Description != "second" {
		t.Errorf("Expected reloaded description 'second', got %q", fresh.Description)
	}
}

func TestWatch(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	loader := NewLoader(logger)

	tmpDir := t.TempDir()
	writePolicyFile(t, filepath.Join(tmpDir, "first.rego"), "package migrator.custom.first\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var reloaded []Policy
	done := make(chan struct{}, 1)

	err := loader.Watch(ctx, []string{tmpDir}, func(policies []Policy) error {
		mu.Lock()
		reloaded = policies
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	writePolicyFile(t, filepath.Join(tmpDir, "second.rego"), "package migrator.custom.second\n")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for reload")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(reloaded) != 2 {
		t.Errorf("Expected 2 policies after reload, got %d", len(reloaded))
	}
}

func TestWatch_NewSubdirectory(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	loader := NewLoader(logger)

	tmpDir := t.TempDir()
	writePolicyFile(t, filepath.Join(tmpDir, "first.rego"), "package migrator.custom.first\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloads := make(chan int, 16)
	err := loader.Watch(ctx, []string{tmpDir}, func(policies []Policy) error {
		select {
		case reloads <- len(policies):
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	subDir := filepath.Join(tmpDir, "team")
	if err := os.Mkdir(subDir, 0o755); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	writePolicyFile(t, filepath.Join(subDir, "nested.rego"), "package migrator.custom.nested\n")

	timeout := time.After(5 * time.Second)
	for {
		select {
		case n := <-reloads:
			if n == 2 {
				return
			}
		case <-timeout:
			t.Fatal("Timed out waiting for reload including the new directory")
		}
	}
}
