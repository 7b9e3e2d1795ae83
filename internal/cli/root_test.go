package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestRootCommandWiring(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"run", "config"} {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected root to contain %q subcommand", name)
		}
	}
}

func TestConfigLint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rekindle.yaml")
	manifest := "worker:\n  entry: demo.echo\n  gracePeriod: 1s\n"
	if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	root := NewRootCmd()
	root.SetArgs([]string{"-f", path, "config", "lint"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err != nil {
		t.Fatalf("lint valid manifest: %v", err)
	}
}

func TestConfigLintRejectsInvalidManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rekindle.yaml")
	if err := os.WriteFile(path, []byte("worker:\n  entry: nodots\n"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	root := NewRootCmd()
	root.SetArgs([]string{"-f", path, "config", "lint"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected lint to fail")
	}
}
