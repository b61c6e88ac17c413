package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/debpress/debpress/apt"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "repo.yaml", `
distribution:
  name: bookworm
  origin: Example
  label: Example Repo
  suite: stable
  codename: bookworm
  description: Example package repository
component: contrib
architectures: [amd64, arm64]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Distribution.Name != "bookworm" || cfg.Distribution.Origin != "Example" {
		t.Errorf("Wrong distribution: %+v", cfg.Distribution)
	}
	if cfg.Distribution.Description != "Example package repository" {
		t.Errorf("Description = %q", cfg.Distribution.Description)
	}
	if cfg.Component != "contrib" {
		t.Errorf("Component = %q", cfg.Component)
	}
	if len(cfg.Architectures) != 2 || cfg.Architectures[0] != "amd64" || cfg.Architectures[1] != "arm64" {
		t.Errorf("Architectures = %v", cfg.Architectures)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "repo.json", `{
  "distribution": {"name": "stable", "origin": "Example", "valid_until": "Mon, 09 Jan 2006 15:04:05 +0000"},
  "architectures": ["amd64"]
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Distribution.Name != "stable" {
		t.Errorf("Name = %q", cfg.Distribution.Name)
	}
	if cfg.Distribution.ValidUntil != "Mon, 09 Jan 2006 15:04:05 +0000" {
		t.Errorf("ValidUntil = %q", cfg.Distribution.ValidUntil)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	yamlPath := writeConfig(t, "typo.yaml", `
distribution:
  orgin: Example
`)
	if _, err := Load(yamlPath); !errors.Is(err, apt.ErrConfig) {
		t.Errorf("Expected ErrConfig for unknown YAML field, got %v", err)
	}

	jsonPath := writeConfig(t, "typo.json", `{"distribution": {"orgin": "Example"}}`)
	if _, err := Load(jsonPath); !errors.Is(err, apt.ErrConfig) {
		t.Errorf("Expected ErrConfig for unknown JSON field, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); !errors.Is(err, apt.ErrConfig) {
		t.Errorf("Expected ErrConfig for missing file, got %v", err)
	}
}
