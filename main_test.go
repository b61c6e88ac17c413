package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/debpress/debpress/apt"
	"github.com/debpress/debpress/config"
	"github.com/debpress/debpress/deb"
)

func buildDeb(t *testing.T, dir, name, version, arch string) string {
	t.Helper()
	b := &deb.Builder{
		Package:      name,
		Version:      version,
		Architecture: arch,
		Maintainer:   "Test <test@example.com>",
		Description:  "A test package",
	}
	path := filepath.Join(dir, b.Filename())
	if err := b.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExpandArtifacts(t *testing.T) {
	dir := t.TempDir()
	a := buildDeb(t, dir, "mytool", "1.0.0", "amd64")
	b := buildDeb(t, dir, "mytool", "1.1.0", "amd64")

	got, err := expandArtifacts([]string{filepath.Join(dir, "*.deb")})
	if err != nil {
		t.Fatalf("expandArtifacts failed: %v", err)
	}
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("Expanded to %v", got)
	}
}

func TestExpandArtifactsNoMatch(t *testing.T) {
	_, err := expandArtifacts([]string{filepath.Join(t.TempDir(), "*.deb")})
	if err == nil || !strings.Contains(err.Error(), "no file matches") {
		t.Errorf("Expected no-match error, got %v", err)
	}
}

func TestExpandArtifactsRejectsNonDeb(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := expandArtifacts([]string{path})
	if err == nil || !strings.Contains(err.Error(), "not a .deb") {
		t.Errorf("Expected extension error, got %v", err)
	}
}

func TestCommonPackageName(t *testing.T) {
	dir := t.TempDir()
	a := buildDeb(t, dir, "mytool", "1.0.0", "amd64")
	b := buildDeb(t, dir, "mytool", "1.0.0", "arm64")

	name, err := commonPackageName([]string{a, b})
	if err != nil {
		t.Fatalf("commonPackageName failed: %v", err)
	}
	if name != "mytool" {
		t.Errorf("Name = %q", name)
	}

	other := buildDeb(t, dir, "othertool", "1.0.0", "amd64")
	if _, err := commonPackageName([]string{a, other}); err == nil {
		t.Error("Expected error for mixed package names")
	}
}

func TestResolveSigning(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "key.asc")
	if err := os.WriteFile(keyPath, []byte("file key"), 0600); err != nil {
		t.Fatal(err)
	}

	// Without the environment, the key comes from the file.
	t.Setenv(EnvSigningKey, "")
	t.Setenv(EnvPassphrase, "")
	req, err := resolveSigning(keyPath, "abcd")
	if err != nil {
		t.Fatal(err)
	}
	if req.Key != "file key" || req.KeyID != "abcd" || req.Passphrase != nil {
		t.Errorf("Unexpected request: %+v", req)
	}

	// The environment overrides the key file and supplies the passphrase.
	t.Setenv(EnvSigningKey, "env key")
	t.Setenv(EnvPassphrase, "hunter2")
	req, err = resolveSigning(keyPath, "")
	if err != nil {
		t.Fatal(err)
	}
	if req.Key != "env key" || string(req.Passphrase) != "hunter2" {
		t.Errorf("Unexpected request: %+v", req)
	}
}

func TestApplyConfig(t *testing.T) {
	cfg := &config.Config{
		Distribution: apt.Distribution{
			Name:   "bookworm",
			Origin: "Config Origin",
			Label:  "Config Label",
		},
		Component:     "contrib",
		Architectures: []string{"arm64"},
	}

	dist := apt.Distribution{Name: "stable", Origin: "Flag Origin"}
	component := "main"
	archs := []string{"amd64"}

	changed := func(name string) bool { return name == "arch" }
	applyConfig(cfg, changed, &dist, &component, &archs)

	if dist.Origin != "Flag Origin" {
		t.Errorf("Flag value overridden: %q", dist.Origin)
	}
	if dist.Label != "Config Label" {
		t.Errorf("Config value not applied: %q", dist.Label)
	}
	if dist.Name != "bookworm" {
		t.Errorf("Distribution name = %q", dist.Name)
	}
	if component != "contrib" {
		t.Errorf("Component = %q", component)
	}
	if len(archs) != 1 || archs[0] != "amd64" {
		t.Errorf("Explicit flag architectures replaced: %v", archs)
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, bad := range []string{"verbose", "trace"} {
		if _, err := parseLogLevel(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
	for _, ok := range []string{"", "debug", "info", "warn", "warning", "error", "err"} {
		if _, err := parseLogLevel(ok); err != nil {
			t.Errorf("Unexpected error for %q: %v", ok, err)
		}
	}
}
