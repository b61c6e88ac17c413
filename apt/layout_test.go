package apt

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLayoutPaths(t *testing.T) {
	l := Layout{Root: "/repo"}

	if got := l.PoolDir("main", "mytool"); got != filepath.Join("/repo", "pool", "main", "m", "mytool") {
		t.Errorf("PoolDir = %q", got)
	}
	if got := l.PoolDir("main", "Zlib"); got != filepath.Join("/repo", "pool", "main", "z", "Zlib") {
		t.Errorf("PoolDir should lowercase the letter prefix, got %q", got)
	}
	if got := l.BinaryDir("stable", "main", "amd64"); got != filepath.Join("/repo", "dists", "stable", "main", "binary-amd64") {
		t.Errorf("BinaryDir = %q", got)
	}
	if got := l.ReleasePath("stable"); got != filepath.Join("/repo", "dists", "stable", "Release") {
		t.Errorf("ReleasePath = %q", got)
	}
	if got := l.InReleasePath("stable"); got != filepath.Join("/repo", "dists", "stable", "InRelease") {
		t.Errorf("InReleasePath = %q", got)
	}
	if got := l.ReleaseGPGPath("stable"); got != filepath.Join("/repo", "dists", "stable", "Release.gpg") {
		t.Errorf("ReleaseGPGPath = %q", got)
	}
}

func TestEnsureCreatesTree(t *testing.T) {
	root := t.TempDir()
	l := Layout{Root: root}

	if err := l.Ensure("stable", "main", "mytool", []string{"amd64", "arm64"}); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	for _, dir := range []string{
		l.PoolDir("main", "mytool"),
		l.BinaryDir("stable", "main", "amd64"),
		l.BinaryDir("stable", "main", "arm64"),
	} {
		st, err := os.Stat(dir)
		if err != nil || !st.IsDir() {
			t.Errorf("Expected directory %s: %v", dir, err)
		}
	}

	// A second run over the existing tree is a no-op.
	if err := l.Ensure("stable", "main", "mytool", []string{"amd64", "arm64"}); err != nil {
		t.Errorf("Ensure should be idempotent: %v", err)
	}
}

func TestEnsureValidation(t *testing.T) {
	root := t.TempDir()
	l := Layout{Root: root}

	cases := []struct {
		name  string
		run   func() error
	}{
		{"empty root", func() error { return Layout{}.Ensure("stable", "main", "p", []string{"amd64"}) }},
		{"empty distribution", func() error { return l.Ensure("", "main", "p", []string{"amd64"}) }},
		{"empty component", func() error { return l.Ensure("stable", "", "p", []string{"amd64"}) }},
		{"empty package", func() error { return l.Ensure("stable", "main", "", []string{"amd64"}) }},
		{"no architectures", func() error { return l.Ensure("stable", "main", "p", nil) }},
		{"blank architecture", func() error { return l.Ensure("stable", "main", "p", []string{"amd64", ""}) }},
	}
	for _, tc := range cases {
		if err := tc.run(); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}

	// Validation runs before any directory is created.
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Rejected input left %d entries in the root", len(entries))
	}
}

func TestAddToPool(t *testing.T) {
	root := t.TempDir()
	l := Layout{Root: root}
	if err := l.Ensure("stable", "main", "mytool", []string{"amd64"}); err != nil {
		t.Fatal(err)
	}

	src := buildTestDeb(t, t.TempDir(), "mytool", "1.0.0", "amd64")
	rel, err := l.AddToPool("main", "mytool", src)
	if err != nil {
		t.Fatalf("AddToPool failed: %v", err)
	}
	if rel != "pool/main/m/mytool/mytool_1.0.0_amd64.deb" {
		t.Errorf("Pool path = %q", rel)
	}

	want := readFile(t, src)
	got := readFile(t, filepath.Join(root, filepath.FromSlash(rel)))
	if string(got) != string(want) {
		t.Error("Pool copy differs from the source artifact")
	}

	// Re-adding the same artifact overwrites in place.
	if _, err := l.AddToPool("main", "mytool", src); err != nil {
		t.Errorf("Overwriting re-add failed: %v", err)
	}
}

func TestAddToPoolValidation(t *testing.T) {
	l := Layout{Root: t.TempDir()}
	src := buildTestDeb(t, t.TempDir(), "mytool", "1.0.0", "amd64")

	if _, err := l.AddToPool("main", "", src); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Empty package name: expected ErrInvalidInput, got %v", err)
	}
	if _, err := l.AddToPool("", "mytool", src); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Empty component: expected ErrInvalidInput, got %v", err)
	}
}

func TestAddToPoolMissingSource(t *testing.T) {
	root := t.TempDir()
	l := Layout{Root: root}
	if err := l.Ensure("stable", "main", "mytool", []string{"amd64"}); err != nil {
		t.Fatal(err)
	}

	_, err := l.AddToPool("main", "mytool", filepath.Join(root, "nope.deb"))
	if !errors.Is(err, ErrIO) {
		t.Errorf("Expected ErrIO, got %v", err)
	}
}
