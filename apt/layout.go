package apt

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Layout derives the canonical on-disk paths of a standard APT repository
// from its root directory. All derived paths are relative to Root; the pool
// location of an artifact is fully determined by (component, first letter of
// the package name, package name).
//
// Reference: https://wiki.debian.org/DebianRepository/Format
type Layout struct {
	// Root is the repository root, the single source of truth every other
	// path is computed from.
	Root string
}

// PoolComponentDir returns pool/<component> under the root.
func (l Layout) PoolComponentDir(component string) string {
	return filepath.Join(l.Root, "pool", component)
}

// PoolDir returns pool/<component>/<first-letter>/<pkg> under the root.
// The letter prefix is the lowercased first character of the package name;
// an empty name yields the component directory itself.
func (l Layout) PoolDir(component, pkg string) string {
	if pkg == "" {
		return l.PoolComponentDir(component)
	}
	return filepath.Join(l.PoolComponentDir(component), strings.ToLower(pkg[:1]), pkg)
}

// DistDir returns dists/<distribution> under the root.
func (l Layout) DistDir(distribution string) string {
	return filepath.Join(l.Root, "dists", distribution)
}

// BinaryDir returns dists/<distribution>/<component>/binary-<arch>.
func (l Layout) BinaryDir(distribution, component, arch string) string {
	return filepath.Join(l.DistDir(distribution), component, "binary-"+arch)
}

// ReleasePath returns the path of the distribution's Release file.
func (l Layout) ReleasePath(distribution string) string {
	return filepath.Join(l.DistDir(distribution), "Release")
}

// InReleasePath returns the path of the clearsigned Release file.
func (l Layout) InReleasePath(distribution string) string {
	return filepath.Join(l.DistDir(distribution), "InRelease")
}

// ReleaseGPGPath returns the path of the detached Release signature.
func (l Layout) ReleaseGPGPath(distribution string) string {
	return filepath.Join(l.DistDir(distribution), "Release.gpg")
}

// Ensure validates the layout parameters and creates the pool directory for
// the package plus one binary index directory per architecture. It is
// idempotent: existing directories are left untouched, and nothing is
// created until all parameters have been validated.
func (l Layout) Ensure(distribution, component, pkg string, architectures []string) error {
	if l.Root == "" {
		return fmt.Errorf("%w: repository root is empty", ErrInvalidInput)
	}
	if distribution == "" {
		return fmt.Errorf("%w: distribution name is empty", ErrInvalidInput)
	}
	if component == "" {
		return fmt.Errorf("%w: component name is empty", ErrInvalidInput)
	}
	if pkg == "" {
		return fmt.Errorf("%w: package name is empty", ErrInvalidInput)
	}
	if len(architectures) == 0 {
		return fmt.Errorf("%w: architecture list is empty", ErrInvalidInput)
	}
	for _, arch := range architectures {
		if arch == "" {
			return fmt.Errorf("%w: architecture name is empty", ErrInvalidInput)
		}
	}

	if err := os.MkdirAll(l.PoolDir(component, pkg), 0755); err != nil {
		return fmt.Errorf("creating pool directory: %w", err)
	}
	for _, arch := range architectures {
		if err := os.MkdirAll(l.BinaryDir(distribution, component, arch), 0755); err != nil {
			return fmt.Errorf("creating binary-%s directory: %w", arch, err)
		}
	}
	return nil
}

// AddToPool copies the artifact at src into the pool directory for pkg,
// overwriting any previous copy. It returns the destination path relative to
// the repository root (slash-separated, as used by the Filename index field).
// The copy is staged in a temporary file and renamed into place.
func (l Layout) AddToPool(component, pkg, src string) (string, error) {
	if component == "" {
		return "", fmt.Errorf("%w: component name is empty", ErrInvalidInput)
	}
	if pkg == "" {
		return "", fmt.Errorf("%w: package name is empty", ErrInvalidInput)
	}
	dst := filepath.Join(l.PoolDir(component, pkg), filepath.Base(src))
	if err := copyFileAtomic(src, dst); err != nil {
		return "", fmt.Errorf("%w: staging %s: %v", ErrIO, filepath.Base(src), err)
	}
	rel, err := filepath.Rel(l.Root, dst)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func copyFileAtomic(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".pool-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// writeFileAtomic writes data to path via a temporary file in the same
// directory followed by a rename, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
