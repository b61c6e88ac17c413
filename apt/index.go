package apt

import (
	"bytes"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/debpress/debpress/deb"
)

// indexEntry is one stanza of a Packages index: the scanned package metadata
// plus the pool path the entry points at.
type indexEntry struct {
	info *deb.Info
	// filename is the pool path relative to the repository root,
	// slash-separated.
	filename string
}

// BuildIndex regenerates the Packages and Packages.gz index files for one
// (distribution, component, architecture) triple. The pool subtree of the
// component is scanned in full on every call; there is no incremental merge,
// so entries for packages removed from the pool disappear on the next run.
//
// The index lists packages whose control file declares the target
// architecture or the "all" wildcard, ordered by package name then version,
// so repeated runs over an unchanged pool produce byte-identical output.
func BuildIndex(l Layout, distribution, component, arch string) error {
	entries, err := scanPool(l, component, arch)
	if err != nil {
		return err
	}

	content := renderPackages(entries)
	dir := l.BinaryDir(distribution, component, arch)
	if err := writeFileAtomic(filepath.Join(dir, "Packages"), content); err != nil {
		return fmt.Errorf("%w: Packages for %s: %v", ErrIO, arch, err)
	}

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	if _, err := gw.Write(content); err != nil {
		return fmt.Errorf("compressing Packages for %s: %w", arch, err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("compressing Packages for %s: %w", arch, err)
	}
	if err := writeFileAtomic(filepath.Join(dir, "Packages.gz"), gz.Bytes()); err != nil {
		return fmt.Errorf("%w: Packages.gz for %s: %v", ErrIO, arch, err)
	}
	return nil
}

// scanPool walks pool/<component> recursively and scans every .deb whose
// declared architecture matches arch or the "all" wildcard. Any unreadable
// or malformed package aborts the scan.
func scanPool(l Layout, component, arch string) ([]indexEntry, error) {
	root := l.PoolComponentDir(component)
	var entries []indexEntry

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".deb") {
			return nil
		}

		info, err := deb.Scan(path)
		if err != nil {
			return err
		}
		if info.Architecture != arch && info.Architecture != deb.ArchAll {
			return nil
		}

		rel, err := filepath.Rel(l.Root, path)
		if err != nil {
			return err
		}
		entries = append(entries, indexEntry{info: info, filename: filepath.ToSlash(rel)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScan, err)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].info.Package != entries[j].info.Package {
			return entries[i].info.Package < entries[j].info.Package
		}
		return entries[i].info.Version < entries[j].info.Version
	})
	return entries, nil
}

// renderPackages generates the Packages index content: each package's raw
// control stanza followed by the Filename, Size and checksum fields, with a
// blank line between stanzas.
//
// Reference: https://wiki.debian.org/DebianRepository/Format#Packages_Indices
func renderPackages(entries []indexEntry) []byte {
	var b bytes.Buffer
	for _, e := range entries {
		b.WriteString(e.info.Control)
		if !strings.HasSuffix(e.info.Control, "\n") {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %s\n", deb.FieldFilename, e.filename)
		fmt.Fprintf(&b, "%s: %d\n", deb.FieldSize, e.info.Size)
		fmt.Fprintf(&b, "%s: %s\n", deb.FieldMD5sum, e.info.MD5)
		fmt.Fprintf(&b, "%s: %s\n", deb.FieldSHA1, e.info.SHA1)
		fmt.Fprintf(&b, "%s: %s\n", deb.FieldSHA256, e.info.SHA256)
		b.WriteString("\n")
	}
	return b.Bytes()
}
