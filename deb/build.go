package deb

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/blakesmith/ar"
	"github.com/klauspost/compress/gzip"
)

// FieldValue is one control field assignment.
type FieldValue struct {
	Field ControlField
	Value string
}

// File is a single payload file to include in a built package.
type File struct {
	// DestPath is the absolute install path on the target system.
	DestPath string
	// Mode is the file permission mode (0755 for executables, 0644 for text).
	Mode int64
	// Body is the file content.
	Body string
}

// Builder assembles a minimal valid Debian binary package: the debian-binary
// marker, a control.tar.gz with the control file, and a data.tar.gz with the
// payload. Output is deterministic for a fixed ModTime.
//
// Reference: https://manpages.debian.org/unstable/dpkg-dev/deb.5.en.html#FORMAT
type Builder struct {
	Package      string
	Version      string
	Architecture string
	Maintainer   string
	Description  string

	// ExtraFields are appended to the control file after the standard fields,
	// in the order given.
	ExtraFields []FieldValue

	Files []File

	// ModTime is the timestamp stored in the archive members.
	// The zero value keeps the archives reproducible.
	ModTime time.Time
}

// Filename returns the canonical {Package}_{Version}_{Architecture}.deb name.
func (b *Builder) Filename() string {
	return fmt.Sprintf("%s_%s_%s.deb", b.Package, b.Version, b.Architecture)
}

// ControlFile renders the Debian control file for the package.
func (b *Builder) ControlFile() string {
	var sb strings.Builder
	writeField := func(field ControlField, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "%s: %s\n", field, value)
		}
	}
	writeField(FieldPackage, b.Package)
	writeField(FieldVersion, b.Version)
	writeField(FieldArchitecture, b.Architecture)
	writeField(FieldMaintainer, b.Maintainer)
	writeField(FieldDescription, b.Description)
	for _, extra := range b.ExtraFields {
		writeField(extra.Field, extra.Value)
	}
	return sb.String()
}

// WriteTo assembles the .deb archive and writes it to w.
// It satisfies io.WriterTo.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	if b.Package == "" || b.Version == "" || b.Architecture == "" {
		return 0, fmt.Errorf("package, version and architecture are required")
	}

	controlTar, err := b.tarball(map[string]File{
		"./control": {Mode: 0644, Body: b.ControlFile()},
	})
	if err != nil {
		return 0, fmt.Errorf("building control archive: %w", err)
	}

	payload := make(map[string]File, len(b.Files))
	for _, f := range b.Files {
		name := "./" + strings.TrimPrefix(f.DestPath, "/")
		payload[name] = f
	}
	dataTar, err := b.tarball(payload)
	if err != nil {
		return 0, fmt.Errorf("building data archive: %w", err)
	}

	cw := &countingWriter{w: w}
	arW := ar.NewWriter(cw)
	if err := arW.WriteGlobalHeader(); err != nil {
		return cw.n, fmt.Errorf("writing ar global header: %w", err)
	}
	// Member order is fixed by the deb format: debian-binary first,
	// control archive second, data archive third.
	members := []struct {
		name PackageFile
		body []byte
	}{
		{PkgDebianBinary, []byte("2.0\n")},
		{PkgControlTarGz, controlTar},
		{PkgDataTarGz, dataTar},
	}
	for _, m := range members {
		if err := addBufferToAr(arW, string(m.name), m.body, b.ModTime); err != nil {
			return cw.n, fmt.Errorf("writing %s: %w", m.name, err)
		}
	}
	return cw.n, nil
}

// WriteFile assembles the package and writes it atomically to path.
func (b *Builder) WriteFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".deb-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := b.WriteTo(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// tarball renders the named files as a gzip-compressed tar stream.
// Entries are written in sorted name order so output is deterministic.
func (b *Builder) tarball(files map[string]File) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f := files[name]
		hdr := &tar.Header{
			Name:    name,
			Size:    int64(len(f.Body)),
			Mode:    f.Mode,
			ModTime: b.ModTime,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, err
		}
		if _, err := tw.Write([]byte(f.Body)); err != nil {
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// countingWriter wraps an io.Writer and counts the bytes written.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// addBufferToAr writes a named byte slice as an ar member with mode 0644.
func addBufferToAr(w *ar.Writer, name string, body []byte, modTime time.Time) error {
	header := &ar.Header{
		Name:    name,
		Size:    int64(len(body)),
		Mode:    0644,
		ModTime: modTime,
	}
	if err := w.WriteHeader(header); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}
