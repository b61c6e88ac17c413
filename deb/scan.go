package deb

import (
	"archive/tar"
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/klauspost/compress/gzip"
)

// Info is the metadata of a scanned .deb file, as needed by an APT
// Packages index: the raw control stanza plus the size and checksums
// of the artifact itself.
type Info struct {
	Package      string
	Version      string
	Architecture string

	// Control is the raw text block from the package's control file.
	// It carries all declared fields (Depends, Description, ...) verbatim,
	// so the index reproduces them byte for byte.
	Control string

	Size   int64
	MD5    string
	SHA1   string
	SHA256 string
}

// Scan reads the .deb file at path and returns its index metadata.
// It fails if the file is not a Debian archive, has no control file, or the
// control file misses one of the required fields (Package, Version,
// Architecture).
func Scan(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	md5h := md5.New()
	sha1h := sha1.New()
	sha256h := sha256.New()
	size, err := io.Copy(io.MultiWriter(md5h, sha1h, sha256h), f)
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", path, err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	control, err := ExtractControl(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	info := &Info{
		Control: control,
		Size:    size,
		MD5:     hex.EncodeToString(md5h.Sum(nil)),
		SHA1:    hex.EncodeToString(sha1h.Sum(nil)),
		SHA256:  hex.EncodeToString(sha256h.Sum(nil)),
	}
	info.Package, info.Version, info.Architecture = ParseControlFields(control)

	if info.Package == "" || info.Version == "" || info.Architecture == "" {
		return nil, fmt.Errorf("%s: control file misses a required field (Package, Version or Architecture)", path)
	}
	return info, nil
}

// ExtractControl iterates the ar members of a .deb stream, locates the
// control.tar or control.tar.gz member, and returns the content of the
// 'control' file inside it.
func ExtractControl(r io.Reader) (string, error) {
	arR := ar.NewReader(r)
	for {
		header, err := arR.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading ar header: %w", err)
		}

		if !strings.HasPrefix(header.Name, "control.tar") {
			continue
		}

		var tr *tar.Reader
		switch {
		case strings.HasSuffix(strings.TrimSuffix(header.Name, "/"), ".gz"):
			gzr, err := gzip.NewReader(arR)
			if err != nil {
				return "", fmt.Errorf("opening %s: %w", header.Name, err)
			}
			defer gzr.Close()
			tr = tar.NewReader(gzr)
		case strings.TrimSuffix(header.Name, "/") == "control.tar":
			tr = tar.NewReader(arR)
		default:
			return "", fmt.Errorf("unsupported control archive compression: %s", header.Name)
		}

		for {
			th, err := tr.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", fmt.Errorf("reading control tar: %w", err)
			}
			if filepath.Base(th.Name) == "control" {
				var buf bytes.Buffer
				if _, err := io.Copy(&buf, tr); err != nil {
					return "", fmt.Errorf("reading control file: %w", err)
				}
				return buf.String(), nil
			}
		}
		return "", fmt.Errorf("control archive has no control file")
	}
	return "", fmt.Errorf("not a debian package: no control.tar member")
}

// ParseControlFields extracts the Package, Version and Architecture fields
// from the raw text of a Debian control file.
func ParseControlFields(control string) (pkg, version, arch string) {
	for _, line := range strings.Split(control, "\n") {
		switch {
		case strings.HasPrefix(line, string(FieldPackage)+": "):
			pkg = strings.TrimSpace(strings.TrimPrefix(line, string(FieldPackage)+": "))
		case strings.HasPrefix(line, string(FieldVersion)+": "):
			version = strings.TrimSpace(strings.TrimPrefix(line, string(FieldVersion)+": "))
		case strings.HasPrefix(line, string(FieldArchitecture)+": "):
			arch = strings.TrimSpace(strings.TrimPrefix(line, string(FieldArchitecture)+": "))
		}
	}
	return pkg, version, arch
}
