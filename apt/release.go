package apt

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/debpress/debpress/deb"
)

// Distribution describes a release channel and the metadata written to its
// Release file.
//
// Reference: https://wiki.debian.org/DebianRepository/Format#Release_file
type Distribution struct {
	// Name is the directory name under dists/ (e.g. "stable").
	Name string

	Origin      string
	Label       string
	Suite       string
	Version     string
	Codename    string
	Description string

	// Date overrides the generation timestamp (RFC1123Z). When empty the
	// current UTC time is used.
	Date string

	// Optional fields APT understands; emitted only when set.
	ValidUntil           string
	NotAutomatic         string
	ButAutomaticUpgrades string
	AcquireByHash        string
}

// manifestEntry is one file under the distribution directory, listed in the
// Release checksum sections.
type manifestEntry struct {
	path string // relative to the distribution directory, slash-separated
	size int64
	md5  string
	sha1 string
	sha2 string
}

// WriteRelease regenerates the distribution's Release file: the channel
// metadata, the declared component and architecture sets, and an
// MD5Sum/SHA1/SHA256 manifest of every file under dists/<name>. It must run
// strictly after all index writes of the publish, since the manifest embeds
// their final checksums.
//
// The architecture list is de-duplicated preserving order. Before writing,
// the declared and physical sets are checked both ways: every declared
// (component, architecture) pair must have a Packages index, and every
// binary-* directory under the component must be declared, so the advertised
// sets never drift from the tree.
func WriteRelease(l Layout, dist Distribution, components, architectures []string) error {
	if dist.Name == "" {
		return fmt.Errorf("%w: distribution name is empty", ErrInvalidInput)
	}
	if len(components) == 0 {
		return fmt.Errorf("%w: component list is empty", ErrInvalidInput)
	}
	if len(architectures) == 0 {
		return fmt.Errorf("%w: architecture list is empty", ErrInvalidInput)
	}
	archs := dedupe(architectures)

	for _, comp := range components {
		for _, arch := range archs {
			index := filepath.Join(l.BinaryDir(dist.Name, comp, arch), "Packages")
			if _, err := os.Stat(index); err != nil {
				return fmt.Errorf("%w: no Packages index for %s/binary-%s: %v", ErrMetadata, comp, arch, err)
			}
		}
	}

	// The advertised set must equal the index directories on disk, so a
	// narrower re-publish over a tree that once carried more architectures
	// fails instead of listing unadvertised indices in the manifest.
	declared := make(map[string]bool, len(archs))
	for _, arch := range archs {
		declared[arch] = true
	}
	for _, comp := range components {
		found, err := os.ReadDir(filepath.Join(l.DistDir(dist.Name), comp))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMetadata, err)
		}
		for _, d := range found {
			if !d.IsDir() || !strings.HasPrefix(d.Name(), "binary-") {
				continue
			}
			if arch := strings.TrimPrefix(d.Name(), "binary-"); !declared[arch] {
				return fmt.Errorf("%w: %s/%s exists but %s is not in the declared architectures", ErrMetadata, comp, d.Name(), arch)
			}
		}
	}

	entries, err := collectManifest(l.DistDir(dist.Name))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMetadata, err)
	}

	content := renderRelease(dist, components, archs, entries)
	if err := writeFileAtomic(l.ReleasePath(dist.Name), content); err != nil {
		return fmt.Errorf("%w: Release: %v", ErrIO, err)
	}
	return nil
}

// collectManifest enumerates the distribution tree and checksums every file
// in one pass per file. The Release file itself and its signature artifacts
// are excluded, matching what APT clients expect to verify.
func collectManifest(distDir string) ([]manifestEntry, error) {
	var entries []manifestEntry
	err := filepath.WalkDir(distDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(distDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		switch rel {
		case "Release", "InRelease", "Release.gpg":
			return nil
		}

		entry, err := checksumFile(path)
		if err != nil {
			return err
		}
		entry.path = rel
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })
	return entries, nil
}

func checksumFile(path string) (manifestEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return manifestEntry{}, err
	}
	defer f.Close()

	md5h := md5.New()
	sha1h := sha1.New()
	sha2h := sha256.New()
	size, err := io.Copy(io.MultiWriter(md5h, sha1h, sha2h), f)
	if err != nil {
		return manifestEntry{}, err
	}
	return manifestEntry{
		size: size,
		md5:  hexSum(md5h),
		sha1: hexSum(sha1h),
		sha2: hexSum(sha2h),
	}, nil
}

func hexSum(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

// renderRelease generates the Release file content with the field order APT
// clients expect, followed by one checksum section per digest.
func renderRelease(dist Distribution, components, archs []string, entries []manifestEntry) []byte {
	var b bytes.Buffer
	writeField := func(key deb.ReleaseField, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", key, value)
		}
	}

	writeField(deb.RelOrigin, dist.Origin)
	writeField(deb.RelLabel, dist.Label)
	writeField(deb.RelSuite, dist.Suite)
	writeField(deb.RelVersion, dist.Version)
	writeField(deb.RelCodename, dist.Codename)
	if dist.Date != "" {
		writeField(deb.RelDate, dist.Date)
	} else {
		writeField(deb.RelDate, time.Now().UTC().Format(time.RFC1123Z))
	}
	writeField(deb.RelValidUntil, dist.ValidUntil)
	writeField(deb.RelArchitectures, strings.Join(archs, " "))
	writeField(deb.RelComponents, strings.Join(components, " "))
	writeField(deb.RelDescription, dist.Description)
	writeField(deb.RelNotAutomatic, dist.NotAutomatic)
	writeField(deb.RelButAutomaticUpgrades, dist.ButAutomaticUpgrades)
	writeField(deb.RelAcquireByHash, dist.AcquireByHash)

	sections := []struct {
		field deb.ReleaseField
		sum   func(manifestEntry) string
	}{
		{deb.RelMD5Sum, func(e manifestEntry) string { return e.md5 }},
		{deb.RelSHA1, func(e manifestEntry) string { return e.sha1 }},
		{deb.RelSHA256, func(e manifestEntry) string { return e.sha2 }},
	}
	for _, section := range sections {
		fmt.Fprintf(&b, "%s:\n", section.field)
		for _, e := range entries {
			fmt.Fprintf(&b, " %s %d %s\n", section.sum(e), e.size, e.path)
		}
	}
	return b.Bytes()
}

// dedupe returns the list with duplicates removed, preserving first-seen
// order.
func dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	var out []string
	for _, v := range list {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
