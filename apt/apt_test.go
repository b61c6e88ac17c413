package apt

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"

	"github.com/debpress/debpress/deb"
)

// buildTestDeb assembles a minimal package file under dir and returns its
// path.
func buildTestDeb(t *testing.T, dir, name, version, arch string) string {
	t.Helper()
	b := &deb.Builder{
		Package:      name,
		Version:      version,
		Architecture: arch,
		Maintainer:   "Test <test@example.com>",
		Description:  "A test package",
		Files: []deb.File{
			{DestPath: "/usr/bin/" + name, Mode: 0755, Body: "#!/bin/sh\necho " + name + "\n"},
		},
	}
	path := filepath.Join(dir, b.Filename())
	if err := b.WriteFile(path); err != nil {
		t.Fatalf("building %s: %v", b.Filename(), err)
	}
	return path
}

// generateTestKey returns a fresh armored private key without passphrase
// protection.
func generateTestKey(t *testing.T) string {
	t.Helper()
	entity, err := openpgp.NewEntity("Release Signer", "test", "signer@example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PrivateKeyType, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := entity.SerializePrivate(w, nil); err != nil {
		t.Fatal(err)
	}
	w.Close()
	return buf.String()
}

// generateEncryptedTestKey returns a fresh armored private key whose secret
// material is protected by the given passphrase.
func generateEncryptedTestKey(t *testing.T, passphrase string) string {
	t.Helper()
	entity, err := openpgp.NewEntity("Locked Signer", "test", "locked@example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := entity.EncryptPrivateKeys([]byte(passphrase), nil); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PrivateKeyType, nil)
	if err != nil {
		t.Fatal(err)
	}
	// The self-signatures from NewEntity are still valid; re-signing would
	// require the now-encrypted keys.
	if err := entity.SerializePrivateWithoutSigning(w, nil); err != nil {
		t.Fatal(err)
	}
	w.Close()
	return buf.String()
}

// readFile fails the test when path cannot be read.
func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}
