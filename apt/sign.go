package apt

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"
)

// SignRequest identifies the key used to sign a Release file.
type SignRequest struct {
	// Key is the ASCII-armored private keyring.
	Key string

	// KeyID selects the signing key within the keyring: a fingerprint, a
	// long or short hex key ID (with or without a 0x prefix), or a
	// case-insensitive substring of a user ID. When empty, the first
	// private key in the keyring is used.
	KeyID string

	// Passphrase decrypts the private key when it is protected. It is held
	// in memory only and wiped by SignRelease on every exit path.
	Passphrase []byte
}

// SignRelease signs the distribution's just-written Release file, producing
// the clearsigned InRelease and the armored detached signature Release.gpg.
// Both are bound to the exact Release bytes read at the start of the call
// and written atomically, so APT clients never observe a Release whose
// signatures predate its content.
func SignRelease(l Layout, distribution string, req SignRequest) error {
	defer wipe(req.Passphrase)

	release, err := os.ReadFile(l.ReleasePath(distribution))
	if err != nil {
		return fmt.Errorf("%w: reading Release: %v", ErrIO, err)
	}

	signer, err := resolveSigner(req)
	if err != nil {
		return err
	}

	var inRelease bytes.Buffer
	w, err := clearsign.Encode(&inRelease, signer.PrivateKey, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}
	if _, err := w.Write(release); err != nil {
		return fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	var detached bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&detached, signer, bytes.NewReader(release), nil); err != nil {
		return fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	if err := writeFileAtomic(l.InReleasePath(distribution), inRelease.Bytes()); err != nil {
		return fmt.Errorf("%w: InRelease: %v", ErrIO, err)
	}
	if err := writeFileAtomic(l.ReleaseGPGPath(distribution), detached.Bytes()); err != nil {
		return fmt.Errorf("%w: Release.gpg: %v", ErrIO, err)
	}
	return nil
}

// ExportPublicKey extracts the public part of the signing key identified by
// keyID, in binary or ASCII-armored form. It lets the repository publish its
// verification key next to the signed metadata.
func ExportPublicKey(key, keyID string, armored bool) ([]byte, error) {
	signer, err := findSigner(key, keyID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if armored {
		w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
		if err != nil {
			return nil, err
		}
		if err := signer.Serialize(w); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	} else {
		if err := signer.Serialize(&buf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// resolveSigner locates the requested private key and decrypts it when a
// passphrase protects it.
func resolveSigner(req SignRequest) (*openpgp.Entity, error) {
	signer, err := findSigner(req.Key, req.KeyID)
	if err != nil {
		return nil, err
	}
	if signer.PrivateKey.Encrypted {
		if len(req.Passphrase) == 0 {
			return nil, fmt.Errorf("%w: key is passphrase-protected and no passphrase was supplied", ErrSigningFailed)
		}
		if err := signer.DecryptPrivateKeys(req.Passphrase); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
		}
	}
	return signer, nil
}

func findSigner(key, keyID string) (*openpgp.Entity, error) {
	entities, err := openpgp.ReadArmoredKeyRing(strings.NewReader(key))
	if err != nil {
		return nil, fmt.Errorf("%w: reading keyring: %v", ErrKeyNotFound, err)
	}
	for _, e := range entities {
		if e.PrivateKey == nil {
			continue
		}
		if keyID == "" || matchesIdentity(e, keyID) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: no private key matches %q", ErrKeyNotFound, keyID)
}

// matchesIdentity reports whether identity designates the entity: a
// fingerprint or hex key ID suffix of the primary key, or a substring of
// one of the user IDs.
func matchesIdentity(e *openpgp.Entity, identity string) bool {
	hexID := strings.ToUpper(strings.TrimPrefix(strings.TrimPrefix(identity, "0x"), "0X"))
	fingerprint := strings.ToUpper(hex.EncodeToString(e.PrimaryKey.Fingerprint))
	if strings.HasSuffix(fingerprint, hexID) {
		return true
	}
	for name := range e.Identities {
		if strings.Contains(strings.ToLower(name), strings.ToLower(identity)) {
			return true
		}
	}
	return false
}

// wipe zeroes secret material in place.
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
