package apt

import "errors"

// Failure categories surfaced by the publish pipeline. Callers match them
// with errors.Is to decide whether a retry makes sense: invalid input never
// does, scan and metadata failures do once the tree is fixed, and signing
// faults are surfaced verbatim so a wrong passphrase is never silently
// looped.
var (
	// ErrConfig reports an unreadable or malformed repository configuration.
	ErrConfig = errors.New("invalid configuration")

	// ErrInvalidInput reports a missing or malformed caller-supplied
	// parameter (empty architecture list, empty component or package name).
	ErrInvalidInput = errors.New("invalid input")

	// ErrScan reports an unreadable or malformed package encountered while
	// scanning the pool.
	ErrScan = errors.New("pool scan failed")

	// ErrMetadata reports that the distribution tree could not be
	// enumerated or is inconsistent with the declared architectures.
	ErrMetadata = errors.New("release metadata failed")

	// ErrKeyNotFound reports that the signing key identity does not resolve
	// to a usable private key.
	ErrKeyNotFound = errors.New("signing key not found")

	// ErrSigningFailed reports a rejected cryptographic operation, such as
	// a wrong passphrase.
	ErrSigningFailed = errors.New("signing failed")

	// ErrIO reports a failure writing a generated artifact.
	ErrIO = errors.New("write failed")
)
