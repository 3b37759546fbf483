package slist

import "errors"

// Sentinel errors callers are expected to test with errors.Is.
var (
	// ErrCryptoUnavailable means the platform crypto primitives failed; fatal.
	ErrCryptoUnavailable = errors.New("crypto unavailable")

	// ErrDecryptionFailed covers wrong key, corrupted blob and tampering alike,
	// so callers cannot distinguish the cases.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrStorageUnavailable wraps persistence write failures; silent loss of
	// the only durable copy is unacceptable, so these always propagate.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInvalidImportFormat means a decrypted import payload is not the
	// expected JSON shape; no partial state is applied.
	ErrInvalidImportFormat = errors.New("invalid import format")
)
