package slist

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize       = 32
	nonceSize     = 12
	kdfIterations = 100_000

	// Fixed application-wide salt: key strength rests on password entropy
	// alone, and the same password yields the same key on every install.
	// Kept for backup compatibility; a multi-tenant build must switch to a
	// per-user random salt stored next to the credential hash.
	kdfSalt = "s-list-app-salt"
)

// DeriveKey derives the 256-bit session key from a password. Deterministic:
// the same password always yields the same key. The key is never persisted.
func DeriveKey(password string) []byte {
	return pbkdf2.Key([]byte(password), []byte(kdfSalt), kdfIterations, keySize, sha256.New)
}

// HashPassword returns the hex-encoded SHA-256 of the password. This is the
// stored credential, not the encryption key.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Encrypt seals plaintext under key with AES-256-GCM and a fresh random
// 96-bit nonce, returning base64(nonce || ciphertext+tag). Two calls with
// identical inputs produce different blobs.
func Encrypt(key []byte, plaintext string) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: nonce: %v", ErrCryptoUnavailable, err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any failure to base64-decode, to find a full
// nonce, or to verify the authentication tag yields ErrDecryptionFailed.
func Decrypt(key []byte, blob string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("%w: not base64", ErrDecryptionFailed)
	}
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: blob too short", ErrDecryptionFailed)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
	}
	return gcm, nil
}
