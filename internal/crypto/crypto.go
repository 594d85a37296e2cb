// Package crypto implements the encryption-at-rest pipeline for artifact
// bytes: an argon2id KDF over a process-wide secret plus per-artifact salt,
// and AES-256-GCM authenticated encryption.
//
// Encrypted artifacts are stored as a self-describing envelope:
//
//	"BPE1" (4 bytes) | salt (16 bytes) | nonce (12 bytes) | ciphertext
//
// The salt and nonce are generated fresh for every encryption and travel
// inside the envelope, so decryption always consumes the exact values the
// ciphertext was produced with.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/argon2"
)

const (
	SaltSize  = 16 // Salt size in bytes
	NonceSize = 12 // GCM nonce size
	KeySize   = 32 // AES-256 key size
	TagSize   = 16 // GCM authentication tag size

	// Algorithm is the identifier recorded in manifest encryption blocks.
	Algorithm = "aes-256-gcm"

	// SecretEnv is the environment variable holding the user secret.
	SecretEnv = "BEEPKG_USER_SECRET"
)

// argon2id parameters (RFC 9106 second recommended option)
const (
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// envelope magic; cannot collide with the gzip magic (0x1f 0x8b) that opens
// an unencrypted artifact
var magic = []byte("BPE1")

// keyCheckPlaintext is the canary encrypted into a manifest's
// encrypted_password field so a wrong secret is caught before any artifact
// bytes are touched.
var keyCheckPlaintext = []byte("beepkg-key-check")

var (
	ErrMissingSecret   = errors.New("environment variable " + SecretEnv + " not set")
	ErrInvalidEnvelope = errors.New("invalid encryption envelope")
	ErrAuthFailed      = errors.New("authentication failed: wrong secret or tampered ciphertext")
)

// KeyDerivationError reports a failure to turn the secret into a usable key.
type KeyDerivationError struct {
	Err error
}

func (e *KeyDerivationError) Error() string {
	return fmt.Sprintf("key derivation failed: %v", e.Err)
}

func (e *KeyDerivationError) Unwrap() error { return e.Err }

// Secret reads the process-wide secret from the environment.
func Secret() (string, error) {
	secret := os.Getenv(SecretEnv)
	if secret == "" {
		return "", ErrMissingSecret
	}
	return secret, nil
}

// DeriveKey derives a symmetric key from the secret and salt via argon2id.
func DeriveKey(secret string, salt []byte) []byte {
	return argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, KeySize)
}

// Encrypt encrypts plaintext under a key derived from secret and a fresh
// random salt, using a fresh random nonce, and returns the full envelope
// along with the salt used. The salt is returned separately so callers can
// record it in the package manifest.
func Encrypt(plaintext []byte, secret string) (envelope []byte, salt []byte, err error) {
	salt = make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, &KeyDerivationError{Err: fmt.Errorf("failed to generate salt: %w", err)}
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	envelope, err = seal(plaintext, secret, salt, nonce)
	if err != nil {
		return nil, nil, err
	}
	return envelope, salt, nil
}

// seal builds the envelope from explicit salt and nonce.
func seal(plaintext []byte, secret string, salt, nonce []byte) ([]byte, error) {
	gcm, err := newGCM(secret, salt)
	if err != nil {
		return nil, err
	}

	envelope := make([]byte, 0, len(magic)+SaltSize+NonceSize+len(plaintext)+TagSize)
	envelope = append(envelope, magic...)
	envelope = append(envelope, salt...)
	envelope = append(envelope, nonce...)
	envelope = gcm.Seal(envelope, nonce, plaintext, nil)

	return envelope, nil
}

// Decrypt parses an envelope, re-derives the key from the embedded salt and
// opens the ciphertext with the embedded nonce.
func Decrypt(envelope []byte, secret string) ([]byte, error) {
	if !IsEncrypted(envelope) {
		return nil, ErrInvalidEnvelope
	}
	if len(envelope) < len(magic)+SaltSize+NonceSize+TagSize {
		return nil, ErrInvalidEnvelope
	}

	salt := envelope[len(magic) : len(magic)+SaltSize]
	nonce := envelope[len(magic)+SaltSize : len(magic)+SaltSize+NonceSize]
	ciphertext := envelope[len(magic)+SaltSize+NonceSize:]

	gcm, err := newGCM(secret, salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// IsEncrypted reports whether data carries the envelope magic.
func IsEncrypted(data []byte) bool {
	return len(data) >= len(magic) && bytes.Equal(data[:len(magic)], magic)
}

// newGCM derives the key and builds the AEAD.
func newGCM(secret string, salt []byte) (cipher.AEAD, error) {
	key := DeriveKey(secret, salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &KeyDerivationError{Err: err}
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, &KeyDerivationError{Err: err}
	}
	return gcm, nil
}

// KeyCheck produces a base64 envelope of a known canary under the secret.
// It is stored in the manifest's encrypted_password field.
func KeyCheck(secret string) (value string, salt []byte, err error) {
	envelope, salt, err := Encrypt(keyCheckPlaintext, secret)
	if err != nil {
		return "", nil, err
	}
	return base64.StdEncoding.EncodeToString(envelope), salt, nil
}

// VerifyKeyCheck decrypts a stored key-check value and confirms the canary,
// proving the secret matches the one the package was configured with.
func VerifyKeyCheck(value, secret string) error {
	envelope, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}

	plaintext, err := Decrypt(envelope, secret)
	if err != nil {
		return err
	}
	if !bytes.Equal(plaintext, keyCheckPlaintext) {
		return ErrAuthFailed
	}
	return nil
}
