package registry

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"

	"beepkg/internal/store"
)

// ChecksumSuffix is appended to an artifact key to form its sibling digest
// object key.
const ChecksumSuffix = ".sha1"

// ChecksumKey builds the digest object key for an artifact key.
func ChecksumKey(artifactKey string) string {
	return artifactKey + ChecksumSuffix
}

// Digest computes the lowercase hex content digest over the exact bytes
// placed in the store (post-encryption when encryption is enabled).
func Digest(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// verifyChecksum compares the digest of downloaded artifact bytes against
// the sibling digest object and returns the verified digest. An absent
// sibling is ErrMissingChecksum, which is a distinct failure from a
// mismatch; any other fetch failure propagates.
func (m *Manager) verifyChecksum(ctx context.Context, name, version, artifactKey string, data []byte) (string, error) {
	actual := Digest(data)

	obj, err := m.store.GetObject(ctx, ChecksumKey(artifactKey))
	if errors.Is(err, store.ErrObjectNotFound) {
		return "", fmt.Errorf("package %s@%s: %w", name, version, ErrMissingChecksum)
	}
	if err != nil {
		return "", fmt.Errorf("failed to download checksum for %s@%s: %w", name, version, err)
	}

	expected := string(obj.Data)
	if expected != actual {
		return "", &ChecksumMismatchError{
			Name:     name,
			Version:  version,
			Expected: expected,
			Actual:   actual,
		}
	}
	return actual, nil
}

// writeChecksum uploads the sibling digest object for an artifact.
func (m *Manager) writeChecksum(ctx context.Context, artifactKey, digest string) error {
	opts := store.PutOptions{ContentType: "text/plain"}
	if err := m.store.PutObject(ctx, ChecksumKey(artifactKey), []byte(digest), opts); err != nil {
		return fmt.Errorf("failed to upload checksum: %w", err)
	}
	return nil
}

// fetchChecksum reads the sibling digest for an artifact, returning the
// empty string when the sibling does not exist.
func (m *Manager) fetchChecksum(ctx context.Context, artifactKey string) (string, error) {
	obj, err := m.store.GetObject(ctx, ChecksumKey(artifactKey))
	if errors.Is(err, store.ErrObjectNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(obj.Data), nil
}
