package registry

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"beepkg/internal/archive"
	"beepkg/internal/crypto"
	"beepkg/internal/manifest"
	"beepkg/internal/store"
)

// errNoChange aborts a metadata update cycle that has nothing to write.
var errNoChange = errors.New("no metadata change")

// PushResult describes a completed push.
type PushResult struct {
	Name      string
	Version   string
	Key       string
	Checksum  string
	Size      int
	Encrypted bool
}

// Push packages the directory at dir and uploads it as an artifact plus
// sibling digest. A normal push rejects version conflicts and locked
// packages; a forced push bypasses conflict resolution entirely, including
// the lock check. Every forced push is logged as an audited override.
func (m *Manager) Push(ctx context.Context, dir string, force bool) (*PushResult, error) {
	man, format, err := manifest.Load(dir)
	if err != nil {
		return nil, err
	}

	// The bucket must exist before the conflict check lists it: on a brand
	// new registry the first push would otherwise die on the listing.
	if err := m.store.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	if force {
		m.logger.Warn("forced push: bypassing version conflict and lock checks",
			"package", man.Name+"@"+man.Version)
	} else {
		conflict, err := m.CheckConflict(ctx, man.Name, man.Version)
		if err != nil {
			return nil, err
		}
		switch conflict.Status {
		case VersionExists:
			return nil, &VersionExistsError{Name: man.Name, Version: man.Version}
		case HigherVersionExists:
			return nil, &HigherVersionError{
				Name:      man.Name,
				Requested: man.Version,
				Existing:  conflict.HighestVersion,
			}
		}
	}

	data, err := archive.Pack(dir, man.IncludePatterns(), man.Excludes)
	if err != nil {
		return nil, fmt.Errorf("failed to package %s: %w", man.Name, err)
	}

	encrypted := false
	if man.EncryptionEnabled() {
		data, err = m.encryptArtifact(dir, man, format, data)
		if err != nil {
			return nil, err
		}
		encrypted = true
	}

	digest := Digest(data)
	key := ArtifactKey(man.Name, man.Version)

	opts := store.PutOptions{ContentType: "application/gzip"}
	if err := m.store.PutObject(ctx, key, data, opts); err != nil {
		return nil, fmt.Errorf("failed to upload artifact: %w", err)
	}
	if err := m.writeChecksum(ctx, key, digest); err != nil {
		return nil, err
	}

	// Refresh the checksum snapshot on a matching lock record so the lock
	// always pins the bytes that are actually stored.
	err = m.updateMetadata(ctx, func(meta *Metadata) error {
		if lock := meta.FindLock(man.Name, man.Version); lock != nil {
			lock.Checksum = digest
			return nil
		}
		return errNoChange
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return nil, err
	}

	m.logger.Debug("pushed package", "key", key, "checksum", digest, "encrypted", encrypted)

	return &PushResult{
		Name:      man.Name,
		Version:   man.Version,
		Key:       key,
		Checksum:  digest,
		Size:      len(data),
		Encrypted: encrypted,
	}, nil
}

// encryptArtifact wraps archived bytes in an encryption envelope and
// persists the fresh salt back to the working manifest so a future decrypt
// can re-derive the key.
func (m *Manager) encryptArtifact(dir string, man *manifest.Manifest, format manifest.Format, data []byte) ([]byte, error) {
	secret, err := crypto.Secret()
	if err != nil {
		return nil, err
	}

	// Fail fast on a wrong secret before any bytes are uploaded.
	if man.Encryption.EncryptedPassword != "" {
		if err := crypto.VerifyKeyCheck(man.Encryption.EncryptedPassword, secret); err != nil {
			return nil, fmt.Errorf("secret does not match package encryption config: %w", err)
		}
	}

	envelope, salt, err := crypto.Encrypt(data, secret)
	if err != nil {
		return nil, fmt.Errorf("encryption failed: %w", err)
	}

	man.Encryption.Salt = base64.StdEncoding.EncodeToString(salt)
	if err := manifest.Save(dir, man, format); err != nil {
		return nil, fmt.Errorf("failed to record encryption salt in manifest: %w", err)
	}

	return envelope, nil
}
