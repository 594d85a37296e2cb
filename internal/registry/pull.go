package registry

import (
	"context"
	"errors"
	"fmt"

	"beepkg/internal/archive"
	"beepkg/internal/crypto"
	"beepkg/internal/manifest"
	"beepkg/internal/store"
)

// PullResult describes a completed pull.
type PullResult struct {
	Name      string
	Version   string
	Checksum  string
	Encrypted bool
	OutputDir string
}

// Pull downloads one package version, verifies its digest against the
// sibling checksum object, decrypts it when the artifact carries an
// encryption envelope, unpacks it into outputDir and re-verifies the
// manifest identity against the request.
func (m *Manager) Pull(ctx context.Context, name, version, outputDir string) (*PullResult, error) {
	key := ArtifactKey(name, version)

	obj, err := m.store.GetObject(ctx, key)
	if errors.Is(err, store.ErrObjectNotFound) {
		return nil, &NotFoundError{Kind: "package", Name: name, Version: version}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download package: %w", err)
	}
	data := obj.Data

	// The digest covers the stored bytes, ciphertext included, so
	// verification runs before any decryption.
	digest, err := m.verifyChecksum(ctx, name, version, key, data)
	if err != nil {
		return nil, err
	}

	encrypted := crypto.IsEncrypted(data)
	if encrypted {
		secret, err := crypto.Secret()
		if err != nil {
			return nil, err
		}
		data, err = crypto.Decrypt(data, secret)
		if err != nil {
			return nil, fmt.Errorf("decryption failed for %s@%s: %w", name, version, err)
		}
	}

	if err := archive.Unpack(data, outputDir); err != nil {
		return nil, fmt.Errorf("failed to unpack package: %w", err)
	}

	man, _, err := manifest.Load(outputDir)
	if err != nil {
		return nil, fmt.Errorf("downloaded package has no readable manifest: %w", err)
	}
	if man.Name != name || man.Version != version {
		return nil, fmt.Errorf("downloaded package manifest mismatch: got %s@%s, want %s@%s",
			man.Name, man.Version, name, version)
	}

	m.logger.Debug("pulled package", "key", key, "encrypted", encrypted, "output", outputDir)

	return &PullResult{
		Name:      name,
		Version:   version,
		Checksum:  digest,
		Encrypted: encrypted,
		OutputDir: outputDir,
	}, nil
}
