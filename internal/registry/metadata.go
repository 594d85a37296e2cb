package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"beepkg/internal/store"
)

// MetadataKey is the fixed object key of the shared control document.
const MetadataKey = "registry-metadata.json"

// maxUpdateAttempts bounds the compare-and-swap retry cycle on the control
// document.
const maxUpdateAttempts = 3

// Metadata is the single shared control document holding the lock and
// backup indices. It is always read, modified and written whole.
type Metadata struct {
	RegistryName   string          `json:"registry_name"`
	BackupEnabled  bool            `json:"backup_enabled"`
	LockedPackages []LockedPackage `json:"locked_packages"`
	Backups        []PackageBackup `json:"backups"`
	LastUpdated    string          `json:"last_updated"`
}

// LockedPackage records one (name, version) that must not be overwritten by
// a non-forced push.
type LockedPackage struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	LockReason string `json:"lock_reason"`
	LockedAt   string `json:"locked_at"`
	LockedBy   string `json:"locked_by"`
	Checksum   string `json:"checksum"`
}

// PackageBackup records one snapshot of an artifact's stored bytes.
type PackageBackup struct {
	OriginalPath string `json:"original_path"`
	BackupPath   string `json:"backup_path"`
	Timestamp    string `json:"timestamp"`
	Reason       string `json:"reason"`
}

// FindLock returns the lock record for (name, version), or nil.
func (md *Metadata) FindLock(name, version string) *LockedPackage {
	for i := range md.LockedPackages {
		if md.LockedPackages[i].Name == name && md.LockedPackages[i].Version == version {
			return &md.LockedPackages[i]
		}
	}
	return nil
}

// newMetadata synthesizes the empty default document.
func newMetadata(now time.Time) *Metadata {
	return &Metadata{
		RegistryName:   defaultRegistryName,
		LockedPackages: []LockedPackage{},
		Backups:        []PackageBackup{},
		LastUpdated:    now.UTC().Format(time.RFC3339),
	}
}

// Metadata loads the control document for reading.
func (m *Manager) Metadata(ctx context.Context) (*Metadata, error) {
	meta, _, err := m.loadMetadata(ctx)
	return meta, err
}

// loadMetadata fetches and parses the control document along with the ETag
// needed for a conditional write against it. Only a genuine not-found
// synthesizes the empty default; transport failures and parse failures
// surface to the caller.
func (m *Manager) loadMetadata(ctx context.Context) (*Metadata, string, error) {
	obj, err := m.store.GetObject(ctx, MetadataKey)
	if errors.Is(err, store.ErrObjectNotFound) {
		return newMetadata(m.now()), "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load registry metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(obj.Data, &meta); err != nil {
		return nil, "", fmt.Errorf("failed to parse registry metadata: %w", err)
	}
	if meta.LockedPackages == nil {
		meta.LockedPackages = []LockedPackage{}
	}
	if meta.Backups == nil {
		meta.Backups = []PackageBackup{}
	}
	return &meta, obj.ETag, nil
}

// saveMetadata serializes the full document and writes it conditionally:
// If-Match against the ETag it was loaded with, or create-only when the
// document did not exist yet. A failed precondition means another writer
// got there first.
func (m *Manager) saveMetadata(ctx context.Context, meta *Metadata, etag string) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry metadata: %w", err)
	}

	opts := store.PutOptions{ContentType: "application/json"}
	if etag == "" {
		opts.IfNoneMatchAny = true
	} else {
		opts.IfMatch = etag
	}

	return m.store.PutObject(ctx, MetadataKey, data, opts)
}

// updateMetadata runs one read-modify-write cycle against the control
// document, retrying the whole cycle when a concurrent writer invalidates
// the precondition. The mutate callback may abort the update by returning
// an error; it is re-invoked on a fresh copy for every attempt.
func (m *Manager) updateMetadata(ctx context.Context, mutate func(*Metadata) error) error {
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		meta, etag, err := m.loadMetadata(ctx)
		if err != nil {
			return err
		}

		if err := mutate(meta); err != nil {
			return err
		}
		meta.touch(m.now())

		err = m.saveMetadata(ctx, meta, etag)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrPreconditionFailed) {
			return err
		}
		m.logger.Debug("registry metadata changed concurrently, retrying", "attempt", attempt)
	}
	return ErrConcurrentUpdate
}

// touch advances last_updated, keeping it monotonically non-decreasing even
// under clock skew.
func (md *Metadata) touch(now time.Time) {
	ts := now.UTC().Format(time.RFC3339)
	if ts > md.LastUpdated {
		md.LastUpdated = ts
	}
}
