package registry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"beepkg/internal/archive"
	"beepkg/internal/store"
)

// BackupResult describes a completed backup.
type BackupResult struct {
	Name      string
	Version   string
	BackupKey string
	Timestamp string
	Size      int
}

// RestoreResult describes a completed restore.
type RestoreResult struct {
	Name      string
	Version   string
	BackupKey string
	Timestamp string
	Checksum  string
}

// backupKey builds the object key for one snapshot of an artifact.
func backupKey(name, version string, at time.Time) string {
	return name + "-" + version + backupMarker + strconv.FormatInt(at.Unix(), 10) + archive.Ext
}

// Backup snapshots the stored bytes of one package version under a
// timestamped backup key and records the snapshot in the control document.
// The copy is byte-exact, so an encrypted artifact stays encrypted and its
// digest stays valid.
func (m *Manager) Backup(ctx context.Context, name, version, reason string) (*BackupResult, error) {
	pkg, err := m.findPackage(ctx, name, version)
	if err != nil {
		return nil, err
	}

	obj, err := m.store.GetObject(ctx, pkg.Storage.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to download artifact for backup: %w", err)
	}

	at := m.now().UTC()
	key := backupKey(name, version, at)

	opts := store.PutOptions{ContentType: "application/gzip"}
	if err := m.store.PutObject(ctx, key, obj.Data, opts); err != nil {
		return nil, fmt.Errorf("failed to upload backup: %w", err)
	}

	timestamp := at.Format(time.RFC3339)
	err = m.updateMetadata(ctx, func(meta *Metadata) error {
		meta.BackupEnabled = true
		meta.Backups = append(meta.Backups, PackageBackup{
			OriginalPath: pkg.Storage.Key,
			BackupPath:   key,
			Timestamp:    timestamp,
			Reason:       reason,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Debug("backed up package", "key", pkg.Storage.Key, "backup", key)

	return &BackupResult{
		Name:      name,
		Version:   version,
		BackupKey: key,
		Timestamp: timestamp,
		Size:      len(obj.Data),
	}, nil
}

// Restore overwrites a package's artifact with the bytes of one of its
// recorded backups and rewrites the sibling digest to match the restored
// bytes. With an empty timestamp the most recent backup is used; a
// non-empty timestamp selects the first recorded backup whose timestamp
// starts with it, so a date alone matches any backup taken that day.
func (m *Manager) Restore(ctx context.Context, name, version, timestamp string) (*RestoreResult, error) {
	meta, err := m.Metadata(ctx)
	if err != nil {
		return nil, err
	}

	originalKey := ArtifactKey(name, version)
	var candidates []PackageBackup
	for _, b := range meta.Backups {
		if b.OriginalPath == originalKey {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		return nil, &NotFoundError{Kind: "backup", Name: name, Version: version}
	}

	selected, err := selectBackup(candidates, name, version, timestamp)
	if err != nil {
		return nil, err
	}

	obj, err := m.store.GetObject(ctx, selected.BackupPath)
	if errors.Is(err, store.ErrObjectNotFound) {
		return nil, fmt.Errorf("backup object %s is recorded but missing from the store", selected.BackupPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download backup: %w", err)
	}

	opts := store.PutOptions{ContentType: "application/gzip"}
	if err := m.store.PutObject(ctx, originalKey, obj.Data, opts); err != nil {
		return nil, fmt.Errorf("failed to restore artifact: %w", err)
	}

	// The sibling digest must always describe the stored bytes, so it is
	// recomputed from the restored payload rather than trusted from before
	// the restore.
	digest := Digest(obj.Data)
	if err := m.writeChecksum(ctx, originalKey, digest); err != nil {
		return nil, err
	}

	m.logger.Debug("restored package", "key", originalKey, "backup", selected.BackupPath)

	return &RestoreResult{
		Name:      name,
		Version:   version,
		BackupKey: selected.BackupPath,
		Timestamp: selected.Timestamp,
		Checksum:  digest,
	}, nil
}

// selectBackup picks one backup record from a non-empty candidate list.
func selectBackup(candidates []PackageBackup, name, version, timestamp string) (PackageBackup, error) {
	if timestamp != "" {
		for _, b := range candidates {
			if strings.HasPrefix(b.Timestamp, timestamp) {
				return b, nil
			}
		}
		return PackageBackup{}, &NotFoundError{Kind: "backup", Name: name, Version: version, Timestamp: timestamp}
	}

	// RFC 3339 timestamps in UTC order lexicographically.
	latest := candidates[0]
	for _, b := range candidates[1:] {
		if b.Timestamp > latest.Timestamp {
			latest = b
		}
	}
	return latest, nil
}
