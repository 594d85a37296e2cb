package registry

import (
	"context"
	"fmt"
	"time"
)

// Lock records that (name, version) must not be overwritten by non-forced
// pushes. The artifact must exist in the catalog, and only one lock record
// per (name, version) may exist. The record snapshots the artifact's
// current digest so later tampering is attributable.
func (m *Manager) Lock(ctx context.Context, name, version, reason, actor string) error {
	pkg, err := m.findPackage(ctx, name, version)
	if err != nil {
		return err
	}

	checksum, err := m.fetchChecksum(ctx, pkg.Storage.Key)
	if err != nil {
		return fmt.Errorf("failed to snapshot checksum for %s@%s: %w", name, version, err)
	}

	err = m.updateMetadata(ctx, func(meta *Metadata) error {
		if meta.FindLock(name, version) != nil {
			return &AlreadyLockedError{Name: name, Version: version}
		}
		meta.LockedPackages = append(meta.LockedPackages, LockedPackage{
			Name:       name,
			Version:    version,
			LockReason: reason,
			LockedAt:   m.now().UTC().Format(time.RFC3339),
			LockedBy:   actor,
			Checksum:   checksum,
		})
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("locked package", "package", name+"@"+version, "actor", actor)
	return nil
}

// Unlock removes the lock record for (name, version), failing when no such
// record exists.
func (m *Manager) Unlock(ctx context.Context, name, version string) error {
	err := m.updateMetadata(ctx, func(meta *Metadata) error {
		for i := range meta.LockedPackages {
			if meta.LockedPackages[i].Name == name && meta.LockedPackages[i].Version == version {
				meta.LockedPackages = append(meta.LockedPackages[:i], meta.LockedPackages[i+1:]...)
				return nil
			}
		}
		return &NotFoundError{Kind: "lock", Name: name, Version: version}
	})
	if err != nil {
		return err
	}

	m.logger.Debug("unlocked package", "package", name+"@"+version)
	return nil
}
