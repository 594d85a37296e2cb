package registry

import (
	"context"
	"fmt"

	semver "beepkg/internal/version"
)

// ConflictStatus classifies the outcome of conflict resolution for a push.
type ConflictStatus int

const (
	// NoConflict means the push may proceed.
	NoConflict ConflictStatus = iota
	// VersionExists means exactly this (name, version) is already stored.
	VersionExists
	// HigherVersionExists means a same-name package with a higher semantic
	// version is already stored.
	HigherVersionExists
)

// Conflict is the result of conflict resolution. HighestVersion is set for
// HigherVersionExists.
type Conflict struct {
	Status         ConflictStatus
	HighestVersion string
}

// CheckConflict decides whether a non-forced push of (name, version) may
// proceed. An exact match against a locked package fails immediately with a
// LockedError. Existing versions that do not parse as semantic versions are
// ignored in the higher-version comparison; the requested version itself
// must parse.
func (m *Manager) CheckConflict(ctx context.Context, name, versionStr string) (Conflict, error) {
	packages, err := m.List(ctx)
	if err != nil {
		return Conflict{}, fmt.Errorf("failed to list packages: %w", err)
	}

	var sameName []Package
	for _, p := range packages {
		if p.Name == name {
			sameName = append(sameName, p)
		}
	}
	if len(sameName) == 0 {
		return Conflict{Status: NoConflict}, nil
	}

	for _, p := range sameName {
		if p.Version != versionStr {
			continue
		}
		meta, err := m.Metadata(ctx)
		if err != nil {
			return Conflict{}, err
		}
		if lock := meta.FindLock(name, versionStr); lock != nil {
			return Conflict{}, &LockedError{Name: name, Version: versionStr, Reason: lock.LockReason}
		}
		return Conflict{Status: VersionExists}, nil
	}

	requested, err := semver.Parse(versionStr)
	if err != nil {
		return Conflict{}, fmt.Errorf("invalid version format %q: %w", versionStr, err)
	}

	versions := make([]string, 0, len(sameName))
	for _, p := range sameName {
		versions = append(versions, p.Version)
	}

	// Non-parseable existing versions are skipped by Highest.
	if highest := semver.Highest(versions); highest != nil && highest.IsGreaterThan(requested) {
		return Conflict{Status: HigherVersionExists, HighestVersion: highest.String()}, nil
	}
	return Conflict{Status: NoConflict}, nil
}
