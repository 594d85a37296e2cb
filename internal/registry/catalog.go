package registry

import (
	"context"
	"strings"
	"time"

	"beepkg/internal/archive"
	semver "beepkg/internal/version"
)

// backupMarker separates the artifact part of a backup object key from its
// timestamp.
const backupMarker = "-backup-"

// isBackupKey reports whether key names a backup object, which has the
// shape {name}-{version}-backup-{unixSeconds}.tgz. The timestamp tail must
// be all digits: package names may legitimately contain "backup" as a
// segment, and pushed versions are semantic versions, which always carry
// dots, so no artifact key can match.
func isBackupKey(key string) bool {
	base, found := strings.CutSuffix(key, archive.Ext)
	if !found {
		return false
	}

	idx := strings.LastIndex(base, backupMarker)
	if idx <= 0 {
		return false
	}
	tail := base[idx+len(backupMarker):]
	if tail == "" {
		return false
	}
	for i := 0; i < len(tail); i++ {
		if tail[i] < '0' || tail[i] > '9' {
			return false
		}
	}
	return true
}

// Package is one catalog entry. Entries are ephemeral: they are
// reconstructed from object keys on every listing and never persisted.
type Package struct {
	Name    string
	Version string
	Storage Storage
}

// Storage describes where and how a package's artifact is stored.
type Storage struct {
	Key          string
	Size         int64
	LastModified time.Time
	Checksum     string
}

// Ref returns the name@version identity string.
func (p Package) Ref() string {
	return p.Name + "@" + p.Version
}

// ArtifactKey builds the object key for a package version.
func ArtifactKey(name, version string) string {
	return name + "-" + version + archive.Ext
}

// ParseArtifactKey recovers (name, version) from an artifact key. The
// suffix is stripped and the remainder is split on a separator whose right
// side parses as a semantic version; separators are tried right to left so
// names containing the separator cannot corrupt the split. Keys with no
// valid split do not parse.
func ParseArtifactKey(key string) (name, version string, ok bool) {
	base, found := strings.CutSuffix(key, archive.Ext)
	if !found {
		return "", "", false
	}

	for idx := strings.LastIndex(base, "-"); idx > 0; idx = strings.LastIndex(base[:idx], "-") {
		candidate := base[idx+1:]
		if _, err := semver.Parse(candidate); err == nil {
			return base[:idx], candidate, true
		}
	}
	return "", "", false
}

// List derives the package catalog from the current object listing. Keys
// that do not look like artifacts are skipped silently; backup objects and
// the control document are never part of the catalog. The result is a
// fresh slice on every call.
func (m *Manager) List(ctx context.Context) ([]Package, error) {
	objects, err := m.store.ListObjects(ctx)
	if err != nil {
		return nil, err
	}

	var packages []Package
	for _, obj := range objects {
		if isBackupKey(obj.Key) {
			continue
		}
		name, version, ok := ParseArtifactKey(obj.Key)
		if !ok {
			continue
		}
		packages = append(packages, Package{
			Name:    name,
			Version: version,
			Storage: Storage{
				Key:          obj.Key,
				Size:         obj.Size,
				LastModified: obj.LastModified,
			},
		})
	}
	return packages, nil
}

// findPackage looks one (name, version) up in the catalog.
func (m *Manager) findPackage(ctx context.Context, name, version string) (*Package, error) {
	packages, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range packages {
		if packages[i].Name == name && packages[i].Version == version {
			return &packages[i], nil
		}
	}
	return nil, &NotFoundError{Kind: "package", Name: name, Version: version}
}
