package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pelletier/go-toml/v2"
)

// Manifest is the author-declared package metadata that travels with every
// artifact. It is accepted in two interchangeable formats: pack.toml
// (preferred) and pack.json.
type Manifest struct {
	Name         string            `toml:"name" json:"name"`
	Version      string            `toml:"version" json:"version"`
	Author       string            `toml:"author,omitempty" json:"author,omitempty"`
	Description  string            `toml:"description,omitempty" json:"description,omitempty"`
	Includes     []string          `toml:"includes,omitempty" json:"includes,omitempty"`
	Excludes     []string          `toml:"excludes,omitempty" json:"excludes,omitempty"`
	Dependencies map[string]string `toml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Encryption   *EncryptionConfig `toml:"encryption,omitempty" json:"encryption,omitempty"`
}

// EncryptionConfig controls encryption-at-rest for one package. The salt and
// key-check value are persisted so a future decrypt can re-derive the same
// key and verify the secret before touching artifact bytes.
type EncryptionConfig struct {
	Enabled           bool   `toml:"enabled" json:"enabled"`
	Algorithm         string `toml:"algorithm,omitempty" json:"algorithm,omitempty"`
	EncryptedPassword string `toml:"encrypted_password,omitempty" json:"encrypted_password,omitempty"`
	Salt              string `toml:"salt,omitempty" json:"salt,omitempty"`
}

// Format identifies which on-disk representation a manifest was read from.
type Format int

const (
	FormatTOML Format = iota
	FormatJSON
)

const (
	TOMLFile = "pack.toml"
	JSONFile = "pack.json"
)

var (
	ErrInvalidManifest = errors.New("invalid manifest")
	ErrInvalidName     = errors.New("invalid package name")
	ErrInvalidVersion  = errors.New("invalid version")
	ErrManifestMissing = errors.New("neither pack.toml nor pack.json found")
)

// FormatError reports a manifest that could not be parsed in its declared
// configuration format.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("failed to parse manifest %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// nameRegex matches valid package names
var nameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9\-_]*$`)

// versionRegex matches semantic versions
var versionRegex = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9\-.]+)?(\+[a-zA-Z0-9\-.]+)?$`)

// Load reads the package manifest from dir, trying pack.toml first and
// falling back to pack.json. The returned format records which file was
// found so edits can be written back in kind.
func Load(dir string) (*Manifest, Format, error) {
	tomlPath := filepath.Join(dir, TOMLFile)
	if data, err := os.ReadFile(tomlPath); err == nil {
		var m Manifest
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, FormatTOML, &FormatError{Path: tomlPath, Err: err}
		}
		if err := m.Validate(); err != nil {
			return nil, FormatTOML, err
		}
		return &m, FormatTOML, nil
	} else if !os.IsNotExist(err) {
		return nil, FormatTOML, fmt.Errorf("failed to read manifest: %w", err)
	}

	jsonPath := filepath.Join(dir, JSONFile)
	if data, err := os.ReadFile(jsonPath); err == nil {
		var m Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, FormatJSON, &FormatError{Path: jsonPath, Err: err}
		}
		if err := m.Validate(); err != nil {
			return nil, FormatJSON, err
		}
		return &m, FormatJSON, nil
	} else if !os.IsNotExist(err) {
		return nil, FormatJSON, fmt.Errorf("failed to read manifest: %w", err)
	}

	return nil, FormatTOML, fmt.Errorf("%w in %s", ErrManifestMissing, dir)
}

// Save writes the manifest back to dir in the given format.
func Save(dir string, m *Manifest, format Format) error {
	if err := m.Validate(); err != nil {
		return err
	}

	var (
		data []byte
		err  error
		path string
	)
	switch format {
	case FormatJSON:
		path = filepath.Join(dir, JSONFile)
		data, err = json.MarshalIndent(m, "", "  ")
	default:
		path = filepath.Join(dir, TOMLFile)
		data, err = toml.Marshal(m)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks if the manifest is valid
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidManifest)
	}

	if !nameRegex.MatchString(m.Name) {
		return fmt.Errorf("%w: name must match pattern %s", ErrInvalidName, nameRegex.String())
	}

	if m.Version == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidManifest)
	}

	if !versionRegex.MatchString(m.Version) {
		return fmt.Errorf("%w: version must be semantic version (x.y.z)", ErrInvalidVersion)
	}

	if m.Encryption != nil && m.Encryption.Enabled && m.Encryption.Algorithm == "" {
		return fmt.Errorf("%w: encryption algorithm is required when encryption is enabled", ErrInvalidManifest)
	}

	return nil
}

// EncryptionEnabled reports whether the manifest requests encryption-at-rest.
func (m *Manifest) EncryptionEnabled() bool {
	return m.Encryption != nil && m.Encryption.Enabled
}

// IncludePatterns returns the configured include globs, defaulting to the
// whole package directory when none are declared.
func (m *Manifest) IncludePatterns() []string {
	if len(m.Includes) == 0 {
		return []string{"**"}
	}
	return m.Includes
}
