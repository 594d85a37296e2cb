package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Profile is one named registry entry in the profile file.
type Profile struct {
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket,omitempty"`
	AccessKey string `toml:"access_key,omitempty"`
	SecretKey string `toml:"secret_key,omitempty"`
	Region    string `toml:"region,omitempty"`
}

// ProfileFile is the on-disk shape of ~/.beepkg/config.toml.
type ProfileFile struct {
	Current  string             `toml:"current,omitempty"`
	Profiles map[string]Profile `toml:"profiles,omitempty"`
}

const profileFileName = "~/.beepkg/config.toml"

// ProfilePath returns the full path to the profile file.
func ProfilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".beepkg", "config.toml"), nil
}

// LoadProfiles reads the profile file, returning an empty set when the file
// does not exist.
func LoadProfiles() (ProfileFile, error) {
	path, err := ProfilePath()
	if err != nil {
		return ProfileFile{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ProfileFile{Profiles: make(map[string]Profile)}, nil
	}
	if err != nil {
		return ProfileFile{}, err
	}

	var pf ProfileFile
	if err := toml.Unmarshal(data, &pf); err != nil {
		return ProfileFile{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if pf.Profiles == nil {
		pf.Profiles = make(map[string]Profile)
	}

	return pf, nil
}

// SaveProfiles writes the profile file, creating its directory if needed.
func SaveProfiles(pf ProfileFile) error {
	path, err := ProfilePath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := toml.Marshal(pf)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// currentProfile resolves the selected profile into a Config, or an empty
// Config when no profile file or selection exists.
func currentProfile() (Config, error) {
	pf, err := LoadProfiles()
	if err != nil {
		return Config{}, err
	}

	name := pf.Current
	if name == "" {
		if _, ok := pf.Profiles["default"]; ok {
			name = "default"
		} else {
			return Config{}, nil
		}
	}

	p, ok := pf.Profiles[name]
	if !ok {
		return Config{}, fmt.Errorf("profile %q not found in %s", name, profileFileName)
	}

	return Config{
		Endpoint:  p.Endpoint,
		Bucket:    p.Bucket,
		AccessKey: p.AccessKey,
		SecretKey: p.SecretKey,
		Region:    p.Region,
	}, nil
}
