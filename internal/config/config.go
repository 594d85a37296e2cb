package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Config holds the object-store connection settings for one registry.
type Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
}

var (
	ErrMissingEndpoint = errors.New("no endpoint configured: set S3_ENDPOINT or add a profile to " + profileFileName)
)

const (
	defaultBucket = "packages"
	defaultRegion = "us-east-1"
)

// Load resolves the registry configuration. Environment variables win over
// the current profile in ~/.beepkg/config.toml; bucket and region fall back
// to defaults. Credentials may be empty (anonymous access).
func Load() (Config, error) {
	cfg, err := currentProfile()
	if err != nil {
		return Config{}, err
	}

	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.Bucket = v
	}
	if v := os.Getenv("S3_ACCESS_KEY"); v != "" {
		cfg.AccessKey = v
	}
	if v := os.Getenv("S3_SECRET_KEY"); v != "" {
		cfg.SecretKey = v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		cfg.Region = v
	}

	if cfg.Bucket == "" {
		cfg.Bucket = defaultBucket
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}

	if cfg.Endpoint == "" {
		return Config{}, ErrMissingEndpoint
	}

	return cfg, nil
}

// HasCredentials reports whether signed requests can be produced.
func (c Config) HasCredentials() bool {
	return c.AccessKey != "" && c.SecretKey != ""
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv-style file into the
// process environment. Variables already set in the environment are not
// overridden. A missing file is not an error.
func LoadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read env file: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)

		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}

	return nil
}
