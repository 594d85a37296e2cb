package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir()) // no profile file
	t.Setenv("S3_ENDPOINT", "https://minio.example.com:9000")
	t.Setenv("S3_ACCESS_KEY", "ak")
	t.Setenv("S3_SECRET_KEY", "sk")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Endpoint != "https://minio.example.com:9000" {
		t.Errorf("endpoint = %s", cfg.Endpoint)
	}
	if cfg.Bucket != "packages" {
		t.Errorf("bucket = %s, want default 'packages'", cfg.Bucket)
	}
	if cfg.Region != "us-east-1" {
		t.Errorf("region = %s, want default 'us-east-1'", cfg.Region)
	}
	if !cfg.HasCredentials() {
		t.Error("HasCredentials() = false, want true")
	}
}

func TestLoadMissingEndpoint(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("S3_ENDPOINT", "")

	_, err := Load()
	if !errors.Is(err, ErrMissingEndpoint) {
		t.Errorf("Load() error = %v, want ErrMissingEndpoint", err)
	}
}

func TestLoadProfileFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("S3_ENDPOINT", "")
	t.Setenv("S3_BUCKET", "")

	dir := filepath.Join(home, ".beepkg")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := `current = "staging"

[profiles.staging]
endpoint = "https://staging.example.com"
bucket = "staging-packages"
access_key = "ak"
secret_key = "sk"
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Endpoint != "https://staging.example.com" {
		t.Errorf("endpoint = %s", cfg.Endpoint)
	}
	if cfg.Bucket != "staging-packages" {
		t.Errorf("bucket = %s", cfg.Bucket)
	}
}

func TestEnvOverridesProfile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".beepkg")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := `[profiles.default]
endpoint = "https://profile.example.com"
bucket = "profile-bucket"
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("S3_ENDPOINT", "https://env.example.com")
	t.Setenv("S3_BUCKET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Endpoint != "https://env.example.com" {
		t.Errorf("endpoint = %s, env should win", cfg.Endpoint)
	}
	if cfg.Bucket != "profile-bucket" {
		t.Errorf("bucket = %s, profile should fill the gap", cfg.Bucket)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := `# registry settings
S3_ENDPOINT=https://dotenv.example.com
S3_BUCKET="quoted-bucket"

NOT_A_PAIR
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("S3_ENDPOINT", "https://already-set.example.com")
	os.Unsetenv("S3_BUCKET")
	t.Cleanup(func() { os.Unsetenv("S3_BUCKET") })

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}

	if got := os.Getenv("S3_ENDPOINT"); got != "https://already-set.example.com" {
		t.Errorf("S3_ENDPOINT = %s, existing env must not be overridden", got)
	}
	if got := os.Getenv("S3_BUCKET"); got != "quoted-bucket" {
		t.Errorf("S3_BUCKET = %s, want quoted-bucket", got)
	}
}

func TestLoadEnvFileMissing(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "no-such.env")); err != nil {
		t.Errorf("LoadEnvFile() on missing file = %v, want nil", err)
	}
}
