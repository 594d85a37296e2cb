package cli

import (
	"fmt"
	"strings"

	"beepkg/internal/config"
	"beepkg/internal/registry"
	"beepkg/internal/store"
)

// newManager builds a registry manager from the resolved configuration.
func newManager() (*registry.Manager, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if verbose {
		fmt.Printf("🌐 Endpoint: %s\n", cfg.Endpoint)
		fmt.Printf("🪣 Bucket: %s\n", cfg.Bucket)
		if !cfg.HasCredentials() {
			fmt.Println("🔓 No credentials configured, using anonymous access")
		}
	}

	client, err := store.NewS3Client(cfg.Endpoint, cfg.Bucket, cfg.AccessKey, cfg.SecretKey, cfg.Region)
	if err != nil {
		return nil, err
	}

	return registry.New(client, logger), nil
}

// parseRef splits a name@version argument.
func parseRef(arg string) (name, version string, err error) {
	name, version, ok := strings.Cut(arg, "@")
	if !ok || name == "" || version == "" {
		return "", "", fmt.Errorf("invalid package reference %q, expected name@version", arg)
	}
	return name, version, nil
}
