package cli

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"beepkg/internal/crypto"
	"beepkg/internal/manifest"
)

var encryptDisable bool

// encryptCmd represents the encrypt command
var encryptCmd = &cobra.Command{
	Use:   "encrypt [directory]",
	Short: "Enable encryption-at-rest for a package",
	Long: `Configure the package manifest in the directory (default: current
directory) for encryption-at-rest. The secret is read from the
` + crypto.SecretEnv + ` environment variable or prompted for, and a key-check
value is stored in the manifest so a wrong secret is caught before any
artifact bytes are uploaded or downloaded.

Every subsequent push of the package encrypts the artifact with a key
derived from this secret.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		return runEncrypt(dir)
	},
}

func init() {
	encryptCmd.Flags().BoolVar(&encryptDisable, "disable", false, "turn encryption off for this package")
}

func runEncrypt(dir string) error {
	man, format, err := manifest.Load(dir)
	if err != nil {
		return err
	}

	if encryptDisable {
		if man.Encryption == nil || !man.Encryption.Enabled {
			fmt.Printf("Package %s is not encrypted\n", man.Name)
			return nil
		}
		man.Encryption.Enabled = false
		if err := manifest.Save(dir, man, format); err != nil {
			return err
		}
		fmt.Printf("🔓 Encryption disabled for %s\n", man.Name)
		fmt.Println("⚠️  Already-pushed encrypted artifacts stay encrypted in the registry")
		return nil
	}

	secret, err := readSecret()
	if err != nil {
		return err
	}

	check, salt, err := crypto.KeyCheck(secret)
	if err != nil {
		return err
	}

	man.Encryption = &manifest.EncryptionConfig{
		Enabled:           true,
		Algorithm:         crypto.Algorithm,
		EncryptedPassword: check,
		Salt:              base64.StdEncoding.EncodeToString(salt),
	}
	if err := manifest.Save(dir, man, format); err != nil {
		return err
	}

	fmt.Printf("🔐 Encryption enabled for %s (%s)\n", man.Name, crypto.Algorithm)
	fmt.Printf("📝 Key check stored in manifest; pushes now require %s\n", crypto.SecretEnv)
	return nil
}

// readSecret takes the secret from the environment, falling back to an
// interactive prompt with confirmation.
func readSecret() (string, error) {
	if secret, err := crypto.Secret(); err == nil {
		return secret, nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", crypto.ErrMissingSecret
	}

	fmt.Print("Enter encryption secret: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	if len(first) == 0 {
		return "", fmt.Errorf("secret must not be empty")
	}

	fmt.Print("Confirm encryption secret: ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	if !bytes.Equal(first, second) {
		return "", fmt.Errorf("secrets do not match")
	}

	return string(first), nil
}
