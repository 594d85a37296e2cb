package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var pushForce bool

// pushCmd represents the push command
var pushCmd = &cobra.Command{
	Use:   "push [directory]",
	Short: "Package and upload the current directory to the registry",
	Long: `Package the directory (default: current directory) according to its
pack.toml or pack.json manifest and upload it to the registry.

A normal push refuses to overwrite an existing version, refuses to publish
below the highest stored version, and refuses to touch locked packages.
--force bypasses all of these checks and is recorded in the audit log.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		return runPush(dir)
	},
}

func init() {
	pushCmd.Flags().BoolVarP(&pushForce, "force", "f", false, "overwrite existing versions and bypass locks")
}

func runPush(dir string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}

	result, err := mgr.Push(context.Background(), dir, pushForce)
	if err != nil {
		return err
	}

	fmt.Printf("✅ Pushed %s@%s\n", result.Name, result.Version)
	fmt.Printf("📄 Key: %s (%d bytes)\n", result.Key, result.Size)
	fmt.Printf("🔒 SHA1: %s\n", result.Checksum)
	if result.Encrypted {
		fmt.Println("🔐 Artifact is encrypted at rest")
	}
	return nil
}
