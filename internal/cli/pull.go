package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var pullOutput string

// pullCmd represents the pull command
var pullCmd = &cobra.Command{
	Use:   "pull <name@version>",
	Short: "Download and unpack a package from the registry",
	Long: `Download one package version, verify its checksum, decrypt it when it is
stored encrypted, and unpack it into the output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, version, err := parseRef(args[0])
		if err != nil {
			return err
		}
		return runPull(name, version)
	},
}

func init() {
	pullCmd.Flags().StringVarP(&pullOutput, "output", "o", "", "output directory (default: ./<name>)")
}

func runPull(name, version string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}

	out := pullOutput
	if out == "" {
		out = name
	}

	result, err := mgr.Pull(context.Background(), name, version, out)
	if err != nil {
		return err
	}

	fmt.Printf("✅ Pulled %s@%s into %s\n", result.Name, result.Version, result.OutputDir)
	fmt.Printf("🔒 SHA1 verified: %s\n", result.Checksum)
	if result.Encrypted {
		fmt.Println("🔐 Artifact was decrypted")
	}
	return nil
}
