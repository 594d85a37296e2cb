package cli

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"beepkg/internal/config"
)

var (
	verbose bool

	// logger receives diagnostics and the forced-push audit trail. Warnings
	// always print; debug output is gated on --verbose.
	logger = log.NewWithOptions(os.Stderr, log.Options{Level: log.WarnLevel})
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "beepkg",
	Short: "beepkg - package registry on top of S3-compatible storage",
	Long: `beepkg publishes, retrieves and manages versioned package archives in an
S3-compatible object store. The bucket is the registry: there is no server
component, only objects, sibling checksums and one shared metadata document.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Load .env file if it exists
		config.LoadEnvFile(".env")

		if verbose {
			logger.SetLevel(log.DebugLevel)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(encryptCmd)
}
