package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test connectivity to the configured registry",
	Long:  `Check that the object store endpoint is reachable and the bucket is listable.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTest()
	},
}

func runTest() error {
	mgr, err := newManager()
	if err != nil {
		return err
	}

	msg, err := mgr.TestConnection(context.Background())
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}

	fmt.Printf("✅ %s\n", msg)
	return nil
}
