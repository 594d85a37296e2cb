package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List packages in the registry",
	Long:    `List every package version stored in the registry bucket.`,
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList()
	},
}

func runList() error {
	mgr, err := newManager()
	if err != nil {
		return err
	}

	packages, err := mgr.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list packages: %w", err)
	}

	if len(packages) == 0 {
		fmt.Println("Registry is empty")
		return nil
	}

	fmt.Printf("Found %d package(s):\n", len(packages))
	for _, p := range packages {
		fmt.Printf("  📦 %s (%d bytes, modified %s)\n",
			p.Ref(), p.Storage.Size, p.Storage.LastModified.Format("2006-01-02 15:04:05"))
	}
	return nil
}
