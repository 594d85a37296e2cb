package cli

import (
	"context"
	"fmt"
	"os/user"

	"github.com/spf13/cobra"
)

var (
	lockReason string
	lockUser   string
)

// lockCmd represents the lock command
var lockCmd = &cobra.Command{
	Use:   "lock <name@version>",
	Short: "Lock a package version against non-forced overwrites",
	Long: `Record a lock on one package version. Locked versions reject normal
pushes; only a forced push can overwrite them. The lock snapshots the
current checksum so later changes are attributable.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, version, err := parseRef(args[0])
		if err != nil {
			return err
		}
		return runLock(name, version)
	},
}

// unlockCmd represents the unlock command
var unlockCmd = &cobra.Command{
	Use:   "unlock <name@version>",
	Short: "Remove the lock from a package version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, version, err := parseRef(args[0])
		if err != nil {
			return err
		}
		return runUnlock(name, version)
	},
}

func init() {
	lockCmd.Flags().StringVarP(&lockReason, "reason", "r", "", "why this version is locked")
	lockCmd.Flags().StringVarP(&lockUser, "user", "u", "", "who is locking (default: OS username)")
}

func runLock(name, version string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}

	actor := lockUser
	if actor == "" {
		if u, err := user.Current(); err == nil {
			actor = u.Username
		}
	}

	if err := mgr.Lock(context.Background(), name, version, lockReason, actor); err != nil {
		return err
	}

	fmt.Printf("🔒 Locked %s@%s\n", name, version)
	if lockReason != "" {
		fmt.Printf("📝 Reason: %s\n", lockReason)
	}
	return nil
}

func runUnlock(name, version string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}

	if err := mgr.Unlock(context.Background(), name, version); err != nil {
		return err
	}

	fmt.Printf("🔓 Unlocked %s@%s\n", name, version)
	return nil
}
