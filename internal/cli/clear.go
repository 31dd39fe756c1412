// Clear command: wipe every backend, canonical and legacy keys alike.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all stored data from every backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(cmd, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "confirm the deletion")
	return cmd
}

func runClear(cmd *cobra.Command, force bool) error {
	if !force {
		return exitError(exitUserError, "clear is destructive; re-run with --force")
	}

	v, err := openVault(cmd)
	if err != nil {
		return exitError(exitSysError, err.Error())
	}
	defer v.Close()

	if err := v.ClearAllStorage(cmd.Context()); err != nil {
		return exitError(exitSysError, fmt.Sprintf("clear: %s", err))
	}

	fmt.Fprintln(cmd.OutOrStdout(), "all storage cleared")
	return nil
}
