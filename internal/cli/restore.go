// Restore command: write a bundle's collections back into the canonical keys.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <bundle.json>",
		Short: "Restore collections from an exported bundle",
		Long: "Restore reads a bundle produced by the export command and writes\n" +
			"its collections into the canonical storage keys. Records without an\n" +
			"id or a usable timestamp are dropped and counted.",
		Args: cobra.ExactArgs(1),
		RunE: runRestore,
	}
}

func runRestore(cmd *cobra.Command, args []string) error {
	bundle, err := readBundle(args[0])
	if err != nil {
		return exitError(exitUserError, err.Error())
	}

	v, err := openVault(cmd)
	if err != nil {
		return exitError(exitSysError, err.Error())
	}
	defer v.Close()

	result, err := v.RestoreFromBackup(cmd.Context(), bundle)
	if err != nil {
		return exitError(exitSysError, fmt.Sprintf("restore: %s", err))
	}

	if flags.jsonMode {
		return printJSON(cmd, result)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "restored %d artifacts, %d history entries, %d favorites\n",
		result.Artifacts, result.History, result.Favorites)
	if result.Dropped > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "dropped %d records without id or timestamp\n", result.Dropped)
	}
	return nil
}
