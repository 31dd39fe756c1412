// Sync command: inspect and prune the pending favorite-write queue.
package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	var purgeOld bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Show queued favorite writes awaiting remote replay",
		Long: "Sync lists favorite toggles that failed against the remote system\n" +
			"and are queued for replay by the app. With --purge-old, entries past\n" +
			"the retry horizon are removed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, purgeOld)
		},
	}
	cmd.Flags().BoolVar(&purgeOld, "purge-old", false, "remove entries past the retry horizon")
	return cmd
}

func runSync(cmd *cobra.Command, purgeOld bool) error {
	v, err := openVault(cmd)
	if err != nil {
		return exitError(exitSysError, err.Error())
	}
	defer v.Close()

	if purgeOld {
		if purged := v.ClearOldSyncData(); purged > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired entries\n", purged)
		}
	}

	pending := v.PendingSync()
	if flags.jsonMode {
		return printJSON(cmd, pending)
	}

	if len(pending) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "sync queue is empty")
		return nil
	}

	ids := make([]string, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		entry := pending[id]
		state := "unfavorite"
		if entry.Desired {
			state = "favorite"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-10s queued %s\n", id, state, entry.Timestamp)
	}
	return nil
}
