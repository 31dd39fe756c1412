// Report command: scan every backend and print the diagnostic report.
package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Scan all storage backends and print a diagnostic report",
		Args:  cobra.NoArgs,
		RunE:  runReport,
	}
}

func runReport(cmd *cobra.Command, args []string) error {
	v, err := openVault(cmd)
	if err != nil {
		return exitError(exitSysError, err.Error())
	}
	defer v.Close()

	report := v.Report(cmd.Context())

	if flags.jsonMode {
		return printJSON(cmd, report)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "scan at %s\n\n", report.Timestamp)

	names := make([]string, 0, len(report.PerBackend))
	for name := range report.PerBackend {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b := report.PerBackend[name]
		if !b.Available {
			fmt.Fprintf(out, "%-10s unavailable", name)
			if b.Err != "" {
				fmt.Fprintf(out, " (%s)", b.Err)
			}
			fmt.Fprintln(out)
			continue
		}
		fmt.Fprintf(out, "%-10s artifacts=%d history=%d favorites=%d bytes=%d\n",
			name, b.Artifacts, b.History, b.Favorites, b.Bytes)
	}

	s := report.Summary
	fmt.Fprintf(out, "\ndeduplicated: %d artifacts, %d history entries, %d favorites\n",
		s.TotalArtifacts, s.TotalHistory, s.TotalFavorites)
	if s.LastSnapshot != "" {
		fmt.Fprintf(out, "last snapshot: %s\n", s.LastSnapshot)
	}
	if !s.HasData {
		fmt.Fprintln(out, "no data found in any backend")
	}
	return nil
}
