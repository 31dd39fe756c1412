// Export command: serialize the deduplicated union of all backends.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var outPath string
	var withReport bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all stored data as a JSON bundle",
		Long: "Export writes the deduplicated union of every backend as a JSON\n" +
			"bundle suitable for the restore command. With --with-report the\n" +
			"bundle also carries the per-backend diagnostic scan.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, outPath, withReport)
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to file instead of stdout")
	cmd.Flags().BoolVar(&withReport, "with-report", false, "include the diagnostic scan in the output")
	return cmd
}

func runExport(cmd *cobra.Command, outPath string, withReport bool) error {
	v, err := openVault(cmd)
	if err != nil {
		return exitError(exitSysError, err.Error())
	}
	defer v.Close()

	var payload any
	if withReport {
		payload = v.DownloadBackup(cmd.Context())
	} else {
		payload = v.ExportAllData(cmd.Context())
	}

	if outPath == "" {
		return printJSON(cmd, payload)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return exitError(exitSysError, fmt.Sprintf("encode bundle: %s", err))
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return exitError(exitSysError, fmt.Sprintf("write bundle: %s", err))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "exported to %s (%d bytes)\n", outPath, len(data))
	return nil
}
