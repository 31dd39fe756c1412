// Package cli implements the artvault command-line interface: diagnostic
// report, export, restore, clear, and sync-queue maintenance against a
// local data directory.
package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dreamlayer/artvault/pkg/artvault"
	"github.com/dreamlayer/artvault/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool
}

var flags rootFlags

// NewRootCmd creates the top-level "artvault" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "artvault",
		Short: "Inspect and repair artvault storage",
		Long: "Artvault manages the multi-tier gallery storage of the image\n" +
			"generation app: flat file, indexed database, and backup slots.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: .artvault)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: .artvault-db)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVar(&flags.verbose, "verbose", false, "log adapter activity to stderr")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newRestoreCmd())
	root.AddCommand(newClearCmd())
	root.AddCommand(newSyncCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(exitUserError)
	}
}

// resolveConfigDir returns the config directory from flag, env, or default.
func resolveConfigDir() string {
	if flags.configDir != "" {
		return flags.configDir
	}
	if v := os.Getenv("ARTVAULT_CONFIG_DIR"); v != "" {
		return v
	}
	return ".artvault"
}

// newLogger builds the CLI logger. Quiet by default; --verbose lowers the
// level so adapter soft-failures and debug detail reach stderr.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if flags.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openVault loads the config and opens the vault for a one-shot command.
// The periodic snapshot loop stays off; commands snapshot explicitly when
// they need to. The caller must defer v.Close().
func openVault(cmd *cobra.Command) (*artvault.Vault, error) {
	cfg, err := loadVaultConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	v, err := artvault.Open(cmd.Context(), cfg,
		artvault.WithLogger(newLogger()),
		artvault.WithoutScheduler(),
	)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	return v, nil
}

// printJSON writes v to the command's stdout as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitError prints the error to stderr and exits with the given code.
func exitError(code int, msg string) error {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(code)
	return nil // unreachable
}

// readBundle loads and decodes an export bundle from disk.
func readBundle(path string) (types.ExportBundle, error) {
	var bundle types.ExportBundle
	data, err := os.ReadFile(path)
	if err != nil {
		return bundle, fmt.Errorf("read bundle: %w", err)
	}
	if err := json.Unmarshal(data, &bundle); err != nil {
		return bundle, fmt.Errorf("decode bundle: %w", err)
	}
	return bundle, nil
}
