// Version command for the artvault CLI.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the CLI release version.
const Version = "0.2.0"

const modulePath = "github.com/dreamlayer/artvault"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the artvault version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "artvault v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
