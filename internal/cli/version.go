package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/conductor-dashboard/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  noArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "conductor-dashboard %s\n", version.Get())
		},
	}
}
