package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/partnerportal/internal/catalog"
)

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <value>...",
		Short: "Show the canonical manufacturer key for raw values",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-32s  %-10s  %s\n", "VALUE", "KEY", "MATCH")
			for _, raw := range args {
				key, ok := catalog.Parse(raw)
				match := "matched"
				if !ok {
					match = "default"
				}
				fmt.Fprintf(out, "%-32q  %-10s  %s\n", raw, key, match)
			}
			return nil
		},
	}
}
