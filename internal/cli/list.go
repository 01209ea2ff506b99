package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/partnerportal/internal/portal"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List onboarding records visible to the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get(cmd.Context(), "/api/v1/onboardings/")
			if err != nil {
				return fmt.Errorf("list onboardings: %w", err)
			}

			var data []portal.Summary
			if err := decode(resp, &data); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(data) == 0 {
				fmt.Fprintln(out, "No onboardings found.")
				return nil
			}

			fmt.Fprintf(out, "%-12s  %-30s  %-10s  %s\n", "CLIENT", "COMPANY", "VENDOR", "PROGRESS")
			fmt.Fprintf(out, "%-12s  %-30s  %-10s  %s\n", "------", "-------", "------", "--------")
			for _, s := range data {
				fmt.Fprintf(out, "%-12s  %-30s  %-10s  %d%%\n",
					s.Onboarding.ClientID, s.Onboarding.CompanyName, s.Manufacturer, s.OverallPercent)
			}
			return nil
		},
	}
}
