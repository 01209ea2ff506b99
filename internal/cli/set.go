package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/me/partnerportal/internal/progress"
)

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <client_id> <field_key> <value>",
		Short: "Update one checklist field",
		Long:  "Update one checklist field. Boolean fields take true or false; an empty value clears a text field.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID, field, value := args[0], args[1], args[2]
			path := "/api/v1/onboardings/" + url.PathEscape(clientID) + "/fields/" + url.PathEscape(field)

			resp, err := client.Put(cmd.Context(), path, map[string]any{"value": value})
			if err != nil {
				return fmt.Errorf("update %q: %w", field, err)
			}

			var p progress.Progress
			if err := decode(resp, &p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %q on %s. Overall progress: %d%% (%d/%d)\n",
				field, clientID, p.OverallPercent, p.Completed, p.Total)
			return nil
		},
	}
}
