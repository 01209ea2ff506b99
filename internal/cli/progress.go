package cli

import (
	"fmt"
	"io"
	"net/url"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/me/partnerportal/internal/progress"
	"github.com/me/partnerportal/internal/ui"
	"github.com/me/partnerportal/pkg/model"
)

var (
	doneColor     = color.New(color.FgGreen)
	openColor     = color.New(color.FgYellow)
	disabledColor = color.New(color.Faint)
	lockedColor   = color.New(color.FgRed, color.Bold)
	headerColor   = color.New(color.Bold)
)

func newProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress <client_id>",
		Short: "Show the onboarding checklist of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get(cmd.Context(), "/api/v1/onboardings/"+url.PathEscape(args[0])+"/progress")
			if err != nil {
				return fmt.Errorf("get progress: %w", err)
			}

			var p progress.Progress
			if err := decode(resp, &p); err != nil {
				return err
			}
			printProgress(cmd.OutOrStdout(), args[0], p)
			return nil
		},
	}
}

func printProgress(w io.Writer, clientID string, p progress.Progress) {
	tr := ui.NewTranslator(language.English)

	headerColor.Fprintf(w, "%s  %s  %d%% (%d/%d)\n", clientID, p.Manufacturer.Label(), p.OverallPercent, p.Completed, p.Total)
	for _, st := range p.Steps {
		fmt.Fprintln(w)
		headerColor.Fprintf(w, "%s  %d%%", tr.T(st.LabelKey), st.Percent)
		if st.Locked {
			lockedColor.Fprint(w, "  LOCKED")
		}
		fmt.Fprintln(w)

		for _, sub := range st.Substeps {
			switch {
			case sub.Completed:
				doneColor.Fprintf(w, "  [x] %s\n", tr.T(sub.LabelKey))
			case sub.Disabled || st.Locked:
				disabledColor.Fprintf(w, "  [-] %s\n", tr.T(sub.LabelKey))
			default:
				openColor.Fprintf(w, "  [ ] %s\n", tr.T(sub.LabelKey))
			}
			if sub.Type != model.SubstepGroup {
				continue
			}
			for _, f := range sub.Fields {
				mark := " "
				if f.Completed {
					mark = "x"
				}
				fmt.Fprintf(w, "        [%s] %s\n", mark, f.FieldKey)
			}
		}
	}
}
