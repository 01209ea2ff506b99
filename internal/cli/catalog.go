package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/me/partnerportal/internal/catalog"
	"github.com/me/partnerportal/internal/ui"
	"github.com/me/partnerportal/pkg/model"
)

func newCatalogCmd() *cobra.Command {
	var manufacturer, format string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the onboarding steps for a manufacturer",
		Long:  "Print the three effective main steps for --manufacturer. Unrecognized values use the Microsoft workflow.",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := catalog.NewNormalizer(logger).Normalize(manufacturer)
			steps := catalog.StepsFor(key)
			out := cmd.OutOrStdout()

			switch format {
			case "json":
				data, err := json.MarshalIndent(steps, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal catalog: %w", err)
				}
				fmt.Fprintln(out, string(data))
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(steps); err != nil {
					return fmt.Errorf("marshal catalog: %w", err)
				}
				return enc.Close()
			case "text":
				printCatalog(out, key, steps)
			default:
				return fmt.Errorf("unknown format %q (text, json, yaml)", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&manufacturer, "manufacturer", "", "Raw manufacturer value (e.g. \"Amazon Web Services\", \"gcp\")")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json, yaml)")
	return cmd
}

func printCatalog(w io.Writer, key model.ManufacturerKey, steps []model.MainStepDefinition) {
	tr := ui.NewTranslator(language.English)
	fmt.Fprintf(w, "Workflow: %s\n", key.Label())
	for i, st := range steps {
		gate := ""
		if st.GatedByPrevious {
			gate = " (locked until previous steps complete)"
		}
		fmt.Fprintf(w, "\n%d. %s [%s]%s\n", i+1, tr.T(st.LabelKey), st.Key, gate)
		for _, sub := range st.Substeps {
			fmt.Fprintf(w, "   - %-40s %-8s %s\n", tr.T(sub.LabelKey), sub.Type, sub.CompletedBy)
			for _, fk := range sub.FieldKeys() {
				fmt.Fprintf(w, "       %s\n", fk)
			}
		}
	}
}
