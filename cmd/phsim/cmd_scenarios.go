package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/nvandessel/phsim/internal/report"
	"github.com/nvandessel/phsim/internal/scenarios"
)

func newScenariosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "List scenarios, agent profiles and complexity profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			file, _ := cmd.Flags().GetString("file")

			catalog := scenarios.NewCatalog()
			if file != "" {
				if _, err := catalog.LoadInto(file); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"scenarios":    catalog.List(),
					"agents":       scenarios.Agents(),
					"complexities": scenarios.Complexities(),
				})
			}
			report.Scenarios(out, catalog.List())
			return nil
		},
	}

	cmd.Flags().String("file", "", "YAML scenario file to add to the catalog")
	return cmd
}
