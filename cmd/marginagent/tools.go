package main

import (
	"encoding/json"
	"fmt"

	"github.com/m2tx/margin_agent/internal/agent"
	"github.com/m2tx/margin_agent/internal/backend"
	"github.com/m2tx/margin_agent/internal/functions"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

type toolDoc struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"`
}

func newToolsCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalog offered to the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := functions.Catalog(backend.New(c.cfg.BackendURL))
			docs := lo.Map(catalog, func(fd *agent.FunctionDeclaration, _ int) toolDoc {
				return toolDoc{Name: fd.Name, Description: fd.Description, Parameters: fd.ParametersSchema}
			})

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(docs)
			}

			for _, d := range docs {
				schema, err := json.Marshal(d.Parameters)
				if err != nil {
					return fmt.Errorf("marshal %s schema: %w", d.Name, err)
				}
				fmt.Fprintf(out, "%s\n  %s\n  %s\n", d.Name, d.Description, schema)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the catalog as JSON")
	return cmd
}
