package cmd

import (
	"fmt"
	"strings"

	"github.com/agentic-research/blocks/internal/query"
	"github.com/spf13/cobra"
)

func (a *app) queryCmd() *cobra.Command {
	var (
		src   source
		paths bool
	)
	cmd := &cobra.Command{
		Use:   "query <jsonpath>",
		Short: "Select values from a tree with JSONPath",
		Long: `Evaluates a JSONPath expression against the tree's JSON form and prints the
matching values as a JSON array. With --paths, prints one line per match with
the node path it belongs to.`,
		Example: `  blocks query -s query.hcl -f query.json '$.command.comp.limit'
  blocks query -f page.json --paths '$..queryId'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _, err := src.load(cmd)
			if err != nil {
				return err
			}
			if !paths {
				values, err := query.Values(root, args[0])
				if err != nil {
					return err
				}
				if values == nil {
					values = []any{}
				}
				return writeJSON(cmd.OutOrStdout(), values)
			}

			matches, err := query.Select(root, args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, m := range matches {
				node := "/" + strings.Join(m.Path, "/")
				if !m.Exact {
					node += " (inside leaf)"
				}
				if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", m.Expr, node, compact(m.Value)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	src.bind(cmd)
	cmd.Flags().BoolVar(&paths, "paths", false, "Print the location of every match")
	return cmd
}
