package cmd

import (
	"fmt"
	"io"

	"github.com/agentic-research/blocks/internal/comp"
	"github.com/agentic-research/blocks/internal/graph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Output formats for a tree.
const (
	formatJSON  = "json"
	formatView  = "view"
	formatProps = "props"
	formatTree  = "tree"
)

func (a *app) renderCmd() *cobra.Command {
	var (
		src    source
		format string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Build a tree and print it",
		Long: `Builds a tree from --schema and --value and prints it.

Formats:
  json   canonical serialized form, accepted back as --value
  view   the data the tree exposes to its consumers
  props  property descriptions for editors
  tree   indented outline of the graph projection`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _, err := src.load(cmd)
			if err != nil {
				return err
			}
			return printTree(cmd.OutOrStdout(), root, format)
		},
	}
	src.bind(cmd)
	cmd.Flags().StringVarP(&format, "format", "o", formatJSON, "Output format: json, view, props or tree")
	return cmd
}

func printTree(w io.Writer, root comp.Comp, format string) error {
	switch format {
	case formatJSON:
		return writeJSON(w, root.JSON())
	case formatView:
		return writeJSON(w, root.View())
	case formatProps:
		return writeJSON(w, root.PropertyView())
	case formatTree:
		out, err := graph.Render(graph.Project(root), graph.RootID)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func (a *app) treeCmd() *cobra.Command {
	var (
		src source
		at  string
	)
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the graph projection of a tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _, err := src.load(cmd)
			if err != nil {
				return err
			}
			g := graph.Project(root)
			a.log.Debug("projected tree", zap.Int("nodes", g.Len()))
			out, err := graph.Render(g, at)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
	src.bind(cmd)
	cmd.Flags().StringVar(&at, "at", graph.RootID, "Slash-separated path of the subtree to print")
	return cmd
}
