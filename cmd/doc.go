package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/agentic-research/blocks/internal/comp"
	"github.com/agentic-research/blocks/internal/schema"
	"github.com/agentic-research/blocks/internal/store"
	"github.com/spf13/cobra"
)

func (a *app) docCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Manage saved documents",
	}
	cmd.AddCommand(a.docSaveCmd(), a.docLoadCmd(), a.docListCmd(), a.docDeleteCmd(), a.docExportCmd())
	return cmd
}

func (a *app) docSaveCmd() *cobra.Command {
	var src source
	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Build a tree and save it with its shape",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, shape, err := src.load(cmd)
			if err != nil {
				return err
			}
			return a.saveDocument(cmd.Context(), cmd, args[0], shape, root.JSON())
		},
	}
	src.bind(cmd)
	return cmd
}

// loadDocument rebuilds a saved tree. Documents saved without a shape get
// one inferred from their value.
func (a *app) loadDocument(cmd *cobra.Command, name string) (comp.Comp, error) {
	st, err := a.openStore()
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()

	doc, err := st.Load(cmd.Context(), name)
	if err != nil {
		return nil, err
	}
	shape := doc.Shape
	if shape == nil {
		shape = &schema.Infer(doc.Value).Root
	}
	return build(shape, doc.Value)
}

func (a *app) docLoadCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "load <name>",
		Short: "Print a saved document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := a.loadDocument(cmd, args[0])
			if err != nil {
				return err
			}
			return printTree(cmd.OutOrStdout(), root, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", formatJSON, "Output format: json, view, props or tree")
	return cmd
}

func (a *app) docListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved documents, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			docs, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "NAME\tID\tUPDATED")
			for _, d := range docs {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, d.ID, d.Updated.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}

func (a *app) docDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			return st.Delete(cmd.Context(), args[0])
		},
	}
}

func (a *app) docExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <name> <file>",
		Short: "Write a saved document's JSON to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := a.loadDocument(cmd, args[0])
			if err != nil {
				return err
			}
			return store.ExportFile(args[1], root.JSON())
		},
	}
}
