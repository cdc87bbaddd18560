package cmd

import (
	"fmt"
	"strings"

	"github.com/agentic-research/blocks/internal/library"
	"github.com/spf13/cobra"
)

func (a *app) libraryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Manage the query library that library query nodes fetch from",
	}
	cmd.AddCommand(a.libraryPutCmd(), a.libraryGetCmd())
	return cmd
}

func (a *app) libraryPutCmd() *cobra.Command {
	var inputs []string
	cmd := &cobra.Command{
		Use:     "put <queryId> <recordId>",
		Short:   "Create or replace a library entry",
		Example: `  blocks library put q1 r1 --input userId:"the user to look up" --input limit`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := &library.Document{Inputs: make([]library.Input, 0, len(inputs))}
			for _, in := range inputs {
				name, desc, _ := strings.Cut(in, ":")
				if name == "" {
					return fmt.Errorf("--input %q: empty name", in)
				}
				doc.Inputs = append(doc.Inputs, library.Input{Name: name, Description: desc})
			}

			lib, err := a.openLibrary()
			if err != nil {
				return err
			}
			defer func() { _ = lib.Close() }()

			ref := library.Ref{QueryID: args[0], RecordID: args[1]}
			if err := lib.Put(cmd.Context(), ref, doc); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.ErrOrStderr(), "stored %s with %d inputs\n", ref, len(doc.Inputs))
			return err
		},
	}
	cmd.Flags().StringArrayVar(&inputs, "input", nil, "Declared input as name[:description] (repeatable)")
	return cmd
}

func (a *app) libraryGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <queryId> <recordId>",
		Short: "Print a library entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := a.openLibrary()
			if err != nil {
				return err
			}
			defer func() { _ = lib.Close() }()

			doc, err := lib.Fetch(cmd.Context(), library.Ref{QueryID: args[0], RecordID: args[1]})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), doc)
		},
	}
}
