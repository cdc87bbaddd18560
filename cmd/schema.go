package cmd

import (
	"fmt"

	"github.com/agentic-research/blocks/internal/schema"
	"github.com/spf13/cobra"
)

func (a *app) schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect and generate schemas",
	}
	cmd.AddCommand(a.schemaInferCmd(), a.schemaCheckCmd())
	return cmd
}

func (a *app) schemaInferCmd() *cobra.Command {
	var (
		records bool
		cfg     = schema.DefaultInferConfig()
	)
	cmd := &cobra.Command{
		Use:   "infer <value.json>...",
		Short: "Infer a JSON schema from sample values",
		Long: `Prints a schema document accepting every sample. Each file is one sample;
with --records, each file holds a JSON array of samples.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var samples []any
			for _, path := range args {
				v, err := readJSON(cmd.InOrStdin(), path)
				if err != nil {
					return err
				}
				if list, ok := v.([]any); ok && records {
					samples = append(samples, list...)
					continue
				}
				samples = append(samples, v)
			}
			inf := &schema.Inferrer{Config: cfg}
			return writeJSON(cmd.OutOrStdout(), inf.InferFromRecords(samples))
		},
	}
	cmd.Flags().BoolVar(&records, "records", false, "Treat each file as an array of samples")
	cmd.Flags().IntVar(&cfg.SampleSize, "sample", cfg.SampleSize, "Maximum samples to inspect")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", 0, "Seed for sampling")
	cmd.Flags().StringVar(&cfg.Discriminator, "discriminator", cfg.Discriminator, "Union discriminator key")
	cmd.Flags().StringVar(&cfg.Payload, "payload", cfg.Payload, "Union payload key")
	return cmd
}

func (a *app) schemaCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <schema>",
		Short: "Compile a schema file and report errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := compiler().LoadKind(args[0])
			if err != nil {
				return err
			}
			if _, err := kind.New(nil); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%s)\n", args[0], kind.Name())
			return err
		},
	}
}
