package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/agentic-research/blocks/api"
	"github.com/agentic-research/blocks/internal/comp"
	"github.com/agentic-research/blocks/internal/library"
	"github.com/agentic-research/blocks/internal/query"
	"github.com/agentic-research/blocks/internal/runtime"
	"github.com/agentic-research/blocks/internal/schema"
	"github.com/agentic-research/blocks/internal/store"
	"github.com/agentic-research/blocks/internal/widgets/libquery"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type applyOptions struct {
	src     source
	actions string
	sets    []string
	undo    int
	out     string
	save    string
	format  string
}

func (a *app) applyCmd() *cobra.Command {
	var opts applyOptions
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply actions to a tree and print the result",
		Long: `Builds a tree, applies every action from --actions in order, then every --set,
and prints the resulting JSON.

Actions are a JSON array of {"kind", "path", "value", "name", "payload", "broadcast"}
where kind is changeValue, changeDiscriminator or custom.

Library query nodes with a selection, whether loaded that way or selected by
an action, are fetched from the library database; the command waits for every
fetch before printing.`,
		Example: `  blocks apply -s query.hcl -f query.json --actions edits.json
  blocks apply -s query.hcl --set '$.command.compType="INSERT"' --save q1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runApply(cmd, &opts)
		},
	}
	opts.src.bind(cmd)
	cmd.Flags().StringVarP(&opts.actions, "actions", "a", "", "JSON file with an array of actions, - for stdin")
	cmd.Flags().StringArrayVar(&opts.sets, "set", nil, "JSONPATH=JSON assignment to every matching node (repeatable)")
	cmd.Flags().IntVar(&opts.undo, "undo", 0, "Undo this many steps after applying")
	cmd.Flags().StringVar(&opts.out, "out", "", "Write the resulting JSON to this file instead of stdout")
	cmd.Flags().StringVar(&opts.save, "save", "", "Save the result in the document store under this name")
	cmd.Flags().StringVarP(&opts.format, "format", "o", formatJSON, "Output format: json, view, props or tree")
	return cmd
}

func (a *app) runApply(cmd *cobra.Command, opts *applyOptions) error {
	ctx := cmd.Context()
	if opts.actions == "-" && opts.src.value == "-" {
		return errors.New("--actions and --value cannot both read stdin")
	}
	root, shape, err := opts.src.load(cmd)
	if err != nil {
		return err
	}
	acts, err := readActions(cmd, opts.actions)
	if err != nil {
		return err
	}

	// Library query nodes can appear later through setKeys or a variant swap,
	// so the watcher is always attached and the library opens on first fetch.
	lib := &library.Lazy{Open: func() (library.Fetcher, error) { return a.openLibrary() }}
	defer func() { _ = lib.Close() }()
	watcher := &libquery.Watcher{
		Fetcher: lib,
		Timeout: a.cfg.FetchTimeout(),
		Logger:  a.log,
	}
	rt := runtime.New(root, runtime.Config{
		Logger:       a.log,
		HistoryLimit: a.cfg.Runtime.HistoryLimit,
		Watchers:     []runtime.Watcher{watcher},
	})
	defer func() { _ = rt.Close() }()
	watcher.Prime(rt, rt.Root())

	if err := a.dispatchAll(ctx, rt, acts); err != nil {
		return err
	}
	for _, assign := range opts.sets {
		sel, value := parseAssignment(assign)
		setActs, err := query.Actions(rt.Root(), sel, value)
		if err != nil {
			return fmt.Errorf("--set %s: %w", assign, err)
		}
		if len(setActs) == 0 {
			a.log.Warn("assignment matched nothing", zap.String("selector", sel))
		}
		if err := a.dispatchAll(ctx, rt, setActs); err != nil {
			return err
		}
	}
	if err := rt.Wait(ctx); err != nil {
		return err
	}
	for i := 0; i < opts.undo; i++ {
		ok, err := rt.Undo(ctx)
		if err != nil {
			return err
		}
		if !ok {
			a.log.Warn("nothing left to undo", zap.Int("undone", i))
			break
		}
	}
	// Undo can restore an older selection; let its fetch land too.
	if err := rt.Wait(ctx); err != nil {
		return err
	}

	final := rt.Root()
	a.log.Info("applied actions",
		zap.Int("actions", len(acts)),
		zap.Int("assignments", len(opts.sets)),
		zap.Uint64("generation", rt.Generation()))

	if opts.save != "" {
		if err := a.saveDocument(ctx, cmd, opts.save, shape, final.JSON()); err != nil {
			return err
		}
	}
	if opts.out != "" {
		return store.ExportFile(opts.out, final.JSON())
	}
	return printTree(cmd.OutOrStdout(), final, opts.format)
}

func (a *app) dispatchAll(ctx context.Context, rt *runtime.Runtime, acts []comp.Action) error {
	for i, act := range acts {
		if _, err := rt.Dispatch(ctx, act); err != nil {
			return fmt.Errorf("action %d (%s): %w", i, act, err)
		}
	}
	return nil
}

func readActions(cmd *cobra.Command, path string) ([]comp.Action, error) {
	if path == "" {
		return nil, nil
	}
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	acts, err := schema.DecodeActions(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return acts, nil
}

// parseAssignment splits SELECTOR=VALUE at the first '='. A value that is not
// valid JSON is taken as a string.
func parseAssignment(s string) (string, any) {
	sel, raw, _ := strings.Cut(s, "=")
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return sel, raw
	}
	return sel, v
}

func (a *app) openLibrary() (*library.SQLiteFetcher, error) {
	if err := ensureDir(a.cfg.Library.Path); err != nil {
		return nil, err
	}
	return library.OpenSQLite(a.cfg.Library.Path)
}

func (a *app) openStore() (*store.Store, error) {
	if err := ensureDir(a.cfg.Store.Path); err != nil {
		return nil, err
	}
	return store.Open(a.cfg.Store.Path)
}

func (a *app) saveDocument(ctx context.Context, cmd *cobra.Command, name string, shape *api.Shape, value any) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	id, err := st.Save(ctx, name, shape, value)
	if err != nil {
		return err
	}
	a.log.Info("saved document", zap.String("name", name), zap.String("id", id))
	_, err = fmt.Fprintf(cmd.ErrOrStderr(), "saved %s (%s)\n", name, id)
	return err
}
