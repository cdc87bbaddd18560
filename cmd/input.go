package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/agentic-research/blocks/api"
	"github.com/agentic-research/blocks/internal/comp"
	"github.com/agentic-research/blocks/internal/schema"
	"github.com/agentic-research/blocks/internal/widgets/libquery"
	"github.com/agentic-research/blocks/internal/widgets/mongo"
	"github.com/spf13/cobra"
)

// compiler knows every built-in widget.
func compiler() *schema.Compiler {
	return &schema.Compiler{Widgets: map[string]comp.Kind{
		mongo.WidgetName:    mongo.Kind(),
		libquery.WidgetName: libquery.Kind(),
	}}
}

// source is the --schema/--value pair shared by commands that build a tree.
type source struct {
	schema string
	value  string
}

func (s *source) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.schema, "schema", "s", "", "Schema file (.json or .hcl); inferred from the value when empty")
	cmd.Flags().StringVarP(&s.value, "value", "f", "", "JSON value file, - for stdin; schema defaults when empty")
}

// load builds the tree and returns it with the shape it was parsed by.
func (s *source) load(cmd *cobra.Command) (comp.Comp, *api.Shape, error) {
	value, err := readJSON(cmd.InOrStdin(), s.value)
	if err != nil {
		return nil, nil, err
	}

	var shape *api.Shape
	switch {
	case s.schema != "":
		doc, err := schema.LoadFile(s.schema)
		if err != nil {
			return nil, nil, err
		}
		shape = &doc.Root
	case value != nil:
		shape = &schema.Infer(value).Root
	default:
		return nil, nil, errors.New("--schema or --value is required")
	}
	root, err := build(shape, value)
	if err != nil {
		return nil, nil, err
	}
	return root, shape, nil
}

func build(shape *api.Shape, value any) (comp.Comp, error) {
	kind, err := compiler().Compile(shape)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	root, err := kind.New(value)
	if err != nil {
		return nil, fmt.Errorf("parse value: %w", err)
	}
	return root, nil
}

// readJSON decodes path, or stdin for "-". An empty path yields nil.
func readJSON(stdin io.Reader, path string) (any, error) {
	if path == "" {
		return nil, nil
	}
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}

func writeJSON(w io.Writer, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", raw)
	return err
}

// ensureDir creates the directory holding a database file.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}

// compact renders v as single-line JSON.
func compact(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}
