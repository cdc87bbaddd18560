package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentic-research/blocks/api"
	"github.com/agentic-research/blocks/internal/comp"
)

// LoadFile reads a schema document. Files ending in .hcl are parsed as HCL,
// everything else as JSON.
func LoadFile(path string) (*api.Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	return Parse(src, path)
}

// Parse decodes src, picking the syntax from filename's extension.
func Parse(src []byte, filename string) (*api.Document, error) {
	if strings.EqualFold(filepath.Ext(filename), ".hcl") {
		return parseHCL(src, filename)
	}
	var doc api.Document
	if err := json.Unmarshal(src, &doc); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", filename, err)
	}
	return &doc, nil
}

// LoadKind loads and compiles the root kind of a schema file.
func LoadKind(path string) (comp.Kind, error) {
	return (&Compiler{}).LoadKind(path)
}

// LoadKind loads and compiles the root kind of a schema file.
func (c *Compiler) LoadKind(path string) (comp.Kind, error) {
	doc, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	k, err := c.Compile(&doc.Root)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", path, err)
	}
	return k, nil
}
