package schema

import (
	"encoding/json"
	"fmt"

	"github.com/agentic-research/blocks/api"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// HCL layout:
//
//	version = "v1"
//	root {
//	  kind = "record"
//	  field "name" { default = "query1" }
//	  field "command" {
//	    kind = "union"
//	    extra "collection" { default = "" }
//	    variant "FIND" {
//	      class = "read"
//	      field "limit" { default = 10 }
//	    }
//	  }
//	  field "params" {
//	    kind = "map"
//	    elem { default = "" }
//	  }
//	}
type hclDocument struct {
	Version string   `hcl:"version,optional"`
	Root    hclBlock `hcl:"root,block"`
}

type hclBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type hclShape struct {
	Kind           string         `hcl:"kind,optional"`
	Widget         string         `hcl:"widget,optional"`
	Default        *hcl.Attribute `hcl:"default,optional"`
	Discriminator  string         `hcl:"discriminator,optional"`
	Payload        string         `hcl:"payload,optional"`
	DefaultVariant string         `hcl:"default_variant,optional"`
	Classified     bool           `hcl:"classified,optional"`
	Fields         []hclField     `hcl:"field,block"`
	Extra          []hclField     `hcl:"extra,block"`
	Variants       []hclVariant   `hcl:"variant,block"`
	Elem           *hclBlock      `hcl:"elem,block"`
}

type hclField struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

type hclVariant struct {
	Tag    string     `hcl:"tag,label"`
	Class  string     `hcl:"class,optional"`
	Fields []hclField `hcl:"field,block"`
}

func parseHCL(src []byte, filename string) (*api.Document, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse schema %s: %w", filename, diags)
	}
	var raw hclDocument
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("decode schema %s: %w", filename, diags)
	}
	root, err := decodeShape(raw.Root.Body)
	if err != nil {
		return nil, fmt.Errorf("decode schema %s: %w", filename, err)
	}
	return &api.Document{Version: raw.Version, Root: *root}, nil
}

func decodeShape(body hcl.Body) (*api.Shape, error) {
	var raw hclShape
	if diags := gohcl.DecodeBody(body, nil, &raw); diags.HasErrors() {
		return nil, diags
	}
	s := &api.Shape{
		Kind:           raw.Kind,
		Widget:         raw.Widget,
		Discriminator:  raw.Discriminator,
		Payload:        raw.Payload,
		DefaultVariant: raw.DefaultVariant,
		Classified:     raw.Classified,
	}
	if raw.Default != nil {
		v, err := attributeJSON(raw.Default)
		if err != nil {
			return nil, err
		}
		s.Default = v
	}
	var err error
	if s.Fields, err = decodeFields(raw.Fields); err != nil {
		return nil, err
	}
	if s.Extra, err = decodeFields(raw.Extra); err != nil {
		return nil, err
	}
	for _, v := range raw.Variants {
		fields, err := decodeFields(v.Fields)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", v.Tag, err)
		}
		s.Variants = append(s.Variants, api.Variant{Tag: v.Tag, Class: v.Class, Fields: fields})
	}
	if raw.Elem != nil {
		if s.Elem, err = decodeShape(raw.Elem.Body); err != nil {
			return nil, fmt.Errorf("elem: %w", err)
		}
	}
	return s, nil
}

func decodeFields(raw []hclField) ([]api.Field, error) {
	var out []api.Field
	for _, f := range raw {
		s, err := decodeShape(f.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		out = append(out, api.Field{Name: f.Name, Shape: *s})
	}
	return out, nil
}

// attributeJSON evaluates a constant HCL expression into a plain JSON value.
func attributeJSON(attr *hcl.Attribute) (any, error) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	raw, err := ctyjson.Marshal(val, val.Type())
	if err != nil {
		return nil, fmt.Errorf("default at %s: %w", attr.Range, err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
