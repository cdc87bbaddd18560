// Package schema turns declarative shapes into node kinds.
package schema

import (
	"fmt"

	"github.com/agentic-research/blocks/api"
	"github.com/agentic-research/blocks/internal/comp"
)

// Compiler turns shapes into kinds. Widgets maps the names usable in
// widget shapes to their prebuilt kinds.
type Compiler struct {
	Widgets map[string]comp.Kind
}

// Compile builds the kind described by s with no widgets available.
func Compile(s *api.Shape) (comp.Kind, error) {
	return (&Compiler{}).Compile(s)
}

// Compile builds the kind described by s. Errors name the offending field
// path and wrap comp.ErrSchema.
func (c *Compiler) Compile(s *api.Shape) (comp.Kind, error) {
	switch s.Kind {
	case "", api.KindValue:
		return comp.ValueKind{Default: s.Default}, nil
	case api.KindRecord:
		sch, err := c.fields(s.Fields)
		if err != nil {
			return nil, err
		}
		return comp.NewRecordKind(sch), nil
	case api.KindMap:
		if s.Elem == nil {
			return nil, fmt.Errorf("%w: map without elem", comp.ErrSchema)
		}
		elem, err := c.Compile(s.Elem)
		if err != nil {
			return nil, fmt.Errorf("elem: %w", err)
		}
		return &comp.MapKind{Elem: elem}, nil
	case api.KindUnion:
		return c.union(s)
	case api.KindWidget:
		k, ok := c.Widgets[s.Widget]
		if !ok {
			return nil, fmt.Errorf("%w: unknown widget %q", comp.ErrSchema, s.Widget)
		}
		return k, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", comp.ErrSchema, s.Kind)
	}
}

func (c *Compiler) fields(fields []api.Field) (*comp.Schema, error) {
	out := make([]comp.Field, 0, len(fields))
	for i := range fields {
		f := &fields[i]
		k, err := c.Compile(&f.Shape)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		out = append(out, comp.Field{Name: f.Name, Kind: k})
	}
	return comp.NewSchema(out...)
}

func (c *Compiler) union(s *api.Shape) (comp.Kind, error) {
	spec := comp.UnionSpec{
		Discriminator: s.Discriminator,
		Payload:       s.Payload,
		Default:       s.DefaultVariant,
		Classified:    s.Classified,
	}
	for _, v := range s.Variants {
		sch, err := c.fields(v.Fields)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", v.Tag, err)
		}
		spec.Variants = append(spec.Variants, comp.Variant{Tag: v.Tag, Schema: sch, Class: v.Class})
	}
	if len(s.Extra) > 0 {
		extra, err := c.fields(s.Extra)
		if err != nil {
			return nil, fmt.Errorf("extra: %w", err)
		}
		spec.Extra = extra
	}
	k, err := comp.NewUnionKind(spec)
	if err != nil {
		return nil, err
	}
	return k, nil
}
