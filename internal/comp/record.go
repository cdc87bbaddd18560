package comp

import (
	"fmt"
	"slices"
)

// Field binds a child key to the kind that builds it.
type Field struct {
	Name string
	Kind Kind
}

// Schema is the ordered, fixed set of fields of a record.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema validates fields and fixes their declaration order.
func NewSchema(fields ...Field) (*Schema, error) {
	s := &Schema{fields: slices.Clone(fields), index: make(map[string]int, len(fields))}
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: field %d has no name", ErrSchema, i)
		}
		if f.Kind == nil {
			return nil, fmt.Errorf("%w: field %q has no kind", ErrSchema, f.Name)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrSchema, f.Name)
		}
		s.index[f.Name] = i
	}
	return s, nil
}

// MustSchema is NewSchema for static tables; it panics on error.
func MustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Len() int { return len(s.fields) }

func (s *Schema) Fields() []Field { return slices.Clone(s.fields) }

func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Handler reduces a custom action addressed to a record.
type Handler func(r *Record, a Action) (Comp, error)

// RecordKind builds fixed composites. Handlers are registered while the kind
// is being declared and must not change once nodes exist.
type RecordKind struct {
	schema   *Schema
	handlers map[string]Handler
}

func NewRecordKind(s *Schema) *RecordKind {
	return &RecordKind{schema: s, handlers: make(map[string]Handler)}
}

// Handle registers h for custom actions named name and returns k.
func (k *RecordKind) Handle(name string, h Handler) *RecordKind {
	k.handlers[name] = h
	return k
}

func (k *RecordKind) Name() string    { return "record" }
func (k *RecordKind) Schema() *Schema { return k.schema }

func (k *RecordKind) New(value any) (Comp, error) {
	r, err := k.Build(value)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Build is New with the concrete result type.
func (k *RecordKind) Build(value any) (*Record, error) {
	obj, err := asObject(value)
	if err != nil {
		return nil, err
	}
	children := make([]Comp, len(k.schema.fields))
	for i, f := range k.schema.fields {
		c, err := f.Kind.New(obj[f.Name])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		children[i] = c
	}
	return &Record{kind: k, children: children}, nil
}

// Record is a fixed composite: one child per schema field.
type Record struct {
	kind     *RecordKind
	children []Comp
}

func (r *Record) Kind() Kind      { return r.kind }
func (r *Record) Keys() []string  { return r.kind.schema.Names() }
func (r *Record) Schema() *Schema { return r.kind.schema }

func (r *Record) Child(key string) (Comp, bool) {
	i, ok := r.kind.schema.index[key]
	if !ok {
		return nil, false
	}
	return r.children[i], true
}

// View returns every field's view keyed by field name.
func (r *Record) View() any {
	out := make(map[string]any, len(r.children))
	for i, f := range r.kind.schema.fields {
		out[f.Name] = r.children[i].View()
	}
	return out
}

// ViewOf evaluates a single field's view.
func (r *Record) ViewOf(name string) (any, bool) {
	c, ok := r.Child(name)
	if !ok {
		return nil, false
	}
	return c.View(), true
}

func (r *Record) JSON() any {
	out := make(map[string]any, len(r.children))
	for i, f := range r.kind.schema.fields {
		out[f.Name] = r.children[i].JSON()
	}
	return out
}

func (r *Record) PropertyView() []Property {
	props := make([]Property, len(r.children))
	for i, f := range r.kind.schema.fields {
		props[i] = describe(f.Name, r.children[i])
	}
	return props
}

// With returns a record with child under name, sharing every other child.
func (r *Record) With(name string, child Comp) (*Record, error) {
	i, ok := r.kind.schema.index[name]
	if !ok {
		return nil, unknownChild(name)
	}
	return r.withIndex(i, child), nil
}

func (r *Record) withIndex(i int, child Comp) *Record {
	if r.children[i] == child {
		return r
	}
	children := slices.Clone(r.children)
	children[i] = child
	return &Record{kind: r.kind, children: children}
}

func (r *Record) Reduce(a Action) (Comp, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	route, key := a.Route()
	switch route {
	case RouteToChild:
		i, ok := r.kind.schema.index[key]
		if !ok {
			return nil, unknownChild(key)
		}
		next, err := r.children[i].Reduce(a.Shift())
		if err != nil {
			return nil, within(key, err)
		}
		return r.withIndex(i, next), nil
	case Broadcast:
		return r.broadcast(a)
	}

	switch a.Op {
	case OpChangeValue:
		return r.replace(a.Value)
	case OpCustom:
		if h, ok := r.kind.handlers[a.Name]; ok {
			return h(r, a)
		}
	}
	return r, nil
}

// replace decomposes a whole-value replacement into one change per field.
// Fields absent from value return to their defaults.
func (r *Record) replace(value any) (Comp, error) {
	obj, err := asObject(value)
	if err != nil {
		return nil, err
	}
	next, err := r.each(func(name string, c Comp) (Comp, error) {
		return c.Reduce(ChangeValue(obj[name]))
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (r *Record) broadcast(a Action) (Comp, error) {
	cur := r
	if h, ok := r.kind.handlers[a.Name]; ok {
		next, err := h(r, a)
		if err != nil {
			return nil, err
		}
		rec, ok := next.(*Record)
		if !ok {
			return next, nil
		}
		cur = rec
	}
	next, err := cur.each(func(_ string, c Comp) (Comp, error) {
		return c.Reduce(a)
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

// each rebuilds r from fn applied to every child, copying only when a child changed.
func (r *Record) each(fn func(name string, c Comp) (Comp, error)) (*Record, error) {
	var children []Comp
	for i, f := range r.kind.schema.fields {
		next, err := fn(f.Name, r.children[i])
		if err != nil {
			return nil, within(f.Name, err)
		}
		if next == r.children[i] {
			continue
		}
		if children == nil {
			children = slices.Clone(r.children)
		}
		children[i] = next
	}
	if children == nil {
		return r, nil
	}
	return &Record{kind: r.kind, children: children}, nil
}
