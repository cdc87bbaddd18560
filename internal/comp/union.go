package comp

import (
	"fmt"
	"maps"
)

const (
	DefaultDiscriminator = "compType"
	DefaultPayload       = "comp"
)

// Variant registers the payload schema for one discriminator value.
// Class is the variant's side-channel classification (for example "write" or
// "read"); it lives next to the schema so the two tables cannot drift apart.
type Variant struct {
	Tag    string
	Schema *Schema
	Class  string
}

// UnionSpec declares a tagged union.
type UnionSpec struct {
	// Discriminator and Payload name the JSON keys holding the tag and the
	// payload object. They default to "compType" and "comp".
	Discriminator string
	Payload       string
	Variants      []Variant
	Default       string
	// Extra holds fields present whatever the tag is. They are serialized
	// next to the discriminator, not inside the payload.
	Extra *Schema
	// Classified requires every variant to declare a Class.
	Classified bool
	// Handlers are registered on every variant's payload kind.
	Handlers map[string]Handler
}

// UnionKind builds tagged-union composites.
type UnionKind struct {
	disc     string
	payload  string
	def      string
	tags     []string
	variants map[string]*RecordKind
	classes  map[string]string
	extra    *RecordKind
}

// NewUnionKind validates spec. Every problem it reports is a construction
// error in the declaring code.
func NewUnionKind(spec UnionSpec) (*UnionKind, error) {
	k := &UnionKind{
		disc:     spec.Discriminator,
		payload:  spec.Payload,
		def:      spec.Default,
		variants: make(map[string]*RecordKind, len(spec.Variants)),
		classes:  make(map[string]string, len(spec.Variants)),
	}
	if k.disc == "" {
		k.disc = DefaultDiscriminator
	}
	if k.payload == "" {
		k.payload = DefaultPayload
	}
	if k.disc == k.payload {
		return nil, fmt.Errorf("%w: discriminator and payload share key %q", ErrSchema, k.disc)
	}
	if len(spec.Variants) == 0 {
		return nil, fmt.Errorf("%w: union without variants", ErrSchema)
	}
	for _, v := range spec.Variants {
		if v.Tag == "" {
			return nil, fmt.Errorf("%w: variant without tag", ErrSchema)
		}
		if v.Schema == nil {
			return nil, fmt.Errorf("%w: variant %q has no schema", ErrSchema, v.Tag)
		}
		if _, dup := k.variants[v.Tag]; dup {
			return nil, fmt.Errorf("%w: duplicate variant %q", ErrSchema, v.Tag)
		}
		if spec.Classified && v.Class == "" {
			return nil, fmt.Errorf("%w: variant %q is not classified", ErrSchema, v.Tag)
		}
		rk := NewRecordKind(v.Schema)
		for name, h := range spec.Handlers {
			rk.Handle(name, h)
		}
		k.variants[v.Tag] = rk
		k.classes[v.Tag] = v.Class
		k.tags = append(k.tags, v.Tag)
	}
	if k.def == "" {
		k.def = k.tags[0]
	}
	if _, ok := k.variants[k.def]; !ok {
		return nil, fmt.Errorf("%w: default variant %q is not registered", ErrSchema, k.def)
	}
	extra := spec.Extra
	if extra == nil {
		extra = MustSchema()
	}
	for _, reserved := range []string{k.disc, k.payload} {
		if extra.Has(reserved) {
			return nil, fmt.Errorf("%w: extra field %q collides with a reserved key", ErrSchema, reserved)
		}
	}
	k.extra = NewRecordKind(extra)
	return k, nil
}

// MustUnionKind is NewUnionKind for static tables; it panics on error.
func MustUnionKind(spec UnionSpec) *UnionKind {
	k, err := NewUnionKind(spec)
	if err != nil {
		panic(err)
	}
	return k
}

func (k *UnionKind) Name() string          { return "union" }
func (k *UnionKind) Discriminator() string { return k.disc }
func (k *UnionKind) PayloadKey() string    { return k.payload }
func (k *UnionKind) Default() string       { return k.def }
func (k *UnionKind) Extra() *Schema        { return k.extra.schema }

// Tags lists registered discriminator values in registration order.
func (k *UnionKind) Tags() []string { return append([]string(nil), k.tags...) }

// Variant returns the payload schema registered for tag.
func (k *UnionKind) Variant(tag string) (*Schema, bool) {
	rk, ok := k.variants[tag]
	if !ok {
		return nil, false
	}
	return rk.schema, true
}

// ClassOf reports the classification registered with tag.
func (k *UnionKind) ClassOf(tag string) (string, bool) {
	c, ok := k.classes[tag]
	return c, ok
}

func (k *UnionKind) New(value any) (Comp, error) {
	u, err := k.Build(value)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Build reads the discriminator, the payload and the extra fields from value.
func (k *UnionKind) Build(value any) (*Union, error) {
	obj, err := asObject(value)
	if err != nil {
		return nil, err
	}
	tag := k.def
	if raw, ok := obj[k.disc]; ok && raw != nil {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s is %T, want string", ErrShape, k.disc, raw)
		}
		tag = s
	}
	payload, err := k.payloadFor(tag, obj[k.payload])
	if err != nil {
		return nil, err
	}
	extra, err := k.extra.Build(obj)
	if err != nil {
		return nil, err
	}
	return &Union{kind: k, tag: k.tagNode(tag), payload: payload, extra: extra}, nil
}

func (k *UnionKind) payloadFor(tag string, value any) (*Record, error) {
	rk, ok := k.variants[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, tag)
	}
	r, err := rk.Build(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", k.payload, err)
	}
	return r, nil
}

func (k *UnionKind) tagNode(tag string) *Value {
	return &Value{kind: ValueKind{Default: k.def}, v: tag}
}

// Union is a tagged-union composite. Its children are the discriminator
// leaf, the payload record and the extra fields.
type Union struct {
	kind    *UnionKind
	tag     *Value
	payload *Record
	extra   *Record
}

func (u *Union) Kind() Kind            { return u.kind }
func (u *Union) UnionKind() *UnionKind { return u.kind }
func (u *Union) Payload() *Record      { return u.payload }
func (u *Union) Extras() *Record       { return u.extra }

// Tag returns the active discriminator value.
func (u *Union) Tag() string {
	s, _ := u.tag.v.(string)
	return s
}

// Class returns the classification registered with the active variant.
func (u *Union) Class() string {
	c, _ := u.kind.ClassOf(u.Tag())
	return c
}

func (u *Union) Keys() []string {
	return append([]string{u.kind.disc, u.kind.payload}, u.extra.Keys()...)
}

func (u *Union) Child(key string) (Comp, bool) {
	switch key {
	case u.kind.disc:
		return u.tag, true
	case u.kind.payload:
		return u.payload, true
	}
	return u.extra.Child(key)
}

// View merges the extra fields and the active payload into one flat map.
// The discriminator is left out; payload fields win a name clash.
func (u *Union) View() any {
	out := u.extra.View().(map[string]any)
	maps.Copy(out, u.payload.View().(map[string]any))
	return out
}

func (u *Union) JSON() any {
	out := u.extra.JSON().(map[string]any)
	out[u.kind.disc] = u.Tag()
	out[u.kind.payload] = u.payload.JSON()
	return out
}

func (u *Union) PropertyView() []Property {
	props := []Property{{Key: u.kind.disc, Kind: "discriminator", Value: u.Tag()}}
	props = append(props, u.extra.PropertyView()...)
	return append(props, u.payload.PropertyView()...)
}

func (u *Union) Reduce(a Action) (Comp, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	route, key := a.Route()
	switch route {
	case RouteToChild:
		return u.route(key, a)
	case Broadcast:
		return u.broadcast(a)
	}

	switch a.Op {
	case OpChangeDiscriminator:
		tag, ok := a.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: discriminator is %T, want string", ErrInvalidAction, a.Value)
		}
		return u.swap(tag, a.Payload)
	case OpChangeValue:
		return u.kind.New(a.Value)
	case OpCustom:
		// Handlers live on the variants' payload kinds.
		next, err := u.payload.Reduce(a)
		if err != nil {
			return nil, within(u.kind.payload, err)
		}
		payload, err := asRecord(next)
		if err != nil {
			return nil, within(u.kind.payload, err)
		}
		return u.withParts(payload, u.extra), nil
	}
	return u, nil
}

func (u *Union) route(key string, a Action) (Comp, error) {
	switch key {
	case u.kind.disc:
		inner := a.Shift()
		if route, k := inner.Route(); route == RouteToChild {
			return nil, within(key, unknownChild(k))
		}
		switch inner.Op {
		case OpChangeValue:
			tag, ok := inner.Value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: discriminator is %T, want string", ErrInvalidAction, inner.Value)
			}
			return u.swap(tag, nil)
		case OpChangeDiscriminator:
			return u.Reduce(Action{Op: OpChangeDiscriminator, Value: inner.Value, Payload: inner.Payload})
		}
		return u, nil
	case u.kind.payload:
		next, err := u.payload.Reduce(a.Shift())
		if err != nil {
			return nil, within(key, err)
		}
		payload, err := asRecord(next)
		if err != nil {
			return nil, within(key, err)
		}
		return u.withParts(payload, u.extra), nil
	}
	if !u.extra.kind.schema.Has(key) {
		return nil, unknownChild(key)
	}
	next, err := u.extra.Reduce(a)
	if err != nil {
		return nil, err
	}
	extra, err := asRecord(next)
	if err != nil {
		return nil, err
	}
	return u.withParts(u.payload, extra), nil
}

// broadcast reaches the payload, whose kind carries the union's handlers,
// and then the extra fields.
func (u *Union) broadcast(a Action) (Comp, error) {
	next, err := u.payload.Reduce(a)
	if err != nil {
		return nil, within(u.kind.payload, err)
	}
	payload, err := asRecord(next)
	if err != nil {
		return nil, within(u.kind.payload, err)
	}
	if next, err = u.extra.Reduce(a); err != nil {
		return nil, err
	}
	extra, err := asRecord(next)
	if err != nil {
		return nil, err
	}
	return u.withParts(payload, extra), nil
}

// swap switches the discriminator. The old payload is discarded and the new
// one is built from seed alone; no field is migrated across variants.
func (u *Union) swap(tag string, seed any) (Comp, error) {
	if tag == u.Tag() && seed == nil {
		return u, nil
	}
	payload, err := u.kind.payloadFor(tag, seed)
	if err != nil {
		return nil, err
	}
	return &Union{kind: u.kind, tag: u.kind.tagNode(tag), payload: payload, extra: u.extra}, nil
}

func (u *Union) withParts(payload, extra *Record) *Union {
	if payload == u.payload && extra == u.extra {
		return u
	}
	return &Union{kind: u.kind, tag: u.tag, payload: payload, extra: extra}
}

func asRecord(c Comp) (*Record, error) {
	r, ok := c.(*Record)
	if !ok {
		return nil, fmt.Errorf("%w: handler replaced a record with %T", ErrInvalidAction, c)
	}
	return r, nil
}
