package comp

// ValueKind builds terminal leaves holding a JSON value.
// Default is shared by every leaf built without input and must be treated as immutable.
type ValueKind struct {
	Default any
}

func (k ValueKind) Name() string { return "value" }

func (k ValueKind) New(value any) (Comp, error) {
	if value == nil {
		value = k.Default
	}
	return &Value{kind: k, v: value}, nil
}

// Value is a leaf node.
type Value struct {
	kind ValueKind
	v    any
}

func (n *Value) Kind() Kind                { return n.kind }
func (n *Value) View() any                 { return n.v }
func (n *Value) JSON() any                 { return n.v }
func (n *Value) Keys() []string            { return nil }
func (n *Value) Child(string) (Comp, bool) { return nil, false }
func (n *Value) PropertyView() []Property  { return nil }

// Reduce handles change-value; anything else addressed to a leaf is a no-op.
func (n *Value) Reduce(a Action) (Comp, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	route, key := a.Route()
	switch route {
	case RouteToChild:
		return nil, unknownChild(key)
	case AddressedHere:
		if a.Op == OpChangeValue {
			return n.kind.New(a.Value)
		}
	}
	return n, nil
}
