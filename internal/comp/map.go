package comp

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// SetKeysName is the custom action understood by dynamic maps.
const SetKeysName = "setKeys"

// KeySpec names a map entry and the input used if the entry has to be created.
type KeySpec struct {
	Key   string
	Value any
}

// SetKeysAction recomputes the key set of the map at path.
func SetKeysAction(specs []KeySpec, path ...string) Action {
	return Custom(SetKeysName, specs, path...)
}

// MapKind builds dynamic maps whose entries all share Elem.
type MapKind struct {
	Elem Kind
}

func (k *MapKind) Name() string { return "map" }

func (k *MapKind) New(value any) (Comp, error) {
	m, err := k.Build(value)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Build creates one entry per key of value, in sorted key order.
func (k *MapKind) Build(value any) (*Map, error) {
	obj, err := asObject(value)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	children := make(map[string]Comp, len(keys))
	for _, key := range keys {
		c, err := k.Elem.New(obj[key])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		children[key] = c
	}
	return &Map{kind: k, keys: keys, children: children}, nil
}

// Map is a dynamic composite whose key set is data driven.
// keys and children are never modified after construction.
type Map struct {
	kind     *MapKind
	keys     []string
	children map[string]Comp
}

func (m *Map) Kind() Kind     { return m.kind }
func (m *Map) Keys() []string { return slices.Clone(m.keys) }
func (m *Map) Len() int       { return len(m.keys) }

func (m *Map) Child(key string) (Comp, bool) {
	c, ok := m.children[key]
	if !ok {
		return nil, false
	}
	return c, true
}

// View returns entry views in the current key order.
func (m *Map) View() any {
	out := orderedmap.New[string, any]()
	for _, key := range m.keys {
		out.Set(key, m.children[key].View())
	}
	return out
}

func (m *Map) JSON() any {
	out := make(map[string]any, len(m.keys))
	for _, key := range m.keys {
		out[key] = m.children[key].JSON()
	}
	return out
}

func (m *Map) PropertyView() []Property {
	if len(m.keys) == 0 {
		return []Property{{Kind: m.kind.Name(), Placeholder: EmptyPlaceholder}}
	}
	props := make([]Property, len(m.keys))
	for i, key := range m.keys {
		props[i] = describe(key, m.children[key])
	}
	return props
}

// SetKeys returns a map holding exactly specs' keys in specs' order.
// Entries already present keep their node; new entries are built from
// their spec's Value. The first spec wins when a key repeats.
func (m *Map) SetKeys(specs []KeySpec) (*Map, error) {
	keys := make([]string, 0, len(specs))
	children := make(map[string]Comp, len(specs))
	for _, spec := range specs {
		if _, dup := children[spec.Key]; dup {
			continue
		}
		c, ok := m.children[spec.Key]
		if !ok {
			var err error
			if c, err = m.kind.Elem.New(spec.Value); err != nil {
				return nil, fmt.Errorf("%s: %w", spec.Key, err)
			}
		}
		keys = append(keys, spec.Key)
		children[spec.Key] = c
	}
	if slices.Equal(keys, m.keys) {
		return m, nil
	}
	return &Map{kind: m.kind, keys: keys, children: children}, nil
}

func (m *Map) with(key string, child Comp) *Map {
	if m.children[key] == child {
		return m
	}
	children := maps.Clone(m.children)
	children[key] = child
	return &Map{kind: m.kind, keys: m.keys, children: children}
}

func (m *Map) Reduce(a Action) (Comp, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	route, key := a.Route()
	switch route {
	case RouteToChild:
		c, ok := m.children[key]
		if !ok {
			return nil, unknownChild(key)
		}
		next, err := c.Reduce(a.Shift())
		if err != nil {
			return nil, within(key, err)
		}
		return m.with(key, next), nil
	case Broadcast:
		return m.broadcast(a)
	}

	switch a.Op {
	case OpChangeValue:
		return m.kind.New(a.Value)
	case OpCustom:
		return m.custom(a)
	}
	return m, nil
}

// custom handles the custom actions a map understands; others leave it as is.
func (m *Map) custom(a Action) (*Map, error) {
	if a.Name != SetKeysName {
		return m, nil
	}
	specs, err := keySpecs(a.Payload)
	if err != nil {
		return nil, err
	}
	return m.SetKeys(specs)
}

// broadcast applies a to the map itself, then to every entry of the result.
func (m *Map) broadcast(a Action) (Comp, error) {
	cur, err := m.custom(a)
	if err != nil {
		return nil, err
	}
	var children map[string]Comp
	for _, key := range cur.keys {
		c := cur.children[key]
		next, err := c.Reduce(a)
		if err != nil {
			return nil, within(key, err)
		}
		if next == c {
			continue
		}
		if children == nil {
			children = maps.Clone(cur.children)
		}
		children[key] = next
	}
	if children == nil {
		return cur, nil
	}
	return &Map{kind: cur.kind, keys: cur.keys, children: children}, nil
}

// keySpecs accepts the payload forms a setKeys action arrives in: typed specs,
// bare key names, or decoded JSON ({"key": ..., "value": ...} objects or strings).
func keySpecs(payload any) ([]KeySpec, error) {
	switch p := payload.(type) {
	case []KeySpec:
		return p, nil
	case []string:
		specs := make([]KeySpec, len(p))
		for i, key := range p {
			specs[i] = KeySpec{Key: key}
		}
		return specs, nil
	case []any:
		specs := make([]KeySpec, 0, len(p))
		for i, item := range p {
			switch it := item.(type) {
			case string:
				specs = append(specs, KeySpec{Key: it})
			case map[string]any:
				key, ok := it["key"].(string)
				if !ok {
					return nil, fmt.Errorf("%w: %s entry %d has no string key", ErrInvalidAction, SetKeysName, i)
				}
				specs = append(specs, KeySpec{Key: key, Value: it["value"]})
			default:
				return nil, fmt.Errorf("%w: %s entry %d is %T", ErrInvalidAction, SetKeysName, i, item)
			}
		}
		return specs, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %s payload is %T", ErrInvalidAction, SetKeysName, payload)
	}
}
