// Package comp implements the composable configuration tree.
//
// Every configurable element is a Comp: an immutable node that owns a value,
// exposes a property description for editors and changes only by reducing an
// Action into a new node. Composite nodes copy themselves on change and share
// every untouched child with the previous generation, so identity comparison
// is enough to tell which subtrees an action touched.
package comp

import (
	"fmt"
	"strings"
)

// Comp is a node in the tree.
type Comp interface {
	// Kind returns the descriptor the node was built from.
	Kind() Kind
	// View returns the node's externally visible data. It has no side effects.
	View() any
	// JSON returns the canonical serialized form, accepted back by Kind().New.
	JSON() any
	// Keys lists child keys in the order editors and views iterate them.
	Keys() []string
	Child(key string) (Comp, bool)
	// PropertyView describes the editors for the node's children. Leaves return nil.
	PropertyView() []Property
	// Reduce applies a and returns the resulting node. The receiver is never
	// modified; an action the node does not recognize returns the receiver.
	Reduce(a Action) (Comp, error)
}

// Kind builds nodes from JSON values. A nil value means "absent" and yields
// the kind's declared defaults.
type Kind interface {
	Name() string
	New(value any) (Comp, error)
}

// EmptyPlaceholder is rendered by a dynamic map without entries.
const EmptyPlaceholder = "No entries"

// Property describes one editor. Leaf properties carry Value, composite ones
// carry Children. Placeholder is set on the stand-in entry of an empty map.
type Property struct {
	Key         string     `json:"key"`
	Kind        string     `json:"kind"`
	Value       any        `json:"value,omitempty"`
	Children    []Property `json:"children,omitempty"`
	Placeholder string     `json:"placeholder,omitempty"`
}

func describe(key string, c Comp) Property {
	p := Property{Key: key, Kind: c.Kind().Name()}
	if children := c.PropertyView(); children != nil {
		p.Children = children
	} else {
		p.Value = c.View()
	}
	return p
}

// Dispatch reduces a at root and returns the new root.
func Dispatch(root Comp, a Action) (Comp, error) {
	return root.Reduce(a)
}

// Get returns the descendant of root at path.
func Get(root Comp, path ...string) (Comp, error) {
	cur := root
	for i, key := range path {
		next, ok := cur.Child(key)
		if !ok {
			return nil, &RoutingError{Path: append([]string(nil), path[:i+1]...), Key: key}
		}
		cur = next
	}
	return cur, nil
}

// Walk visits root and its descendants depth-first in key order.
func Walk(root Comp, fn func(path []string, c Comp) error) error {
	return walk(nil, root, fn)
}

func walk(path []string, c Comp, fn func([]string, Comp) error) error {
	if err := fn(path, c); err != nil {
		return err
	}
	for _, key := range c.Keys() {
		child, ok := c.Child(key)
		if !ok {
			continue
		}
		p := make([]string, len(path)+1)
		copy(p, path)
		p[len(path)] = key
		if err := walk(p, child, fn); err != nil {
			return err
		}
	}
	return nil
}

// Changed lists the slash-joined paths whose node identity differs between
// two generations of the same tree. Shared subtrees are skipped without
// being visited. The root is reported as "".
func Changed(prev, next Comp) []string {
	var out []string
	changed(nil, prev, next, &out)
	return out
}

func changed(path []string, prev, next Comp, out *[]string) {
	if prev == next {
		return
	}
	*out = append(*out, strings.Join(path, "/"))
	if prev == nil || next == nil {
		collect(path, next, out)
		collect(path, prev, out)
		return
	}
	seen := make(map[string]bool)
	for _, key := range next.Keys() {
		seen[key] = true
		nc, _ := next.Child(key)
		pc, _ := prev.Child(key)
		changed(append(path[:len(path):len(path)], key), pc, nc, out)
	}
	for _, key := range prev.Keys() {
		if seen[key] {
			continue
		}
		pc, _ := prev.Child(key)
		changed(append(path[:len(path):len(path)], key), pc, nil, out)
	}
}

// collect appends every descendant path of c (c itself excluded).
func collect(path []string, c Comp, out *[]string) {
	if c == nil {
		return
	}
	for _, key := range c.Keys() {
		child, _ := c.Child(key)
		p := append(path[:len(path):len(path)], key)
		*out = append(*out, strings.Join(p, "/"))
		collect(p, child, out)
	}
}

func asObject(v any) (map[string]any, error) {
	switch o := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return o, nil
	default:
		return nil, fmt.Errorf("%w: want object, got %T", ErrShape, v)
	}
}
