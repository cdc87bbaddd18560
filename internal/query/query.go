// Package query selects nodes of a comp tree with JSONPath.
package query

import (
	"fmt"

	"github.com/agentic-research/blocks/internal/comp"
	"github.com/ohler55/ojg/jp"
)

// Match is one value selected from a tree's JSON form.
type Match struct {
	// Expr is the normalized JSONPath of the value, e.g. $.command.comp.limit.
	Expr string
	// Path is the deepest comp node containing the value.
	Path []string
	// Exact is true when the value is the whole node at Path rather than
	// something nested inside a leaf's value.
	Exact bool
	Value any
}

// Select evaluates selector against root.JSON().
func Select(root comp.Comp, selector string) ([]Match, error) {
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}

	data := root.JSON()
	locs := x.Locate(data, 0)
	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		path, exact := resolve(root, loc)
		matches = append(matches, Match{
			Expr:  loc.String(),
			Path:  path,
			Exact: exact,
			Value: loc.First(data),
		})
	}
	return matches, nil
}

// Values is Select without locations.
func Values(root comp.Comp, selector string) ([]any, error) {
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}
	return x.Get(root.JSON()), nil
}

// Actions returns one ChangeValue per node selector matches exactly. Matches
// inside a leaf's value are an error: leaves change as a whole.
func Actions(root comp.Comp, selector string, value any) ([]comp.Action, error) {
	matches, err := Select(root, selector)
	if err != nil {
		return nil, err
	}
	acts := make([]comp.Action, 0, len(matches))
	for _, m := range matches {
		if !m.Exact {
			return nil, fmt.Errorf("%w: %s is inside a leaf value", comp.ErrInvalidAction, m.Expr)
		}
		acts = append(acts, comp.ChangeValue(value, m.Path...))
	}
	return acts, nil
}

// resolve walks loc's child fragments down the comp tree as far as nodes
// exist.
func resolve(root comp.Comp, loc jp.Expr) ([]string, bool) {
	var path []string
	cur := root
	for _, frag := range loc {
		switch f := frag.(type) {
		case jp.Root:
			continue
		case jp.Child:
			next, ok := cur.Child(string(f))
			if !ok {
				return path, false
			}
			path = append(path, string(f))
			cur = next
		default:
			return path, false
		}
	}
	return path, true
}
