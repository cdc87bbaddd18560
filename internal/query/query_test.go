package query

import (
	"testing"

	"github.com/agentic-research/blocks/internal/comp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T) comp.Comp {
	t.Helper()
	command := comp.MustUnionKind(comp.UnionSpec{
		Variants: []comp.Variant{
			{Tag: "FIND", Schema: comp.MustSchema(
				comp.Field{Name: "query", Kind: comp.ValueKind{Default: "{}"}},
				comp.Field{Name: "limit", Kind: comp.ValueKind{Default: 10.0}},
			)},
			{Tag: "INSERT", Schema: comp.MustSchema(
				comp.Field{Name: "documents", Kind: comp.ValueKind{Default: []any{}}},
			)},
		},
	})
	k := comp.NewRecordKind(comp.MustSchema(
		comp.Field{Name: "queries", Kind: &comp.MapKind{Elem: command}},
	))
	root, err := k.New(map[string]any{"queries": map[string]any{
		"a": map[string]any{"compType": "FIND", "comp": map[string]any{"limit": 1.0}},
		"b": map[string]any{"compType": "INSERT", "comp": map[string]any{"documents": []any{map[string]any{"x": 1.0}}}},
		"c": map[string]any{"compType": "FIND"},
	}})
	require.NoError(t, err)
	return root
}

func TestSelect_LocatesNodes(t *testing.T) {
	matches, err := Select(fixture(t), "$.queries.*.comp.limit")
	require.NoError(t, err)
	require.Len(t, matches, 2)

	byPath := map[string]Match{}
	for _, m := range matches {
		assert.True(t, m.Exact)
		byPath[m.Expr] = m
	}
	a := byPath["$.queries.a.comp.limit"]
	assert.Equal(t, []string{"queries", "a", "comp", "limit"}, a.Path)
	assert.Equal(t, 1.0, a.Value)
	assert.Equal(t, 10.0, byPath["$.queries.c.comp.limit"].Value)
}

func TestSelect_InsideLeafValue(t *testing.T) {
	matches, err := Select(fixture(t), "$.queries.b.comp.documents[0].x")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.False(t, matches[0].Exact)
	assert.Equal(t, []string{"queries", "b", "comp", "documents"}, matches[0].Path)
	assert.Equal(t, 1.0, matches[0].Value)
}

func TestValues(t *testing.T) {
	vals, err := Values(fixture(t), "$.queries.*.compType")
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{"FIND", "INSERT", "FIND"}, vals)

	_, err = Values(fixture(t), "$[[")
	assert.Error(t, err)
}

func TestActions_AssignEveryMatch(t *testing.T) {
	root := fixture(t)
	acts, err := Actions(root, "$.queries.*.comp.limit", 50.0)
	require.NoError(t, err)
	assert.Len(t, acts, 2)

	next := root
	for _, a := range acts {
		next, err = comp.Dispatch(next, a)
		require.NoError(t, err)
	}
	vals, err := Values(next, "$.queries.*.comp.limit")
	require.NoError(t, err)
	assert.Equal(t, []any{50.0, 50.0}, vals)

	// The INSERT entry had no limit and is shared untouched.
	before, _ := comp.Get(root, "queries", "b")
	after, _ := comp.Get(next, "queries", "b")
	assert.Same(t, before, after)

	_, err = Actions(root, "$.queries.b.comp.documents[0]", 1.0)
	assert.ErrorIs(t, err, comp.ErrInvalidAction)
}

func TestSelect_InvalidPath(t *testing.T) {
	_, err := Select(fixture(t), "$[[")
	assert.Error(t, err)
}
