package comp

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queryKind mirrors a saved query: a command union, a parameter map and a
// few plain settings.
func queryKind(t *testing.T) *RecordKind {
	t.Helper()
	return NewRecordKind(MustSchema(
		Field{Name: "name", Kind: ValueKind{Default: "query1"}},
		Field{Name: "command", Kind: commandKind(t)},
		Field{Name: "params", Kind: &MapKind{Elem: ValueKind{Default: ""}}},
		Field{Name: "settings", Kind: datasourceKind(t)},
	))
}

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestRoundTrip(t *testing.T) {
	docs := []string{
		`{"name":"q","command":{"compType":"FIND","comp":{"query":"{}","limit":5}},"params":{},"settings":{"host":"h","port":1,"auth":{"user":"u","password":"p"}}}`,
		`{"name":"q2","command":{"compType":"INSERT","comp":{"documents":[{"a":1},{"b":[1,2]}]}},"params":{"x":"1","y":"2"},"settings":{"host":"","port":0,"auth":{"user":"","password":""}}}`,
	}
	k := queryKind(t)
	for _, doc := range docs {
		v := decode(t, doc)
		c, err := k.New(v)
		require.NoError(t, err)
		if diff := cmp.Diff(v, c.JSON()); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}

		// And through bytes, the way documents are persisted.
		raw, err := json.Marshal(c.JSON())
		require.NoError(t, err)
		again, err := k.New(decode(t, string(raw)))
		require.NoError(t, err)
		assert.Equal(t, c.JSON(), again.JSON())
	}
}

func TestChanged_ReportsOnlyTouchedPaths(t *testing.T) {
	root, err := queryKind(t).New(nil)
	require.NoError(t, err)

	next, err := Dispatch(root, ChangeValue("h2", "settings", "host"))
	require.NoError(t, err)
	assert.Equal(t, []string{"", "settings", "settings/host"}, Changed(root, next))

	assert.Empty(t, Changed(next, next))
}

func TestChanged_ReportsSwappedSubtrees(t *testing.T) {
	root, err := queryKind(t).New(nil)
	require.NoError(t, err)

	next, err := Dispatch(root, ChangeDiscriminator("INSERT", nil, "command"))
	require.NoError(t, err)

	got := Changed(root, next)
	assert.Contains(t, got, "command/compType")
	assert.Contains(t, got, "command/comp/documents")
	assert.Contains(t, got, "command/comp/query")
	assert.Contains(t, got, "command/comp/limit")
	for _, p := range got {
		assert.False(t, strings.HasPrefix(p, "settings"), "settings untouched, got %s", p)
	}
}

func TestChanged_MapKeysAddedAndRemoved(t *testing.T) {
	root, err := queryKind(t).New(map[string]any{"params": map[string]any{"a": "1", "b": "2"}})
	require.NoError(t, err)

	next, err := Dispatch(root, SetKeysAction([]KeySpec{{Key: "a"}, {Key: "c"}}, "params"))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"", "params", "params/c", "params/b"}, Changed(root, next))
}

func TestGet(t *testing.T) {
	root, err := queryKind(t).New(nil)
	require.NoError(t, err)

	c, err := Get(root, "command", "comp", "limit")
	require.NoError(t, err)
	assert.Equal(t, 10.0, c.View())

	tag, err := Get(root, "command", "compType")
	require.NoError(t, err)
	assert.Equal(t, "FIND", tag.View())

	_, err = Get(root, "command", "nope", "x")
	var re *RoutingError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, []string{"command", "nope"}, re.Path)
}

func TestWalk_DepthFirstInKeyOrder(t *testing.T) {
	root, err := datasourceKind(t).New(nil)
	require.NoError(t, err)

	var paths []string
	require.NoError(t, Walk(root, func(path []string, c Comp) error {
		paths = append(paths, strings.Join(path, "/"))
		return nil
	}))
	assert.Equal(t, []string{"", "host", "port", "auth", "auth/user", "auth/password"}, paths)
}

func TestDispatch_RoutingErrorCarriesFullPath(t *testing.T) {
	root, err := queryKind(t).New(nil)
	require.NoError(t, err)

	_, err = Dispatch(root, ChangeValue(1, "command", "comp", "zzz"))
	var re *RoutingError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, []string{"command", "comp", "zzz"}, re.Path)
	assert.Contains(t, err.Error(), "/command/comp/zzz")
}
