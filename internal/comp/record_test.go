package comp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datasourceKind(t *testing.T) *RecordKind {
	t.Helper()
	s, err := NewSchema(
		Field{Name: "host", Kind: ValueKind{Default: "localhost"}},
		Field{Name: "port", Kind: ValueKind{Default: 27017.0}},
		Field{Name: "auth", Kind: NewRecordKind(MustSchema(
			Field{Name: "user", Kind: ValueKind{Default: ""}},
			Field{Name: "password", Kind: ValueKind{Default: ""}},
		))},
	)
	require.NoError(t, err)
	return NewRecordKind(s)
}

func TestSchema_RejectsDuplicateAndEmptyNames(t *testing.T) {
	_, err := NewSchema(Field{Name: "a", Kind: ValueKind{}}, Field{Name: "a", Kind: ValueKind{}})
	assert.ErrorIs(t, err, ErrSchema)

	_, err = NewSchema(Field{Name: "", Kind: ValueKind{}})
	assert.ErrorIs(t, err, ErrSchema)

	_, err = NewSchema(Field{Name: "a"})
	assert.ErrorIs(t, err, ErrSchema)

	assert.Panics(t, func() { MustSchema(Field{Name: "a", Kind: ValueKind{}}, Field{Name: "a", Kind: ValueKind{}}) })
}

func TestRecord_BuildFillsDefaults(t *testing.T) {
	r, err := datasourceKind(t).Build(map[string]any{"host": "db.internal"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"host": "db.internal",
		"port": 27017.0,
		"auth": map[string]any{"user": "", "password": ""},
	}, r.JSON())
}

func TestRecord_BuildRejectsNonObject(t *testing.T) {
	_, err := datasourceKind(t).New([]any{1})
	assert.ErrorIs(t, err, ErrShape)

	_, err = datasourceKind(t).New(map[string]any{"auth": "nope"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShape)
	assert.Contains(t, err.Error(), "auth")
}

func TestRecord_KeysAndPropertyViewFollowDeclarationOrder(t *testing.T) {
	r, err := datasourceKind(t).Build(nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"host", "port", "auth"}, r.Keys())

	props := r.PropertyView()
	require.Len(t, props, 3)
	assert.Equal(t, "host", props[0].Key)
	assert.Equal(t, "localhost", props[0].Value)
	assert.Equal(t, "port", props[1].Key)
	assert.Equal(t, "auth", props[2].Key)
	assert.Equal(t, "record", props[2].Kind)
	require.Len(t, props[2].Children, 2)
	assert.Equal(t, "user", props[2].Children[0].Key)
	assert.Equal(t, "password", props[2].Children[1].Key)
}

func TestRecord_ViewOfEvaluatesSingleField(t *testing.T) {
	r, err := datasourceKind(t).Build(map[string]any{"port": 1.0})
	require.NoError(t, err)

	v, ok := r.ViewOf("port")
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	_, ok = r.ViewOf("missing")
	assert.False(t, ok)
}

func TestRecord_RoutedActionSharesSiblings(t *testing.T) {
	r, err := datasourceKind(t).Build(nil)
	require.NoError(t, err)
	host, _ := r.Child("host")
	auth, _ := r.Child("auth")

	next, err := r.Reduce(ChangeValue(5432.0, "port"))
	require.NoError(t, err)
	nr := next.(*Record)

	assert.NotSame(t, r, nr)
	nhost, _ := nr.Child("host")
	nauth, _ := nr.Child("auth")
	assert.Same(t, host.(*Value), nhost.(*Value))
	assert.Same(t, auth.(*Record), nauth.(*Record))

	port, _ := nr.Child("port")
	assert.Equal(t, 5432.0, port.View())
	oldPort, _ := r.Child("port")
	assert.Equal(t, 27017.0, oldPort.View())
}

func TestRecord_NestedRouteSharesUnrelatedBranches(t *testing.T) {
	r, err := datasourceKind(t).Build(nil)
	require.NoError(t, err)

	next, err := Dispatch(r, ChangeValue("admin", "auth", "user"))
	require.NoError(t, err)

	user, err := Get(next, "auth", "user")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.View())

	oldPw, _ := Get(r, "auth", "password")
	newPw, _ := Get(next, "auth", "password")
	assert.Same(t, oldPw.(*Value), newPw.(*Value))
}

func TestRecord_UnknownRouteRejected(t *testing.T) {
	r, err := datasourceKind(t).Build(nil)
	require.NoError(t, err)

	_, err = r.Reduce(ChangeValue(1, "zzz"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownChild))

	_, err = r.Reduce(ChangeValue(1, "auth", "zzz"))
	var re *RoutingError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, []string{"auth", "zzz"}, re.Path)
	assert.Equal(t, "zzz", re.Key)
}

func TestRecord_ChangeValueReplacesWholeValue(t *testing.T) {
	r, err := datasourceKind(t).Build(map[string]any{"host": "a", "port": 1.0})
	require.NoError(t, err)

	next, err := r.Reduce(ChangeValue(map[string]any{"host": "b", "auth": map[string]any{"user": "u"}}))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"host": "b",
		"port": 27017.0,
		"auth": map[string]any{"user": "u", "password": ""},
	}, next.JSON())

	_, err = r.Reduce(ChangeValue("not an object"))
	assert.ErrorIs(t, err, ErrShape)
}

func TestRecord_With(t *testing.T) {
	r, err := datasourceKind(t).Build(nil)
	require.NoError(t, err)
	leaf, _ := ValueKind{}.New("example.com")

	next, err := r.With("host", leaf)
	require.NoError(t, err)
	assert.Equal(t, "example.com", next.View().(map[string]any)["host"])

	same, err := next.With("host", leaf)
	require.NoError(t, err)
	assert.Same(t, next, same)

	_, err = r.With("nope", leaf)
	assert.ErrorIs(t, err, ErrUnknownChild)
}

func TestRecord_CustomHandlerAndBroadcast(t *testing.T) {
	inner := NewRecordKind(MustSchema(Field{Name: "n", Kind: ValueKind{Default: 0.0}}))
	inner.Handle("bump", func(r *Record, a Action) (Comp, error) {
		n, _ := r.Child("n")
		next, err := ValueKind{}.New(n.View().(float64) + 1)
		if err != nil {
			return nil, err
		}
		return r.With("n", next)
	})
	outer := NewRecordKind(MustSchema(
		Field{Name: "left", Kind: inner},
		Field{Name: "right", Kind: inner},
		Field{Name: "label", Kind: ValueKind{Default: "x"}},
	))
	r, err := outer.Build(nil)
	require.NoError(t, err)

	next, err := r.Reduce(Custom("bump", nil, "left"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"left":  map[string]any{"n": 1.0},
		"right": map[string]any{"n": 0.0},
		"label": "x",
	}, next.JSON())

	next, err = next.Reduce(BroadcastCustom("bump", nil))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"left":  map[string]any{"n": 2.0},
		"right": map[string]any{"n": 1.0},
		"label": "x",
	}, next.JSON())

	same, err := next.Reduce(Custom("unknown", nil))
	require.NoError(t, err)
	assert.Same(t, next, same)

	same, err = next.Reduce(BroadcastCustom("unknown", nil))
	require.NoError(t, err)
	assert.Same(t, next, same, "broadcast nobody handles must keep identity")
}
