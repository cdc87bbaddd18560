package comp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_DefaultWhenAbsent(t *testing.T) {
	k := ValueKind{Default: "{}"}

	n, err := k.New(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", n.View())

	n, err = k.New("{\"a\":1}")
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}", n.JSON())
}

func TestValue_ChangeValueReturnsNewNode(t *testing.T) {
	n, err := ValueKind{}.New(1.0)
	require.NoError(t, err)

	next, err := n.Reduce(ChangeValue(2.0))
	require.NoError(t, err)
	assert.NotSame(t, n, next)
	assert.Equal(t, 2.0, next.View())
	assert.Equal(t, 1.0, n.View(), "receiver must not change")
}

func TestValue_UnrecognizedActionIsNoop(t *testing.T) {
	n, err := ValueKind{}.New("x")
	require.NoError(t, err)

	for _, a := range []Action{
		Custom("refresh", nil),
		BroadcastCustom("clearErrors", nil),
		ChangeDiscriminator("INSERT", nil),
	} {
		next, err := n.Reduce(a)
		require.NoError(t, err, a.String())
		assert.Same(t, n, next, a.String())
	}
}

func TestValue_RouteIntoLeafFails(t *testing.T) {
	n, err := ValueKind{}.New("x")
	require.NoError(t, err)

	_, err = n.Reduce(ChangeValue("y", "nested"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownChild))
}

func TestAction_InvalidForms(t *testing.T) {
	n, err := ValueKind{}.New("x")
	require.NoError(t, err)

	_, err = n.Reduce(Action{Op: OpChangeValue, Broadcast: true})
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = n.Reduce(Action{Op: OpCustom})
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = n.Reduce(Action{})
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestAction_Route(t *testing.T) {
	r, key := ChangeValue(1, "a", "b").Route()
	assert.Equal(t, RouteToChild, r)
	assert.Equal(t, "a", key)

	r, _ = BroadcastCustom("x", nil).Route()
	assert.Equal(t, Broadcast, r)

	r, _ = ChangeValue(1).Route()
	assert.Equal(t, AddressedHere, r)

	a := Routed("root", ChangeValue(1, "a"))
	assert.Equal(t, []string{"root", "a"}, a.Path)
	assert.Equal(t, []string{"a"}, a.Shift().Path)
	assert.Equal(t, []string{"root", "a"}, a.Path, "Shift must not alias the original path")
}
