package libquery

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/agentic-research/blocks/internal/comp"
	"github.com/agentic-research/blocks/internal/library"
	"github.com/agentic-research/blocks/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var refA = library.Ref{QueryID: "q1", RecordID: "r1"}

func selected(t *testing.T, ref library.Ref) *comp.Record {
	t.Helper()
	r, err := New(map[string]any{QueryIDField: ref.QueryID, RecordIDField: ref.RecordID})
	require.NoError(t, err)
	return r
}

func inputKeys(t *testing.T, c comp.Comp) []string {
	t.Helper()
	m, err := comp.Get(c, InputsField)
	require.NoError(t, err)
	return m.Keys()
}

func TestLoaded_DrivesInputKeys(t *testing.T) {
	r := selected(t, refA)
	doc := &library.Document{Inputs: []library.Input{{Name: "userId", Description: "who"}, {Name: "limit"}}}

	next, err := r.Reduce(LoadedAction(refA, doc, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"userId", "limit"}, inputKeys(t, next))

	desc, err := comp.Get(next, InputsField, "userId", InputDescriptionField)
	require.NoError(t, err)
	assert.Equal(t, "who", desc.View())
}

func TestLoaded_KeepsEditedInputs(t *testing.T) {
	r := selected(t, refA)
	first := &library.Document{Inputs: []library.Input{{Name: "a"}, {Name: "b"}}}
	cur, err := r.Reduce(LoadedAction(refA, first, nil))
	require.NoError(t, err)
	cur, err = cur.Reduce(comp.ChangeValue("typed", InputsField, "a", InputValueField))
	require.NoError(t, err)
	editedA, _ := comp.Get(cur, InputsField, "a")

	second := &library.Document{Inputs: []library.Input{{Name: "a"}, {Name: "c"}}}
	cur, err = cur.Reduce(LoadedAction(refA, second, nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c"}, inputKeys(t, cur))
	a, _ := comp.Get(cur, InputsField, "a")
	assert.Same(t, editedA, a)
	v, _ := comp.Get(cur, InputsField, "a", InputValueField)
	assert.Equal(t, "typed", v.View())
}

func TestLoaded_StaleResultDiscarded(t *testing.T) {
	r := selected(t, library.Ref{QueryID: "q2", RecordID: "r9"})
	next, err := r.Reduce(LoadedAction(refA, &library.Document{Inputs: []library.Input{{Name: "x"}}}, nil))
	require.NoError(t, err)
	assert.Same(t, r, next)
}

func TestLoaded_ErrorCapturedInLeaf(t *testing.T) {
	r := selected(t, refA)
	next, err := r.Reduce(LoadedAction(refA, nil, errors.New("boom")))
	require.NoError(t, err)
	assert.Equal(t, "boom", Error(next.(*comp.Record)))
	assert.Empty(t, inputKeys(t, next))

	// A later success clears it.
	next, err = next.Reduce(LoadedAction(refA, &library.Document{}, nil))
	require.NoError(t, err)
	assert.Equal(t, "", Error(next.(*comp.Record)))
}

func TestLoaded_BadPayload(t *testing.T) {
	_, err := selected(t, refA).Reduce(comp.Custom(LoadedName, "nope"))
	assert.ErrorIs(t, err, comp.ErrInvalidAction)
}

func TestSelect(t *testing.T) {
	r := selected(t, refA)
	cur, err := r.Reduce(LoadedAction(refA, &library.Document{Inputs: []library.Input{{Name: "a"}}}, nil))
	require.NoError(t, err)

	next, err := cur.Reduce(Select(library.Ref{QueryID: "q2", RecordID: "r2"}))
	require.NoError(t, err)
	ref, ok := RefOf(next)
	require.True(t, ok)
	assert.Equal(t, library.Ref{QueryID: "q2", RecordID: "r2"}, ref)
	assert.Equal(t, []string{"a"}, inputKeys(t, next), "inputs kept until the new entry loads")

	// Wire form.
	next, err = cur.Reduce(comp.Custom(SelectName, map[string]any{"queryId": "q3", "recordId": "r3"}))
	require.NoError(t, err)
	ref, _ = RefOf(next)
	assert.Equal(t, "q3", ref.QueryID)

	_, err = cur.Reduce(comp.Custom(SelectName, 42))
	assert.ErrorIs(t, err, comp.ErrInvalidAction)
}

func TestIsAndRefOf(t *testing.T) {
	assert.True(t, Is(selected(t, refA)))
	other, err := comp.NewRecordKind(comp.MustSchema()).New(nil)
	require.NoError(t, err)
	assert.False(t, Is(other))
	_, ok := RefOf(other)
	assert.False(t, ok)
}

// pageKind nests a library query inside a page with an unrelated field.
func pageKind() *comp.RecordKind {
	return comp.NewRecordKind(comp.MustSchema(
		comp.Field{Name: "title", Kind: comp.ValueKind{Default: ""}},
		comp.Field{Name: "lib", Kind: Kind()},
	))
}

func newPage(t *testing.T) comp.Comp {
	t.Helper()
	root, err := pageKind().New(nil)
	require.NoError(t, err)
	return root
}

func TestWatcher_FetchesAndLoads(t *testing.T) {
	f, err := library.OpenSQLite(filepath.Join(t.TempDir(), "lib.db"))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Put(context.Background(), refA, &library.Document{Inputs: []library.Input{{Name: "userId"}}}))

	rt := runtime.New(newPage(t), runtime.Config{Watchers: []runtime.Watcher{&Watcher{Fetcher: f, Timeout: time.Second}}})
	defer rt.Close()

	_, err = rt.Dispatch(context.Background(), Select(refA, "lib"))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		lib, err := comp.Get(rt.Root(), "lib")
		return err == nil && len(inputKeys(t, lib)) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWatcher_FetchErrorLandsInErrorLeaf(t *testing.T) {
	fetcher := library.FetcherFunc(func(ctx context.Context, ref library.Ref) (*library.Document, error) {
		return nil, library.ErrNotFound
	})
	rt := runtime.New(newPage(t), runtime.Config{Watchers: []runtime.Watcher{&Watcher{Fetcher: fetcher}}})
	defer rt.Close()

	_, err := rt.Dispatch(context.Background(), Select(refA, "lib"))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		lib, err := comp.Get(rt.Root(), "lib")
		return err == nil && Error(lib.(*comp.Record)) == library.ErrNotFound.Error()
	}, 2*time.Second, 5*time.Millisecond)

	// The rest of the tree stays usable.
	_, err = rt.Dispatch(context.Background(), comp.ChangeValue("still works", "title"))
	assert.NoError(t, err)
}

// gatedFetcher answers each ref only when its gate is released.
type gatedFetcher struct {
	mu    sync.Mutex
	gates map[library.Ref]chan struct{}
}

func (g *gatedFetcher) gate(ref library.Ref) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gates == nil {
		g.gates = map[library.Ref]chan struct{}{}
	}
	ch, ok := g.gates[ref]
	if !ok {
		ch = make(chan struct{})
		g.gates[ref] = ch
	}
	return ch
}

func (g *gatedFetcher) Fetch(ctx context.Context, ref library.Ref) (*library.Document, error) {
	select {
	case <-g.gate(ref):
		return &library.Document{Inputs: []library.Input{{Name: "from-" + ref.QueryID}}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestWatcher_OutOfOrderCompletionIsDiscarded(t *testing.T) {
	g := &gatedFetcher{}
	rt := runtime.New(newPage(t), runtime.Config{Watchers: []runtime.Watcher{&Watcher{Fetcher: g}}})
	defer rt.Close()
	ctx := context.Background()

	older := library.Ref{QueryID: "old", RecordID: "1"}
	newer := library.Ref{QueryID: "new", RecordID: "1"}
	_, err := rt.Dispatch(ctx, Select(older, "lib"))
	require.NoError(t, err)
	_, err = rt.Dispatch(ctx, Select(newer, "lib"))
	require.NoError(t, err)

	// The newer fetch lands first; the older one completes afterwards.
	close(g.gate(newer))
	require.Eventually(t, func() bool {
		lib, _ := comp.Get(rt.Root(), "lib")
		return len(inputKeys(t, lib)) == 1
	}, 2*time.Second, 5*time.Millisecond)

	settled := rt.Generation()
	close(g.gate(older))
	// Give the stale result time to arrive; it must not change anything.
	time.Sleep(50 * time.Millisecond)

	lib, _ := comp.Get(rt.Root(), "lib")
	assert.Equal(t, []string{"from-new"}, inputKeys(t, lib))
	assert.Equal(t, settled, rt.Generation())
}

func TestLoaded_DecodedPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		keys    []string
		errLeaf string
		wantErr bool
	}{
		{
			name:    "document",
			payload: map[string]any{
				"ref": map[string]any{"queryId": "q1", "recordId": "r1"},
				"doc": map[string]any{"inputs": []any{
					map[string]any{"name": "userId", "description": "who"},
				}},
			},
			keys: []string{"userId"},
		},
		{
			name:    "error",
			payload: map[string]any{
				"ref":   map[string]any{"queryId": "q1", "recordId": "r1"},
				"error": "boom",
			},
			errLeaf: "boom",
		},
		{
			name:    "stale",
			payload: map[string]any{
				"ref": map[string]any{"queryId": "other", "recordId": "r1"},
				"doc": map[string]any{"inputs": []any{map[string]any{"name": "x"}}},
			},
		},
		{
			name:    "malformed",
			payload: map[string]any{"ref": 5},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := selected(t, refA).Reduce(comp.Custom(LoadedName, tt.payload))
			if tt.wantErr {
				assert.ErrorIs(t, err, comp.ErrInvalidAction)
				return
			}
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.keys, inputKeys(t, next))
			assert.Equal(t, tt.errLeaf, Error(next.(*comp.Record)))
		})
	}
}

func TestWatcher_PrimeFetchesExistingSelection(t *testing.T) {
	var mu sync.Mutex
	var fetched []library.Ref
	fetcher := library.FetcherFunc(func(ctx context.Context, ref library.Ref) (*library.Document, error) {
		mu.Lock()
		fetched = append(fetched, ref)
		mu.Unlock()
		return &library.Document{Inputs: []library.Input{{Name: "userId"}}}, nil
	})

	root, err := comp.NewRecordKind(comp.MustSchema(
		comp.Field{Name: "picked", Kind: Kind()},
		comp.Field{Name: "empty", Kind: Kind()},
	)).New(map[string]any{"picked": map[string]any{QueryIDField: "q1", RecordIDField: "r1"}})
	require.NoError(t, err)

	w := &Watcher{Fetcher: fetcher}
	rt := runtime.New(root, runtime.Config{Watchers: []runtime.Watcher{w}})
	defer rt.Close()
	w.Prime(rt, rt.Root())
	require.NoError(t, rt.Wait(context.Background()))

	picked, _ := comp.Get(rt.Root(), "picked")
	assert.Equal(t, []string{"userId"}, inputKeys(t, picked))
	empty, _ := comp.Get(rt.Root(), "empty")
	assert.Empty(t, inputKeys(t, empty))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []library.Ref{refA}, fetched, "only nodes with a selection are fetched")
}
