package libquery

import (
	"context"
	"time"

	"github.com/agentic-research/blocks/internal/comp"
	"github.com/agentic-research/blocks/internal/library"
	"github.com/agentic-research/blocks/internal/logging"
	"github.com/agentic-research/blocks/internal/runtime"
	"go.uber.org/zap"
)

// Watcher fetches library documents for every library query node whose
// selection changed and submits the outcome as a LoadedName action.
// Superseded fetches are not cancelled; the node drops their results.
type Watcher struct {
	Fetcher library.Fetcher
	Timeout time.Duration // per fetch; zero means no limit
	Logger  *zap.Logger
}

var _ runtime.Watcher = (*Watcher)(nil)

// Observe implements runtime.Watcher. Subtrees shared between prev and next
// are skipped.
func (w *Watcher) Observe(fx runtime.Effects, prev, next comp.Comp) {
	w.visit(fx, nil, prev, next)
}

// Prime fetches every library query node in root that already has a
// selection. Observe only reacts to changes, so a tree loaded with a
// selection in place needs this once before its first dispatch.
func (w *Watcher) Prime(fx runtime.Effects, root comp.Comp) {
	w.visit(fx, nil, nil, root)
}

func (w *Watcher) visit(fx runtime.Effects, path []string, prev, next comp.Comp) {
	if prev == next {
		return
	}
	if Is(next) {
		ref, _ := RefOf(next)
		old, _ := RefOf(prev)
		if ref != old && !ref.IsZero() {
			w.fetch(fx, append([]string(nil), path...), ref)
		}
		return
	}
	for _, key := range next.Keys() {
		child, _ := next.Child(key)
		var before comp.Comp
		if prev != nil {
			before, _ = prev.Child(key)
		}
		w.visit(fx, append(path, key), before, child)
	}
}

func (w *Watcher) fetch(fx runtime.Effects, path []string, ref library.Ref) {
	log := logging.OrNop(w.Logger).With(zap.Stringer("ref", ref), zap.Strings("path", path))
	log.Debug("fetching library query")
	fx.Go(func(ctx context.Context) {
		if w.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, w.Timeout)
			defer cancel()
		}
		doc, err := w.Fetcher.Fetch(ctx, ref)
		if err != nil {
			log.Warn("library fetch failed", zap.Error(err))
		}
		fx.Submit(LoadedAction(ref, doc, err, path...))
	})
}
