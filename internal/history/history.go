// Package history keeps prior root generations for undo and redo.
//
// Generations are whole roots. Consecutive roots share every subtree an
// action did not touch, so keeping many of them costs little more than the
// touched paths.
package history

import "github.com/agentic-research/blocks/internal/comp"

// DefaultLimit bounds the undo stack when no limit is given.
const DefaultLimit = 100

// History is a bounded undo/redo stack. It is not safe for concurrent use;
// the runtime touches it only from its dispatch goroutine.
type History struct {
	limit  int
	past   []comp.Comp
	future []comp.Comp
}

// New returns an empty history holding at most limit undo steps.
// limit <= 0 selects DefaultLimit.
func New(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{limit: limit}
}

// Record pushes prev as an undo step and forgets any redo steps.
func (h *History) Record(prev comp.Comp) {
	h.past = append(h.past, prev)
	if over := len(h.past) - h.limit; over > 0 {
		clear(h.past[:over])
		h.past = h.past[over:]
	}
	clear(h.future)
	h.future = h.future[:0]
}

// Undo returns the previous generation and parks cur for Redo.
func (h *History) Undo(cur comp.Comp) (comp.Comp, bool) {
	if len(h.past) == 0 {
		return cur, false
	}
	prev := h.past[len(h.past)-1]
	h.past[len(h.past)-1] = nil
	h.past = h.past[:len(h.past)-1]
	h.future = append(h.future, cur)
	return prev, true
}

// Redo reverses the last Undo.
func (h *History) Redo(cur comp.Comp) (comp.Comp, bool) {
	if len(h.future) == 0 {
		return cur, false
	}
	next := h.future[len(h.future)-1]
	h.future[len(h.future)-1] = nil
	h.future = h.future[:len(h.future)-1]
	h.past = append(h.past, cur)
	return next, true
}

// Len reports the available undo and redo steps.
func (h *History) Len() (undo, redo int) { return len(h.past), len(h.future) }
