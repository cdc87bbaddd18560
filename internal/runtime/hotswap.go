package runtime

import (
	"sync"

	"github.com/agentic-research/blocks/internal/comp"
)

// HotSwapRoot is a thread-safe holder for the current root generation.
// Readers always see a whole immutable tree, never one being replaced.
type HotSwapRoot struct {
	mu      sync.RWMutex
	current comp.Comp
	gen     uint64
}

func NewHotSwapRoot(initial comp.Comp) *HotSwapRoot {
	return &HotSwapRoot{current: initial}
}

// Swap replaces the current root and bumps the generation.
func (h *HotSwapRoot) Swap(next comp.Comp) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = next
	h.gen++
	return h.gen
}

// Load returns the current root.
func (h *HotSwapRoot) Load() comp.Comp {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Generation counts the swaps so far.
func (h *HotSwapRoot) Generation() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.gen
}
