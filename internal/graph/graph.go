package graph

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring"
	"github.com/agentic-research/blocks/internal/comp"
)

var ErrNotFound = errors.New("node not found")

// RootID identifies the projected root.
const RootID = ""

// Node is one comp projected into the path-indexed graph.
type Node struct {
	ID       string    // slash-joined path from the root
	Key      string    // last path segment ("" for the root)
	Kind     string    // kind name: value, record, map, union
	Value    any       // leaf value; nil for composites
	Children []string  // child node IDs in key order
	Source   comp.Comp // the comp this node was projected from
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Graph is the read side used by renderers.
type Graph interface {
	GetNode(id string) (*Node, error)
	ListChildren(id string) ([]string, error)
}

// SyncStats reports what a Sync touched.
type SyncStats struct {
	Updated []string // nodes (re)projected, parents first
	Removed []string // nodes dropped with their subtrees
}

// MemoryStore is an in-memory Graph kept in step with a comp tree.
//
// Sync compares comp identities, so subtrees the last action did not touch
// are skipped without being visited. A roaring bitmap per node holds the
// internal IDs of its whole subtree, making removal O(k) in the subtree size.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]*Node

	subtree     map[string]*roaring.Bitmap // Node.ID → bitmap of descendant internal IDs, itself included
	nodeIntID   map[string]uint32          // Node.ID → internal bitmap uint32 ID
	intToNodeID []string                   // reverse: uint32 → Node.ID
	nextIntID   uint32                     // monotonic counter
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:     make(map[string]*Node),
		subtree:   make(map[string]*roaring.Bitmap),
		nodeIntID: make(map[string]uint32),
	}
}

// Project replaces the store's content with root.
func Project(root comp.Comp) *MemoryStore {
	s := NewMemoryStore()
	s.Sync(root)
	return s
}

// Sync brings the store in line with root and reports what changed.
func (s *MemoryStore) Sync(root comp.Comp) SyncStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats SyncStats
	s.sync(nil, root, &stats)
	return stats
}

func (s *MemoryStore) sync(path []string, c comp.Comp, stats *SyncStats) {
	id := JoinID(path)
	old, exists := s.nodes[id]
	if exists && old.Source == c {
		return
	}

	keys := c.Keys()
	n := &Node{ID: id, Kind: c.Kind().Name(), Source: c}
	if len(path) > 0 {
		n.Key = path[len(path)-1]
	}
	if len(keys) == 0 {
		n.Value = c.JSON()
	}
	n.Children = make([]string, 0, len(keys))
	for _, k := range keys {
		n.Children = append(n.Children, JoinID(append(slices.Clip(path), k)))
	}

	if exists {
		for _, child := range old.Children {
			if !slices.Contains(n.Children, child) {
				s.deleteSubtree(child)
				stats.Removed = append(stats.Removed, child)
			}
		}
	}

	s.nodes[id] = n
	s.indexNode(path)
	stats.Updated = append(stats.Updated, id)

	for _, k := range keys {
		child, _ := c.Child(k)
		s.sync(append(slices.Clip(path), k), child, stats)
	}
}

// indexNode assigns an internal bitmap ID to the node at path and adds it to
// the subtree bitmap of itself and every ancestor. Must be called with s.mu held.
func (s *MemoryStore) indexNode(path []string) {
	id := JoinID(path)
	intID, ok := s.nodeIntID[id]
	if ok {
		return
	}
	intID = s.nextIntID
	s.nextIntID++
	s.nodeIntID[id] = intID
	for uint32(len(s.intToNodeID)) <= intID {
		s.intToNodeID = append(s.intToNodeID, "")
	}
	s.intToNodeID[intID] = id

	for i := 0; i <= len(path); i++ {
		anc := JoinID(path[:i])
		bm, exists := s.subtree[anc]
		if !exists {
			bm = roaring.New()
			s.subtree[anc] = bm
		}
		bm.Add(intID)
	}
}

// deleteSubtree removes id and every descendant via the bitmap index.
// Must be called with s.mu held.
func (s *MemoryStore) deleteSubtree(id string) {
	bm, ok := s.subtree[id]
	if !ok {
		return
	}
	doomed := bm.Clone()

	it := doomed.Iterator()
	for it.HasNext() {
		intID := it.Next()
		nodeID := s.intToNodeID[intID]
		delete(s.nodes, nodeID)
		delete(s.subtree, nodeID)
		delete(s.nodeIntID, nodeID)
		s.intToNodeID[intID] = ""
	}

	path := SplitID(id)
	for i := 0; i < len(path); i++ {
		if anc, ok := s.subtree[JoinID(path[:i])]; ok {
			anc.AndNot(doomed)
		}
	}
}

// GetNode returns the node with the given ID.
func (s *MemoryStore) GetNode(id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n, nil
}

// ListChildren returns the child IDs of id in key order.
func (s *MemoryStore) ListChildren(id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(n.Children), nil
}

// SubtreeSize counts id and its descendants.
func (s *MemoryStore) SubtreeSize(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bm, ok := s.subtree[id]
	if !ok {
		return 0
	}
	return int(bm.GetCardinality())
}

// Len counts the projected nodes.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// JoinID builds a node ID from path segments.
func JoinID(path []string) string { return strings.Join(path, "/") }

// SplitID is the inverse of JoinID.
func SplitID(id string) []string {
	if id == RootID {
		return nil
	}
	return strings.Split(id, "/")
}
