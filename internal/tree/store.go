package tree

import (
	"cmp"
	"fmt"
	"slices"
)

// Store holds every node keyed by id, visible or not.
// A Store is not safe for concurrent mutation; the engine clones it per
// transaction and publishes the clone once it is consistent.
type Store struct {
	nodes  map[ID]*Node
	byName map[string]ID
	nextID ID
}

// NewStore allocates an empty Store.
func NewStore() *Store {
	return &Store{
		nodes:  make(map[ID]*Node),
		byName: make(map[string]ID),
		nextID: 1,
	}
}

// NextID reserves a fresh id.
func (s *Store) NextID() ID {
	id := s.nextID
	s.nextID++
	return id
}

// Put inserts or replaces a node.
func (s *Store) Put(n *Node) {
	if old, ok := s.nodes[n.ID]; ok && old.Name != n.Name {
		delete(s.byName, old.Name)
	}
	s.nodes[n.ID] = n
	s.byName[n.Name] = n.ID
	if n.ID >= s.nextID {
		s.nextID = n.ID + 1
	}
}

// Rename renames the stored node id and keeps the name index in step.
func (s *Store) Rename(id ID, name string) error {
	n, err := s.Lookup(id)
	if err != nil {
		return err
	}
	delete(s.byName, n.Name)
	n.Rename(name)
	s.byName[n.Name] = id
	return nil
}

// Delete removes a node. Children keep their parent link; reparenting them is
// the caller's job.
func (s *Store) Delete(id ID) {
	n, ok := s.nodes[id]
	if !ok {
		return
	}
	delete(s.byName, n.Name)
	delete(s.nodes, id)
}

// Node returns a node by id (nil if not found).
func (s *Store) Node(id ID) *Node {
	return s.nodes[id]
}

// Lookup returns a node by id or ErrNodeNotFound.
func (s *Store) Lookup(id ID) (*Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, ErrNodeNotFound)
	}
	return n, nil
}

// ByName returns the node carrying name (nil if not found).
func (s *Store) ByName(name string) *Node {
	id, ok := s.byName[name]
	if !ok {
		return nil
	}
	return s.nodes[id]
}

// NameTaken reports whether name belongs to a node other than except.
func (s *Store) NameTaken(name string, except ID) bool {
	id, ok := s.byName[name]
	return ok && id != except
}

// Len returns the number of stored nodes.
func (s *Store) Len() int {
	return len(s.nodes)
}

// All returns every node ordered by (Left, SiblingOrder, ID).
func (s *Store) All() []*Node {
	out := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	slices.SortFunc(out, ByPosition)
	return out
}

// Filter returns the nodes satisfying keep ordered by (Left, SiblingOrder, ID).
func (s *Store) Filter(keep func(*Node) bool) []*Node {
	var out []*Node
	for _, n := range s.nodes {
		if keep(n) {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, ByPosition)
	return out
}

// Visible returns the visible nodes ordered by position.
func (s *Store) Visible() []*Node {
	return s.Filter(func(n *Node) bool { return n.Visible })
}

// CountVisible counts visible nodes other than except.
func (s *Store) CountVisible(except ID) int {
	c := 0
	for _, n := range s.nodes {
		if n.Visible && n.ID != except {
			c++
		}
	}
	return c
}

// Roots returns the visible parentless nodes ordered by position.
func (s *Store) Roots() []*Node {
	return s.Filter(func(n *Node) bool { return n.Visible && !n.HasParent() })
}

// Root returns the single visible root, or nil when there is not exactly one.
func (s *Store) Root() *Node {
	roots := s.Roots()
	if len(roots) != 1 {
		return nil
	}
	return roots[0]
}

// Children returns the direct children of id ordered by (SiblingOrder, ID).
func (s *Store) Children(id ID, visibleOnly bool) []*Node {
	var out []*Node
	for _, n := range s.nodes {
		if n.ParentID != id || n.ID == id {
			continue
		}
		if visibleOnly && !n.Visible {
			continue
		}
		out = append(out, n)
	}
	slices.SortFunc(out, BySiblingOrder)
	return out
}

// Clone returns a deep copy. Content values are immutable and shared.
func (s *Store) Clone() *Store {
	c := &Store{
		nodes:  make(map[ID]*Node, len(s.nodes)),
		byName: make(map[string]ID, len(s.byName)),
		nextID: s.nextID,
	}
	for id, n := range s.nodes {
		cp := *n
		c.nodes[id] = &cp
	}
	for name, id := range s.byName {
		c.byName[name] = id
	}
	return c
}

// ByPosition orders nodes by (Left, SiblingOrder, ID).
func ByPosition(a, b *Node) int {
	if c := cmp.Compare(a.Left, b.Left); c != 0 {
		return c
	}
	if c := cmp.Compare(a.SiblingOrder, b.SiblingOrder); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// BySiblingOrder orders nodes by (SiblingOrder, ID).
func BySiblingOrder(a, b *Node) int {
	if c := cmp.Compare(a.SiblingOrder, b.SiblingOrder); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
