package tree

import (
	"slices"
)

// Rebuild recomputes Left, Right, SiblingOrder and MenuLevel for the whole
// tree hanging from root, which must be a stored visible node.
//
// Only visible nodes whose every ancestor is visible are reached. Nodes the
// traversal does not reach keep their stale interval and get MenuLevel Unset.
// A reached node with a parent but no enclosing interval, or a visible node
// with a fully visible parent chain that was not reached, is reported as an
// *InconsistencyError after all fields have been assigned.
func Rebuild(s *Store, root ID) error {
	r, err := s.Lookup(root)
	if err != nil {
		return err
	}

	children := make(map[ID][]*Node, s.Len())
	for _, n := range s.nodes {
		if n.Visible && n.HasParent() && n.ParentID != n.ID {
			children[n.ParentID] = append(children[n.ParentID], n)
		}
	}
	for _, kids := range children {
		slices.SortFunc(kids, BySiblingOrder)
	}

	reached := make(map[ID]bool, s.Len())
	rebuildSubtree(r, 1, children, reached)

	var bad []ID
	placed := make([]*Node, 0, len(reached))
	for _, n := range s.nodes {
		if reached[n.ID] {
			placed = append(placed, n)
			continue
		}
		n.MenuLevel = Unset
		if n.Visible && !detached(s, n) {
			bad = append(bad, n.ID)
		}
	}
	bad = append(bad, assignLevels(placed)...)

	if len(bad) > 0 {
		slices.Sort(bad)
		return &InconsistencyError{Nodes: bad}
	}
	return nil
}

// rebuildSubtree assigns the preorder interval of n starting at left and
// returns the next free value.
func rebuildSubtree(n *Node, left int, children map[ID][]*Node, reached map[ID]bool) int {
	reached[n.ID] = true
	right := left + 1
	for _, child := range children[n.ID] {
		if reached[child.ID] {
			continue
		}
		right = rebuildSubtree(child, right, children, reached)
	}
	n.Left = left
	n.Right = right
	n.SiblingOrder = n.Left
	return right + 1
}

// assignLevels sets MenuLevel to one plus the number of placed intervals that
// strictly enclose each node. Intervals are nested or disjoint, so a sweep in
// Left order with a stack of open intervals counts them.
func assignLevels(placed []*Node) []ID {
	slices.SortFunc(placed, ByPosition)
	var (
		open []*Node
		bad  []ID
	)
	for _, n := range placed {
		for len(open) > 0 && open[len(open)-1].Right < n.Left {
			open = open[:len(open)-1]
		}
		depth := len(open)
		if depth == 0 && n.HasParent() {
			n.MenuLevel = Unset
			bad = append(bad, n.ID)
		} else {
			n.MenuLevel = depth + 1
		}
		open = append(open, n)
	}
	return bad
}

// detached reports whether some ancestor of n is hidden, which legitimately
// keeps n out of the traversal.
func detached(s *Store, n *Node) bool {
	seen := map[ID]bool{n.ID: true}
	for p := n.ParentID; p != NoParent; {
		if seen[p] {
			return false
		}
		seen[p] = true
		a := s.Node(p)
		if a == nil {
			return false
		}
		if !a.Visible {
			return true
		}
		p = a.ParentID
	}
	return false
}
