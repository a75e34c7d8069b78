package tree

// DefaultMaxRepairDepth bounds the upward walk of RepairNoRoot.
const DefaultMaxRepairDepth = 100

// RepairCase names the branch Repair took.
type RepairCase string

const (
	RepairSoleNode      RepairCase = "sole_node"
	RepairMultipleRoots RepairCase = "multiple_roots"
	RepairConsistent    RepairCase = "consistent"
	RepairNewRoot       RepairCase = "new_root"
	RepairNoRoot        RepairCase = "no_root"
	RepairNothing       RepairCase = "nothing_visible"
)

// Repairer restores the single-root invariant after a mutation. It touches
// ParentID, IsRoot and Visible only; intervals are left to Rebuild.
type Repairer struct {
	MaxDepth int
}

// NewRepairer returns a Repairer whose upward walk stops after maxDepth steps.
func NewRepairer(maxDepth int) *Repairer {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxRepairDepth
	}
	return &Repairer{MaxDepth: maxDepth}
}

// Repair evaluates the five cases in order, first match wins. candidate is the
// node just mutated (NoParent when there is none, e.g. after a delete); anchor
// is where the no-root walk starts when candidate is absent, typically the
// deleted node's former parent.
func (r *Repairer) Repair(s *Store, candidate, anchor ID) (RepairCase, error) {
	cand := s.Node(candidate)

	// (1) candidate is the only visible node: make it the root.
	if cand != nil && s.CountVisible(cand.ID) == 0 {
		cand.SetParent(NoParent)
		cand.Visible = true
		return RepairSoleNode, nil
	}

	// (2) several visible roots: the first by position survives.
	roots := s.Roots()
	if len(roots) > 1 {
		keep := roots[0]
		for _, rn := range roots[1:] {
			rn.SetParent(keep.ID)
		}
		return RepairMultipleRoots, nil
	}

	// (3) candidate hangs below a node and one root exists elsewhere.
	if cand != nil && cand.HasParent() && countRootsExcept(roots, cand.ID) == 1 {
		return RepairConsistent, nil
	}
	if cand == nil && len(roots) == 1 {
		return RepairConsistent, nil
	}

	// (4) candidate is a new root: everything else rootless goes below it.
	// Case (1) already handled a candidate with no other visible node.
	if cand != nil && !cand.HasParent() {
		cand.Visible = true
		for _, rn := range roots {
			if rn.ID != cand.ID {
				rn.SetParent(cand.ID)
			}
		}
		return RepairNewRoot, nil
	}

	// (5) no visible root: climb from an anchor to the top and reveal it.
	start := cand
	if start == nil {
		start = s.Node(anchor)
	}
	if start == nil {
		visible := s.Visible()
		if len(visible) == 0 {
			return RepairNothing, nil
		}
		start = visible[0]
	}
	top, err := r.climb(s, start)
	if err != nil {
		return RepairNoRoot, err
	}
	top.SetParent(NoParent)
	top.Visible = true
	return RepairNoRoot, nil
}

func (r *Repairer) climb(s *Store, from *Node) (*Node, error) {
	n := from
	for steps := 0; n.HasParent(); steps++ {
		if steps >= r.MaxDepth {
			return nil, &RepairExhaustedError{Anchor: from.ID, Depth: r.MaxDepth}
		}
		p := s.Node(n.ParentID)
		if p == nil {
			// Dangling link: n is as high as the chain goes.
			break
		}
		n = p
	}
	return n, nil
}

func countRootsExcept(roots []*Node, except ID) int {
	c := 0
	for _, rn := range roots {
		if rn.ID != except {
			c++
		}
	}
	return c
}
