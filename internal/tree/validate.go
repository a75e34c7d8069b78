package tree

import "fmt"

// ValidateParent checks that making newParent the parent of candidate keeps
// the tree acyclic. It never modifies the store. candidate need not be stored
// yet (a node being created); newParent must be stored unless it is NoParent.
//
//	ex 1/  red <- apple, apple <- red
//	ex 2/  food <- fruit <- yellow <- banana, banana <- food
func ValidateParent(s *Store, candidate *Node, newParent ID) error {
	if candidate.ID == newParent {
		return &CycleError{Node: candidate.ID, Name: candidate.Name}
	}
	// A self-loop already present can only be cleared by editing storage.
	if candidate.HasParent() && candidate.ParentID == candidate.ID {
		return &CycleError{Node: candidate.ID, Name: candidate.Name}
	}
	if newParent == NoParent {
		return nil
	}
	if _, err := s.Lookup(newParent); err != nil {
		return fmt.Errorf("parent: %w", err)
	}

	visited := map[ID]struct{}{candidate.ID: {}}
	for p := newParent; p != NoParent; {
		if _, seen := visited[p]; seen {
			return &CycleError{Node: candidate.ID, Name: candidate.Name}
		}
		visited[p] = struct{}{}
		n := s.Node(p)
		if n == nil {
			return nil
		}
		p = n.ParentID
	}
	return nil
}
