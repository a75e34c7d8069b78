package tree

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNodeNotFound indicates that an id does not name a stored node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateName indicates that another node already uses the name.
	ErrDuplicateName = errors.New("node name already in use")

	// ErrEmptyName indicates that a node was given a blank name.
	ErrEmptyName = errors.New("node name is required")

	// ErrUnknownContent indicates a content value outside the closed variant set.
	ErrUnknownContent = errors.New("unknown content variant")
)

// CycleError is returned when a parent assignment would make a node its own
// ancestor. Nothing is committed; the caller must choose another parent.
type CycleError struct {
	Node ID
	Name string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("the parent relationship is circular for node %q (id %s); choose another parent, or no parent for a root node", e.Name, e.Node)
}

// InconsistencyError is returned by the rebuild when placed nodes cannot be
// reconciled with their parent links.
type InconsistencyError struct {
	Nodes []ID
}

func (e *InconsistencyError) Error() string {
	ids := make([]string, len(e.Nodes))
	for i, id := range e.Nodes {
		ids[i] = id.String()
	}
	return fmt.Sprintf("tree structure inconsistent: nodes [%s] have a parent but no ancestors", strings.Join(ids, ", "))
}

// RepairExhaustedError is returned when the upward walk looking for a root
// passes the depth bound. It means the parent links contain a cycle.
type RepairExhaustedError struct {
	Anchor ID
	Depth  int
}

func (e *RepairExhaustedError) Error() string {
	return fmt.Sprintf("root repair from node %s found no parentless node within %d steps", e.Anchor, e.Depth)
}
