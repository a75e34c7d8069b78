package menu

import (
	"sort"
	"strings"

	"github.com/gyaneshwarpardhi/navtree/internal/tree"
)

// Trail renders the parent chain of id, root first, following parent links
// rather than intervals so hidden and detached nodes are covered too. Hidden
// non-root nodes carry the not-visible marker.
func (c *Composer) Trail(id tree.ID) string {
	var chain []*tree.Node
	seen := make(map[tree.ID]bool)
	for n := c.store.Node(id); n != nil && !seen[n.ID]; n = c.store.Node(n.ParentID) {
		seen[n.ID] = true
		chain = append(chain, n)
		if n.IsRoot || !n.HasParent() {
			break
		}
	}
	parts := make([]string, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		n := chain[i]
		label := n.Name
		if !n.Visible && n.HasParent() {
			label += " " + c.cfg.NotVisibleMarker
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, " "+c.cfg.Separator+" ")
}

// EmptyChoiceLabel is offered when there is nothing to pick from.
const EmptyChoiceLabel = "----------"

// ParentChoices lists the visible nodes as possible parents for candidate,
// labelled with its trail and ordered by label. Nodes that would close a
// cycle are left out. A zero candidate skips that check.
func (c *Composer) ParentChoices(candidate tree.ID) []Choice {
	cand := c.store.Node(candidate)
	var out []Choice
	for _, n := range c.store.All() {
		if !n.Visible {
			continue
		}
		if cand != nil && tree.ValidateParent(c.store, cand, n.ID) != nil {
			continue
		}
		out = append(out, Choice{ID: n.ID, Label: c.Trail(n.ID)})
	}
	if len(out) == 0 {
		return []Choice{{ID: tree.NoParent, Label: EmptyChoiceLabel}}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
