// Package menu derives navigation views from a rebuilt tree snapshot. Every
// query is answered from interval comparisons; nothing here mutates the store.
package menu

import (
	"strings"

	"github.com/gyaneshwarpardhi/navtree/internal/tree"
)

// Config holds the composer's presentation settings.
type Config struct {
	Separator        string
	NotVisibleMarker string
}

// DefaultConfig matches the defaults of the YAML config.
func DefaultConfig() Config {
	return Config{Separator: "->", NotVisibleMarker: "(not visible)"}
}

// Item is a node prepared for navigation: content resolved, active path and
// sibling position tagged.
type Item struct {
	ID           tree.ID      `json:"id"`
	Name         string       `json:"name"`
	Slug         string       `json:"slug"`
	ParentID     tree.ID      `json:"parent_id,omitempty"`
	IsRoot       bool         `json:"is_root"`
	MenuLevel    int          `json:"menu_level"`
	Left         int          `json:"left"`
	Right        int          `json:"right"`
	SiblingOrder int          `json:"sibling_order"`
	Kind         tree.Kind    `json:"kind"`
	Content      tree.Content `json:"-"`
	Target       string       `json:"target,omitempty"`
	TargetError  string       `json:"target_error,omitempty"`
	ActivePath   bool         `json:"active_path"`
	Selected     bool         `json:"selected_node"`
	FirstSibling bool         `json:"first_sibling"`
	LastSibling  bool         `json:"last_sibling"`
	Children     []Item       `json:"children,omitempty"`
}

// Options selects what Build composes.
type Options struct {
	Selected        tree.ID
	IncludeRoot     bool
	ExcludeSelected bool
}

// Menu is the composite navigation view for one selection.
type Menu struct {
	Items      []Item `json:"items"`
	Breadcrumb []Item `json:"breadcrumb"`
}

// Choice is one entry of the parent picker used by editing tools.
type Choice struct {
	ID    tree.ID `json:"id"`
	Label string  `json:"label"`
}

// Composer answers navigation queries against one consistent snapshot.
type Composer struct {
	store  *tree.Store
	routes tree.Resolver
	cfg    Config
}

// NewComposer binds a composer to a snapshot. The store must not be mutated
// while the composer is in use.
func NewComposer(s *tree.Store, routes tree.Resolver, cfg Config) *Composer {
	if cfg.Separator == "" {
		cfg.Separator = DefaultConfig().Separator
	}
	if cfg.NotVisibleMarker == "" {
		cfg.NotVisibleMarker = DefaultConfig().NotVisibleMarker
	}
	return &Composer{store: s, routes: routes, cfg: cfg}
}

// Resolve prepares the given nodes in one pass. Unknown ids are skipped.
func (c *Composer) Resolve(ids []tree.ID) map[tree.ID]Item {
	out := make(map[tree.ID]Item, len(ids))
	for _, id := range ids {
		if _, done := out[id]; done {
			continue
		}
		n := c.store.Node(id)
		if n == nil {
			continue
		}
		out[id] = c.item(n)
	}
	return out
}

func (c *Composer) item(n *tree.Node) Item {
	it := Item{
		ID:           n.ID,
		Name:         n.Name,
		Slug:         n.Slug,
		ParentID:     n.ParentID,
		IsRoot:       n.IsRoot,
		MenuLevel:    n.MenuLevel,
		Left:         n.Left,
		Right:        n.Right,
		SiblingOrder: n.SiblingOrder,
		Content:      n.Content,
	}
	if n.Content != nil {
		it.Kind = n.Content.Kind()
	} else {
		it.Kind = tree.KindPlain
	}
	target, err := tree.ResolveTarget(n, c.routes)
	if err != nil {
		it.TargetError = err.Error()
	} else {
		it.Target = target
	}
	return it
}

// Breadcrumb returns the placed nodes whose interval contains selected's,
// root first. With excludeLeaf the selected node itself is left out.
func (c *Composer) Breadcrumb(selected tree.ID, excludeLeaf bool) []Item {
	return c.decorate(c.breadcrumbNodes(selected, excludeLeaf), selected)
}

func (c *Composer) breadcrumbNodes(selected tree.ID, excludeLeaf bool) []*tree.Node {
	sel := c.store.Node(selected)
	if sel == nil || !sel.Placed() {
		return nil
	}
	if sel.IsRoot && !excludeLeaf {
		return []*tree.Node{sel}
	}
	return c.store.Filter(func(a *tree.Node) bool {
		if !a.Placed() {
			return false
		}
		if excludeLeaf {
			return a.Left < sel.Left && a.Right > sel.Right
		}
		return a.Left <= sel.Left && a.Right >= sel.Right
	})
}

// BreadcrumbString joins the breadcrumb names with the configured separator.
func (c *Composer) BreadcrumbString(selected tree.ID) string {
	nodes := c.breadcrumbNodes(selected, false)
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}
	return strings.Join(names, " "+c.cfg.Separator+" ")
}

// MenuByLevel returns the placed nodes at one depth (root is level 1),
// tagged against selected.
func (c *Composer) MenuByLevel(level int, selected tree.ID) []Item {
	return c.decorate(c.levelNodes(level), selected)
}

func (c *Composer) levelNodes(levels ...int) []*tree.Node {
	return c.store.Filter(func(n *tree.Node) bool {
		if !n.Placed() {
			return false
		}
		for _, l := range levels {
			if n.MenuLevel == l {
				return true
			}
		}
		return false
	})
}

// MainMenu returns the level-2 nodes. With children, each carries its
// level-3 children; level-3 nodes whose parent is not a level-2 entry are
// dropped.
func (c *Composer) MainMenu(withChildren bool, selected tree.ID) []Item {
	top := c.MenuByLevel(2, selected)
	if !withChildren {
		return top
	}
	pos := make(map[tree.ID]int, len(top))
	for i := range top {
		pos[top[i].ID] = i
		top[i].Children = []Item{}
	}
	for _, child := range c.MenuByLevel(3, selected) {
		if i, ok := pos[child.ParentID]; ok {
			top[i].Children = append(top[i].Children, child)
		}
	}
	return top
}

// LeftMenu returns every level-2 node, the subtree of the level-2 ancestor
// down to max(3, selected's level), and selected's direct children, ordered
// by position. A zero level2 is derived from selected's breadcrumb.
func (c *Composer) LeftMenu(selected, level2 tree.ID) []Item {
	return c.decorate(c.leftMenuNodes(selected, level2), selected)
}

func (c *Composer) leftMenuNodes(selected, level2 tree.ID) []*tree.Node {
	sel := c.store.Node(selected)
	if sel == nil || !sel.Placed() {
		return nil
	}
	if level2 == tree.NoParent {
		if trail := c.breadcrumbNodes(selected, false); len(trail) >= 2 {
			level2 = trail[1].ID
		}
	}
	anc := c.store.Node(level2)
	if anc != nil && (!anc.Placed() || anc.MenuLevel != 2) {
		anc = nil
	}
	depth := max(3, sel.MenuLevel)

	return c.store.Filter(func(n *tree.Node) bool {
		if !n.Placed() {
			return false
		}
		if n.MenuLevel == 2 {
			return true
		}
		if anc != nil && n.Left > anc.Left && n.Left < anc.Right && n.MenuLevel <= depth {
			return true
		}
		return n.ParentID == sel.ID
	})
}

// Build composes the navigation for one selection: the level-2 entries
// (plus the root when asked), expanded along the selected node's branch,
// together with its breadcrumb.
func (c *Composer) Build(opts Options) Menu {
	var nodes []*tree.Node
	sel := c.store.Node(opts.Selected)
	if sel != nil && sel.Placed() && sel.MenuLevel >= 2 {
		nodes = c.leftMenuNodes(sel.ID, tree.NoParent)
	} else {
		nodes = c.levelNodes(2)
	}
	if opts.IncludeRoot {
		if root := c.store.Root(); root != nil && root.Placed() {
			nodes = append([]*tree.Node{root}, nodes...)
		}
	}
	return Menu{
		Items:      c.decorate(nodes, opts.Selected),
		Breadcrumb: c.Breadcrumb(opts.Selected, opts.ExcludeSelected),
	}
}

// decorate resolves nodes in one batch and tags active path, selection and
// sibling position.
func (c *Composer) decorate(nodes []*tree.Node, selected tree.ID) []Item {
	if len(nodes) == 0 {
		return []Item{}
	}
	active := make(map[tree.ID]bool)
	for _, a := range c.breadcrumbNodes(selected, false) {
		active[a.ID] = true
	}
	ids := make([]tree.ID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	resolved := c.Resolve(ids)

	out := make([]Item, 0, len(nodes))
	for _, n := range nodes {
		it := resolved[n.ID]
		it.ActivePath = active[n.ID]
		it.Selected = selected != tree.NoParent && n.ID == selected
		parent := c.store.Node(n.ParentID)
		it.FirstSibling = IsFirstSibling(n, parent)
		it.LastSibling = IsLastSibling(n, parent)
		out = append(out, it)
	}
	return out
}

// IsFirstSibling reports whether n opens its parent's interval.
func IsFirstSibling(n, parent *tree.Node) bool {
	if n == nil || parent == nil || n.Left == tree.Unset || parent.Left == tree.Unset {
		return false
	}
	return n.Left-1 == parent.Left
}

// IsLastSibling reports whether n closes its parent's interval.
func IsLastSibling(n, parent *tree.Node) bool {
	if n == nil || parent == nil || n.Right == tree.Unset || parent.Right == tree.Unset {
		return false
	}
	return n.Right+1 == parent.Right
}
