package tree

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gosimple/slug"
)

// ID identifies a node. Zero is never assigned and doubles as "no parent".
type ID int64

// NoParent is the ParentID of a root candidate.
const NoParent ID = 0

// Unset is the value of Left, Right and MenuLevel before the first rebuild,
// and of MenuLevel for nodes the rebuild could not reach.
const Unset = -1

func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

// Node is one entry of the navigation tree.
type Node struct {
	ID           ID
	Name         string
	Slug         string
	ParentID     ID
	Visible      bool
	SiblingOrder int
	IsRoot       bool
	MenuLevel    int
	Left         int
	Right        int
	Content      Content
}

// New returns a node with interval fields defaulted.
func New(id ID, name string, parent ID, content Content) *Node {
	if content == nil {
		content = Plain{}
	}
	n := &Node{
		ID:        id,
		Visible:   true,
		MenuLevel: Unset,
		Left:      Unset,
		Right:     Unset,
		Content:   content,
	}
	n.Rename(name)
	n.SetParent(parent)
	return n
}

// SetParent assigns the parent and keeps IsRoot in step with it.
func (n *Node) SetParent(parent ID) {
	n.ParentID = parent
	n.IsRoot = parent == NoParent
}

// HasParent reports whether the node hangs below another node.
func (n *Node) HasParent() bool { return n.ParentID != NoParent }

// Rename sets the display name and re-derives the slug.
func (n *Node) Rename(name string) {
	n.Name = name
	n.Slug = slug.Make(name)
}

// Placed reports whether the last rebuild assigned this node a position.
func (n *Node) Placed() bool {
	return n.Visible && n.MenuLevel >= 1 && n.Left > 0 && n.Right > n.Left
}

// NumDescendants returns the visible descendant count encoded by the interval,
// or -1 when the interval is unset or malformed.
func (n *Node) NumDescendants() int {
	if n.Left > Unset && n.Right > Unset && n.Right > n.Left {
		return (n.Right - n.Left - 1) / 2
	}
	return -1
}

// IsLeaf reports whether the interval encodes no descendants.
func (n *Node) IsLeaf() bool { return n.NumDescendants() == 0 }

// HasDescendants reports whether the interval encodes at least one descendant.
func (n *Node) HasDescendants() bool { return n.NumDescendants() > 0 }

// Contains reports whether other lies strictly inside n's interval.
func (n *Node) Contains(other *Node) bool {
	return n.Left < other.Left && other.Right < n.Right
}

// Kind discriminates the content variants a node may carry.
type Kind string

const (
	KindPlain       Kind = "node"
	KindPage        Kind = "page"
	KindCustomView  Kind = "custom_view"
	KindDirectLink  Kind = "direct_link"
	KindPlaceholder Kind = "placeholder"
)

// Content is the payload attached to a node. The set of implementations is
// closed: Plain, Page, CustomView, DirectLink and Placeholder.
type Content interface {
	Kind() Kind
	content()
}

// Resolver reverses a named route into a path.
type Resolver interface {
	Reverse(name string, params map[string]string) (string, error)
}

// Route names and parameters used when resolving page targets.
const (
	RoutePageBySlug = "view_page_by_slug"
	ParamPageSlug   = "page_slug"
	ParamPageID     = "page_id"
)

// -----------------------------------------------------------------------
// Plain
// -----------------------------------------------------------------------

// Plain is a bare menu node with no payload.
type Plain struct{}

func (Plain) Kind() Kind { return KindPlain }
func (Plain) content()   {}

// -----------------------------------------------------------------------
// Page
// -----------------------------------------------------------------------

// Page is a CMS page addressed by its slug.
type Page struct {
	Title         string    `json:"title"`
	Body          string    `json:"body,omitempty"`
	Teaser        string    `json:"teaser,omitempty"`
	Template      string    `json:"template,omitempty"`
	PublishStart  time.Time `json:"publish_start,omitzero"`
	PublishEnd    time.Time `json:"publish_end,omitzero"`
	RequiresLogin bool      `json:"requires_login,omitempty"`
}

func (Page) Kind() Kind { return KindPage }
func (Page) content()   {}

// Published reports whether the publishing window includes t.
// Unset bounds are open.
func (p Page) Published(t time.Time) bool {
	if !p.PublishStart.IsZero() && t.Before(p.PublishStart) {
		return false
	}
	if !p.PublishEnd.IsZero() && t.After(p.PublishEnd) {
		return false
	}
	return true
}

// -----------------------------------------------------------------------
// CustomView
// -----------------------------------------------------------------------

// CustomView points a menu entry at a named application route.
type CustomView struct {
	URLName  string `json:"url_name"`
	WithSlug bool   `json:"with_slug,omitempty"`
	WithID   bool   `json:"with_id,omitempty"`
}

func (CustomView) Kind() Kind { return KindCustomView }
func (CustomView) content()   {}

// -----------------------------------------------------------------------
// DirectLink
// -----------------------------------------------------------------------

// DirectLink points a menu entry at an external URL.
type DirectLink struct {
	URL           string `json:"url"`
	RequiresLogin bool   `json:"requires_login,omitempty"`
}

func (DirectLink) Kind() Kind { return KindDirectLink }
func (DirectLink) content()   {}

// -----------------------------------------------------------------------
// Placeholder
// -----------------------------------------------------------------------

// Placeholder groups children under a heading that is not itself navigable.
type Placeholder struct{}

func (Placeholder) Kind() Kind { return KindPlaceholder }
func (Placeholder) content()   {}

// ResolveTarget returns the navigable destination of n. Plain nodes and
// placeholders have none and yield "".
func ResolveTarget(n *Node, r Resolver) (string, error) {
	switch c := n.Content.(type) {
	case nil, Plain, Placeholder:
		return "", nil
	case Page:
		if r == nil {
			return "", fmt.Errorf("node %s: no route resolver for page", n.ID)
		}
		return r.Reverse(RoutePageBySlug, map[string]string{ParamPageSlug: n.Slug})
	case CustomView:
		if r == nil {
			return "", fmt.Errorf("node %s: no route resolver for %q", n.ID, c.URLName)
		}
		params := make(map[string]string, 2)
		if c.WithSlug {
			params[ParamPageSlug] = n.Slug
		}
		if c.WithID {
			params[ParamPageID] = n.ID.String()
		}
		return r.Reverse(c.URLName, params)
	case DirectLink:
		return c.URL, nil
	default:
		return "", fmt.Errorf("node %s: %w %T", n.ID, ErrUnknownContent, c)
	}
}
