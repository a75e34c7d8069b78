package tree

import (
	"fmt"

	"github.com/gyaneshwarpardhi/navtree/internal/config"
)

// Build constructs a consistent Store from the seed tree of a validated Config.
// Nodes are inserted in one pass and the tree is repaired and rebuilt once.
func Build(cfg *config.Config) (*Store, error) {
	s := NewStore()
	var top ID
	for i, def := range cfg.Seed {
		id, err := buildNode(s, NoParent, def, i)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", def.Name, err)
		}
		if top == NoParent {
			top = id
		}
	}
	if s.Len() == 0 {
		return s, nil
	}
	if _, err := NewRepairer(cfg.Tree.MaxRepairDepth).Repair(s, top, NoParent); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	root := s.Root()
	if root == nil {
		return nil, fmt.Errorf("seed: no visible root after repair")
	}
	if err := Rebuild(s, root.ID); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	return s, nil
}

func buildNode(s *Store, parent ID, def config.NodeDef, idx int) (ID, error) {
	if def.Name == "" {
		return NoParent, ErrEmptyName
	}
	if s.ByName(def.Name) != nil {
		return NoParent, fmt.Errorf("%q: %w", def.Name, ErrDuplicateName)
	}
	n := New(s.NextID(), def.Name, parent, ContentFromDef(def))
	n.Visible = !def.Hidden
	n.SiblingOrder = def.SiblingOrder
	if n.SiblingOrder == 0 {
		n.SiblingOrder = idx + 1
	}
	s.Put(n)
	for i, child := range def.Children {
		if _, err := buildNode(s, n.ID, child, i); err != nil {
			return NoParent, fmt.Errorf("%s: %w", def.Name, err)
		}
	}
	return n.ID, nil
}

// ContentFromDef converts the seed payload into a content variant.
func ContentFromDef(def config.NodeDef) Content {
	switch {
	case def.Page != nil:
		p := def.Page
		return Page{
			Title:         p.Title,
			Body:          p.Body,
			Teaser:        p.Teaser,
			Template:      p.Template,
			PublishStart:  p.PublishStart,
			PublishEnd:    p.PublishEnd,
			RequiresLogin: p.RequiresLogin,
		}
	case def.CustomView != nil:
		cv := def.CustomView
		withSlug := true
		if cv.WithSlug != nil {
			withSlug = *cv.WithSlug
		}
		return CustomView{URLName: cv.URLName, WithSlug: withSlug, WithID: cv.WithID}
	case def.DirectLink != nil:
		return DirectLink{URL: def.DirectLink.URL, RequiresLogin: def.DirectLink.RequiresLogin}
	case def.Placeholder:
		return Placeholder{}
	default:
		return Plain{}
	}
}
