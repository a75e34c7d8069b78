package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gyaneshwarpardhi/navtree/internal/menu"
	"github.com/gyaneshwarpardhi/navtree/internal/metrics"
	"github.com/gyaneshwarpardhi/navtree/internal/tree"
)

// Node returns a copy of one node from the current snapshot.
func (e *Engine) Node(id tree.ID) (tree.Node, error) {
	n, err := e.Snapshot().Store.Lookup(id)
	if err != nil {
		return tree.Node{}, err
	}
	return *n, nil
}

// Nodes returns copies of every node ordered by position.
func (e *Engine) Nodes() []tree.Node {
	all := e.Snapshot().Store.All()
	out := make([]tree.Node, len(all))
	for i, n := range all {
		out[i] = *n
	}
	return out
}

func (e *Engine) composer(s *Snapshot) *menu.Composer {
	return menu.NewComposer(s.Store, e.routes.Load(), *e.menuCfg.Load())
}

func (e *Engine) read(ctx context.Context, view menu.View) (*Snapshot, trace.Span) {
	metrics.MenuRequests.WithLabelValues(string(view)).Inc()
	_, span := metrics.Tracer().Start(ctx, "menu."+string(view))
	s := e.Snapshot()
	span.SetAttributes(attribute.Int64("snapshot.version", int64(s.Version)))
	return s, span
}

func (e *Engine) key(s *Snapshot, view menu.View, selected tree.ID, level int, flags uint8) menu.Key {
	return menu.Key{Version: s.Version, Gen: e.gen.Load(), View: view, Selected: selected, Level: level, Flags: flags}
}

// Menu composes the navigation for one selection.
func (e *Engine) Menu(ctx context.Context, opts menu.Options) menu.Menu {
	s, span := e.read(ctx, menu.ViewMenu)
	defer span.End()
	var flags uint8
	if opts.IncludeRoot {
		flags |= menu.FlagIncludeRoot
	}
	if opts.ExcludeSelected {
		flags |= menu.FlagExcludeSelected
	}
	key := e.key(s, menu.ViewMenu, opts.Selected, 0, flags)
	return menu.Cached(e.cache, key, func() menu.Menu { return e.composer(s).Build(opts) })
}

// Breadcrumb returns the path from the root down to selected.
func (e *Engine) Breadcrumb(ctx context.Context, selected tree.ID, excludeLeaf bool) []menu.Item {
	s, span := e.read(ctx, menu.ViewBreadcrumb)
	defer span.End()
	var flags uint8
	if excludeLeaf {
		flags |= menu.FlagExcludeSelected
	}
	key := e.key(s, menu.ViewBreadcrumb, selected, 0, flags)
	return menu.Cached(e.cache, key, func() []menu.Item { return e.composer(s).Breadcrumb(selected, excludeLeaf) })
}

// MenuByLevel returns the nodes at one depth, tagged against selected.
func (e *Engine) MenuByLevel(ctx context.Context, level int, selected tree.ID) []menu.Item {
	s, span := e.read(ctx, menu.ViewLevel)
	defer span.End()
	key := e.key(s, menu.ViewLevel, selected, level, 0)
	return menu.Cached(e.cache, key, func() []menu.Item { return e.composer(s).MenuByLevel(level, selected) })
}

// MainMenu returns the level-2 nodes, optionally with their children.
func (e *Engine) MainMenu(ctx context.Context, withChildren bool, selected tree.ID) []menu.Item {
	s, span := e.read(ctx, menu.ViewMain)
	defer span.End()
	var flags uint8
	if withChildren {
		flags |= menu.FlagWithChildren
	}
	key := e.key(s, menu.ViewMain, selected, 0, flags)
	return menu.Cached(e.cache, key, func() []menu.Item { return e.composer(s).MainMenu(withChildren, selected) })
}

// LeftMenu returns the side navigation for selected.
func (e *Engine) LeftMenu(ctx context.Context, selected, level2 tree.ID) []menu.Item {
	s, span := e.read(ctx, menu.ViewLeft)
	defer span.End()
	key := e.key(s, menu.ViewLeft, selected, int(level2), 0)
	return menu.Cached(e.cache, key, func() []menu.Item { return e.composer(s).LeftMenu(selected, level2) })
}

// Trail renders the parent chain of id, marking hidden nodes.
func (e *Engine) Trail(id tree.ID) string {
	return e.composer(e.Snapshot()).Trail(id)
}

// BreadcrumbString renders the breadcrumb of id as one line.
func (e *Engine) BreadcrumbString(id tree.ID) string {
	return e.composer(e.Snapshot()).BreadcrumbString(id)
}

// ParentChoices lists the nodes candidate may be moved below.
func (e *Engine) ParentChoices(candidate tree.ID) []menu.Choice {
	return e.composer(e.Snapshot()).ParentChoices(candidate)
}
