package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gyaneshwarpardhi/navtree/internal/event"
	"github.com/gyaneshwarpardhi/navtree/internal/menu"
	"github.com/gyaneshwarpardhi/navtree/internal/metrics"
	"github.com/gyaneshwarpardhi/navtree/internal/route"
	"github.com/gyaneshwarpardhi/navtree/internal/tree"
)

// ErrUnknownRoute is returned when custom view content names a route that is
// not registered.
var ErrUnknownRoute = errors.New("content refers to an unknown route")

// Snapshot is one committed, consistent state of the tree. Readers must
// treat it as immutable.
type Snapshot struct {
	Store   *tree.Store
	Version uint64
	At      time.Time
}

// Persister stores every committed snapshot together with its change record.
type Persister interface {
	SaveSnapshot(ctx context.Context, nodes []*tree.Node, change *event.Change) error
}

// Options configures an Engine.
type Options struct {
	MaxRepairDepth int
	Menu           menu.Config
	CacheSize      int
	Persister      Persister
	Logger         *slog.Logger
	// Version numbers the initial snapshot, e.g. the last persisted version.
	// Zero means 1.
	Version uint64
}

// Engine owns the tree. Mutations are serialized and applied to a private
// copy: the copy is repaired, rebuilt and persisted, and only then published.
// Readers always see the last published snapshot and never block writers.
type Engine struct {
	mu       sync.Mutex
	snap     atomic.Pointer[Snapshot]
	routes   atomic.Pointer[route.Registry]
	menuCfg  atomic.Pointer[menu.Config]
	repairer *tree.Repairer
	cache    *menu.Cache
	persist  Persister
	log      *slog.Logger
	// gen counts route and menu config swaps; it is part of every cache key.
	gen atomic.Uint64
}

// New creates an Engine serving s, which must already be consistent: empty,
// without visible nodes, or with exactly one visible root and rebuilt
// intervals.
func New(s *tree.Store, routes *route.Registry, opts Options) (*Engine, error) {
	if s == nil {
		s = tree.NewStore()
	}
	if s.CountVisible(tree.NoParent) > 0 && s.Root() == nil {
		return nil, fmt.Errorf("engine: initial tree has %d visible roots", len(s.Roots()))
	}
	if routes == nil {
		routes = route.NewRegistry()
	}
	cache, err := menu.NewCache(opts.CacheSize)
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		repairer: tree.NewRepairer(opts.MaxRepairDepth),
		cache:    cache,
		persist:  opts.Persister,
		log:      log,
	}
	e.routes.Store(routes)
	mc := opts.Menu
	e.menuCfg.Store(&mc)
	e.publish(&Snapshot{Store: s, Version: max(opts.Version, 1), At: time.Now().UTC()})
	return e, nil
}

// Snapshot returns the currently published state.
func (e *Engine) Snapshot() *Snapshot {
	return e.snap.Load()
}

// SetRoutes swaps the route registry (used on hot-reload).
func (e *Engine) SetRoutes(r *route.Registry) {
	e.routes.Store(r)
	e.gen.Add(1)
	e.cache.Purge()
}

// SetMenuConfig swaps the composer settings (used on hot-reload).
func (e *Engine) SetMenuConfig(c menu.Config) {
	e.menuCfg.Store(&c)
	e.gen.Add(1)
	e.cache.Purge()
}

func (e *Engine) publish(s *Snapshot) {
	e.snap.Store(s)
	metrics.SnapshotVersion.Set(float64(s.Version))
	metrics.TreeNodes.Set(float64(s.Store.Len()))
	metrics.VisibleNodes.Set(float64(s.Store.CountVisible(tree.NoParent)))
}

// mutation describes what a change did, for repair and for the journal.
type mutation struct {
	node      tree.ID
	name      string
	candidate tree.ID
	anchor    tree.ID
	detail    string
}

// apply runs fn on a copy of the current tree, restores the invariants,
// persists and publishes. On any error the published snapshot is untouched.
func (e *Engine) apply(ctx context.Context, op event.Op, fn func(s *tree.Store) (mutation, error)) (*event.Change, error) {
	ctx, span := metrics.Tracer().Start(ctx, "engine."+string(op))
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.snap.Load()
	next := cur.Store.Clone()

	m, err := fn(next)
	if err == nil {
		span.SetAttributes(attribute.Int64("node.id", int64(m.node)))
		err = e.settle(span, next, m)
	}
	if err != nil {
		return nil, e.fail(span, op, err)
	}

	version := cur.Version + 1
	change := event.NewChange(op, int64(m.node), m.name, version)
	change.Detail = m.detail
	if e.persist != nil {
		if err := e.persist.SaveSnapshot(ctx, next.All(), change); err != nil {
			return nil, e.fail(span, op, fmt.Errorf("persist: %w", err))
		}
	}
	e.publish(&Snapshot{Store: next, Version: version, At: change.At})

	metrics.Mutations.WithLabelValues(string(op), "ok").Inc()
	span.SetAttributes(attribute.Int64("snapshot.version", int64(version)))
	e.log.Info("tree changed",
		"op", op,
		"node_id", m.node,
		"name", m.name,
		"version", version,
		"change_id", change.ID,
	)
	return change, nil
}

func (e *Engine) fail(span trace.Span, op event.Op, err error) error {
	metrics.Mutations.WithLabelValues(string(op), "error").Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.log.Warn("tree change rejected", "op", op, "err", err)
	return err
}

// settle repairs the single-root invariant and rebuilds the intervals. When
// a delete leaves no visible node both steps are skipped.
func (e *Engine) settle(span trace.Span, s *tree.Store, m mutation) error {
	if s.CountVisible(tree.NoParent) == 0 && s.Node(m.candidate) == nil {
		span.AddEvent("nothing visible, skipping rebuild")
		return nil
	}
	rc, err := e.repairer.Repair(s, m.candidate, m.anchor)
	metrics.RepairCases.WithLabelValues(string(rc)).Inc()
	span.SetAttributes(attribute.String("repair.case", string(rc)))
	if err != nil {
		return err
	}
	root := s.Root()
	if root == nil {
		ids := make([]tree.ID, 0)
		for _, r := range s.Roots() {
			ids = append(ids, r.ID)
		}
		return &tree.InconsistencyError{Nodes: ids}
	}

	start := time.Now()
	err = tree.Rebuild(s, root.ID)
	metrics.RebuildDuration.Observe(float64(time.Since(start).Microseconds()) / 1000)
	return err
}

// Draft holds the fields of a node to create.
type Draft struct {
	Name     string
	ParentID tree.ID
	// Visible defaults to true.
	Visible *bool
	// SiblingOrder zero places the node after its current siblings.
	SiblingOrder int
	Content      tree.Content
}

// CreateNode inserts a node and returns the committed change; the new id is
// its NodeID.
func (e *Engine) CreateNode(ctx context.Context, d Draft) (*event.Change, error) {
	return e.apply(ctx, event.OpCreate, func(s *tree.Store) (mutation, error) {
		if err := checkName(s, d.Name, tree.NoParent); err != nil {
			return mutation{}, err
		}
		if d.ParentID != tree.NoParent {
			if _, err := s.Lookup(d.ParentID); err != nil {
				return mutation{}, fmt.Errorf("parent: %w", err)
			}
		}
		if err := e.checkContent(d.Content); err != nil {
			return mutation{}, err
		}
		n := tree.New(s.NextID(), d.Name, d.ParentID, d.Content)
		if d.Visible != nil {
			n.Visible = *d.Visible
		}
		n.SiblingOrder = d.SiblingOrder
		if n.SiblingOrder == 0 {
			n.SiblingOrder = nextSiblingOrder(s, d.ParentID)
		}
		s.Put(n)
		return mutation{node: n.ID, name: n.Name, candidate: n.ID}, nil
	})
}

// UpdateParent moves a node below newParent, or makes it a root candidate
// when newParent is tree.NoParent. A move that would close a cycle fails with
// a *tree.CycleError.
func (e *Engine) UpdateParent(ctx context.Context, id, newParent tree.ID) (*event.Change, error) {
	return e.apply(ctx, event.OpMove, func(s *tree.Store) (mutation, error) {
		n, err := s.Lookup(id)
		if err != nil {
			return mutation{}, err
		}
		if err := tree.ValidateParent(s, n, newParent); err != nil {
			return mutation{}, err
		}
		n.SetParent(newParent)
		return mutation{node: id, name: n.Name, candidate: id, detail: "parent=" + newParent.String()}, nil
	})
}

// SetVisibility shows or hides a node. Hiding the root is reverted by the
// repair step as long as other nodes are visible.
func (e *Engine) SetVisibility(ctx context.Context, id tree.ID, visible bool) (*event.Change, error) {
	return e.apply(ctx, event.OpVisibility, func(s *tree.Store) (mutation, error) {
		n, err := s.Lookup(id)
		if err != nil {
			return mutation{}, err
		}
		n.Visible = visible
		return mutation{node: id, name: n.Name, candidate: id, detail: fmt.Sprintf("visible=%t", visible)}, nil
	})
}

// SetSiblingOrder changes where a node sorts among its siblings. The rebuild
// then renumbers the order from the node's new interval.
func (e *Engine) SetSiblingOrder(ctx context.Context, id tree.ID, order int) (*event.Change, error) {
	return e.apply(ctx, event.OpReorder, func(s *tree.Store) (mutation, error) {
		n, err := s.Lookup(id)
		if err != nil {
			return mutation{}, err
		}
		n.SiblingOrder = order
		return mutation{node: id, name: n.Name, candidate: id, detail: fmt.Sprintf("sibling_order=%d", order)}, nil
	})
}

// Rename changes a node's name and slug.
func (e *Engine) Rename(ctx context.Context, id tree.ID, name string) (*event.Change, error) {
	return e.apply(ctx, event.OpRename, func(s *tree.Store) (mutation, error) {
		n, err := s.Lookup(id)
		if err != nil {
			return mutation{}, err
		}
		if err := checkName(s, name, id); err != nil {
			return mutation{}, err
		}
		old := n.Name
		if err := s.Rename(id, name); err != nil {
			return mutation{}, err
		}
		return mutation{node: id, name: n.Name, candidate: id, detail: "was " + old}, nil
	})
}

// UpdateContent replaces the payload a node navigates to.
func (e *Engine) UpdateContent(ctx context.Context, id tree.ID, c tree.Content) (*event.Change, error) {
	return e.apply(ctx, event.OpContent, func(s *tree.Store) (mutation, error) {
		n, err := s.Lookup(id)
		if err != nil {
			return mutation{}, err
		}
		if err := e.checkContent(c); err != nil {
			return mutation{}, err
		}
		if c == nil {
			c = tree.Plain{}
		}
		n.Content = c
		return mutation{node: id, name: n.Name, candidate: id, detail: string(c.Kind())}, nil
	})
}

// DeleteNode removes a node. Its children move up to its parent; when the
// root is deleted the first of its children takes over. Deleting the last
// visible node leaves the remaining nodes as they are.
func (e *Engine) DeleteNode(ctx context.Context, id tree.ID) (*event.Change, error) {
	return e.apply(ctx, event.OpDelete, func(s *tree.Store) (mutation, error) {
		n, err := s.Lookup(id)
		if err != nil {
			return mutation{}, err
		}
		children := s.Children(id, false)
		for _, child := range children {
			child.SetParent(n.ParentID)
		}
		s.Delete(id)

		m := mutation{node: id, name: n.Name, anchor: n.ParentID, detail: fmt.Sprintf("children=%d", len(children))}
		if !n.HasParent() && len(children) > 0 {
			m.anchor = children[0].ID
			if vis := s.Children(tree.NoParent, true); len(vis) > 0 {
				m.anchor = vis[0].ID
			}
		}
		return m, nil
	})
}

// Replace swaps in a whole tree, e.g. one built from a seed or imported from
// a file. The tree is repaired and rebuilt before it is published.
func (e *Engine) Replace(ctx context.Context, s *tree.Store) (*event.Change, error) {
	return e.apply(ctx, event.OpImport, func(next *tree.Store) (mutation, error) {
		*next = *s.Clone()
		m := mutation{detail: fmt.Sprintf("nodes=%d", next.Len())}
		if root := next.Root(); root != nil {
			m.node, m.name = root.ID, root.Name
		} else if roots := next.Roots(); len(roots) > 0 {
			m.candidate = roots[0].ID
		}
		return m, nil
	})
}

func checkName(s *tree.Store, name string, self tree.ID) error {
	if name == "" {
		return tree.ErrEmptyName
	}
	if s.NameTaken(name, self) {
		return fmt.Errorf("%q: %w", name, tree.ErrDuplicateName)
	}
	return nil
}

func (e *Engine) checkContent(c tree.Content) error {
	if _, _, err := tree.EncodeContent(c); err != nil {
		return err
	}
	if cv, ok := c.(tree.CustomView); ok && !e.routes.Load().Has(cv.URLName) {
		return fmt.Errorf("%w %q", ErrUnknownRoute, cv.URLName)
	}
	return nil
}

// nextSiblingOrder returns one past the highest order among parent's
// children.
func nextSiblingOrder(s *tree.Store, parent tree.ID) int {
	orders := []int{0}
	for _, c := range s.Children(parent, false) {
		orders = append(orders, c.SiblingOrder)
	}
	return slices.Max(orders) + 1
}
