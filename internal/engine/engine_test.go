package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/navtree/internal/config"
	"github.com/gyaneshwarpardhi/navtree/internal/event"
	"github.com/gyaneshwarpardhi/navtree/internal/menu"
	"github.com/gyaneshwarpardhi/navtree/internal/route"
	"github.com/gyaneshwarpardhi/navtree/internal/tree"
	"github.com/gyaneshwarpardhi/navtree/internal/tree/treetest"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newEngine(t *testing.T, s *tree.Store, p Persister) *Engine {
	t.Helper()
	cfg := treetest.FoodConfig(t)
	e, err := New(s, route.FromConfig(cfg.Routes), Options{
		CacheSize: 64,
		Menu:      menu.DefaultConfig(),
		Persister: p,
		Logger:    quiet,
	})
	require.NoError(t, err)
	return e
}

func byName(t *testing.T, e *Engine, name string) tree.Node {
	t.Helper()
	n := e.Snapshot().Store.ByName(name)
	require.NotNil(t, n, "node %q", name)
	return *n
}

func itemNames(items []menu.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

// checkInvariants asserts single root, interval containment and descendant
// counts on the published snapshot.
func checkInvariants(t *testing.T, e *Engine) {
	t.Helper()
	s := e.Snapshot().Store
	if s.CountVisible(tree.NoParent) == 0 {
		return
	}
	require.Len(t, s.Roots(), 1, "exactly one visible root")

	placed := s.Filter((*tree.Node).Placed)
	ancestors := func(n *tree.Node) map[tree.ID]bool {
		out := make(map[tree.ID]bool)
		for p := s.Node(n.ParentID); p != nil && !out[p.ID]; p = s.Node(p.ParentID) {
			out[p.ID] = true
		}
		return out
	}
	desc := make(map[tree.ID]int)
	for _, b := range placed {
		anc := ancestors(b)
		for _, a := range placed {
			if a.ID == b.ID {
				continue
			}
			assert.Equal(t, anc[a.ID], a.Left < b.Left && b.Right < a.Right, "%s above %s", a.Name, b.Name)
			if anc[a.ID] {
				desc[a.ID]++
			}
		}
	}
	for _, a := range placed {
		assert.Equal(t, desc[a.ID], (a.Right-a.Left-1)/2, "descendants of %s", a.Name)
	}
}

func TestCreateAfterSiblings(t *testing.T) {
	e := newEngine(t, treetest.Food(t), nil)
	ctx := context.Background()

	ch, err := e.CreateNode(ctx, Draft{Name: "kiwi", ParentID: byName(t, e, "tropical").ID, SiblingOrder: 999})
	require.NoError(t, err)
	assert.Equal(t, event.OpCreate, ch.Op)
	assert.Equal(t, uint64(2), ch.Version)
	assert.NotEmpty(t, ch.ID)

	kiwi := byName(t, e, "kiwi")
	assert.Equal(t, tree.ID(ch.NodeID), kiwi.ID)
	assert.Greater(t, kiwi.Left, byName(t, e, "papaya").Left)
	assert.Greater(t, kiwi.Left, byName(t, e, "pineapple").Left)
	assert.Equal(t, "food -> fruit -> tropical -> kiwi", e.BreadcrumbString(kiwi.ID))
	assert.Equal(t, "kiwi", kiwi.Slug)
	checkInvariants(t, e)

	// default order appends
	_, err = e.CreateNode(ctx, Draft{Name: "mango", ParentID: kiwi.ParentID})
	require.NoError(t, err)
	assert.Greater(t, byName(t, e, "mango").Left, byName(t, e, "kiwi").Left)
}

func TestCreateRejectsBadInput(t *testing.T) {
	e := newEngine(t, treetest.Food(t), nil)
	ctx := context.Background()
	before := e.Snapshot()

	_, err := e.CreateNode(ctx, Draft{Name: ""})
	assert.ErrorIs(t, err, tree.ErrEmptyName)

	_, err = e.CreateNode(ctx, Draft{Name: "papaya"})
	assert.ErrorIs(t, err, tree.ErrDuplicateName)

	_, err = e.CreateNode(ctx, Draft{Name: "kiwi", ParentID: 999})
	assert.ErrorIs(t, err, tree.ErrNodeNotFound)

	_, err = e.CreateNode(ctx, Draft{Name: "kiwi", Content: tree.CustomView{URLName: "nowhere"}})
	assert.ErrorIs(t, err, ErrUnknownRoute)

	assert.Same(t, before, e.Snapshot(), "rejected mutations must not publish")
}

func TestCycleLeavesTreeUnchanged(t *testing.T) {
	e := newEngine(t, treetest.Food(t), nil)
	before := e.Snapshot()

	veg := byName(t, e, "vegetable")
	for _, target := range []string{"vegetable", "root", "tomato"} {
		_, err := e.UpdateParent(context.Background(), veg.ID, byName(t, e, target).ID)
		var cycle *tree.CycleError
		require.ErrorAs(t, err, &cycle, target)
		assert.Equal(t, veg.ID, cycle.Node)
	}
	assert.Same(t, before, e.Snapshot())
	assert.Equal(t, veg, byName(t, e, "vegetable"))
}

func TestMoveBranch(t *testing.T) {
	e := newEngine(t, treetest.Food(t), nil)

	_, err := e.UpdateParent(context.Background(), byName(t, e, "nightshade").ID, byName(t, e, "fruit").ID)
	require.NoError(t, err)

	tomato := byName(t, e, "tomato")
	assert.Equal(t, "food -> fruit -> nightshade -> tomato", e.BreadcrumbString(tomato.ID))
	assert.Equal(t, 4, tomato.MenuLevel)
	checkInvariants(t, e)
}

func TestHideAndShowBranch(t *testing.T) {
	e := newEngine(t, treetest.Food(t), nil)
	ctx := context.Background()
	veg := byName(t, e, "vegetable")

	_, err := e.SetVisibility(ctx, veg.ID, false)
	require.NoError(t, err)
	for _, name := range []string{"root", "potato", "nightshade", "eggplant"} {
		n := byName(t, e, name)
		assert.Contains(t, e.Trail(n.ID), "(not visible)", name)
		assert.Empty(t, e.Breadcrumb(ctx, n.ID, false), name)
	}
	assert.Equal(t, []string{"fruit", "meat"}, itemNames(e.MenuByLevel(ctx, 2, tree.NoParent)))
	checkInvariants(t, e)

	_, err = e.SetVisibility(ctx, veg.ID, true)
	require.NoError(t, err)
	for _, name := range []string{"root", "potato", "nightshade", "eggplant"} {
		n := byName(t, e, name)
		assert.NotContains(t, e.Trail(n.ID), "(not visible)", name)
		assert.NotEmpty(t, e.Breadcrumb(ctx, n.ID, false), name)
	}
	assert.Equal(t, 43, byName(t, e, "vegetable").Right)
}

func TestDeleteReparentsChildren(t *testing.T) {
	e := newEngine(t, treetest.Food(t), nil)
	ctx := context.Background()
	fruit := byName(t, e, "fruit")

	_, err := e.DeleteNode(ctx, byName(t, e, "yellow").ID)
	require.NoError(t, err)
	assert.Equal(t, fruit.ID, byName(t, e, "banana").ParentID)

	_, err = e.DeleteNode(ctx, byName(t, e, "tropical").ID)
	require.NoError(t, err)
	assert.Equal(t, fruit.ID, byName(t, e, "papaya").ParentID)
	assert.Equal(t, fruit.ID, byName(t, e, "pineapple").ParentID)
	checkInvariants(t, e)

	_, err = e.DeleteNode(ctx, 999)
	assert.ErrorIs(t, err, tree.ErrNodeNotFound)
}

func TestMenuAfterDeletingBranch(t *testing.T) {
	e := newEngine(t, treetest.Food(t), nil)
	ctx := context.Background()

	_, err := e.DeleteNode(ctx, byName(t, e, "tropical").ID)
	require.NoError(t, err)

	m := e.Menu(ctx, menu.Options{Selected: byName(t, e, "local").ID, IncludeRoot: true})
	assert.Len(t, m.Items, 10)
	var level3 []string
	for _, it := range m.Items {
		if it.MenuLevel == 3 {
			level3 = append(level3, it.Name)
		}
	}
	assert.Equal(t, []string{"red", "yellow", "papaya", "pineapple", "local"}, level3)
}

func TestDeleteEverythingButRoot(t *testing.T) {
	e := newEngine(t, treetest.Food(t), nil)
	ctx := context.Background()

	for _, n := range e.Nodes() {
		if n.MenuLevel >= 2 {
			_, err := e.DeleteNode(ctx, n.ID)
			require.NoError(t, err, n.Name)
		}
	}
	assert.Equal(t, 1, e.Snapshot().Store.Len())
	m := e.Menu(ctx, menu.Options{IncludeRoot: true})
	require.Len(t, m.Items, 1)
	assert.Equal(t, "food", m.Items[0].Name)
}

func TestRootReplacement(t *testing.T) {
	e := newEngine(t, treetest.Food(t), nil)
	ctx := context.Background()

	_, err := e.CreateNode(ctx, Draft{Name: "things (new root)"})
	require.NoError(t, err)
	things := byName(t, e, "things (new root)")
	assert.True(t, things.IsRoot)
	assert.Equal(t, 1, things.Left)
	assert.Equal(t, things.ID, byName(t, e, "food").ParentID)
	checkInvariants(t, e)

	_, err = e.DeleteNode(ctx, things.ID)
	require.NoError(t, err)
	food := byName(t, e, "food")
	assert.True(t, food.IsRoot)
	assert.True(t, food.Visible)
	assert.Equal(t, 1, food.Left)

	// hiding the root is reverted
	_, err = e.SetVisibility(ctx, food.ID, false)
	require.NoError(t, err)
	assert.True(t, byName(t, e, "food").Visible)

	_, err = e.DeleteNode(ctx, food.ID)
	require.NoError(t, err)
	fruit := byName(t, e, "fruit")
	assert.True(t, fruit.IsRoot)
	assert.True(t, fruit.Visible)
	assert.Equal(t, 1, fruit.Left)
	assert.Equal(t, fruit.ID, byName(t, e, "meat").ParentID)
	checkInvariants(t, e)
}

func TestFromEmptyTree(t *testing.T) {
	e := newEngine(t, nil, nil)
	ctx := context.Background()

	hidden := false
	ch, err := e.CreateNode(ctx, Draft{Name: "Home Page", Visible: &hidden})
	require.NoError(t, err)
	home := byName(t, e, "Home Page")
	assert.True(t, home.IsRoot)
	assert.True(t, home.Visible, "the only node is always shown")
	assert.Equal(t, 1, home.MenuLevel)
	assert.Equal(t, "home-page", home.Slug)
	assert.Equal(t, tree.ID(ch.NodeID), home.ID)

	_, err = e.CreateNode(ctx, Draft{Name: "Faculty", ParentID: home.ID})
	require.NoError(t, err)
	faculty := byName(t, e, "Faculty")
	home = byName(t, e, "Home Page")
	assert.Equal(t, 1, home.NumDescendants())

	// a second root is folded back below the first
	_, err = e.UpdateParent(ctx, faculty.ID, tree.NoParent)
	require.NoError(t, err)
	faculty = byName(t, e, "Faculty")
	assert.Equal(t, home.ID, faculty.ParentID)
	assert.False(t, faculty.IsRoot)
	assert.Equal(t, 2, faculty.Left)

	_, err = e.DeleteNode(ctx, home.ID)
	require.NoError(t, err)
	faculty = byName(t, e, "Faculty")
	assert.True(t, faculty.IsRoot)
	assert.Equal(t, 1, faculty.Left)

	_, err = e.DeleteNode(ctx, faculty.ID)
	require.NoError(t, err)
	assert.Zero(t, e.Snapshot().Store.Len())
	assert.Empty(t, e.Menu(ctx, menu.Options{IncludeRoot: true}).Items)
}

func TestDeletingLastVisibleNodeSkipsRepair(t *testing.T) {
	e := newEngine(t, nil, nil)
	ctx := context.Background()

	_, err := e.CreateNode(ctx, Draft{Name: "home"})
	require.NoError(t, err)
	home := byName(t, e, "home")
	hidden := false
	_, err = e.CreateNode(ctx, Draft{Name: "drafts", ParentID: home.ID, Visible: &hidden})
	require.NoError(t, err)

	_, err = e.DeleteNode(ctx, home.ID)
	require.NoError(t, err)
	drafts := byName(t, e, "drafts")
	assert.False(t, drafts.Visible, "hidden leftovers are not promoted")
	assert.Empty(t, e.Snapshot().Store.Roots())
}

func TestRenameReorderAndContent(t *testing.T) {
	e := newEngine(t, treetest.Food(t), nil)
	ctx := context.Background()
	pork := byName(t, e, "pork")

	_, err := e.Rename(ctx, pork.ID, "Pork Belly")
	require.NoError(t, err)
	assert.Nil(t, e.Snapshot().Store.ByName("pork"))
	assert.Equal(t, "pork-belly", byName(t, e, "Pork Belly").Slug)

	_, err = e.Rename(ctx, pork.ID, "beef")
	assert.ErrorIs(t, err, tree.ErrDuplicateName)

	_, err = e.SetSiblingOrder(ctx, pork.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pork Belly", "beef"}, itemNames(e.MainMenu(ctx, true, tree.NoParent)[1].Children))

	_, err = e.UpdateContent(ctx, pork.ID, tree.Page{Title: "Pork"})
	require.NoError(t, err)
	crumbs := e.Breadcrumb(ctx, pork.ID, false)
	require.Len(t, crumbs, 3)
	assert.Equal(t, "/page/pork-belly/", crumbs[2].Target)
}

func TestReplace(t *testing.T) {
	e := newEngine(t, nil, nil)
	ch, err := e.Replace(context.Background(), treetest.Food(t))
	require.NoError(t, err)
	assert.Equal(t, event.OpImport, ch.Op)
	assert.Equal(t, "food", ch.Name)
	assert.Equal(t, treetest.FoodSize, e.Snapshot().Store.Len())
	checkInvariants(t, e)
}

func TestRouteSwapDropsResultsBuiltBefore(t *testing.T) {
	e := newEngine(t, treetest.Food(t), nil)
	ctx := context.Background()
	papaya := byName(t, e, "papaya").ID

	crumbs := e.Breadcrumb(ctx, papaya, false)
	require.Len(t, crumbs, 4)
	assert.Equal(t, "/page/papaya/", crumbs[3].Target)

	// a build that began under the old routes stores its result after the swap
	stale := e.key(e.Snapshot(), menu.ViewBreadcrumb, papaya, 0, 0)
	e.SetRoutes(route.FromConfig([]config.Route{
		{Name: "view_page_by_slug", Pattern: "/p/{page_slug}/"},
		{Name: "view_page_by_id", Pattern: "/p/id/{page_id}/"},
	}))
	menu.Cached(e.cache, stale, func() []menu.Item { return crumbs })

	fresh := e.Breadcrumb(ctx, papaya, false)
	require.Len(t, fresh, 4)
	assert.Equal(t, "/p/papaya/", fresh[3].Target)

	e.SetMenuConfig(menu.Config{Separator: "/"})
	assert.NotEqual(t, stale, e.key(e.Snapshot(), menu.ViewBreadcrumb, papaya, 0, 0))
	assert.Equal(t, "food / fruit / tropical / papaya", e.BreadcrumbString(papaya))
}

type recorder struct {
	mu      sync.Mutex
	changes []*event.Change
	sizes   []int
	fail    bool
}

func (r *recorder) SaveSnapshot(_ context.Context, nodes []*tree.Node, ch *event.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("disk full")
	}
	r.changes = append(r.changes, ch)
	r.sizes = append(r.sizes, len(nodes))
	return nil
}

func TestPersistence(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, treetest.Food(t), rec)
	ctx := context.Background()

	_, err := e.DeleteNode(ctx, byName(t, e, "pork").ID)
	require.NoError(t, err)
	require.Len(t, rec.changes, 1)
	assert.Equal(t, event.OpDelete, rec.changes[0].Op)
	assert.Equal(t, "pork", rec.changes[0].Name)
	assert.Equal(t, treetest.FoodSize-1, rec.sizes[0])

	rec.fail = true
	before := e.Snapshot()
	_, err = e.DeleteNode(ctx, byName(t, e, "beef").ID)
	require.Error(t, err)
	assert.Same(t, before, e.Snapshot(), "a failed save must not publish")
}

func TestRandomMutationsKeepInvariants(t *testing.T) {
	e := newEngine(t, treetest.Food(t), nil)
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(7, 11))

	pick := func() tree.ID {
		nodes := e.Nodes()
		if len(nodes) == 0 {
			return tree.NoParent
		}
		return nodes[rng.IntN(len(nodes))].ID
	}

	for i := range 300 {
		var err error
		switch rng.IntN(5) {
		case 0:
			_, err = e.CreateNode(ctx, Draft{Name: "n" + tree.ID(i).String(), ParentID: pick()})
		case 1:
			_, err = e.UpdateParent(ctx, pick(), pick())
		case 2:
			_, err = e.SetVisibility(ctx, pick(), rng.IntN(3) > 0)
		case 3:
			_, err = e.SetSiblingOrder(ctx, pick(), rng.IntN(50))
		case 4:
			if e.Snapshot().Store.Len() > 5 {
				_, err = e.DeleteNode(ctx, pick())
			}
		}
		var cycle *tree.CycleError
		if err != nil && !errors.As(err, &cycle) && !errors.Is(err, tree.ErrNodeNotFound) {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
		checkInvariants(t, e)
	}
}

func TestConcurrentReadersSeeCommittedSnapshots(t *testing.T) {
	e := newEngine(t, treetest.Food(t), nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				m := e.Menu(ctx, menu.Options{IncludeRoot: true})
				if len(m.Items) == 0 || m.Items[0].MenuLevel != 1 {
					t.Error("reader saw a tree without a root")
					return
				}
			}
		}()
	}
	for i := range 50 {
		_, err := e.CreateNode(ctx, Draft{Name: "extra" + tree.ID(i).String(), ParentID: byName(t, e, "meat").ID})
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
	assert.Equal(t, uint64(51), e.Snapshot().Version)
}
