package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/navtree/internal/route"
	"github.com/gyaneshwarpardhi/navtree/internal/tree"
	"github.com/gyaneshwarpardhi/navtree/internal/tree/treetest"
)

func newComposer(t *testing.T, s *tree.Store) *Composer {
	t.Helper()
	cfg := treetest.FoodConfig(t)
	return NewComposer(s, route.FromConfig(cfg.Routes), DefaultConfig())
}

func names(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func countWhere(items []Item, keep func(Item) bool) int {
	c := 0
	for _, it := range items {
		if keep(it) {
			c++
		}
	}
	return c
}

func TestFoodIntervals(t *testing.T) {
	s := treetest.Food(t)
	require.Equal(t, treetest.FoodSize, s.Len())

	for name, want := range map[string][2]int{
		"food":      {1, 44},
		"fruit":     {2, 21},
		"meat":      {22, 27},
		"vegetable": {28, 43},
	} {
		n := s.ByName(name)
		require.NotNil(t, n, name)
		assert.Equal(t, want, [2]int{n.Left, n.Right}, name)
	}
}

func TestBuildSelectedLeaf(t *testing.T) {
	s := treetest.Food(t)
	c := newComposer(t, s)
	papaya := treetest.ID(t, s, "papaya")

	m := c.Build(Options{Selected: papaya, IncludeRoot: true})
	require.Len(t, m.Items, 13)
	assert.Equal(t, 4, countWhere(m.Items, func(it Item) bool { return it.ActivePath }))
	assert.Equal(t, "food", m.Items[0].Name)
	assert.Equal(t, []string{"food", "fruit", "tropical", "papaya"}, names(m.Breadcrumb))

	for _, it := range m.Items {
		assert.Equal(t, it.ID == papaya, it.Selected, it.Name)
	}
}

func TestBuildSelectedBranch(t *testing.T) {
	s := treetest.Food(t)
	c := newComposer(t, s)
	tropical := treetest.ID(t, s, "tropical")

	m := c.Build(Options{Selected: tropical, IncludeRoot: true})
	assert.Len(t, m.Items, 10)
	assert.Len(t, m.Breadcrumb, 3)

	m = c.Build(Options{Selected: tropical, IncludeRoot: true, ExcludeSelected: true})
	assert.Len(t, m.Items, 10)
	assert.Equal(t, []string{"food", "fruit"}, names(m.Breadcrumb))

	var found bool
	for _, it := range m.Items {
		if it.ID == tropical {
			found = true
			assert.True(t, it.ActivePath)
		}
	}
	assert.True(t, found, "tropical should be a menu item")
}

func TestBuildWithoutSelection(t *testing.T) {
	c := newComposer(t, treetest.Food(t))

	m := c.Build(Options{})
	require.Len(t, m.Items, 3)
	assert.Equal(t, 3, countWhere(m.Items, func(it Item) bool { return it.MenuLevel == 2 }))
	assert.Equal(t, []string{"fruit", "meat", "vegetable"}, names(m.Items))
	assert.Empty(t, m.Breadcrumb)

	m = c.Build(Options{IncludeRoot: true})
	assert.Len(t, m.Items, 4)
}

func TestBuildAfterRemovingBranch(t *testing.T) {
	s := treetest.Food(t)
	fruit := treetest.ID(t, s, "fruit")
	tropical := treetest.ID(t, s, "tropical")
	for _, child := range s.Children(tropical, false) {
		child.SetParent(fruit)
	}
	s.Delete(tropical)
	require.NoError(t, tree.Rebuild(s, s.Root().ID))

	c := newComposer(t, s)
	m := c.Build(Options{Selected: treetest.ID(t, s, "local"), IncludeRoot: true})
	assert.Len(t, m.Items, 10)

	var level3 []string
	for _, it := range m.Items {
		if it.MenuLevel == 3 {
			level3 = append(level3, it.Name)
		}
	}
	assert.Equal(t, []string{"red", "yellow", "papaya", "pineapple", "local"}, level3)
}

func TestBuildRootOnly(t *testing.T) {
	s := treetest.Food(t)
	for _, n := range s.All() {
		if n.MenuLevel >= 2 {
			s.Delete(n.ID)
		}
	}
	require.NoError(t, tree.Rebuild(s, s.Root().ID))

	m := newComposer(t, s).Build(Options{IncludeRoot: true})
	require.Len(t, m.Items, 1)
	assert.Equal(t, "food", m.Items[0].Name)
}

func TestBreadcrumb(t *testing.T) {
	s := treetest.Food(t)
	c := newComposer(t, s)
	food := treetest.ID(t, s, "food")

	assert.Equal(t, []string{"food"}, names(c.Breadcrumb(food, false)))
	assert.Empty(t, c.Breadcrumb(food, true))
	assert.Empty(t, c.Breadcrumb(tree.ID(999), false))

	yam := treetest.ID(t, s, "yam")
	crumbs := c.Breadcrumb(yam, false)
	assert.Equal(t, []string{"food", "vegetable", "root", "yam"}, names(crumbs))
	for _, it := range crumbs {
		assert.True(t, it.ActivePath, it.Name)
	}
	assert.Equal(t, "food -> vegetable -> root -> yam", c.BreadcrumbString(yam))

	for _, n := range s.All() {
		full := c.Breadcrumb(n.ID, false)
		require.NotEmpty(t, full, n.Name)
		assert.Equal(t, n.ID, full[len(full)-1].ID, n.Name)
		assert.Equal(t, names(full[:len(full)-1]), names(c.Breadcrumb(n.ID, true)), n.Name)
	}
}

func TestMenuByLevel(t *testing.T) {
	s := treetest.Food(t)
	c := newComposer(t, s)

	assert.Equal(t, []string{"food"}, names(c.MenuByLevel(1, tree.NoParent)))
	assert.Equal(t, []string{"red", "yellow", "tropical", "local", "beef", "pork", "root", "nightshade"},
		names(c.MenuByLevel(3, tree.NoParent)))
	assert.Empty(t, c.MenuByLevel(9, tree.NoParent))

	level2 := c.MenuByLevel(2, treetest.ID(t, s, "beef"))
	require.Len(t, level2, 3)
	assert.False(t, level2[0].ActivePath)
	assert.True(t, level2[1].ActivePath)
	assert.True(t, level2[0].FirstSibling)
	assert.False(t, level2[1].FirstSibling)
	assert.False(t, level2[1].LastSibling)
	assert.True(t, level2[2].LastSibling)
}

func TestMainMenu(t *testing.T) {
	c := newComposer(t, treetest.Food(t))

	flat := c.MainMenu(false, tree.NoParent)
	require.Len(t, flat, 3)
	assert.Nil(t, flat[0].Children)

	nested := c.MainMenu(true, tree.NoParent)
	require.Len(t, nested, 3)
	assert.Equal(t, []string{"red", "yellow", "tropical", "local"}, names(nested[0].Children))
	assert.Equal(t, []string{"beef", "pork"}, names(nested[1].Children))
	assert.Equal(t, []string{"root", "nightshade"}, names(nested[2].Children))
}

func TestLeftMenu(t *testing.T) {
	s := treetest.Food(t)
	c := newComposer(t, s)

	items := c.LeftMenu(treetest.ID(t, s, "meat"), tree.NoParent)
	assert.Equal(t, []string{"fruit", "meat", "beef", "pork", "vegetable"}, names(items))

	items = c.LeftMenu(treetest.ID(t, s, "root"), treetest.ID(t, s, "vegetable"))
	assert.Equal(t, []string{"fruit", "meat", "vegetable", "root", "potato", "yam", "yucca", "nightshade"}, names(items))

	assert.Empty(t, c.LeftMenu(tree.ID(999), tree.NoParent))
}

func TestHiddenBranchIsExcluded(t *testing.T) {
	s := treetest.Food(t)
	vegetable := s.ByName("vegetable")
	vegetable.Visible = false
	require.NoError(t, tree.Rebuild(s, s.Root().ID))

	c := newComposer(t, s)
	m := c.Build(Options{IncludeRoot: true})
	assert.Equal(t, []string{"food", "fruit", "meat"}, names(m.Items))

	// descendants of the hidden branch keep a stale interval but are not placed
	yam := treetest.ID(t, s, "yam")
	assert.Empty(t, c.Breadcrumb(yam, false))
	assert.Empty(t, c.LeftMenu(yam, tree.NoParent))
	assert.Equal(t, "food -> vegetable (not visible) -> root -> yam", c.Trail(yam))
}

func TestTargets(t *testing.T) {
	s := treetest.Food(t)
	c := newComposer(t, s)

	apple := treetest.ID(t, s, "apple")
	got := c.Resolve([]tree.ID{
		treetest.ID(t, s, "papaya"),
		apple,
		treetest.ID(t, s, "beef"),
		treetest.ID(t, s, "pork"),
		tree.ID(999),
	})
	require.Len(t, got, 4)
	assert.Equal(t, "/page/papaya/", got[treetest.ID(t, s, "papaya")].Target)
	assert.Equal(t, "/page/id/"+apple.String()+"/", got[apple].Target)
	assert.Equal(t, "https://example.org/beef", got[treetest.ID(t, s, "beef")].Target)
	assert.Empty(t, got[treetest.ID(t, s, "pork")].Target)
	assert.Equal(t, tree.KindPage, got[treetest.ID(t, s, "papaya")].Kind)
}

func TestParentChoices(t *testing.T) {
	s := treetest.Food(t)
	c := newComposer(t, s)

	all := c.ParentChoices(tree.NoParent)
	assert.Len(t, all, treetest.FoodSize)
	assert.Equal(t, "food", all[0].Label)

	fruit := treetest.ID(t, s, "fruit")
	for _, ch := range c.ParentChoices(fruit) {
		assert.NotContains(t, ch.Label, "fruit", "fruit and its subtree must not be offered")
	}

	s.ByName("vegetable").Visible = false
	require.NoError(t, tree.Rebuild(s, s.Root().ID))
	vegetable := treetest.ID(t, s, "vegetable")
	choices := c.ParentChoices(tree.NoParent)
	assert.Len(t, choices, treetest.FoodSize-1)
	for _, ch := range choices {
		assert.NotEqual(t, vegetable, ch.ID, "hidden node offered as a parent")
	}

	empty := NewComposer(tree.NewStore(), nil, Config{}).ParentChoices(tree.NoParent)
	assert.Equal(t, []Choice{{ID: tree.NoParent, Label: EmptyChoiceLabel}}, empty)
}

func TestSiblingFlagsNeedParent(t *testing.T) {
	s := treetest.Food(t)
	food := s.ByName("food")
	assert.False(t, IsFirstSibling(food, nil))
	assert.False(t, IsLastSibling(food, nil))

	fruit := s.ByName("fruit")
	assert.True(t, IsFirstSibling(fruit, food))
	assert.False(t, IsLastSibling(fruit, food))
}
