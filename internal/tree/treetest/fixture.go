// Package treetest provides the shared food tree used by tests across
// packages.
//
//	food
//	  fruit
//	    red: cherry
//	    yellow: banana
//	    tropical: papaya, pineapple
//	    local: apple
//	  meat: beef, pork
//	  vegetable
//	    root: potato, yam, yucca
//	    nightshade: tomato, eggplant
package treetest

import (
	"testing"

	"github.com/gyaneshwarpardhi/navtree/internal/config"
	"github.com/gyaneshwarpardhi/navtree/internal/tree"
)

// FoodSize is the number of nodes in the food tree.
const FoodSize = 22

func leaf(names ...string) []config.NodeDef {
	out := make([]config.NodeDef, len(names))
	for i, n := range names {
		out[i] = config.NodeDef{Name: n}
	}
	return out
}

// FoodSeed returns the seed definition of the food tree. papaya is a page,
// apple a custom view addressed by id and beef a direct link.
func FoodSeed() []config.NodeDef {
	noSlug := false
	fruit := config.NodeDef{Name: "fruit", Children: []config.NodeDef{
		{Name: "red", Children: leaf("cherry")},
		{Name: "yellow", Children: leaf("banana")},
		{Name: "tropical", Children: []config.NodeDef{
			{Name: "papaya", Page: &config.PageDef{Title: "Papaya"}},
			{Name: "pineapple"},
		}},
		{Name: "local", Children: []config.NodeDef{
			{Name: "apple", CustomView: &config.CustomViewDef{URLName: "view_page_by_id", WithSlug: &noSlug, WithID: true}},
		}},
	}}
	meat := config.NodeDef{Name: "meat", Children: []config.NodeDef{
		{Name: "beef", DirectLink: &config.DirectLinkDef{URL: "https://example.org/beef"}},
		{Name: "pork"},
	}}
	vegetable := config.NodeDef{Name: "vegetable", Children: []config.NodeDef{
		{Name: "root", Children: leaf("potato", "yam", "yucca")},
		{Name: "nightshade", Children: leaf("tomato", "eggplant")},
	}}
	return []config.NodeDef{{Name: "food", Children: []config.NodeDef{fruit, meat, vegetable}}}
}

// FoodConfig returns a validated config with defaults applied and the food
// tree as seed.
func FoodConfig(t testing.TB) *config.Config {
	t.Helper()
	cfg := &config.Config{Version: "1", Seed: FoodSeed()}
	config.ApplyDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("food config: %v", err)
	}
	return cfg
}

// Food builds the food tree.
func Food(t testing.TB) *tree.Store {
	t.Helper()
	s, err := tree.Build(FoodConfig(t))
	if err != nil {
		t.Fatalf("build food tree: %v", err)
	}
	return s
}

// ID returns the id of the node called name, failing the test if absent.
func ID(t testing.TB, s *tree.Store, name string) tree.ID {
	t.Helper()
	n := s.ByName(name)
	if n == nil {
		t.Fatalf("node %q not found", name)
	}
	return n.ID
}
