package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/navtree/internal/menu"
	"github.com/gyaneshwarpardhi/navtree/internal/tree"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace the stored tree with the seed from the config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		if len(s.cfg.Seed) == 0 {
			return fmt.Errorf("config %s has no seed", cfgPath)
		}
		seed, err := tree.Build(s.cfg)
		if err != nil {
			return err
		}
		change, err := s.eng.Replace(ctx, seed)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d nodes into %s (version %d)\n",
			seed.Len(), s.db.Path(), change.Version)
		return nil
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print every node with its trail and interval",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		out := cmd.OutOrStdout()
		for _, n := range s.eng.Nodes() {
			fmt.Fprintf(out, "%4d  [%3d,%3d] L%-2d %-12s %s\n",
				n.ID, n.Left, n.Right, n.MenuLevel, n.Content.Kind(), s.eng.Trail(n.ID))
		}
		return nil
	},
}

var (
	menuSelected    string
	menuHideRoot    bool
	menuExcludeLeaf bool
)

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Render the navigation for a selected node",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		opts := menu.Options{IncludeRoot: !menuHideRoot, ExcludeSelected: menuExcludeLeaf}
		if menuSelected != "" {
			n := s.eng.Snapshot().Store.ByName(menuSelected)
			if n == nil {
				return fmt.Errorf("%q: %w", menuSelected, tree.ErrNodeNotFound)
			}
			opts.Selected = n.ID
		}
		m := s.eng.Menu(ctx, opts)

		out := cmd.OutOrStdout()
		if opts.Selected != tree.NoParent {
			fmt.Fprintln(out, s.eng.BreadcrumbString(opts.Selected))
		}
		for _, it := range m.Items {
			mark := " "
			switch {
			case it.Selected:
				mark = ">"
			case it.ActivePath:
				mark = "*"
			}
			indent := strings.Repeat("  ", max(it.MenuLevel-1, 0))
			fmt.Fprintf(out, "%s %s%s", mark, indent, it.Name)
			if it.Target != "" {
				fmt.Fprintf(out, "  %s", it.Target)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

var changesLimit int

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "List journaled changes, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		changes, err := s.db.Changes(ctx, changesLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, c := range changes {
			fmt.Fprintf(out, "v%-5d %s  %-10s node=%-4d %-16s %s\n",
				c.Version, c.At.Format("2006-01-02 15:04:05"), c.Op, c.NodeID, c.Name, c.Detail)
		}
		return nil
	},
}

func init() {
	menuCmd.Flags().StringVarP(&menuSelected, "selected", "s", "", "Name of the selected node")
	menuCmd.Flags().BoolVar(&menuHideRoot, "hide-root", false, "Leave the root out of the menu")
	menuCmd.Flags().BoolVar(&menuExcludeLeaf, "exclude-selected", false, "Leave the selected node out of the breadcrumb")
	changesCmd.Flags().IntVarP(&changesLimit, "limit", "n", 20, "Number of changes to show (0 for all)")
}
