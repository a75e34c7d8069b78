// Command navctl manages a navtree SQLite store from the shell.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/navtree/internal/config"
	"github.com/gyaneshwarpardhi/navtree/internal/engine"
	"github.com/gyaneshwarpardhi/navtree/internal/menu"
	"github.com/gyaneshwarpardhi/navtree/internal/route"
	"github.com/gyaneshwarpardhi/navtree/internal/storage"
)

var (
	cfgPath string
	dbPath  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "navctl",
	Short:         "Inspect and seed a navtree store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "configs/navtree.yaml", "Path to navtree YAML config")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite store (defaults to store.path from the config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log engine activity to stderr")
	rootCmd.AddCommand(importCmd, treeCmd, menuCmd, changesCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "navctl:", err)
		os.Exit(1)
	}
}

// session is an open store with an engine serving its tree.
type session struct {
	cfg *config.Config
	db  *storage.Store
	eng *engine.Engine
}

func (s *session) Close() error { return s.db.Close() }

func openSession(ctx context.Context) (*session, error) {
	loader, err := config.NewLoader(cfgPath)
	if err != nil {
		return nil, err
	}
	cfg := loader.Config()
	path := dbPath
	if path == "" {
		path = cfg.Store.Path
	}
	if path == "" {
		return nil, fmt.Errorf("no store: pass --db or set store.path in %s", cfgPath)
	}
	db, err := storage.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	t, err := db.LoadTree(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	version, err := db.LatestVersion(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	eng, err := engine.New(t, route.FromConfig(cfg.Routes), engine.Options{
		MaxRepairDepth: cfg.Tree.MaxRepairDepth,
		Menu: menu.Config{
			Separator:        cfg.Menu.BreadcrumbSeparator,
			NotVisibleMarker: cfg.Menu.NotVisibleMarker,
		},
		CacheSize: -1,
		Persister: db,
		Logger:    logger(),
		Version:   version,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &session{cfg: cfg, db: db, eng: eng}, nil
}

func logger() *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
