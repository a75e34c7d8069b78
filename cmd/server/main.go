package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/gyaneshwarpardhi/navtree/internal/api"
	"github.com/gyaneshwarpardhi/navtree/internal/config"
	"github.com/gyaneshwarpardhi/navtree/internal/engine"
	"github.com/gyaneshwarpardhi/navtree/internal/menu"
	"github.com/gyaneshwarpardhi/navtree/internal/route"
	"github.com/gyaneshwarpardhi/navtree/internal/storage"
	"github.com/gyaneshwarpardhi/navtree/internal/tree"
)

func main() {
	cfgPath := flag.String("config", "configs/navtree.yaml", "Path to navtree YAML config")
	addr := flag.String("addr", "", "HTTP listen address (overrides server.addr)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Tracing ───────────────────────────────────────────────────────────────
	shutdownTracing, err := setupTracing(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("trace export unavailable", "err", err)
	} else {
		defer shutdownTracing()
	}

	// ── Store ─────────────────────────────────────────────────────────────────
	var (
		db      *storage.Store
		initial *tree.Store
		version uint64
	)
	if cfg.Store.Path != "" {
		db, err = storage.Open(ctx, cfg.Store.Path)
		if err != nil {
			slog.Error("failed to open store", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if initial, err = db.LoadTree(ctx); err != nil {
			slog.Error("failed to load tree", "err", err)
			os.Exit(1)
		}
		if version, err = db.LatestVersion(ctx); err != nil {
			slog.Error("failed to read store version", "err", err)
			os.Exit(1)
		}
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	opts := engine.Options{
		MaxRepairDepth: cfg.Tree.MaxRepairDepth,
		Menu:           menuConfig(cfg),
		CacheSize:      cfg.Menu.CacheSize,
		Logger:         logger,
		Version:        version,
	}
	if db != nil {
		opts.Persister = db
	}
	seeded := initial != nil && initial.Len() > 0
	if !seeded {
		initial = nil
	}
	eng, err := engine.New(initial, route.FromConfig(cfg.Routes), opts)
	if err != nil {
		slog.Error("failed to start engine", "err", err)
		os.Exit(1)
	}
	if !seeded && len(cfg.Seed) > 0 {
		seed, err := tree.Build(cfg)
		if err != nil {
			slog.Error("failed to build seed tree", "err", err)
			os.Exit(1)
		}
		if _, err := eng.Replace(ctx, seed); err != nil {
			slog.Error("failed to import seed tree", "err", err)
			os.Exit(1)
		}
	}
	snap := eng.Snapshot()
	slog.Info("tree ready", "nodes", snap.Store.Len(), "version", snap.Version, "from_store", seeded)

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	loader.OnChange(func(newCfg *config.Config) {
		eng.SetRoutes(route.FromConfig(newCfg.Routes))
		eng.SetMenuConfig(menuConfig(newCfg))
		slog.Info("config hot-reloaded", "routes", len(newCfg.Routes))
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	deps := api.Deps{
		Engine:  eng,
		Loader:  loader,
		Limiter: rate.NewLimiter(rate.Limit(cfg.API.MutationsPerSecond), cfg.API.MutationBurst),
		Logger:  logger,
	}
	if db != nil {
		deps.Journal = db
	}
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.New(deps),
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
		IdleTimeout:  cfg.Server.IdleTimeout(),
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	slog.Info("goodbye")
}

func menuConfig(cfg *config.Config) menu.Config {
	return menu.Config{
		Separator:        cfg.Menu.BreadcrumbSeparator,
		NotVisibleMarker: cfg.Menu.NotVisibleMarker,
	}
}
