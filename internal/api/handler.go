package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/gyaneshwarpardhi/navtree/internal/config"
	"github.com/gyaneshwarpardhi/navtree/internal/engine"
	"github.com/gyaneshwarpardhi/navtree/internal/event"
	"github.com/gyaneshwarpardhi/navtree/internal/menu"
	"github.com/gyaneshwarpardhi/navtree/internal/tree"
)

const defaultChangesLimit = 50

// Journal exposes the persisted change records.
type Journal interface {
	Changes(ctx context.Context, limit int) ([]event.Change, error)
	Ping(ctx context.Context) error
}

// Deps holds all HTTP handler dependencies. Loader, Journal and Limiter are
// optional.
type Deps struct {
	Engine  *engine.Engine
	Loader  *config.Loader
	Journal Journal
	Limiter *rate.Limiter
	Logger  *slog.Logger
}

// Handler serves the tree over HTTP.
type Handler struct {
	eng     *engine.Engine
	loader  *config.Loader
	journal Journal
	mux     *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(d Deps) http.Handler {
	h := &Handler{eng: d.Engine, loader: d.Loader, journal: d.Journal, mux: http.NewServeMux()}
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	lim := func(fn http.HandlerFunc) http.HandlerFunc { return limited(d.Limiter, fn) }

	h.mux.HandleFunc("GET /v1/nodes", h.listNodes)
	h.mux.HandleFunc("POST /v1/nodes", lim(h.createNode))
	h.mux.HandleFunc("GET /v1/nodes/{id}", h.getNode)
	h.mux.HandleFunc("DELETE /v1/nodes/{id}", lim(h.deleteNode))
	h.mux.HandleFunc("PUT /v1/nodes/{id}/parent", lim(h.updateParent))
	h.mux.HandleFunc("PUT /v1/nodes/{id}/visibility", lim(h.setVisibility))
	h.mux.HandleFunc("PUT /v1/nodes/{id}/order", lim(h.setSiblingOrder))
	h.mux.HandleFunc("PUT /v1/nodes/{id}/name", lim(h.rename))
	h.mux.HandleFunc("PUT /v1/nodes/{id}/content", lim(h.updateContent))
	h.mux.HandleFunc("GET /v1/nodes/{id}/parent-choices", h.parentChoices)

	h.mux.HandleFunc("GET /v1/menu", h.menu)
	h.mux.HandleFunc("GET /v1/menu/main", h.mainMenu)
	h.mux.HandleFunc("GET /v1/menu/levels/{level}", h.menuByLevel)
	h.mux.HandleFunc("GET /v1/menu/left/{id}", h.leftMenu)
	h.mux.HandleFunc("GET /v1/breadcrumb/{id}", h.breadcrumb)

	h.mux.HandleFunc("GET /v1/changes", h.changes)
	h.mux.HandleFunc("POST /v1/config/reload", h.reloadConfig)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(log, h.mux)
}

// GET /v1/menu?selected=&include_root=&exclude_selected=
func (h *Handler) menu(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	selected, ok := queryID(w, q.Get("selected"))
	if !ok {
		return
	}
	opts := menu.Options{
		Selected:        selected,
		IncludeRoot:     queryBool(q.Get("include_root"), true),
		ExcludeSelected: queryBool(q.Get("exclude_selected"), false),
	}
	writeJSON(w, http.StatusOK, h.eng.Menu(r.Context(), opts))
}

// GET /v1/menu/main?children=&selected=
func (h *Handler) mainMenu(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	selected, ok := queryID(w, q.Get("selected"))
	if !ok {
		return
	}
	items := h.eng.MainMenu(r.Context(), queryBool(q.Get("children"), false), selected)
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// GET /v1/menu/levels/{level}?selected=
func (h *Handler) menuByLevel(w http.ResponseWriter, r *http.Request) {
	level, err := strconv.Atoi(r.PathValue("level"))
	if err != nil || level < 1 {
		writeError(w, http.StatusBadRequest, "level must be a positive integer")
		return
	}
	selected, ok := queryID(w, r.URL.Query().Get("selected"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": h.eng.MenuByLevel(r.Context(), level, selected)})
}

// GET /v1/menu/left/{id}?level2=
func (h *Handler) leftMenu(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	level2, ok := queryID(w, r.URL.Query().Get("level2"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": h.eng.LeftMenu(r.Context(), id, level2)})
}

// GET /v1/breadcrumb/{id}?exclude_leaf=
func (h *Handler) breadcrumb(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	items := h.eng.Breadcrumb(r.Context(), id, queryBool(r.URL.Query().Get("exclude_leaf"), false))
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"text":  h.eng.BreadcrumbString(id),
	})
}

// GET /v1/changes?limit=
func (h *Handler) changes(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeError(w, http.StatusNotFound, "no change journal configured")
		return
	}
	limit := defaultChangesLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}
	changes, err := h.journal.Changes(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": changes})
}

// POST /v1/config/reload: re-read the config file; OnChange callbacks apply it.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	if h.loader == nil {
		writeError(w, http.StatusNotFound, "no config file to reload")
		return
	}
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reloaded":     true,
		"version":      cfg.Version,
		"routes_count": len(cfg.Routes),
	})
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if the store is unreachable.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	snap := h.eng.Snapshot()
	body := map[string]any{
		"status":  "ready",
		"version": snap.Version,
		"nodes":   snap.Store.Len(),
	}
	if h.journal != nil {
		if err := h.journal.Ping(r.Context()); err != nil {
			body["status"] = "store unavailable"
			body["error"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func pathID(w http.ResponseWriter, r *http.Request) (tree.ID, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return tree.NoParent, false
	}
	return tree.ID(id), true
}

// queryID parses an optional id; empty means none.
func queryID(w http.ResponseWriter, s string) (tree.ID, bool) {
	if s == "" {
		return tree.NoParent, true
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "invalid node id "+strconv.Quote(s))
		return tree.NoParent, false
	}
	return tree.ID(id), true
}

func queryBool(s string, def bool) bool {
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}
