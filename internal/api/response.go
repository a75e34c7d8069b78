package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gyaneshwarpardhi/navtree/internal/engine"
	"github.com/gyaneshwarpardhi/navtree/internal/tree"
)

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error string    `json:"error"`
	Kind  string    `json:"kind,omitempty"`
	Nodes []tree.ID `json:"nodes,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeTreeError maps an engine error onto a status code.
func writeTreeError(w http.ResponseWriter, err error) {
	var (
		cycle     *tree.CycleError
		broken    *tree.InconsistencyError
		exhausted *tree.RepairExhaustedError
	)
	switch {
	case errors.As(err, &cycle):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Kind: "cycle", Nodes: []tree.ID{cycle.Node}})
	case errors.As(err, &broken):
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Kind: "inconsistent", Nodes: broken.Nodes})
	case errors.As(err, &exhausted):
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Kind: "repair_exhausted", Nodes: []tree.ID{exhausted.Anchor}})
	case errors.Is(err, tree.ErrNodeNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Kind: "not_found"})
	case errors.Is(err, tree.ErrDuplicateName):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Kind: "duplicate_name"})
	case errors.Is(err, tree.ErrEmptyName), errors.Is(err, tree.ErrUnknownContent), errors.Is(err, engine.ErrUnknownRoute):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Kind: "invalid"})
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
