package api

import (
	"encoding/json"
	"net/http"

	"github.com/gyaneshwarpardhi/navtree/internal/engine"
	"github.com/gyaneshwarpardhi/navtree/internal/event"
	"github.com/gyaneshwarpardhi/navtree/internal/tree"
)

// nodeView is the wire form of a node.
type nodeView struct {
	ID           tree.ID         `json:"id"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	ParentID     tree.ID         `json:"parent_id"`
	Visible      bool            `json:"visible"`
	SiblingOrder int             `json:"sibling_order"`
	IsRoot       bool            `json:"is_root"`
	MenuLevel    int             `json:"menu_level"`
	Left         int             `json:"lft"`
	Right        int             `json:"rgt"`
	Kind         tree.Kind       `json:"kind"`
	Content      json.RawMessage `json:"content,omitempty"`
	Trail        string          `json:"trail,omitempty"`
}

func toView(n tree.Node) (nodeView, error) {
	kind, payload, err := tree.EncodeContent(n.Content)
	if err != nil {
		return nodeView{}, err
	}
	return nodeView{
		ID:           n.ID,
		Name:         n.Name,
		Slug:         n.Slug,
		ParentID:     n.ParentID,
		Visible:      n.Visible,
		SiblingOrder: n.SiblingOrder,
		IsRoot:       n.IsRoot,
		MenuLevel:    n.MenuLevel,
		Left:         n.Left,
		Right:        n.Right,
		Kind:         kind,
		Content:      payload,
	}, nil
}

type contentBody struct {
	Kind    tree.Kind       `json:"kind"`
	Content json.RawMessage `json:"content"`
}

func (b contentBody) decode() (tree.Content, error) {
	return tree.DecodeContent(b.Kind, b.Content)
}

type createBody struct {
	Name         string          `json:"name"`
	ParentID     tree.ID         `json:"parent_id"`
	Visible      *bool           `json:"visible"`
	SiblingOrder int             `json:"sibling_order"`
	Kind         tree.Kind       `json:"kind"`
	Content      json.RawMessage `json:"content"`
}

// changeResponse reports a committed mutation along with the node it left.
type changeResponse struct {
	Change *event.Change `json:"change"`
	Node   *nodeView     `json:"node,omitempty"`
}

// GET /v1/nodes
func (h *Handler) listNodes(w http.ResponseWriter, r *http.Request) {
	nodes := h.eng.Nodes()
	out := make([]nodeView, 0, len(nodes))
	for _, n := range nodes {
		v, err := toView(n)
		if err != nil {
			writeTreeError(w, err)
			return
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version": h.eng.Snapshot().Version,
		"nodes":   out,
	})
}

// GET /v1/nodes/{id}
func (h *Handler) getNode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	n, err := h.eng.Node(id)
	if err != nil {
		writeTreeError(w, err)
		return
	}
	v, err := toView(n)
	if err != nil {
		writeTreeError(w, err)
		return
	}
	v.Trail = h.eng.Trail(id)
	writeJSON(w, http.StatusOK, v)
}

// GET /v1/nodes/{id}/parent-choices
func (h *Handler) parentChoices(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.eng.Node(id); err != nil {
		writeTreeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"choices": h.eng.ParentChoices(id)})
}

// POST /v1/nodes
func (h *Handler) createNode(w http.ResponseWriter, r *http.Request) {
	var body createBody
	if !decodeBody(w, r, &body) {
		return
	}
	content, err := contentBody{Kind: body.Kind, Content: body.Content}.decode()
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Kind: "invalid"})
		return
	}
	change, err := h.eng.CreateNode(r.Context(), engine.Draft{
		Name:         body.Name,
		ParentID:     body.ParentID,
		Visible:      body.Visible,
		SiblingOrder: body.SiblingOrder,
		Content:      content,
	})
	h.respond(w, change, err, http.StatusCreated)
}

// PUT /v1/nodes/{id}/parent  {"parent_id": 3}
func (h *Handler) updateParent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		ParentID tree.ID `json:"parent_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	change, err := h.eng.UpdateParent(r.Context(), id, body.ParentID)
	h.respond(w, change, err, http.StatusOK)
}

// PUT /v1/nodes/{id}/visibility  {"visible": false}
func (h *Handler) setVisibility(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Visible *bool `json:"visible"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Visible == nil {
		writeError(w, http.StatusBadRequest, "visible is required")
		return
	}
	change, err := h.eng.SetVisibility(r.Context(), id, *body.Visible)
	h.respond(w, change, err, http.StatusOK)
}

// PUT /v1/nodes/{id}/order  {"sibling_order": 999}
func (h *Handler) setSiblingOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		SiblingOrder int `json:"sibling_order"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	change, err := h.eng.SetSiblingOrder(r.Context(), id, body.SiblingOrder)
	h.respond(w, change, err, http.StatusOK)
}

// PUT /v1/nodes/{id}/name  {"name": "citrus"}
func (h *Handler) rename(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	change, err := h.eng.Rename(r.Context(), id, body.Name)
	h.respond(w, change, err, http.StatusOK)
}

// PUT /v1/nodes/{id}/content  {"kind": "page", "content": {...}}
func (h *Handler) updateContent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body contentBody
	if !decodeBody(w, r, &body) {
		return
	}
	content, err := body.decode()
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Kind: "invalid"})
		return
	}
	change, err := h.eng.UpdateContent(r.Context(), id, content)
	h.respond(w, change, err, http.StatusOK)
}

// DELETE /v1/nodes/{id}
func (h *Handler) deleteNode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	change, err := h.eng.DeleteNode(r.Context(), id)
	if err != nil {
		writeTreeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changeResponse{Change: change})
}

// respond writes the change and the node as it stands in the new snapshot.
func (h *Handler) respond(w http.ResponseWriter, change *event.Change, err error, status int) {
	if err != nil {
		writeTreeError(w, err)
		return
	}
	resp := changeResponse{Change: change}
	if n, err := h.eng.Node(tree.ID(change.NodeID)); err == nil {
		if v, err := toView(n); err == nil {
			resp.Node = &v
		}
	}
	writeJSON(w, status, resp)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
