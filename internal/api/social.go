// internal/api/social.go
package api

import (
	"net/http"

	"codehost-api/internal/model"
)

func forkRoutes(h *Handler) []Route {
	byID := byStoreID("id")
	return []Route{
		{http.MethodGet, "/forks", h.list(matchAll)},
		{http.MethodGet, "/forks/{id}", h.get(byID, "Fork")},
		{http.MethodGet, "/repositories/{repoId}/forks", h.list(byField(model.FieldRepoID, "repoId"))},
		{http.MethodPost, "/forks", h.createFork},
		{http.MethodDelete, "/forks/{id}", h.remove(byID, "Fork")},
	}
}

func starRoutes(h *Handler) []Route {
	return []Route{
		{http.MethodGet, "/stars", h.list(matchAll)},
		{http.MethodGet, "/repositories/{repoId}/stars", h.list(byField(model.FieldRepoID, "repoId"))},
		{http.MethodPost, "/stars", h.createStar},
		{http.MethodDelete, "/stars/{id}", h.remove(byStoreID("id"), "Star")},
	}
}

// createFork handles POST /forks. The payload is stored as given.
func (h *Handler) createFork(w http.ResponseWriter, r *http.Request) {
	var in model.ForkInput
	doc, err := h.decodeBody(w, r, &in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, ok := h.insert(w, r, doc)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]any{
		"message": "Fork created successfully",
		"id":      id,
	})
}

// createStar handles POST /stars. The payload is stored as given.
func (h *Handler) createStar(w http.ResponseWriter, r *http.Request) {
	var in model.StarInput
	doc, err := h.decodeBody(w, r, &in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, ok := h.insert(w, r, doc)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]any{
		"message": "Repository starred successfully",
		"id":      id,
	})
}
