// internal/api/users.go
package api

import (
	"fmt"
	"net/http"

	"codehost-api/internal/model"
)

func userRoutes(h *Handler) []Route {
	byID := byStoreID("id")
	return []Route{
		{http.MethodGet, "/users", h.list(matchAll)},
		{http.MethodGet, "/users/{id}", h.get(byID, "User")},
		{http.MethodPost, "/users", h.createUser},
		{http.MethodPatch, "/users/{id}", h.update(byID, "User")},
		{http.MethodDelete, "/users/{id}", h.remove(byID, "User")},
	}
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var in model.UserInput
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
		"message": fmt.Sprintf("User added with ID: %s", id),
		"id":      id,
	})
}
