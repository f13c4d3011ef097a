// internal/api/repositories.go
package api

import (
	"net/http"

	custom_errors "codehost-api/internal/errors"
	"codehost-api/internal/model"
)

func repositoryRoutes(h *Handler) []Route {
	byRepoID := byField(model.FieldRepoID, "repoId")
	return []Route{
		{http.MethodGet, "/repositories", h.list(matchAll)},
		{http.MethodGet, "/repositories/{repoId}", h.get(byRepoID, "Repository")},
		{http.MethodPost, "/repositories", h.createRepository},
		{http.MethodPatch, "/repositories/{repoId}", h.update(byRepoID, "Repository")},
		{http.MethodDelete, "/repositories/{repoId}", h.remove(byRepoID, "Repository")},
	}
}

// createRepository handles POST /repositories. repoId is the only required field.
func (h *Handler) createRepository(w http.ResponseWriter, r *http.Request) {
	var in model.RepositoryInput
	doc, err := h.decodeBody(w, r, &in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if in.RepoID == "" {
		h.fail(w, r, &custom_errors.ErrMissingField{Field: model.FieldRepoID})
		return
	}
	doc[model.FieldCreatedAt] = h.now().UTC()

	id, ok := h.insert(w, r, doc)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]any{
		"message": "Repository created successfully",
		"id":      id,
	})
}
