// internal/api/commits.go
package api

import (
	"net/http"

	"codehost-api/internal/model"
	"codehost-api/internal/store"
)

func commitRoutes(h *Handler) []Route {
	byCommitID := byField(model.FieldCommitID, "commitId")
	return []Route{
		{http.MethodGet, "/commits", h.list(matchAll)},
		{http.MethodGet, "/commits/{commitId}", h.get(byCommitID, "Commit")},
		{http.MethodGet, "/repositories/{repoId}/commits", h.list(byField(model.FieldRepoID, "repoId"))},
		{http.MethodPost, "/commits", h.createCommit},
		{http.MethodDelete, "/commits/{commitId}", h.remove(byCommitID, "Commit")},
	}
}

// createCommit handles POST /commits. Only the named commit fields are stored.
func (h *Handler) createCommit(w http.ResponseWriter, r *http.Request) {
	var in model.CommitInput
	if _, err := h.decodeBody(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	commit := store.Document{
		model.FieldCommitID:  in.CommitID,
		model.FieldRepoID:    in.RepoID,
		model.FieldUserID:    in.UserID,
		model.FieldMessage:   in.Message,
		model.FieldCreatedAt: h.now().UTC(),
	}
	id, ok := h.insert(w, r, commit)
	if !ok {
		return
	}
	commit[store.IDField] = id

	respondWithJSON(w, http.StatusCreated, map[string]any{
		"message": "Commit created successfully",
		"commit":  commit,
	})
}
