// internal/api/pullrequests.go
package api

import (
	"net/http"

	"codehost-api/internal/model"
	"codehost-api/internal/store"
)

// Pull requests are addressed by their store-generated identifier. The same value is
// written to the prId field so documents carry the identifier clients were given.
func pullRequestRoutes(h *Handler) []Route {
	byPRID := byStoreID("prId")
	return []Route{
		{http.MethodGet, "/pull-requests", h.list(matchAll)},
		{http.MethodGet, "/pull-requests/{prId}", h.get(byPRID, "Pull request")},
		{http.MethodGet, "/repositories/{repoId}/pull-requests", h.list(byField(model.FieldRepoID, "repoId"))},
		{http.MethodPost, "/pull-requests", h.createPullRequest},
		{http.MethodPatch, "/pull-requests/{prId}", h.update(byPRID, "Pull request")},
		{http.MethodDelete, "/pull-requests/{prId}", h.remove(byPRID, "Pull request")},
	}
}

// createPullRequest handles POST /pull-requests.
func (h *Handler) createPullRequest(w http.ResponseWriter, r *http.Request) {
	var in model.PullRequestInput
	doc, err := h.decodeBody(w, r, &in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	id := store.NewID()
	doc[store.IDField] = id
	doc[model.FieldPRID] = id.Hex()
	doc[model.FieldCreatedAt] = h.now().UTC()

	prID, ok := h.insert(w, r, doc)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]any{
		"message": "Pull request created successfully",
		"prId":    prID,
	})
}
