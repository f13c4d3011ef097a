// internal/api/issues.go
package api

import (
	"net/http"

	"codehost-api/internal/model"
	"codehost-api/internal/store"
)

func issueRoutes(h *Handler) []Route {
	byIssueID := byField(model.FieldIssueID, "issueId")
	return []Route{
		{http.MethodGet, "/issues", h.list(matchAll)},
		{http.MethodGet, "/issues/{issueId}", h.get(byIssueID, "Issue")},
		{http.MethodGet, "/repositories/{repoId}/issues", h.list(byField(model.FieldRepoID, "repoId"))},
		{http.MethodPost, "/issues", h.createIssue},
		{http.MethodPatch, "/issues/{issueId}", h.update(byIssueID, "Issue")},
		{http.MethodDelete, "/issues/{issueId}", h.remove(byIssueID, "Issue")},
		{http.MethodPost, "/issues/{issueId}/comments", h.addComment},
	}
}

// createIssue handles POST /issues. The comments sequence starts empty unless supplied.
func (h *Handler) createIssue(w http.ResponseWriter, r *http.Request) {
	var in model.IssueInput
	doc, err := h.decodeBody(w, r, &in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if _, ok := doc[model.FieldComments]; !ok {
		doc[model.FieldComments] = []any{}
	}
	doc[model.FieldCreatedAt] = h.now().UTC()

	id, ok := h.insert(w, r, doc)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]any{
		"message": "Issue created successfully",
		"id":      id,
		"issueId": in.IssueID,
	})
}

// addComment handles POST /issues/{issueId}/comments, appending to the issue's comments.
func (h *Handler) addComment(w http.ResponseWriter, r *http.Request) {
	issueID := urlParam(r, "issueId")

	var in model.CommentInput
	if _, err := h.decodeBody(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	comment := model.Comment{
		UserID:    in.UserID,
		Comment:   in.Comment,
		CreatedAt: h.now().UTC(),
	}

	res, err := h.coll.PushOne(r.Context(), store.Filter{model.FieldIssueID: issueID}, model.FieldComments, commentDocument(comment))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if res.Modified == 0 {
		respondWithMessage(w, http.StatusNotFound, "Issue not found")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"message": "Comment added successfully",
		"comment": comment,
	})
}

func commentDocument(c model.Comment) store.Document {
	return store.Document{
		model.FieldUserID:    c.UserID,
		model.FieldComment:   c.Comment,
		model.FieldCreatedAt: c.CreatedAt,
	}
}
