// internal/api/collection.go
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	custom_errors "codehost-api/internal/errors"
	"codehost-api/internal/store"
)

// filterFunc derives the exact-match filter of a request from its path.
type filterFunc func(r *http.Request) (store.Filter, error)

// matchAll selects the entire collection.
func matchAll(*http.Request) (store.Filter, error) {
	return store.Filter{}, nil
}

// byField matches documents whose field equals the path parameter. Domain identifiers
// are never format-validated.
func byField(field, param string) filterFunc {
	return func(r *http.Request) (store.Filter, error) {
		return store.Filter{field: urlParam(r, param)}, nil
	}
}

// byStoreID matches the document whose store-generated identifier is the path parameter.
// A malformed identifier is rejected before the store is touched.
func byStoreID(param string) filterFunc {
	return func(r *http.Request) (store.Filter, error) {
		id, err := store.ParseID(urlParam(r, param))
		if err != nil {
			return nil, err
		}
		return store.IDFilter(id), nil
	}
}

func (h *Handler) list(filter filterFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := filter(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		docs, err := h.coll.Find(r.Context(), f)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, docs)
	}
}

func (h *Handler) get(filter filterFunc, entity string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := filter(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		doc, err := h.coll.FindOne(r.Context(), f)
		if errors.Is(err, store.ErrNotFound) {
			respondWithMessage(w, http.StatusNotFound, entity+" not found")
			return
		}
		if err != nil {
			h.fail(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, doc)
	}
}

// update applies a merge-style update. A match whose values are already equal is still
// reported as 404, with a message telling it apart from a missing document.
func (h *Handler) update(filter filterFunc, entity string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := filter(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		set, err := h.decodeBody(w, r, nil)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if len(set) == 0 {
			h.fail(w, r, &custom_errors.ErrInvalidBody{Reason: "no fields to update"})
			return
		}

		res, err := h.coll.UpdateOne(r.Context(), f, set)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		switch {
		case res.Matched == 0:
			respondWithMessage(w, http.StatusNotFound, entity+" not found")
		case res.Modified == 0:
			respondWithMessage(w, http.StatusNotFound, entity+" found but no changes made")
		default:
			respondWithJSON(w, http.StatusOK, map[string]any{
				"message":  fmt.Sprintf("%d %s updated", res.Modified, strings.ToLower(entity)),
				"modified": res.Modified,
			})
		}
	}
}

func (h *Handler) remove(filter filterFunc, entity string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := filter(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		n, err := h.coll.DeleteOne(r.Context(), f)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if n == 0 {
			respondWithMessage(w, http.StatusNotFound, entity+" not found")
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]any{
			"message": fmt.Sprintf("%d %s deleted", n, strings.ToLower(entity)),
			"deleted": n,
		})
	}
}

// insert stores doc and reports the assigned identifier.
func (h *Handler) insert(w http.ResponseWriter, r *http.Request, doc store.Document) (string, bool) {
	id, err := h.coll.InsertOne(r.Context(), doc)
	if err != nil {
		h.fail(w, r, err)
		return "", false
	}
	return id, true
}
