// internal/api/decode.go
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	custom_errors "codehost-api/internal/errors"
	"codehost-api/internal/model"
	"codehost-api/internal/store"
)

// reservedFields are set by the server and may not appear in request bodies.
var reservedFields = map[string]bool{
	store.IDField:         true,
	model.FieldCreatedAt: true,
}

// decodeBody reads a single JSON object from the request body. When typed is non-nil the
// same bytes are also decoded into it, so named fields are type-checked at the boundary.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, typed any) (store.Document, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &custom_errors.ErrInvalidBody{Reason: fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit)}
		}
		return nil, err
	}
	return decodeDocument(raw, typed)
}

func decodeDocument(raw []byte, typed any) (store.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return nil, &custom_errors.ErrInvalidBody{Reason: "expected a JSON object"}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, &custom_errors.ErrInvalidBody{Reason: "unexpected data after JSON object"}
	}

	for key := range fields {
		if err := validateKey(key); err != nil {
			return nil, err
		}
	}

	if typed != nil {
		if err := json.Unmarshal(raw, typed); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				return nil, &custom_errors.ErrInvalidBody{Reason: fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type)}
			}
			return nil, &custom_errors.ErrInvalidBody{Reason: err.Error()}
		}
	}

	return store.Document(fields), nil
}

func validateKey(key string) error {
	switch {
	case key == "":
		return &custom_errors.ErrInvalidBody{Reason: "empty field name"}
	case strings.HasPrefix(key, "$"), strings.Contains(key, "."):
		return &custom_errors.ErrInvalidBody{Reason: fmt.Sprintf("field name %q is not allowed", key)}
	case reservedFields[key]:
		return &custom_errors.ErrInvalidBody{Reason: fmt.Sprintf("%s is set by the server", key)}
	}
	return nil
}
