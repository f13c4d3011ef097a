// internal/store/store.go
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	custom_errors "codehost-api/internal/errors"
)

// IDField is the reserved document key holding the store-generated identifier.
const IDField = "_id"

// ErrNotFound is returned by FindOne when no document matches the filter.
var ErrNotFound = errors.New("document not found")

// Document is a schema-flexible record.
type Document map[string]any

// Filter is an exact-equality match on top-level document fields.
// An empty filter matches the entire collection.
type Filter map[string]any

// UpdateResult reports how many documents an update matched and how many it changed.
// Matched > 0 with Modified == 0 means the new values equal the stored ones.
type UpdateResult struct {
	Matched  int64
	Modified int64
}

// Collection is the set of single-call operations every backend provides for one
// named collection. UpdateOne, PushOne and DeleteOne affect at most the first match.
type Collection interface {
	Find(ctx context.Context, filter Filter) ([]Document, error)
	FindOne(ctx context.Context, filter Filter) (Document, error)
	InsertOne(ctx context.Context, doc Document) (string, error)
	UpdateOne(ctx context.Context, filter Filter, set Document) (UpdateResult, error)
	PushOne(ctx context.Context, filter Filter, field string, elem any) (UpdateResult, error)
	DeleteOne(ctx context.Context, filter Filter) (int64, error)
}

// Store hands out collection handles over one shared connection.
type Store interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// NewID generates a fresh store identifier.
func NewID() primitive.ObjectID {
	return primitive.NewObjectID()
}

// ParseID validates that s is a well-formed store identifier.
func ParseID(s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, &custom_errors.ErrInvalidID{Value: s}
	}
	return id, nil
}

// IDFilter matches the document with the given store identifier.
func IDFilter(id primitive.ObjectID) Filter {
	return Filter{IDField: id}
}
