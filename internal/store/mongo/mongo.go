// internal/store/mongo/mongo.go
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"codehost-api/internal/store"
)

// Store is a store.Store backed by one MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to MongoDB and verifies the connection with a ping.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

// Collection returns a handle to the named collection.
func (s *Store) Collection(name string) store.Collection {
	return &Collection{coll: s.db.Collection(name)}
}

// Ping checks that the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates non-unique ascending indexes on the given fields of each collection.
// Domain identifiers stay non-unique so duplicate keys behave as they always have.
func (s *Store) EnsureIndexes(ctx context.Context, fields map[string][]string) error {
	for name, keys := range fields {
		models := make([]mongo.IndexModel, 0, len(keys))
		for _, key := range keys {
			models = append(models, mongo.IndexModel{Keys: bson.D{{Key: key, Value: 1}}})
		}
		if len(models) == 0 {
			continue
		}
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// Collection implements store.Collection with one driver call per operation.
type Collection struct {
	coll *mongo.Collection
}

// Find returns every matching document in natural order.
func (c *Collection) Find(ctx context.Context, filter store.Filter) ([]store.Document, error) {
	cursor, err := c.coll.Find(ctx, toFilter(filter))
	if err != nil {
		return nil, err
	}
	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, err
	}
	docs := make([]store.Document, 0, len(raw))
	for _, m := range raw {
		docs = append(docs, toDocument(m))
	}
	return docs, nil
}

// FindOne returns the first match or store.ErrNotFound.
func (c *Collection) FindOne(ctx context.Context, filter store.Filter) (store.Document, error) {
	var raw bson.M
	err := c.coll.FindOne(ctx, toFilter(filter)).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toDocument(raw), nil
}

// InsertOne stores doc and returns its identifier as a hex string when it is an ObjectId.
func (c *Collection) InsertOne(ctx context.Context, doc store.Document) (string, error) {
	res, err := c.coll.InsertOne(ctx, bson.M(doc))
	if err != nil {
		return "", err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprint(res.InsertedID), nil
}

// UpdateOne merges set into the first match with $set.
func (c *Collection) UpdateOne(ctx context.Context, filter store.Filter, set store.Document) (store.UpdateResult, error) {
	res, err := c.coll.UpdateOne(ctx, toFilter(filter), bson.M{"$set": bson.M(set)})
	if err != nil {
		return store.UpdateResult{}, err
	}
	return store.UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}, nil
}

// PushOne appends elem to the array field of the first match. The driver rejects a
// field that holds a non-array value.
func (c *Collection) PushOne(ctx context.Context, filter store.Filter, field string, elem any) (store.UpdateResult, error) {
	if d, ok := elem.(store.Document); ok {
		elem = bson.M(d)
	}
	res, err := c.coll.UpdateOne(ctx, toFilter(filter), bson.M{"$push": bson.M{field: elem}})
	if err != nil {
		return store.UpdateResult{}, err
	}
	return store.UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}, nil
}

// DeleteOne removes the first match and reports how many documents were deleted.
func (c *Collection) DeleteOne(ctx context.Context, filter store.Filter) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, toFilter(filter))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// toFilter never returns a nil map; the driver rejects a null filter document.
func toFilter(f store.Filter) bson.M {
	if f == nil {
		return bson.M{}
	}
	return bson.M(f)
}

func toDocument(m bson.M) store.Document {
	doc := make(store.Document, len(m))
	for k, v := range m {
		doc[k] = normalize(v)
	}
	return doc
}

// normalize converts driver-specific values into plain JSON-encodable ones.
func normalize(v any) any {
	switch t := v.(type) {
	case bson.M:
		return map[string]any(toDocument(t))
	case map[string]any:
		return map[string]any(toDocument(bson.M(t)))
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case []any:
		return normalize(bson.A(t))
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.ObjectID:
		return t.Hex()
	case primitive.Decimal128:
		return t.String()
	default:
		return v
	}
}
