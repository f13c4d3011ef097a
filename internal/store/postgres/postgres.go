// internal/store/postgres/postgres.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"codehost-api/internal/store"
)

// DBTX is the subset of pgxpool.Pool and pgx.Tx used by Collection.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a store.Store keeping each collection in a JSONB table.
type Store struct {
	pool *pgxpool.Pool
}

// Open creates a connection pool and verifies it with a ping.
func Open(ctx context.Context, dbURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Collection returns a handle to the table backing the named collection.
func (s *Store) Collection(name string) store.Collection {
	return NewCollection(s.pool, name)
}

// Ping checks that a pooled connection is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close(_ context.Context) error {
	s.pool.Close()
	return nil
}

// Collection implements store.Collection over one table. Every operation is a single statement.
type Collection struct {
	db    DBTX
	table string
}

// NewCollection binds a collection name to its table on db.
func NewCollection(db DBTX, name string) *Collection {
	return &Collection{
		db:    db,
		table: pgx.Identifier{TableName(name)}.Sanitize(),
	}
}

// TableName maps a camelCase collection name to its snake_case table.
func TableName(collection string) string {
	var b strings.Builder
	for i, r := range collection {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Find returns every matching document in insertion order.
func (c *Collection) Find(ctx context.Context, filter store.Filter) ([]store.Document, error) {
	where, args, err := buildWhere(filter, nil)
	if err != nil {
		return nil, err
	}
	rows, err := c.db.Query(ctx, fmt.Sprintf("SELECT id, doc FROM %s WHERE %s ORDER BY seq", c.table, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]store.Document, 0)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		doc, err := decodeDocument(id, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// FindOne returns the earliest inserted match or store.ErrNotFound.
func (c *Collection) FindOne(ctx context.Context, filter store.Filter) (store.Document, error) {
	where, args, err := buildWhere(filter, nil)
	if err != nil {
		return nil, err
	}
	var (
		id  string
		raw []byte
	)
	err = c.db.QueryRow(ctx, fmt.Sprintf("SELECT id, doc FROM %s WHERE %s ORDER BY seq LIMIT 1", c.table, where), args...).Scan(&id, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeDocument(id, raw)
}

// InsertOne stores doc under its _id, or under a new ObjectId hex string when it has none.
func (c *Collection) InsertOne(ctx context.Context, doc store.Document) (string, error) {
	id := store.NewID().Hex()
	body := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == store.IDField {
			id = idString(v)
			continue
		}
		body[k] = v
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	if _, err := c.db.Exec(ctx, fmt.Sprintf("INSERT INTO %s (id, doc) VALUES ($1, $2::jsonb)", c.table), id, string(b)); err != nil {
		return "", err
	}
	return id, nil
}

// UpdateOne merges set into the top level of the earliest inserted match.
func (c *Collection) UpdateOne(ctx context.Context, filter store.Filter, set store.Document) (store.UpdateResult, error) {
	where, args, err := buildWhere(filter, nil)
	if err != nil {
		return store.UpdateResult{}, err
	}
	patch := make(map[string]any, len(set))
	for k, v := range set {
		if k != store.IDField {
			patch[k] = v
		}
	}
	b, err := json.Marshal(patch)
	if err != nil {
		return store.UpdateResult{}, err
	}
	args = append(args, string(b))
	p := len(args)

	// A row only counts as modified when the merge actually changes it.
	query := fmt.Sprintf(`WITH target AS (
	SELECT id FROM %[1]s WHERE %[2]s ORDER BY seq LIMIT 1
), updated AS (
	UPDATE %[1]s t SET doc = t.doc || $%[3]d::jsonb
	FROM target
	WHERE t.id = target.id AND t.doc || $%[3]d::jsonb <> t.doc
	RETURNING t.id
)
SELECT (SELECT count(*) FROM target), (SELECT count(*) FROM updated)`, c.table, where, p)

	var res store.UpdateResult
	if err := c.db.QueryRow(ctx, query, args...).Scan(&res.Matched, &res.Modified); err != nil {
		return store.UpdateResult{}, err
	}
	return res, nil
}

// PushOne appends elem to the array field of the earliest inserted match, creating the
// array when the field is absent. A field holding any other value is an error.
func (c *Collection) PushOne(ctx context.Context, filter store.Filter, field string, elem any) (store.UpdateResult, error) {
	where, args, err := buildWhere(filter, nil)
	if err != nil {
		return store.UpdateResult{}, err
	}
	b, err := json.Marshal(elem)
	if err != nil {
		return store.UpdateResult{}, err
	}
	args = append(args, field, string(b))
	fp, ep := len(args)-1, len(args)

	query := fmt.Sprintf(`WITH target AS (
	SELECT id FROM %[1]s WHERE %[2]s ORDER BY seq LIMIT 1
), updated AS (
	UPDATE %[1]s t
	SET doc = jsonb_set(t.doc, ARRAY[$%[3]d::text], COALESCE(t.doc -> $%[3]d::text, '[]'::jsonb) || jsonb_build_array($%[4]d::jsonb))
	FROM target
	WHERE t.id = target.id
		AND (t.doc -> $%[3]d::text IS NULL OR jsonb_typeof(t.doc -> $%[3]d::text) = 'array')
	RETURNING t.id
)
SELECT (SELECT count(*) FROM target), (SELECT count(*) FROM updated)`, c.table, where, fp, ep)

	var res store.UpdateResult
	if err := c.db.QueryRow(ctx, query, args...).Scan(&res.Matched, &res.Modified); err != nil {
		return store.UpdateResult{}, err
	}
	if res.Matched > 0 && res.Modified == 0 {
		return res, fmt.Errorf("cannot push to %q: existing value is not an array", field)
	}
	return res, nil
}

// DeleteOne removes the earliest inserted match.
func (c *Collection) DeleteOne(ctx context.Context, filter store.Filter) (int64, error) {
	where, args, err := buildWhere(filter, nil)
	if err != nil {
		return 0, err
	}
	tag, err := c.db.Exec(ctx, fmt.Sprintf("DELETE FROM %[1]s WHERE id = (SELECT id FROM %[1]s WHERE %[2]s ORDER BY seq LIMIT 1)", c.table, where), args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// buildWhere turns an exact-match filter into a SQL condition, appending its parameters to args.
// The identifier key matches the id column; the remaining keys match via jsonb containment.
func buildWhere(filter store.Filter, args []any) (string, []any, error) {
	var conds []string
	rest := make(map[string]any, len(filter))
	for k, v := range filter {
		if k == store.IDField {
			args = append(args, idString(v))
			conds = append(conds, fmt.Sprintf("id = $%d", len(args)))
			continue
		}
		rest[k] = v
	}
	if len(rest) > 0 {
		b, err := json.Marshal(rest)
		if err != nil {
			return "", nil, err
		}
		args = append(args, string(b))
		conds = append(conds, fmt.Sprintf("doc @> $%d::jsonb", len(args)))
	}
	if len(conds) == 0 {
		return "TRUE", args, nil
	}
	return strings.Join(conds, " AND "), args, nil
}

func idString(v any) string {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case string:
		return t
	default:
		return fmt.Sprint(v)
	}
}

func decodeDocument(id string, raw []byte) (store.Document, error) {
	doc := store.Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	doc[store.IDField] = id
	return doc, nil
}
