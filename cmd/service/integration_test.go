//go:build integration

// cmd/service/integration_test.go
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"codehost-api/internal/api"
	"codehost-api/internal/config"
	"codehost-api/internal/store"
)

func setupPostgresStore(ctx context.Context, t *testing.T) (store.Store, func()) {
	// Start a postgres container
	pgContainer, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("test-db"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)

	// Get the connection string
	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Open the store and run migrations the same way the service does
	st, err := openStore(ctx, &config.Config{StoreDriver: config.DriverPostgres, DBURL: connStr})
	require.NoError(t, err)

	// Teardown function to be called by the test
	teardown := func() {
		_ = st.Close(ctx)
		require.NoError(t, pgContainer.Terminate(ctx))
	}
	return st, teardown
}

func setupMongoStore(ctx context.Context, t *testing.T) (store.Store, func()) {
	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	st, err := openStore(ctx, &config.Config{StoreDriver: config.DriverMongo, MongoURI: uri, MongoDatabase: "test-db"})
	require.NoError(t, err)

	teardown := func() {
		_ = st.Close(ctx)
		require.NoError(t, mongoContainer.Terminate(ctx))
	}
	return st, teardown
}

func TestServices_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	backends := map[string]func(context.Context, *testing.T) (store.Store, func()){
		"postgres": setupPostgresStore,
		"mongo":    setupMongoStore,
	}

	for name, setup := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st, teardown := setup(ctx, t)
			defer teardown()

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
			router, err := api.NewRouter(st, logger, api.Options{RequestTimeout: 10 * time.Second}, api.AllServices)
			require.NoError(t, err)

			runScenarios(t, router)
		})
	}
}

type client struct {
	t      *testing.T
	router http.Handler
}

func (c client) do(method, path, body string) (int, any) {
	c.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	var out any
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func (c client) object(method, path, body string) (int, map[string]any) {
	c.t.Helper()
	code, out := c.do(method, path, body)
	obj, _ := out.(map[string]any)
	return code, obj
}

func runScenarios(t *testing.T, router http.Handler) {
	c := client{t: t, router: router}

	t.Run("repository lifecycle", func(t *testing.T) {
		code, _ := c.object(http.MethodPost, "/repositories", `{"repoId":"r1","name":"demo"}`)
		require.Equal(t, http.StatusCreated, code)

		code, repo := c.object(http.MethodGet, "/repositories/r1", "")
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "r1", repo["repoId"])
		assert.Equal(t, "demo", repo["name"])
		assert.NotEmpty(t, repo["createdAt"])

		code, body := c.object(http.MethodPatch, "/repositories/r1", `{"name":"renamed"}`)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "1 repository updated", body["message"])

		code, _ = c.object(http.MethodDelete, "/repositories/r1", "")
		assert.Equal(t, http.StatusOK, code)

		code, _ = c.object(http.MethodGet, "/repositories/r1", "")
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("repository without repoId performs no write", func(t *testing.T) {
		code, _ := c.object(http.MethodPost, "/repositories", `{"name":"orphan"}`)
		assert.Equal(t, http.StatusBadRequest, code)

		code, list := c.do(http.MethodGet, "/repositories", "")
		assert.Equal(t, http.StatusOK, code)
		assert.Empty(t, list)
	})

	t.Run("commits by repository and missing delete", func(t *testing.T) {
		for _, id := range []string{"c1", "c2"} {
			code, _ := c.object(http.MethodPost, "/commits", `{"commitId":"`+id+`","repoId":"r9","userId":"u1","message":"msg"}`)
			require.Equal(t, http.StatusCreated, code)
		}

		code, list := c.do(http.MethodGet, "/repositories/r9/commits", "")
		require.Equal(t, http.StatusOK, code)
		commits := list.([]any)
		require.Len(t, commits, 2)
		assert.Equal(t, "c1", commits[0].(map[string]any)["commitId"])
		assert.Equal(t, "c2", commits[1].(map[string]any)["commitId"])

		code, _ = c.object(http.MethodDelete, "/commits/nope", "")
		assert.Equal(t, http.StatusNotFound, code)

		_, list = c.do(http.MethodGet, "/commits", "")
		assert.Len(t, list, 2)
	})

	t.Run("issue updates and comments", func(t *testing.T) {
		code, _ := c.object(http.MethodPost, "/issues", `{"issueId":"i1","repoId":"r9","status":"open"}`)
		require.Equal(t, http.StatusCreated, code)

		code, body := c.object(http.MethodPatch, "/issues/i1", `{"status":"open"}`)
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "Issue found but no changes made", body["message"])

		code, body = c.object(http.MethodPatch, "/issues/missing", `{"status":"open"}`)
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "Issue not found", body["message"])

		code, _ = c.object(http.MethodPost, "/issues/i1/comments", `{"userId":"u1","comment":"first"}`)
		require.Equal(t, http.StatusOK, code)
		code, _ = c.object(http.MethodPost, "/issues/i1/comments", `{"userId":"u2","comment":"second"}`)
		require.Equal(t, http.StatusOK, code)

		code, issue := c.object(http.MethodGet, "/issues/i1", "")
		require.Equal(t, http.StatusOK, code)
		comments := issue["comments"].([]any)
		require.Len(t, comments, 2)
		assert.Equal(t, "first", comments[0].(map[string]any)["comment"])
		assert.Equal(t, "second", comments[1].(map[string]any)["comment"])
		assert.NotEmpty(t, comments[0].(map[string]any)["createdAt"])

		code, _ = c.object(http.MethodPost, "/issues/missing/comments", `{"userId":"u1","comment":"x"}`)
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("comments cannot be appended to a non-array value", func(t *testing.T) {
		code, _ := c.object(http.MethodPost, "/issues", `{"issueId":"i2","repoId":"r9","comments":null}`)
		require.Equal(t, http.StatusCreated, code)

		code, body := c.object(http.MethodPost, "/issues/i2/comments", `{"userId":"u1","comment":"x"}`)
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.NotEmpty(t, body["error"])

		_, issue := c.object(http.MethodGet, "/issues/i2", "")
		assert.Nil(t, issue["comments"])
	})

	t.Run("pull requests are addressed by their generated id", func(t *testing.T) {
		code, body := c.object(http.MethodPost, "/pull-requests", `{"repoId":"r9","title":"feature"}`)
		require.Equal(t, http.StatusCreated, code)
		prID := body["prId"].(string)

		code, pr := c.object(http.MethodGet, "/pull-requests/"+prID, "")
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, prID, pr["prId"])

		_, list := c.do(http.MethodGet, "/repositories/r9/pull-requests", "")
		assert.Len(t, list, 1)

		code, _ = c.object(http.MethodDelete, "/pull-requests/bogus", "")
		assert.Equal(t, http.StatusBadRequest, code)

		code, _ = c.object(http.MethodDelete, "/pull-requests/"+prID, "")
		assert.Equal(t, http.StatusOK, code)
		code, _ = c.object(http.MethodDelete, "/pull-requests/"+prID, "")
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("users", func(t *testing.T) {
		code, body := c.object(http.MethodPost, "/users", `{"username":"octo"}`)
		require.Equal(t, http.StatusCreated, code)
		id := body["id"].(string)

		code, _ = c.object(http.MethodGet, "/users/not-an-id", "")
		assert.Equal(t, http.StatusBadRequest, code)

		code, _ = c.object(http.MethodPatch, "/users/"+id, `{"email":"octo@example.com"}`)
		assert.Equal(t, http.StatusOK, code)

		code, user := c.object(http.MethodGet, "/users/"+id, "")
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, id, user["_id"])
		assert.Equal(t, "octo@example.com", user["email"])

		code, _ = c.object(http.MethodDelete, "/users/"+id, "")
		assert.Equal(t, http.StatusOK, code)
		code, _ = c.object(http.MethodGet, "/users/"+id, "")
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("forks and stars", func(t *testing.T) {
		code, _ := c.object(http.MethodPost, "/forks", `{"repoId":"r9","userId":"u1"}`)
		assert.Equal(t, http.StatusCreated, code)
		code, body := c.object(http.MethodPost, "/stars", `{"repoId":"r9","userId":"u1"}`)
		require.Equal(t, http.StatusCreated, code)

		_, list := c.do(http.MethodGet, "/repositories/r9/stars", "")
		assert.Len(t, list, 1)

		code, _ = c.object(http.MethodDelete, "/stars/"+body["id"].(string), "")
		assert.Equal(t, http.StatusOK, code)
	})
}
