// internal/api/handler.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	custom_errors "codehost-api/internal/errors"
	"codehost-api/internal/model"
	"codehost-api/internal/store"
)

// AllServices selects every registered service.
const AllServices = "all"

// Options tunes the router's middleware.
type Options struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	AllowedOrigins []string
}

// Route binds one method and path pattern to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Service is one independently deployable resource service bound to a single collection.
type Service struct {
	Name       string
	Collection string
	Routes     func(h *Handler) []Route
}

// Handler is the container for one service's dependencies.
type Handler struct {
	coll         store.Collection
	logger       *slog.Logger
	maxBodyBytes int64
	now          func() time.Time
}

func newHandler(coll store.Collection, logger *slog.Logger, maxBodyBytes int64) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	return &Handler{
		coll:         coll,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
		now:          time.Now,
	}
}

// Services returns the routing table of every service, in registration order.
func Services() []Service {
	return []Service{
		{Name: "repositories", Collection: model.Repositories, Routes: repositoryRoutes},
		{Name: "commits", Collection: model.Commits, Routes: commitRoutes},
		{Name: "issues", Collection: model.Issues, Routes: issueRoutes},
		{Name: "pull-requests", Collection: model.PullRequests, Routes: pullRequestRoutes},
		{Name: "forks", Collection: model.Forks, Routes: forkRoutes},
		{Name: "stars", Collection: model.Stars, Routes: starRoutes},
		{Name: "users", Collection: model.Users, Routes: userRoutes},
	}
}

// LookupServices resolves service names, expanding "all" to every service.
func LookupServices(names []string) ([]Service, error) {
	all := Services()
	if len(names) == 0 {
		return all, nil
	}

	byName := make(map[string]Service, len(all))
	for _, svc := range all {
		byName[svc.Name] = svc
	}

	var selected []Service
	seen := make(map[string]bool)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == AllServices {
			return all, nil
		}
		svc, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown service %q", name)
		}
		if !seen[name] {
			seen[name] = true
			selected = append(selected, svc)
		}
	}
	return selected, nil
}

// NewRouter creates a chi router serving the named services over st.
// Every route is bound to its handler here, before the listener starts.
func NewRouter(st store.Store, logger *slog.Logger, opts Options, names ...string) (http.Handler, error) {
	selected, err := LookupServices(names)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger) // Chi's default logger
	r.Use(recoverer(logger))
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", healthCheck(st))

	for _, svc := range selected {
		h := newHandler(st.Collection(svc.Collection), logger.With("service", svc.Name), opts.MaxBodyBytes)
		for _, route := range svc.Routes(h) {
			r.Method(route.Method, route.Pattern, route.Handler)
		}
		logger.Info("Service routes registered", "service", svc.Name, "collection", svc.Collection)
	}

	return r, nil
}

// healthCheck reports whether the document store is reachable.
func healthCheck(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// fail maps err to a client error (400) or an unexpected failure (500).
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidID    *custom_errors.ErrInvalidID
		missingField *custom_errors.ErrMissingField
		invalidBody  *custom_errors.ErrInvalidBody
	)
	switch {
	case errors.As(err, &invalidID):
		respondWithError(w, http.StatusBadRequest, "Invalid ObjectId format")
	case errors.As(err, &missingField), errors.As(err, &invalidBody):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}

// urlParam returns the decoded value of a path parameter, so identifiers may contain '/'.
// chi matches on RawPath when it is set and on the already decoded Path otherwise.
func urlParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, map[string]string{"error": message})
}

func respondWithMessage(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, map[string]any{"message": message})
}
