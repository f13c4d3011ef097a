// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	custom_errors "codehost-api/internal/errors"
	"codehost-api/internal/model"
	"codehost-api/internal/store"
)

// RepoIdentifier holds the owner and name of a repository.
type RepoIdentifier struct {
	Owner string
	Name  string
}

func (id RepoIdentifier) String() string {
	return id.Owner + "/" + id.Name
}

// Fetcher reads repository data from GitHub.
type Fetcher interface {
	GetRepository(ctx context.Context, owner, name string) (*model.RemoteRepository, error)
	GetCommits(ctx context.Context, owner, name string, since time.Time) ([]model.RemoteCommit, error)
}

// Options tunes a Syncer.
type Options struct {
	Interval     time.Duration
	Concurrency  int
	DefaultSince time.Time
}

// Syncer seeds the repositories and commits collections from GitHub.
type Syncer struct {
	repos        store.Collection
	commits      store.Collection
	fetcher      Fetcher
	logger       *slog.Logger
	reposToSync  []RepoIdentifier
	syncInterval time.Duration
	concurrency  int
	defaultSince time.Time
	now          func() time.Time
}

// NewSyncer creates a new Syncer instance. Every repository must be in owner/name form.
func NewSyncer(st store.Store, fetcher Fetcher, logger *slog.Logger, repos []string, opts Options) (*Syncer, error) {
	parsedRepos, err := parseRepoIdentifiers(repos)
	if err != nil {
		return nil, err
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	return &Syncer{
		repos:        st.Collection(model.Repositories),
		commits:      st.Collection(model.Commits),
		fetcher:      fetcher,
		logger:       logger,
		reposToSync:  parsedRepos,
		syncInterval: opts.Interval,
		concurrency:  opts.Concurrency,
		defaultSince: opts.DefaultSince,
		now:          time.Now,
	}, nil
}

// Start syncs once, then again on every interval tick until ctx is done.
// With no interval it returns after the first pass.
func (s *Syncer) Start(ctx context.Context) error {
	s.logger.Info("Starting syncer", "interval", s.syncInterval.String(), "concurrency", s.concurrency)
	err := s.RunOnce(ctx)
	if s.syncInterval <= 0 {
		return err
	}

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = s.RunOnce(ctx)
		case <-ctx.Done():
			s.logger.Info("Syncer shutting down", "reason", ctx.Err())
			return nil
		}
	}
}

// RunOnce performs a synchronization pass for all configured repositories concurrently.
// Failures are logged per repository and returned joined.
func (s *Syncer) RunOnce(ctx context.Context) error {
	s.logger.Info("Starting new sync cycle", "repos", len(s.reposToSync))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	var (
		mu   sync.Mutex
		errs []error
	)
	for _, repoID := range s.reposToSync {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if err := s.SyncRepo(gctx, repoID); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("Failed to sync repository", "owner", repoID.Owner, "repo", repoID.Name, "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", repoID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		s.logger.Error("Sync cycle finished with errors", "failed", len(errs))
		return errors.Join(errs...)
	}
	s.logger.Info("Sync cycle finished")
	return nil
}

// SyncRepo stores the repository document and any commits not stored yet.
func (s *Syncer) SyncRepo(ctx context.Context, id RepoIdentifier) error {
	logger := s.logger.With("owner", id.Owner, "repo", id.Name)
	logger.Info("Syncing repository")

	ghRepo, err := s.fetcher.GetRepository(ctx, id.Owner, id.Name)
	if err != nil {
		return err
	}

	repoID, err := s.upsertRepository(ctx, ghRepo)
	if err != nil {
		return err
	}
	logger = logger.With("repo_id", repoID)

	known, since, err := s.existingCommits(ctx, repoID)
	if err != nil {
		return err
	}
	logger.Info("Fetching commits since", "timestamp", since.Format(time.RFC3339))

	commits, err := s.fetcher.GetCommits(ctx, id.Owner, id.Name, since)
	if err != nil {
		return err
	}

	inserted := 0
	for _, c := range commits {
		if known[c.SHA] {
			continue
		}
		if _, err := s.commits.InsertOne(ctx, s.commitDocument(repoID, c)); err != nil {
			return err
		}
		known[c.SHA] = true
		inserted++
	}

	if inserted == 0 {
		logger.Info("No new commits found")
		return nil
	}
	logger.Info("Successfully inserted commits", "count", inserted)
	return nil
}

// upsertRepository creates or updates the repository document keyed by owner/name.
func (s *Syncer) upsertRepository(ctx context.Context, repo *model.RemoteRepository) (string, error) {
	repoID := repo.FullName()
	filter := store.Filter{model.FieldRepoID: repoID}

	_, err := s.repos.FindOne(ctx, filter)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Info("Repository not found in store, creating new entry", "repo_id", repoID)
		doc := repositoryDocument(repo)
		doc[model.FieldRepoID] = repoID
		doc[model.FieldCreatedAt] = s.now().UTC()
		if _, err := s.repos.InsertOne(ctx, doc); err != nil {
			return "", err
		}
		return repoID, nil
	} else if err != nil {
		return "", err
	}

	s.logger.Info("Repository found in store, updating metadata", "repo_id", repoID)
	if _, err := s.repos.UpdateOne(ctx, filter, repositoryDocument(repo)); err != nil {
		return "", err
	}
	return repoID, nil
}

// existingCommits returns the stored commit IDs of a repository and the time to fetch from.
func (s *Syncer) existingCommits(ctx context.Context, repoID string) (map[string]bool, time.Time, error) {
	docs, err := s.commits.Find(ctx, store.Filter{model.FieldRepoID: repoID})
	if err != nil {
		return nil, time.Time{}, err
	}

	known := make(map[string]bool, len(docs))
	var latest time.Time
	for _, doc := range docs {
		if sha, ok := doc[model.FieldCommitID].(string); ok {
			known[sha] = true
		}
		if t, ok := timeValue(doc["commitDate"]); ok && t.After(latest) {
			latest = t
		}
	}

	if latest.IsZero() {
		s.logger.Info("No existing commits found for repository, using default start date", "default_since", s.defaultSince)
		return known, s.defaultSince, nil
	}
	s.logger.Info("Found latest commit in store", "timestamp", latest)
	return known, latest.Add(1 * time.Second), nil
}

func (s *Syncer) commitDocument(repoID string, c model.RemoteCommit) store.Document {
	return store.Document{
		model.FieldCommitID:  c.SHA,
		model.FieldRepoID:    repoID,
		model.FieldUserID:    c.UserID(),
		model.FieldMessage:   c.Message,
		"authorName":         c.AuthorName,
		"authorEmail":        c.AuthorEmail,
		"url":                c.URL,
		"commitDate":         c.CommitDate.UTC(),
		model.FieldCreatedAt: s.now().UTC(),
	}
}

func repositoryDocument(r *model.RemoteRepository) store.Document {
	doc := store.Document{
		"githubRepoId":    r.GithubRepoID,
		"owner":           r.Owner,
		"name":            r.Name,
		"url":             r.URL,
		"defaultBranch":   r.DefaultBranch,
		"forksCount":      r.ForksCount,
		"starsCount":      r.StarsCount,
		"openIssuesCount": r.OpenIssuesCount,
		"watchersCount":   r.WatchersCount,
		"repoCreatedAt":   r.RepoCreatedAt.UTC(),
		"repoUpdatedAt":   r.RepoUpdatedAt.UTC(),
	}
	if r.Description != nil {
		doc["description"] = *r.Description
	}
	if r.Language != nil {
		doc["language"] = *r.Language
	}
	return doc
}

// timeValue reads a timestamp stored either natively or as an RFC3339 string.
func timeValue(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	default:
		return time.Time{}, false
	}
}

func parseRepoIdentifiers(repos []string) ([]RepoIdentifier, error) {
	var identifiers []RepoIdentifier
	for _, r := range repos {
		parts := strings.Split(r, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, &custom_errors.ErrInvalidRepoFormat{Repo: r}
		}
		identifiers = append(identifiers, RepoIdentifier{Owner: parts[0], Name: parts[1]})
	}
	return identifiers, nil
}
