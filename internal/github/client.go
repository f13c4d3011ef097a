// internal/github/client.go
package github

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"codehost-api/internal/model"
)

const (
	// maxRetries is the number of attempts made for one API call.
	maxRetries = 3
	// maxRateLimitWait bounds how long a call waits for a primary rate limit to reset.
	maxRateLimitWait = 2 * time.Minute
)

// retryBackoff is the delay before the second attempt; it doubles on each further attempt.
var retryBackoff = 500 * time.Millisecond

// Client is a wrapper around the go-github client.
type Client struct {
	gh     *github.Client
	logger *slog.Logger
}

// NewClient creates and configures a new Client instance.
// A non-empty token is used to create an authenticated http.Client.
func NewClient(token string, logger *slog.Logger) *Client {
	var hc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		hc = oauth2.NewClient(context.Background(), ts)
	}

	return &Client{
		gh:     github.NewClient(hc),
		logger: logger,
	}
}

// GetRepository fetches repository details and translates them to our internal model.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*model.RemoteRepository, error) {
	var repo *github.Repository
	err := c.withRetry(ctx, "get repository", func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		repo, resp, err = c.gh.Repositories.Get(ctx, owner, name)
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	return toInternalRepository(repo), nil
}

// GetCommits fetches all commits for a repository since a given time.
// It handles API pagination transparently.
func (c *Client) GetCommits(ctx context.Context, owner, name string, since time.Time) ([]model.RemoteCommit, error) {
	var allCommits []model.RemoteCommit

	opts := &github.CommitsListOptions{
		Since: since,
		ListOptions: github.ListOptions{
			PerPage: 100, // Max per page
		},
	}

	for {
		c.logger.Debug("Fetching commits page", "owner", owner, "repo", name, "page", opts.Page)

		var (
			commits []*github.RepositoryCommit
			resp    *github.Response
		)
		err := c.withRetry(ctx, "list commits", func() (*github.Response, error) {
			var err error
			commits, resp, err = c.gh.Repositories.ListCommits(ctx, owner, name, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, commit := range commits {
			allCommits = append(allCommits, toInternalCommit(commit))
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allCommits, nil
}

// withRetry runs call up to maxRetries times, retrying server errors with backoff and
// waiting out primary rate limits.
func (c *Client) withRetry(ctx context.Context, op string, call func() (*github.Response, error)) error {
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		_, err = call()
		if err == nil {
			return nil
		}

		wait, retryable := retryDelay(err, attempt)
		if !retryable || attempt == maxRetries {
			return err
		}
		c.logger.Warn("GitHub API call failed, retrying", "op", op, "attempt", attempt, "wait", wait.String(), "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return err
}

func retryDelay(err error, attempt int) (time.Duration, bool) {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		wait := time.Until(rateErr.Rate.Reset.Time)
		if wait > maxRateLimitWait {
			return 0, false
		}
		if wait < 0 {
			wait = 0
		}
		return wait, true
	}

	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode >= http.StatusInternalServerError {
		return retryBackoff * time.Duration(1<<(attempt-1)), true
	}
	return 0, false
}

// toInternalRepository translates a github.Repository object to our internal model.
func toInternalRepository(r *github.Repository) *model.RemoteRepository {
	return &model.RemoteRepository{
		GithubRepoID:    r.GetID(),
		Owner:           r.GetOwner().GetLogin(),
		Name:            r.GetName(),
		Description:     r.Description,
		URL:             r.GetHTMLURL(),
		Language:        r.Language,
		DefaultBranch:   r.GetDefaultBranch(),
		ForksCount:      r.GetForksCount(),
		StarsCount:      r.GetStargazersCount(),
		OpenIssuesCount: r.GetOpenIssuesCount(),
		WatchersCount:   r.GetWatchersCount(),
		RepoCreatedAt:   r.GetCreatedAt().Time,
		RepoUpdatedAt:   r.GetUpdatedAt().Time,
	}
}

// toInternalCommit translates a github.RepositoryCommit object to our internal model.
func toInternalCommit(c *github.RepositoryCommit) model.RemoteCommit {
	return model.RemoteCommit{
		SHA:         c.GetSHA(),
		AuthorLogin: c.GetAuthor().GetLogin(),
		AuthorName:  c.GetCommit().GetAuthor().GetName(),
		AuthorEmail: c.GetCommit().GetAuthor().GetEmail(),
		Message:     c.GetCommit().GetMessage(),
		URL:         c.GetHTMLURL(),
		CommitDate:  c.GetCommit().GetAuthor().GetDate().Time,
	}
}
