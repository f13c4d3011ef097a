// internal/model/remote.go
package model

import "time"

// RemoteRepository is repository metadata fetched from GitHub.
type RemoteRepository struct {
	GithubRepoID    int64
	Owner           string
	Name            string
	Description     *string
	URL             string
	Language        *string
	DefaultBranch   string
	ForksCount      int
	StarsCount      int
	OpenIssuesCount int
	WatchersCount   int
	RepoCreatedAt   time.Time
	RepoUpdatedAt   time.Time
}

// FullName is the owner/name form used as the repoId of synced repositories.
func (r *RemoteRepository) FullName() string {
	return r.Owner + "/" + r.Name
}

// RemoteCommit is one commit fetched from GitHub.
type RemoteCommit struct {
	SHA         string
	AuthorLogin string
	AuthorName  string
	AuthorEmail string
	Message     string
	URL         string
	CommitDate  time.Time
}

// UserID picks the most stable author identity available.
func (c RemoteCommit) UserID() string {
	if c.AuthorLogin != "" {
		return c.AuthorLogin
	}
	return c.AuthorEmail
}
