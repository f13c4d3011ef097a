// internal/model/models.go
package model

import "time"

// Collection names, one per service.
const (
	Repositories = "repositories"
	Commits      = "commits"
	Issues       = "issues"
	PullRequests = "pullRequests"
	Forks        = "forks"
	Stars        = "stars"
	Users        = "users"
)

// Document field names shared across services.
const (
	FieldRepoID    = "repoId"
	FieldCommitID  = "commitId"
	FieldIssueID   = "issueId"
	FieldPRID      = "prId"
	FieldUserID    = "userId"
	FieldMessage   = "message"
	FieldComment   = "comment"
	FieldComments  = "comments"
	FieldCreatedAt = "createdAt"
)

// IndexedFields lists the domain keys looked up by exact match in each collection.
var IndexedFields = map[string][]string{
	Repositories: {FieldRepoID},
	Commits:      {FieldCommitID, FieldRepoID},
	Issues:       {FieldIssueID, FieldRepoID},
	PullRequests: {FieldPRID, FieldRepoID},
	Forks:        {FieldRepoID},
	Stars:        {FieldRepoID, FieldUserID},
}

// RepositoryInput is the body of POST /repositories. Any other payload keys are kept as-is.
type RepositoryInput struct {
	RepoID string `json:"repoId"`
}

// CommitInput is the body of POST /commits.
type CommitInput struct {
	CommitID string `json:"commitId"`
	RepoID   string `json:"repoId"`
	UserID   string `json:"userId"`
	Message  string `json:"message"`
}

// IssueInput is the body of POST /issues.
type IssueInput struct {
	IssueID string `json:"issueId"`
	RepoID  string `json:"repoId"`
}

// CommentInput is the body of POST /issues/{issueId}/comments.
type CommentInput struct {
	UserID  string `json:"userId"`
	Comment string `json:"comment"`
}

// Comment is one element of an issue's append-only comments sequence.
type Comment struct {
	UserID    string    `json:"userId"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// PullRequestInput is the body of POST /pull-requests.
type PullRequestInput struct {
	RepoID string `json:"repoId"`
}

// ForkInput is the body of POST /forks.
type ForkInput struct {
	RepoID string `json:"repoId"`
	UserID string `json:"userId"`
}

// StarInput is the body of POST /stars.
type StarInput struct {
	RepoID string `json:"repoId"`
	UserID string `json:"userId"`
}

// UserInput is the body of POST /users.
type UserInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}
