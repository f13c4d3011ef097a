// internal/errors/errors.go
package errors

import "fmt"

// ErrInvalidRepoFormat is returned when a repository to sync is not in 'owner/name' format.
type ErrInvalidRepoFormat struct {
	Repo string
}

func (e *ErrInvalidRepoFormat) Error() string {
	return fmt.Sprintf("invalid repository format: %q, expected 'owner/name'", e.Repo)
}

// ErrInvalidID is returned when a value is not a well-formed store identifier.
type ErrInvalidID struct {
	Value string
}

func (e *ErrInvalidID) Error() string {
	return fmt.Sprintf("invalid ObjectId format: %q", e.Value)
}

// ErrMissingField is returned when a required request field is absent or empty.
type ErrMissingField struct {
	Field string
}

func (e *ErrMissingField) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// ErrInvalidBody is returned when a request body does not have the expected shape.
type ErrInvalidBody struct {
	Reason string
}

func (e *ErrInvalidBody) Error() string {
	return "invalid request body: " + e.Reason
}
