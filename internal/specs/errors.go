package specs

import (
	"errors"
	"fmt"
)

// Domain errors. Typed errors below match these with errors.Is.
var (
	// ErrValidation marks a malformed request rejected before it reaches the store.
	ErrValidation = errors.New("validation failed")

	// ErrCategoryLocked indicates a pending conflict holds the category.
	ErrCategoryLocked = errors.New("category locked by pending conflict")

	// ErrStaleWrite indicates the category changed between read and commit.
	ErrStaleWrite = errors.New("stale write")

	// ErrExternalCollaborator indicates the extractor, checker, or classifier failed.
	ErrExternalCollaborator = errors.New("external collaborator unavailable")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition indicates a phase change outside the forward-only order.
	ErrInvalidTransition = errors.New("invalid phase transition")
)

// ValidationError describes which field of a request was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is allows errors.Is to work with ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// CategoryLockedError references the conflict that must be resolved first.
type CategoryLockedError struct {
	ProjectID  string
	Category   Category
	ConflictID string
}

func (e *CategoryLockedError) Error() string {
	return fmt.Sprintf("category %s of project %s is locked by pending conflict %s: resolve it first",
		e.Category, e.ProjectID, e.ConflictID)
}

// Is allows errors.Is to work with CategoryLockedError.
func (e *CategoryLockedError) Is(target error) bool {
	return target == ErrCategoryLocked
}

// StaleWriteError reports a failed optimistic revalidation. Callers retry
// the whole operation.
type StaleWriteError struct {
	ProjectID string
	Category  Category
	Expected  int64
	Actual    int64
}

func (e *StaleWriteError) Error() string {
	if e.Expected == 0 && e.Actual == 0 {
		return fmt.Sprintf("category %s of project %s changed underneath: retry", e.Category, e.ProjectID)
	}
	return fmt.Sprintf("category %s of project %s changed underneath (revision %d, now %d): retry",
		e.Category, e.ProjectID, e.Expected, e.Actual)
}

// Is allows errors.Is to work with StaleWriteError.
func (e *StaleWriteError) Is(target error) bool {
	return target == ErrStaleWrite
}

// ExternalCollaboratorError wraps a failure of a pluggable capability.
// The proposal was neither committed nor discarded.
type ExternalCollaboratorError struct {
	Capability string // extract | check_contradiction | classify_facets | architecture_issues
	Err        error
}

func (e *ExternalCollaboratorError) Error() string {
	return fmt.Sprintf("%s collaborator failed: %v", e.Capability, e.Err)
}

// Unwrap exposes the underlying failure.
func (e *ExternalCollaboratorError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is to work with ExternalCollaboratorError.
func (e *ExternalCollaboratorError) Is(target error) bool {
	return target == ErrExternalCollaborator
}

// IsRetryable reports whether the caller should retry the whole operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStaleWrite) || errors.Is(err, ErrExternalCollaborator)
}
