package model

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the core. Component operations return the most
// specific kind; orchestration layers wrap but never mask them.
var (
	// ErrNotFound indicates the referenced uuid does not exist in any state.
	ErrNotFound = errors.New("not found")

	// ErrConflict is reserved for concurrent-update detection.
	ErrConflict = errors.New("conflicting concurrent update")
)

// ValidationError reports malformed input, a dangling endpoint reference or
// a cross-group reference.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is allows errors.Is(err, &ValidationError{}) across wrapping.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// PartialUpdateError reports that the versioning protocol invalidated the old
// fact but failed to persist its replacement, leaving no live fact for the
// relationship. Callers must not treat this as a generic failure.
type PartialUpdateError struct {
	OldUUID       string
	InvalidatedAt string
	Cause         error
}

func (e *PartialUpdateError) Error() string {
	return fmt.Sprintf("fact %s was invalidated at %s but the superseding fact was not created: %v",
		e.OldUUID, e.InvalidatedAt, e.Cause)
}

func (e *PartialUpdateError) Unwrap() error { return e.Cause }

func (e *PartialUpdateError) Is(target error) bool {
	_, ok := target.(*PartialUpdateError)
	return ok
}

// CollaboratorError reports a failed or timed-out call into an external
// collaborator (extraction, embedding or the graph engine).
type CollaboratorError struct {
	Collaborator string // "extraction", "embedding", "graph"
	Cause        error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s collaborator failed: %v", e.Collaborator, e.Cause)
}

func (e *CollaboratorError) Unwrap() error { return e.Cause }

func (e *CollaboratorError) Is(target error) bool {
	_, ok := target.(*CollaboratorError)
	return ok
}

func NewCollaboratorError(collaborator string, cause error) *CollaboratorError {
	return &CollaboratorError{Collaborator: collaborator, Cause: cause}
}
