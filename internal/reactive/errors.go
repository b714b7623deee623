package reactive

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/reactor/internal/ecs"
)

// RuntimeError represents an error detected while building or sweeping
// reactions.
//
// Runtime errors include:
//   - Busy: the reaction's lock is already held (re-entrant or concurrent use)
//   - Not ready: the reaction was visited before its init command flushed
//   - Conflicting access: parameters overlap on data one of them writes
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Entity identifies the reaction's entity, when known.
	Entity ecs.Entity

	// Reaction is the reaction's name, when known.
	Reaction string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeBusy indicates the reaction's lock could not be acquired.
	ErrCodeBusy RuntimeErrorCode = "REACTION_BUSY"

	// ErrCodeNotReady indicates the reaction has not been initialized.
	ErrCodeNotReady RuntimeErrorCode = "REACTION_NOT_READY"

	// ErrCodeConflictingAccess indicates overlapping parameter access.
	ErrCodeConflictingAccess RuntimeErrorCode = "CONFLICTING_ACCESS"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Reaction != "" && e.Entity.IsValid() {
		return fmt.Sprintf("%s: %s (reaction=%s, entity=%s)", e.Code, e.Message, e.Reaction, e.Entity)
	}
	if e.Entity.IsValid() {
		return fmt.Sprintf("%s: %s (entity=%s)", e.Code, e.Message, e.Entity)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsBusyError returns true if the error is a lock acquisition failure.
// Uses errors.As to handle wrapped errors.
func IsBusyError(err error) bool {
	return hasCode(err, ErrCodeBusy)
}

// IsNotReadyError returns true if the error reports an uninitialized reaction.
func IsNotReadyError(err error) bool {
	return hasCode(err, ErrCodeNotReady)
}

// IsConflictError returns true if the error reports overlapping access.
func IsConflictError(err error) bool {
	return hasCode(err, ErrCodeConflictingAccess)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// NewBusyError creates a RuntimeError for a held reaction lock.
func NewBusyError(name string, e ecs.Entity) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeBusy,
		Message:  "reaction is already running",
		Entity:   e,
		Reaction: name,
	}
}

// NewNotReadyError creates a RuntimeError for a reaction visited before init.
func NewNotReadyError(name string, e ecs.Entity) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeNotReady,
		Message:  "reaction visited before its init command was applied",
		Entity:   e,
		Reaction: name,
	}
}

// NewConflictError creates a RuntimeError listing overlapping data.
func NewConflictError(ids []ecs.DataID) *RuntimeError {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.String()
	}
	return &RuntimeError{
		Code:    ErrCodeConflictingAccess,
		Message: "parameters overlap on written data: " + strings.Join(names, ", "),
		Details: map[string]string{
			"conflicts": fmt.Sprintf("%d", len(ids)),
		},
	}
}
