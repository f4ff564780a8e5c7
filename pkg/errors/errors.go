package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/popupmarket/proxybuy/internal/domain"
)

// ErrNotFound is returned when a record does not exist
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnauthorized is returned when the caller has no valid session
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message == "" {
		return "unauthorized"
	}
	return e.Message
}

// ErrForbidden is returned when the caller is authenticated but not allowed
type ErrForbidden struct {
	Message string
}

func (e *ErrForbidden) Error() string {
	if e.Message == "" {
		return "forbidden"
	}
	return e.Message
}

// ErrValidation is returned before any write happens
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrConflict is returned on unique constraint violations
type ErrConflict struct {
	Resource string
	Message  string
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Resource, e.Message)
}

// ErrInvalidStateTransition is returned when a request status change is not allowed
type ErrInvalidStateTransition struct {
	From domain.RequestStatus
	To   domain.RequestStatus
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// Validation is a shorthand for building an ErrValidation
func Validation(field, message string) error {
	return &ErrValidation{Field: field, Message: message}
}

// NotFound is a shorthand for building an ErrNotFound
func NotFound(resource, id string) error {
	return &ErrNotFound{Resource: resource, ID: id}
}

// IsNotFound reports whether err wraps an ErrNotFound
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return stderrors.As(err, &nf)
}
