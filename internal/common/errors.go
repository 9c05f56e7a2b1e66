// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound          = errors.New("not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrLinkNotFound      = errors.New("category link not found")
	ErrDuplicateLink     = errors.New("transaction already linked to category")
	ErrDuplicateCategory = errors.New("category already exists")
	ErrProtectedCategory = errors.New("category is protected")

	// Classification errors.
	ErrMalformedTransaction = errors.New("malformed transaction")

	// Configuration errors.
	ErrInvalidConfig = errors.New("invalid configuration")

	// Job errors.
	ErrQueueClosed = errors.New("queue is closed")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsPermanent reports whether retrying err cannot succeed: cancellation,
// configuration errors, missing categories, or an explicit non-retryable mark.
func IsPermanent(err error) bool {
	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return !retryableErr.Retryable
	}
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrCategoryNotFound)
}
