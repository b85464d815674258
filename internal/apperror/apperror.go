// Package apperror defines the error taxonomy shared by every layer.
//
// ERROR CATEGORIES:
//   - validation   → local check failed, the external call was never made
//   - provider     → the auth provider refused the request; its message is
//     string-matched into a Bucket so the page can show a friendly text
//   - duplicate    → the remote store rejected a (user, imdb id) pair it already has
//   - not found    → nothing matched (e.g. removing a row the user does not own)
//   - unauthorized → no active session
//
// Network and decode failures are NOT AppErrors. They are wrapped with
// fmt.Errorf("...: %w", err) and end up as a generic message or empty state.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrDuplicate    = errors.New("duplicate")
	ErrUnauthorized = errors.New("unauthorized")
	ErrProvider     = errors.New("provider error")
)

// Bucket classifies a provider error message.
type Bucket string

const (
	BucketNone              Bucket = ""
	BucketNotConfirmed      Bucket = "not_confirmed"
	BucketBadCredentials    Bucket = "bad_credentials"
	BucketAlreadyRegistered Bucket = "already_registered"
	BucketGeneric           Bucket = "generic"
)

type AppError struct {
	Err     error  // sentinel
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Bucket  Bucket // Only set for provider errors
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Duplicate reports a uniqueness violation surfaced by the remote store.
func Duplicate(message string) *AppError {
	return &AppError{
		Err:     ErrDuplicate,
		Message: message,
	}
}

// Unauthorized returns an AppError for requests without an active session.
// HTTP handlers map this to 401.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Provider wraps a refusal from the auth provider. Message is what the user
// sees; the raw provider text is kept in the wrapped chain for logs.
func Provider(bucket Bucket, message string) *AppError {
	return &AppError{
		Err:     ErrProvider,
		Message: message,
		Bucket:  bucket,
	}
}

// BucketOf returns the provider bucket carried by err, or BucketNone.
func BucketOf(err error) Bucket {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Bucket
	}
	return BucketNone
}
