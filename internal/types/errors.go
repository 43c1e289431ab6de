package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a request failure. Handlers map kinds onto HTTP status
// codes; services attach the underlying cause for server-side logging only.
type ErrorKind string

const (
	// ErrKindValidation covers malformed or missing input. Always recoverable,
	// no side effects have occurred.
	ErrKindValidation ErrorKind = "validation"

	// ErrKindAuthentication covers bad, stale or replayed signatures and nonces.
	ErrKindAuthentication ErrorKind = "authentication"

	// ErrKindAuthorization covers a valid identity lacking permission or quota.
	ErrKindAuthorization ErrorKind = "authorization"

	// ErrKindRateLimit covers quota denials; carries a retry-after hint.
	ErrKindRateLimit ErrorKind = "rate_limit"

	// ErrKindEstimation covers fee estimation failures. Non-fatal: the caller
	// substitutes conservative defaults and proceeds.
	ErrKindEstimation ErrorKind = "estimation"

	// ErrKindSubmission covers a failed hand-off to the bundler. Fatal for the
	// request; the operation never left the process.
	ErrKindSubmission ErrorKind = "submission"

	// ErrKindConfirmationTimeout means the operation was submitted but never
	// confirmed inside the polling window. The outcome is unknown, not failed.
	ErrKindConfirmationTimeout ErrorKind = "confirmation_timeout"

	// ErrKindInternal covers everything that must not leak details to callers.
	ErrKindInternal ErrorKind = "internal"
)

// AppError is the single error carrier crossing the orchestrator boundary.
// Message is always user-safe; Cause is logged server-side and never returned.
type AppError struct {
	Kind       ErrorKind
	Message    string
	RetryAfter time.Duration
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is makes sentinel comparisons by kind work through errors.Is.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// NewValidationError reports malformed or missing input.
func NewValidationError(msg string) *AppError {
	return &AppError{Kind: ErrKindValidation, Message: msg}
}

// NewAuthenticationError reports a failed signature or nonce check.
func NewAuthenticationError(msg string) *AppError {
	return &AppError{Kind: ErrKindAuthentication, Message: msg}
}

// NewAuthorizationError reports a missing permission or exhausted quota.
func NewAuthorizationError(msg string) *AppError {
	return &AppError{Kind: ErrKindAuthorization, Message: msg}
}

// NewRateLimitError reports a quota denial with a retry-after hint.
func NewRateLimitError(retryAfter time.Duration) *AppError {
	return &AppError{
		Kind:       ErrKindRateLimit,
		Message:    fmt.Sprintf("rate limit exceeded, retry in %d seconds", int(retryAfter.Seconds())),
		RetryAfter: retryAfter,
	}
}

// NewEstimationError reports a fee estimation failure. Internal only.
func NewEstimationError(cause error) *AppError {
	return &AppError{Kind: ErrKindEstimation, Message: "fee estimation failed", Cause: cause}
}

// NewSubmissionError reports a failed bundler submission.
func NewSubmissionError(cause error) *AppError {
	return &AppError{Kind: ErrKindSubmission, Message: "operation submission failed", Cause: cause}
}

// NewConfirmationTimeout reports an operation whose final state is unknown.
func NewConfirmationTimeout(opHash string) *AppError {
	return &AppError{
		Kind:    ErrKindConfirmationTimeout,
		Message: "operation not confirmed within the polling window; it may still land, check the explorer",
		Cause:   fmt.Errorf("no receipt for operation %s", opHash),
	}
}

// NewInternalError wraps an unexpected failure with a generic user-safe message.
func NewInternalError(cause error) *AppError {
	return &AppError{Kind: ErrKindInternal, Message: "internal error", Cause: cause}
}

// KindOf extracts the error kind, defaulting to internal for untyped errors.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ErrKindInternal
}
