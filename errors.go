package itemgate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when an item or object does not exist
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the backend denies access to an object
	ErrForbidden = errors.New("forbidden")
	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrMissingCredential is returned when a request carries no credential
	ErrMissingCredential = errors.New("missing credential")
	// ErrUnauthorized is returned when the oracle rejects a credential
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnknownPresentation is returned for a presentation type outside the enumeration
	ErrUnknownPresentation = errors.New("unknown presentation type")
	// ErrUnsupportedEncoding is returned for an encoding the gateway cannot apply
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
	// ErrQuotaExceeded is returned when an upload would exceed the owner's quota
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrOracleUnavailable is returned when the credential oracle cannot be reached
	// or answers with something other than a verdict.
	ErrOracleUnavailable = errors.New("credential oracle unavailable")
)

// BackendFault is a storage backend error that is neither not-found nor
// forbidden. Code and Message are the backend's own and are surfaced to
// clients unchanged.
type BackendFault struct {
	Code    int
	Message string
}

func (f *BackendFault) Error() string {
	return fmt.Sprintf("backend fault %d: %s", f.Code, f.Message)
}

// StatusCode returns Code when it is a valid HTTP error status, otherwise 500.
func (f *BackendFault) StatusCode() int {
	if f.Code < 400 || f.Code > 599 {
		return http.StatusInternalServerError
	}
	return f.Code
}

// NewBackendFault returns a *BackendFault with the given code and message.
func NewBackendFault(code int, message string) *BackendFault {
	return &BackendFault{Code: code, Message: message}
}

// BackendMessage attaches the backend's own message to a not-found or
// forbidden outcome. It unwraps to the sentinel it carries.
type BackendMessage struct {
	Err     error
	Message string
}

func (e *BackendMessage) Error() string {
	return e.Err.Error() + ": " + e.Message
}

func (e *BackendMessage) Unwrap() error {
	return e.Err
}

// classifyBackendError normalizes an error returned by an ObjectBackend.
// ErrNotFound, ErrForbidden and *BackendFault pass through; context errors are
// kept as-is; anything else becomes a 500 BackendFault.
func classifyBackendError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) {
		return err
	}

	var fault *BackendFault
	if errors.As(err, &fault) {
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return &BackendFault{Code: http.StatusInternalServerError, Message: err.Error()}
}
