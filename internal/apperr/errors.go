// Package apperr defines the error kinds shared by every layer of the
// service.  Use cases return (possibly wrapped) values from this package and
// the HTTP boundary turns them into a status code and a {code, message} body
// without leaking the wrapped cause.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind names an error class.  Two *Error values with the same Kind match
// under errors.Is even if their messages differ.
type Kind string

// Error is a classified failure with a client-safe message.
type Error struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches on Kind so that a detailed error (Validation("name is
// required")) still satisfies errors.Is(err, ErrValidation).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// WithMessage returns a copy of e carrying msg.
func (e *Error) WithMessage(msg string) *Error {
	c := *e
	c.Message = msg
	return &c
}

func newKind(kind Kind, status int, msg string) *Error {
	return &Error{Kind: kind, Status: status, Message: msg}
}

// Authentication.
var (
	ErrInvalidCredentials = newKind("invalid_credentials", http.StatusUnauthorized, "Invalid credentials")
	ErrTokenExpired       = newKind("token_expired", http.StatusUnauthorized, "Token expired")
	ErrInvalidToken       = newKind("invalid_token", http.StatusUnauthorized, "Invalid token")
	ErrUnauthorizedAccess = newKind("unauthorized_access", http.StatusForbidden, "Unauthorized access")
	ErrAccountLocked      = newKind("account_locked", http.StatusForbidden, "Account temporarily locked")
)

// Not found.
var (
	ErrUserNotFound       = newKind("user_not_found", http.StatusNotFound, "User not found")
	ErrProfileNotFound    = newKind("profile_not_found", http.StatusNotFound, "Profile not found")
	ErrRoleNotFound       = newKind("role_not_found", http.StatusNotFound, "Role not found")
	ErrPermissionNotFound = newKind("permission_not_found", http.StatusNotFound, "Permission not found")
)

// Conflict.
var (
	ErrUserAlreadyExists    = newKind("user_already_exists", http.StatusConflict, "User already exists")
	ErrProfileAlreadyExists = newKind("profile_already_exists", http.StatusConflict, "Profile already exists for user")
	ErrConflict             = newKind("conflict", http.StatusConflict, "Resource already exists")
)

// Validation.
var (
	ErrValidation      = newKind("validation_error", http.StatusBadRequest, "Validation error")
	ErrInvalidInput    = newKind("invalid_input", http.StatusBadRequest, "Invalid input")
	ErrInvalidEmail    = newKind("invalid_email", http.StatusBadRequest, "Invalid email format")
	ErrInvalidPhone    = newKind("invalid_phone", http.StatusBadRequest, "Invalid phone number")
	ErrInvalidResource = newKind("invalid_resource", http.StatusBadRequest, "Invalid resource")
	ErrInvalidAction   = newKind("invalid_action", http.StatusBadRequest, "Invalid action")
)

// Authorization and registration.
var (
	ErrUnauthorizedOperation = newKind("unauthorized_operation", http.StatusForbidden, "Unauthorized operation")
	ErrInvalidOperation      = newKind("invalid_operation", http.StatusBadRequest, "Invalid operation")
	ErrInvalidPermission     = newKind("invalid_permission", http.StatusForbidden, "Invalid permission")
	ErrRegistrationFailed    = newKind("registration_failed", http.StatusInternalServerError, "Registration failed")
)

// Infrastructure.
var (
	ErrDatabase           = newKind("database_error", http.StatusInternalServerError, "Database error")
	ErrConnection         = newKind("connection_error", http.StatusServiceUnavailable, "Connection error")
	ErrTransaction        = newKind("transaction_error", http.StatusInternalServerError, "Transaction error")
	ErrServiceUnavailable = newKind("service_unavailable", http.StatusServiceUnavailable, "Service unavailable")
)

// Generic.
var (
	ErrInternal        = newKind("internal_server_error", http.StatusInternalServerError, "Internal server error")
	ErrUnknown         = newKind("unknown", http.StatusInternalServerError, "Unknown error occurred")
	ErrTokenGeneration = newKind("token_generation_error", http.StatusInternalServerError, "Token generation error")
)

// Validation returns an ErrValidation carrying a client-facing detail.
func Validation(format string, args ...any) error {
	return ErrValidation.WithMessage("Validation error: " + fmt.Sprintf(format, args...))
}

// InvalidInput returns an ErrInvalidInput carrying a client-facing detail.
func InvalidInput(format string, args ...any) error {
	return ErrInvalidInput.WithMessage("Invalid input: " + fmt.Sprintf(format, args...))
}

// Wrap attaches cause to kind.  errors.Is matches both; the client message
// stays the kind's.
func Wrap(kind *Error, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

// Database classifies a storage failure unless it already carries a kind.
func Database(cause error) error {
	if cause == nil {
		return nil
	}
	var e *Error
	if errors.As(cause, &e) {
		return cause
	}
	return Wrap(ErrDatabase, cause)
}

// Response is the JSON body written for every failed request.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// From returns the classified error inside err, or ErrInternal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal
}

// Status maps err to its HTTP status code.
func Status(err error) int { return From(err).Status }

// Body renders err for the client.
func Body(err error) Response {
	e := From(err)
	return Response{Code: e.Status, Message: e.Message}
}
