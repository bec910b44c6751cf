package rbac

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/prakerin/prakerin/internal/platform/httpx"
)

var (
	// ErrUnauthenticated indicates the request carries no authenticated principal.
	ErrUnauthenticated = errors.New("rbac: unauthenticated")
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("rbac: not found")
)

// AccessDeniedError is returned when a requirement is not satisfied.
type AccessDeniedError struct {
	Principal   uuid.UUID
	Requirement Requirement
	Section     string
}

func (e *AccessDeniedError) Error() string {
	var b strings.Builder
	b.WriteString("rbac: forbidden")
	if e.Principal != uuid.Nil {
		fmt.Fprintf(&b, " (principal %s", e.Principal)
		if e.Section != "" {
			fmt.Fprintf(&b, ", section %s", e.Section)
		} else {
			fmt.Fprintf(&b, ", roles %v, permissions %v", e.Requirement.Roles, e.Requirement.Permissions)
		}
		b.WriteString(")")
	}
	return b.String()
}

// Is lets errors.Is match the HTTP forbidden sentinel.
func (e *AccessDeniedError) Is(target error) bool {
	return target == httpx.ErrForbidden
}

// DataIntegrityError reports an authenticated principal without the rows
// every other part of the system assumes exist.
type DataIntegrityError struct {
	Principal uuid.UUID
	Missing   string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("rbac: data integrity: authenticated user %s has no %s", e.Principal, e.Missing)
}

// StoreError wraps a data-layer failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("rbac: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ValidationError reports invalid input to a management action.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is lets errors.Is match the HTTP validation sentinel.
func (e *ValidationError) Is(target error) bool {
	return target == httpx.ErrValidation
}

// IsAccessDenied is equivalent to errors.As(err, new(*AccessDeniedError)).
func IsAccessDenied(err error) bool {
	var denied *AccessDeniedError
	return errors.As(err, &denied)
}

// IsDataIntegrity is equivalent to errors.As(err, new(*DataIntegrityError)).
func IsDataIntegrity(err error) bool {
	var integrity *DataIntegrityError
	return errors.As(err, &integrity)
}

// FailureKind tags an error with the outcome callers map it to.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureForbidden
	FailureIntegrity
	FailureUnauthenticated
	FailureValidation
	FailureNotFound
	FailureDB
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureForbidden:
		return "forbidden"
	case FailureIntegrity:
		return "integrity"
	case FailureUnauthenticated:
		return "unauthenticated"
	case FailureValidation:
		return "validation"
	case FailureNotFound:
		return "not_found"
	default:
		return "db"
	}
}

// Classify maps err onto a FailureKind. Unknown errors are data-layer failures.
func Classify(err error) FailureKind {
	var validation *ValidationError
	switch {
	case err == nil:
		return FailureNone
	case IsAccessDenied(err):
		return FailureForbidden
	case IsDataIntegrity(err):
		return FailureIntegrity
	case errors.Is(err, ErrUnauthenticated):
		return FailureUnauthenticated
	case errors.As(err, &validation):
		return FailureValidation
	case errors.Is(err, ErrNotFound):
		return FailureNotFound
	default:
		return FailureDB
	}
}

// ErrorCode is the machine readable code of a failed ActionResult.
type ErrorCode string

const (
	CodeForbidden       ErrorCode = "FORBIDDEN"
	CodeValidation      ErrorCode = "VALIDATION_ERROR"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeIntegrity       ErrorCode = "INTEGRITY_ERROR"
	CodeUnauthenticated ErrorCode = "UNAUTHENTICATED"
	CodeDB              ErrorCode = "DB_ERROR"
)

// ActionError is the error branch of an ActionResult.
type ActionError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ActionResult is the tagged result returned by management actions.
type ActionResult[T any] struct {
	OK    bool         `json:"ok"`
	Data  T            `json:"data,omitempty"`
	Error *ActionError `json:"error,omitempty"`
}

// OK wraps data into a successful result.
func OK[T any](data T) ActionResult[T] {
	return ActionResult[T]{OK: true, Data: data}
}

// Fail builds a failed result.
func Fail[T any](code ErrorCode, message string) ActionResult[T] {
	return ActionResult[T]{Error: &ActionError{Code: code, Message: message}}
}

// DBFailureMessage is the message of every DB_ERROR result. The underlying
// error is logged, never returned to the caller.
const DBFailureMessage = "Database request failed."

// FailFrom converts err into a failed result. forbidden is the message shown
// on denial so the requirement details stay out of the response.
func FailFrom[T any](err error, forbidden string) ActionResult[T] {
	switch Classify(err) {
	case FailureForbidden:
		return Fail[T](CodeForbidden, forbidden)
	case FailureValidation:
		return Fail[T](CodeValidation, err.Error())
	case FailureNotFound:
		return Fail[T](CodeNotFound, err.Error())
	case FailureIntegrity:
		return Fail[T](CodeIntegrity, err.Error())
	case FailureUnauthenticated:
		return Fail[T](CodeUnauthenticated, "Authentication required.")
	default:
		return Fail[T](CodeDB, DBFailureMessage)
	}
}
