// Package errors provides standardized error handling for the authority
// resource layer. It defines the resolution error taxonomy (bad specifier,
// not found, ambiguous match, resolution failed), error classification for
// caller-facing status mapping, and helpers for consistent wrapping with
// operation context.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes.
// Callers map classes to client-facing statuses: invalid errors are caller
// mistakes (bad request), not-found errors are missing resources, and
// transient/fatal errors are server-side failures.
type ErrorClass int

const (
	// ErrorInvalid represents errors caused by caller input (bad specifier,
	// malformed reference name). Never retried.
	ErrorInvalid ErrorClass = iota
	// ErrorNotFound represents a well-formed lookup that matched nothing.
	ErrorNotFound
	// ErrorTransient represents repository/connectivity faults that may
	// succeed on retry. Retry, if any, belongs to the repository client.
	ErrorTransient
	// ErrorFatal represents unrecoverable faults (data corruption,
	// configuration errors) that should stop processing.
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorInvalid:
		return "invalid"
	case ErrorNotFound:
		return "not_found"
	case ErrorTransient:
		return "transient"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Specifier and reference-name errors
	ErrBadSpecifier  = errors.New("bad or missing specifier")
	ErrBadRefName    = errors.New("malformed reference name")
	ErrBadShortID    = errors.New("invalid short identifier")
	ErrMissingParent = errors.New("missing parent identity")

	// Resolution errors
	ErrNotFound         = errors.New("no matching document")
	ErrAmbiguousMatch   = errors.New("multiple documents match unique lookup")
	ErrResolutionFailed = errors.New("resolution failed")

	// Hierarchy traversal errors
	ErrHierarchyCycle = errors.New("cycle detected in item hierarchy")
	ErrDepthExceeded  = errors.New("hierarchy depth bound exceeded")

	// Repository errors
	ErrRepositoryUnavailable = errors.New("repository unavailable")
	ErrConflict              = errors.New("document conflict")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")
)

// ClassifiedError wraps an error with its classification and the resolution
// context needed to diagnose a failure without re-querying: the component,
// the operation, and the specifier value the operation was working on.
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
	Specifier string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsInvalid checks if an error is caused by caller input
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	return errors.Is(err, ErrBadSpecifier) ||
		errors.Is(err, ErrBadRefName) ||
		errors.Is(err, ErrBadShortID) ||
		errors.Is(err, ErrMissingParent)
}

// IsNotFound checks if an error is a missing-resource condition
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorNotFound
	}

	return errors.Is(err, ErrNotFound)
}

// IsTransient checks if an error is transient and may succeed on retry
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTransient
	}

	return errors.Is(err, ErrRepositoryUnavailable) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrResolutionFailed)
}

// IsFatal checks if an error is fatal and should stop processing
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	return errors.Is(err, ErrAmbiguousMatch) ||
		errors.Is(err, ErrHierarchyCycle) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingConfig)
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	switch {
	case IsInvalid(err):
		return ErrorInvalid
	case IsNotFound(err):
		return ErrorNotFound
	case IsFatal(err):
		return ErrorFatal
	default:
		return ErrorTransient
	}
}

// newClassified creates a new classified error.
// This is an internal helper - use the Wrap* functions instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.operation: action failed: %w"
func Wrap(err error, component, operation, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, operation, action, err)
}

// WrapInvalid wraps an error as caller-caused with context
func WrapInvalid(err error, component, operation, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, operation, action)
	return newClassified(ErrorInvalid, wrappedErr, component, operation, wrappedErr.Error())
}

// WrapNotFound wraps an error as a missing-resource condition with context
func WrapNotFound(err error, component, operation, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, operation, action)
	return newClassified(ErrorNotFound, wrappedErr, component, operation, wrappedErr.Error())
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, operation, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, operation, action)
	return newClassified(ErrorTransient, wrappedErr, component, operation, wrappedErr.Error())
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, operation, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, operation, action)
	return newClassified(ErrorFatal, wrappedErr, component, operation, wrappedErr.Error())
}

// BadSpecifier builds the rejection for a malformed or missing specifier.
// The operation name and raw value are carried for diagnostics; the result
// matches errors.Is(err, ErrBadSpecifier) and IsInvalid.
func BadSpecifier(operation, raw string) error {
	ce := newClassified(ErrorInvalid,
		fmt.Errorf("%w: %q", ErrBadSpecifier, raw),
		"specifier", operation,
		fmt.Sprintf("%s: bad or missing specifier %q", operation, raw))
	ce.Specifier = raw
	return ce
}

// ResolutionFailed wraps a repository fault with the operation and the
// offending specifier. The underlying error is preserved for errors.Is.
func ResolutionFailed(err error, component, operation, spec string) error {
	if err == nil {
		return nil
	}
	ce := newClassified(ErrorTransient,
		fmt.Errorf("%w: %v", ErrResolutionFailed, err),
		component, operation,
		fmt.Sprintf("%s.%s: resolution failed for %q: %v", component, operation, spec, err))
	ce.Specifier = spec
	return ce
}

// NotFound builds a missing-resource error for a specifier that resolved to
// zero matching documents.
func NotFound(component, operation, spec string) error {
	ce := newClassified(ErrorNotFound,
		fmt.Errorf("%w: %q", ErrNotFound, spec),
		component, operation,
		fmt.Sprintf("%s.%s: %q was not found", component, operation, spec))
	ce.Specifier = spec
	return ce
}

// Ambiguous builds the failure for a unique lookup that matched more than
// one document. The repository is expected to enforce short-identifier
// uniqueness, so this indicates data corruption rather than caller error.
func Ambiguous(component, operation, spec string) error {
	ce := newClassified(ErrorFatal,
		fmt.Errorf("%w: %q", ErrAmbiguousMatch, spec),
		component, operation,
		fmt.Sprintf("%s.%s: %q matched multiple documents, expected exactly one", component, operation, spec))
	ce.Specifier = spec
	return ce
}
