// Package fault provides the classified error type shared by the wizard, the installers and the
// target database layer. Steps collect these errors into their per-request error list and the
// presentation layer turns Code into a translated label.
package fault

import (
	"errors"
	"fmt"
)

// Class is the classification of an error for rendering and recovery decisions.
type Class string

const (
	// ClassValidation indicates bad operator input. The same step is rendered again.
	ClassValidation Class = "validation"

	// ClassConfirmationRequired is the validation subtype used by destructive steps.
	ClassConfirmationRequired Class = "confirmation_required"

	// ClassEnvironmentUnavailable indicates the target could not be reached.
	// The operator may retry.
	ClassEnvironmentUnavailable Class = "environment_unavailable"

	// ClassAlreadyInstalled guards an installer that was asked to run twice.
	ClassAlreadyInstalled Class = "already_installed"

	// ClassAlreadyCompleted guards a step whose one-time work is already done.
	ClassAlreadyCompleted Class = "already_completed"

	// ClassIO indicates a failure to persist local state (the config file).
	ClassIO Class = "io"

	// ClassPolicyDenied indicates a preflight policy blocked the operation.
	ClassPolicyDenied Class = "policy_denied"

	// ClassInternal is the last-resort class for anything unexpected.
	ClassInternal Class = "internal"
)

// Error represents a classified error with context.
type Error struct {
	// Class is the error classification.
	Class Class `json:"class"`

	// Code identifies the error for label lookup (e.g. "db.port.invalid").
	Code string `json:"code"`

	// Message is the human-readable (untranslated) message.
	Message string `json:"message"`

	// Args are positional values substituted into the translated label.
	Args []interface{} `json:"args,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", e.Class, msg, e.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", e.Class, msg)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
// Two errors match when class and code match; an empty target code matches any code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Class != t.Class {
		return false
	}
	return t.Code == "" || e.Code == t.Code
}

// WithArgs sets the label arguments.
func (e *Error) WithArgs(args ...interface{}) *Error {
	e.Args = args
	return e
}

// WithDetail adds a detail field to the error context.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func newError(class Class, code, message string, err error) *Error {
	return &Error{
		Class:   class,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation creates a new validation error.
func Validation(code, message string) *Error {
	return newError(ClassValidation, code, message, nil)
}

// ConfirmationRequired creates a new confirmation error.
func ConfirmationRequired(code, message string) *Error {
	return newError(ClassConfirmationRequired, code, message, nil)
}

// EnvironmentUnavailable creates a new connectivity error.
func EnvironmentUnavailable(code, message string, err error) *Error {
	return newError(ClassEnvironmentUnavailable, code, message, err)
}

// AlreadyInstalled creates a new already-installed guard error.
func AlreadyInstalled(code, message string) *Error {
	return newError(ClassAlreadyInstalled, code, message, nil)
}

// AlreadyCompleted creates a new already-completed guard error.
func AlreadyCompleted(code, message string) *Error {
	return newError(ClassAlreadyCompleted, code, message, nil)
}

// IO creates a new persistence error.
func IO(code, message string, err error) *Error {
	return newError(ClassIO, code, message, err)
}

// PolicyDenied creates a new policy error.
func PolicyDenied(code, message string) *Error {
	return newError(ClassPolicyDenied, code, message, nil)
}

// Internal creates a new internal error.
func Internal(code, message string, err error) *Error {
	return newError(ClassInternal, code, message, err)
}

// From converts any error into a classified error. Classified errors are returned as is;
// anything else becomes an internal error with the given code.
func From(err error, code string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(code, err.Error(), err)
}

// ClassOf returns the class of err, or ClassInternal for unclassified errors.
func ClassOf(err error) Class {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return ClassInternal
}

func hasClass(err error, class Class) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == class
	}
	return false
}

// IsValidation returns true for validation errors, including confirmation errors.
func IsValidation(err error) bool {
	return hasClass(err, ClassValidation) || hasClass(err, ClassConfirmationRequired)
}

// IsEnvironmentUnavailable returns true if the target could not be reached.
func IsEnvironmentUnavailable(err error) bool {
	return hasClass(err, ClassEnvironmentUnavailable)
}

// IsAlreadyInstalled returns true if an installer refused to run twice.
func IsAlreadyInstalled(err error) bool {
	return hasClass(err, ClassAlreadyInstalled)
}

// IsAlreadyCompleted returns true if a step refused to repeat its work.
func IsAlreadyCompleted(err error) bool {
	return hasClass(err, ClassAlreadyCompleted)
}

// IsIO returns true for persistence errors.
func IsIO(err error) bool {
	return hasClass(err, ClassIO)
}

// IsRecoverable returns true if re-rendering the step lets the operator fix the problem.
func IsRecoverable(err error) bool {
	switch ClassOf(err) {
	case ClassValidation, ClassConfirmationRequired, ClassEnvironmentUnavailable, ClassIO, ClassPolicyDenied:
		return true
	default:
		return false
	}
}

// Common error codes.
const (
	CodeConnect          = "db.connect.error"
	CodeQuery            = "db.query.error"
	CodeAlreadyInstalled = "already_installed"
	CodeCompleted        = "completed"
	CodeWriteFailed      = "write_failed"
	CodeReadFailed       = "read_failed"
	CodePanic            = "panic"
)
