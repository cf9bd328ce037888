// Package kdbmlerrors provides structured errors for kdbml with an error
// category, key-value details, cause wrapping and a captured call stack.
//
// # Categories
//
// The category decides how a caller reacts:
//   - ErrorTypeValidation: the call's inputs are malformed. These are the only
//     fatal errors; they abort a call before any connection or conversion work.
//   - ErrorTypeQuery: the server answered with an error or with nothing.
//   - ErrorTypeCapability: a value has a type the converter has no rule for.
//   - ErrorTypeConnection, ErrorTypeTimeout: transport failures.
//   - ErrorTypeData: a malformed wire message or an unexportable value.
//
// # Basic Usage
//
//	err := kdbmlerrors.New(kdbmlerrors.ErrorTypeValidation, "Query can't be empty").
//	    WithID("qdbc:emptyQuery")
//
//	if kdbmlerrors.IsFatal(err) {
//	    return err
//	}
//
// Error instances are not safe for concurrent modification; finish adding
// details before sharing one across goroutines.
package kdbmlerrors

import (
	"errors"
	"runtime"

	stringpool "github.com/dmarienko/kdbml/pkg/strings"
)

// ErrorType is the category of an error.
type ErrorType string

const (
	// ErrorTypeInternal represents internal errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents malformed call inputs
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeTimeout represents expired deadlines
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeConnection represents transport errors
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeData represents malformed or unexportable data
	ErrorTypeData ErrorType = "data"
	// ErrorTypeCapability represents unsupported value types
	ErrorTypeCapability ErrorType = "capability"
	// ErrorTypeFile represents file and sink errors
	ErrorTypeFile ErrorType = "file"
	// ErrorTypeQuery represents server-side query errors and missing results
	ErrorTypeQuery ErrorType = "query"
)

// DetailID is the detail key carrying the host-facing error identifier,
// e.g. "qdbc:emptyQuery".
const DetailID = "id"

// Error is a structured error.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame is one frame of the stack captured at creation.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return stringpool.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return stringpool.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the cause for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail and returns e for chaining.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithID sets the host-facing error identifier.
func (e *Error) WithID(id string) *Error {
	return e.WithDetail(DetailID, id)
}

// ID returns the host-facing error identifier, or "" when none was set.
func (e *Error) ID() string {
	id, _ := e.Details[DetailID].(string)
	return id
}

// New creates an error and captures the call stack.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf is New with a formatted message.
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: stringpool.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps err with a category and message. The stack of an existing
// structured error is preserved. Wrap returns nil for a nil err.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	var existing *Error
	if errors.As(err, &existing) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existing.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType reports whether the outermost structured error in err's chain has
// the given category.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// IsFatal reports whether err must abort the call. Only input validation
// errors are fatal; everything else degrades to an empty result.
func IsFatal(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// IsRetryable reports whether repeating the operation may succeed.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeConnection:
		return true
	default:
		return false
	}
}

func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
