// Package opticserr defines the stable error taxonomy used across optics:
// codes, categories, HTTP status mapping, and the retryability contract the
// scheduler relies on to decide whether a failed keyword combination should
// be abandoned or retried with the next candidate.
package opticserr

import (
	"errors"
	"fmt"
)

// Category groups error codes into the buckets used for the
// "optics:<category>" payload type.
type Category string

const (
	CategoryDriver     Category = "driver"
	CategoryElement    Category = "element"
	CategoryScreenshot Category = "screenshot"
	CategoryKeyword    Category = "keyword"
	CategoryConfig     Category = "config"
	CategoryModule     Category = "module"
	CategoryTest       Category = "test"
	CategoryGeneral    Category = "general"
)

// Code is a stable 4-digit code prefixed E (error), W (warning), or
// X (exhausted/terminal).
type Code string

const (
	CodeDriverNotInitialized Code = "E0101"
	CodeDriverStartFailed    Code = "E0102" // also covers async bridge timeout
	CodeElementNotFound      Code = "E0201"
	CodeElementExhausted     Code = "X0201"
	CodeElementInvalidAOI    Code = "E0205"
	CodeScreenshotEmpty      Code = "E0303"
	CodeKeywordFailed        Code = "E0401"
	CodeKeywordFailedFatal   Code = "X0401"
	CodeKeywordNotFound      Code = "E0402"
	CodeKeywordInvalidParams Code = "E0403"
	CodeConfigMissingFiles   Code = "E0501"
	CodeModuleNotFound       Code = "E0601"
	CodeTestParamResolution  Code = "E0702"
	CodeGeneralUnexpected    Code = "E0801"
)

type registryEntry struct {
	category   Category
	httpStatus int
	message    string
	retryable  bool
}

// Element-not-found family (§4.7.6, §9 OQ1): these codes are always
// retryable as "try the next candidate" during parameter/strategy
// resolution. Every other code is not retryable by default, only by an
// explicit Retry command from the scheduler's command inbox.
var registry = map[Code]registryEntry{
	CodeDriverNotInitialized: {CategoryDriver, 500, "driver not initialized", false},
	CodeDriverStartFailed:    {CategoryDriver, 500, "failed to start session", false},
	CodeElementNotFound:      {CategoryElement, 404, "element not found", true},
	CodeElementExhausted:     {CategoryElement, 500, "element not found after all fallbacks", true},
	CodeElementInvalidAOI:    {CategoryElement, 400, "invalid element/AOI parameters", false},
	CodeScreenshotEmpty:      {CategoryScreenshot, 500, "empty or black screenshot", false},
	CodeKeywordFailed:        {CategoryKeyword, 500, "action failed", false},
	CodeKeywordFailedFatal:   {CategoryKeyword, 500, "action failed with exception", false},
	CodeKeywordNotFound:      {CategoryKeyword, 404, "keyword not found", false},
	CodeKeywordInvalidParams: {CategoryKeyword, 400, "invalid parameters", false},
	CodeConfigMissingFiles:   {CategoryConfig, 400, "missing required files", false},
	CodeModuleNotFound:       {CategoryModule, 404, "module not found", false},
	CodeTestParamResolution:  {CategoryTest, 404, "parameter resolution failed", false},
	CodeGeneralUnexpected:    {CategoryGeneral, 500, "unexpected error", false},
}

// Error is the structured error type carried across every optics boundary.
type Error struct {
	code      Code
	category  Category
	status    int
	message   string
	Details   map[string]any
	Meta      map[string]any
	cause     error
	retryable bool
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

func (e *Error) Unwrap() error { return e.cause }

// Code returns the stable error code, e.g. "E0201".
func (e *Error) Code() string { return string(e.code) }

// Category returns the error's taxonomy category.
func (e *Error) Category() Category { return e.category }

// HTTPStatus returns the status this error maps to on the HTTP boundary.
func (e *Error) HTTPStatus() int { return e.status }

// Message returns the human-readable message.
func (e *Error) Message() string { return e.message }

// Retryable reports whether the scheduler should try the next parameter
// combination rather than failing the keyword outright. Resolves
// spec.md §9 OQ1 with an explicit method instead of a code-prefix check.
func (e *Error) Retryable() bool { return e.retryable }

// PayloadType returns the "optics:<category>" discriminator used on the
// wire payload.
func (e *Error) PayloadType() string { return "optics:" + string(e.category) }

// WithDetails attaches free-form details and returns the receiver for
// chaining.
func (e *Error) WithDetails(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithMeta attaches free-form metadata and returns the receiver for
// chaining.
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = value
	return e
}

// New constructs an *Error from a registered code. Panics if the code is
// not registered — that is a programming error, caught in tests.
func New(code Code) *Error {
	entry, ok := registry[code]
	if !ok {
		panic(fmt.Sprintf("opticserr: unregistered code %q", code))
	}
	return &Error{
		code:      code,
		category:  entry.category,
		status:    entry.httpStatus,
		message:   entry.message,
		retryable: entry.retryable,
	}
}

// Newf is like New but overrides the default message with a formatted one.
func Newf(code Code, format string, args ...any) *Error {
	e := New(code)
	e.message = fmt.Sprintf(format, args...)
	return e
}

// Wrap constructs an *Error from a registered code with an underlying
// cause chained via Unwrap.
func Wrap(code Code, cause error) *Error {
	e := New(code)
	e.cause = cause
	return e
}

// Is reports whether err is (or wraps) an *Error with the given code.
func Is(err error, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.code == code
}

// As extracts an *Error from err, mirroring errors.As.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// RetryableErr reports whether err is an *Error marked retryable, or false
// if err is not an *Error at all (an un-coded error is never retryable).
func RetryableErr(err error) bool {
	e, ok := As(err)
	if !ok {
		return false
	}
	return e.Retryable()
}
