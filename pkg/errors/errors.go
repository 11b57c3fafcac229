// Package errors provides structured, coded errors for arrowrows.
// Conversion failures carry the column and both type descriptors so a
// producer/consumer schema mismatch can be diagnosed from the error alone.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Error codes for programmatic handling
type Code string

const (
	// Input errors (1xx)
	CodeFileNotFound  Code = "E101"
	CodeInvalidFormat Code = "E103"

	// System errors (4xx)
	CodeContextCanceled Code = "E401"

	// Conversion errors (6xx)
	CodeMetadataParse       Code = "E601"
	CodeUnsupportedEncoding Code = "E602"
	CodeUnknownLogicalType  Code = "E603"
	CodeAllocation          Code = "E604"

	// Unknown
	CodeUnknown Code = "E999"
)

func (c Code) String() string {
	switch c {
	case CodeFileNotFound:
		return "file not found"
	case CodeInvalidFormat:
		return "invalid format"
	case CodeContextCanceled:
		return "context canceled"
	case CodeMetadataParse:
		return "metadata parse error"
	case CodeUnsupportedEncoding:
		return "unsupported physical encoding"
	case CodeUnknownLogicalType:
		return "unknown logical type"
	case CodeAllocation:
		return "dense buffer allocation failed"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Matching is by code only.
var (
	ErrMetadataParse       = &ConversionError{Code: CodeMetadataParse}
	ErrUnsupportedEncoding = &ConversionError{Code: CodeUnsupportedEncoding}
	ErrUnknownLogicalType  = &ConversionError{Code: CodeUnknownLogicalType}
	ErrAllocation          = &ConversionError{Code: CodeAllocation}
)

// Frame represents a stack frame.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Error is the general coded error used outside the decode path
// (sources, CLI).
type Error struct {
	Code       Code
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace []Frame
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		sb.WriteString(" (")
		first := true
		for k, v := range e.Context {
			if !first {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", k, v))
			first = false
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target error.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new Error.
func New(code Code, message string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		StackTrace: captureStack(2),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: captureStack(2),
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// ConversionError reports a column that could not be given a decoder.
type ConversionError struct {
	Code         Code
	Column       int
	ColumnName   string
	LogicalType  string
	PhysicalType string
	Message      string
	Cause        error
	StackTrace   []Frame
}

// Error implements the error interface.
func (e *ConversionError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Code.String()))
	sb.WriteString(fmt.Sprintf(" (column=%d", e.Column))
	if e.ColumnName != "" {
		sb.WriteString(fmt.Sprintf(", name=%q", e.ColumnName))
	}
	sb.WriteString(fmt.Sprintf(", logicalType=%s, physicalType=%s)", e.LogicalType, e.PhysicalType))
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *ConversionError) Unwrap() error {
	return e.Cause
}

// Is matches another ConversionError with the same code.
func (e *ConversionError) Is(target error) bool {
	if t, ok := target.(*ConversionError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithCause sets the underlying cause.
func (e *ConversionError) WithCause(err error) *ConversionError {
	e.Cause = err
	return e
}

// Conversion creates a ConversionError.
func Conversion(code Code, column int, name, logicalType, physicalType, message string) *ConversionError {
	return &ConversionError{
		Code:         code,
		Column:       column,
		ColumnName:   name,
		LogicalType:  logicalType,
		PhysicalType: physicalType,
		Message:      message,
		StackTrace:   captureStack(2),
	}
}

// captureStack captures the current stack trace.
func captureStack(skip int) []Frame {
	var frames []Frame
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	pcs = pcs[:n]

	cf := runtime.CallersFrames(pcs)
	for {
		frame, more := cf.Next()
		frames = append(frames, Frame{
			Function: frame.Function,
			File:     frame.File,
			Line:     frame.Line,
		})
		if !more || len(frames) >= 10 {
			break
		}
	}
	return frames
}

// --- Convenience constructors ---

// FileNotFound creates a file not found error.
func FileNotFound(path string) *Error {
	return New(CodeFileNotFound, "file not found").WithContext("path", path)
}

// InvalidFormat creates an unsupported input format error.
func InvalidFormat(format string) *Error {
	return New(CodeInvalidFormat, "unsupported input format").WithContext("format", format)
}

// --- Error checking utilities ---

// IsCode checks if an error has a specific code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error.
func GetCode(err error) Code {
	var convErr *ConversionError
	if errors.As(err, &convErr) {
		return convErr.Code
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsConversion reports whether err originates from decoder construction.
func IsConversion(err error) bool {
	var convErr *ConversionError
	return errors.As(err, &convErr)
}
