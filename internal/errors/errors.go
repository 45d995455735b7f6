// Package errors provides unified error handling with service error codes.
// Every failure in the tracker degrades to "no observation recorded this
// tick"; codes exist for logging, HTTP mapping, and tests, not for control
// flow that could crash the session.
package errors

import "fmt"

// Code identifies a failure class.
type Code string

const (
	CodeUnknown               Code = "unknown"
	CodeInvalidArgument       Code = "invalid_argument"
	CodeConfigInvalid         Code = "config_invalid"
	CodeLoopRunning           Code = "loop_running"
	CodeCaptureFailed         Code = "capture_failed"
	CodeRecognizerUnavailable Code = "recognizer_unavailable"
	CodeRecognitionFailed     Code = "recognition_failed"
	CodeRecognitionAmbiguous  Code = "recognition_ambiguous"
)

// httpStatusMap maps codes to HTTP status codes for the API layer.
var httpStatusMap = map[Code]int{
	CodeUnknown:               500,
	CodeInvalidArgument:       400,
	CodeConfigInvalid:         422,
	CodeLoopRunning:           409,
	CodeCaptureFailed:         503,
	CodeRecognizerUnavailable: 502,
	CodeRecognitionFailed:     502,
	CodeRecognitionAmbiguous:  422,
}

// AppError is the base error type with structured code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// HTTPStatus returns the HTTP status code for this error.
func (e *AppError) HTTPStatus() int {
	if s, ok := httpStatusMap[e.Code]; ok {
		return s
	}
	return 500
}

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code Code) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// StatusOf returns the HTTP status for any error, 500 for non-AppErrors.
func StatusOf(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.HTTPStatus()
	}
	return 500
}
