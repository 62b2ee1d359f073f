package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"

	// Configuration errors. All of these are detected before any task runs.
	ErrConfigLoad              ErrorCode = "CONFIG_LOAD"
	ErrConfigParse             ErrorCode = "CONFIG_PARSE"
	ErrConfigInvalid           ErrorCode = "CONFIG_INVALID"
	ErrConfigCycle             ErrorCode = "CONFIG_CYCLE"
	ErrConfigUnknownDependency ErrorCode = "CONFIG_UNKNOWN_DEPENDENCY"
	ErrConfigDuplicateID       ErrorCode = "CONFIG_DUPLICATE_ID"
	ErrConfigDuplicateTarget   ErrorCode = "CONFIG_DUPLICATE_TARGET"
	ErrConfigDuplicateRepoPath ErrorCode = "CONFIG_DUPLICATE_REPO_PATH"

	// Git errors
	ErrGitClone        ErrorCode = "GIT_CLONE"
	ErrGitFetch        ErrorCode = "GIT_FETCH"
	ErrGitUpdate       ErrorCode = "GIT_UPDATE"
	ErrGitInspect      ErrorCode = "GIT_INSPECT"
	ErrGitPathOccupied ErrorCode = "GIT_PATH_OCCUPIED"

	// Link errors
	ErrLinkConflict      ErrorCode = "LINK_CONFLICT"
	ErrLinkSourceMissing ErrorCode = "LINK_SOURCE_MISSING"
	ErrLinkApply         ErrorCode = "LINK_APPLY"
	ErrLinkTargetClaimed ErrorCode = "LINK_TARGET_CLAIMED"

	// Command errors
	ErrCommandFailed  ErrorCode = "COMMAND_FAILED"
	ErrCommandTimeout ErrorCode = "COMMAND_TIMEOUT"

	// FileSystem errors
	ErrFileAccess ErrorCode = "FILE_ACCESS"
	ErrFileCreate ErrorCode = "FILE_CREATE"
	ErrDirCreate  ErrorCode = "DIR_CREATE"
)

var configCodes = map[ErrorCode]bool{
	ErrConfigLoad:              true,
	ErrConfigParse:             true,
	ErrConfigInvalid:           true,
	ErrConfigCycle:             true,
	ErrConfigUnknownDependency: true,
	ErrConfigDuplicateID:       true,
	ErrConfigDuplicateTarget:   true,
	ErrConfigDuplicateRepoPath: true,
}

// Error represents a structured error with code and details
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *Error) Is(target error) bool {
	var targetErr *Error
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new Error with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with an Error
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not an Error
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not an Error
func GetErrorDetails(err error) map[string]interface{} {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

// IsConfigError reports whether err belongs to the configuration class:
// fatal, detected before any task runs.
func IsConfigError(err error) bool {
	return configCodes[GetErrorCode(err)]
}
