package errors

import (
	"errors"
	"fmt"
)

// newError builds an AppError whose context is taken from alternating
// key/value pairs.
func newError(t ErrorType, code, message string, cause error, kv ...any) *AppError {
	ctx := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		ctx[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return &AppError{Type: t, Message: message, Code: code, Cause: cause, Context: ctx}
}

func NewValidationError(message string, cause error) *AppError {
	return newError(ErrorTypeValidation, "VALIDATION_FAILED", message, cause)
}

func NewNotFoundError(resource string, identifier string) *AppError {
	return newError(ErrorTypeNotFound, "NOT_FOUND",
		fmt.Sprintf("%s not found: %s", resource, identifier), nil,
		"resource", resource, "identifier", identifier)
}

func NewDatabaseError(operation string, cause error) *AppError {
	return newError(ErrorTypeDatabase, "DATABASE_ERROR",
		"database operation failed: "+operation, cause,
		"operation", operation)
}

func NewInvalidInputError(field string, value any, reason string) *AppError {
	return newError(ErrorTypeInvalidInput, "INVALID_INPUT",
		fmt.Sprintf("invalid input for %s: %s", field, reason), nil,
		"field", field, "value", value, "reason", reason)
}

func NewTimeoutError(operation string, timeout any) *AppError {
	return newError(ErrorTypeTimeout, "TIMEOUT",
		"operation timed out: "+operation, nil,
		"operation", operation, "timeout", timeout)
}

// NewPermissionError reports an operation the current user's roles do not allow.
// It is returned before any request is issued.
func NewPermissionError(operation string, resource string) *AppError {
	return newError(ErrorTypePermission, "PERMISSION_DENIED",
		fmt.Sprintf("permission denied for %s on %s", operation, resource), nil,
		"operation", operation, "resource", resource)
}

// NewUnauthenticatedError reports an operation attempted without a valid session
func NewUnauthenticatedError(operation string) *AppError {
	return newError(ErrorTypeUnauthenticated, "UNAUTHENTICATED",
		"authentication required for "+operation, nil,
		"operation", operation)
}

// NewRemoteError wraps a failed call to the REST API. status is 0 when no
// response arrived.
func NewRemoteError(operation string, status int, cause error) *AppError {
	return newError(ErrorTypeRemote, "REMOTE_ERROR",
		"remote call failed: "+operation, cause,
		"operation", operation, "status", status)
}

// NewConflictError reports a mutation refused because of the entity's current state
func NewConflictError(resource string, reason string) *AppError {
	return newError(ErrorTypeConflict, "CONFLICT",
		fmt.Sprintf("%s cannot be changed: %s", resource, reason), nil,
		"resource", resource, "reason", reason)
}

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsErrorType(err error, errorType ErrorType) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.IsType(errorType)
}

// GetUserMessage returns the text shown to users. System failures get a
// generic message; errors the user can act on keep their own.
func GetUserMessage(err error) string {
	appErr, ok := AsAppError(err)
	if !ok {
		return err.Error()
	}
	info, known := appErr.Type.info()
	switch {
	case !known:
		return "An unexpected error occurred. Please try again."
	case info.userMessage != "":
		return info.userMessage
	default:
		return appErr.Message
	}
}

// GetErrorCode returns the error code for the error
func GetErrorCode(err error) string {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return "UNKNOWN_ERROR"
}

// ShouldLogError is false for errors caused by user input or state.
func ShouldLogError(err error) bool {
	appErr, ok := AsAppError(err)
	if !ok {
		return true
	}
	info, known := appErr.Type.info()
	return !known || !info.userError
}
