package errors

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
)

// ErrorType represents the category of error
type ErrorType int

const (
	ErrorTypeValidation ErrorType = iota
	ErrorTypeNotFound
	ErrorTypeDatabase
	ErrorTypeInvalidInput
	ErrorTypeTimeout
	ErrorTypePermission
	ErrorTypeUnauthenticated
	ErrorTypeRemote
	ErrorTypeConflict
)

// typeInfo is what the HTTP layers and the CLI need to know about a category.
// An empty userMessage shows the error's own message to the user.
type typeInfo struct {
	name        string
	status      int
	userMessage string
	userError   bool
}

var types = map[ErrorType]typeInfo{
	ErrorTypeValidation:      {name: "validation", status: http.StatusBadRequest, userError: true},
	ErrorTypeNotFound:        {name: "not_found", status: http.StatusNotFound, userError: true},
	ErrorTypeDatabase:        {name: "database", status: http.StatusInternalServerError, userMessage: "A database error occurred. Please try again."},
	ErrorTypeInvalidInput:    {name: "invalid_input", status: http.StatusBadRequest, userError: true},
	ErrorTypeTimeout:         {name: "timeout", status: http.StatusGatewayTimeout, userMessage: "The operation timed out. Please try again."},
	ErrorTypePermission:      {name: "permission", status: http.StatusForbidden},
	ErrorTypeUnauthenticated: {name: "unauthenticated", status: http.StatusUnauthorized, userMessage: "Your session is not valid. Please log in again.", userError: true},
	ErrorTypeRemote:          {name: "remote", status: http.StatusBadGateway, userMessage: "The server could not complete the request. Please try again."},
	ErrorTypeConflict:        {name: "conflict", status: http.StatusConflict, userError: true},
}

func (et ErrorType) info() (typeInfo, bool) {
	info, ok := types[et]
	return info, ok
}

// String returns the wire name of the error type
func (et ErrorType) String() string {
	if info, ok := et.info(); ok {
		return info.name
	}
	return "unknown"
}

// HTTPStatus maps the error type onto the status code used by the HTTP layers
func (et ErrorType) HTTPStatus() int {
	if info, ok := et.info(); ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType
	Message string
	Code    string
	Cause   error
	Context map[string]any
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError of the same type and code.
func (e *AppError) Is(target error) bool {
	other, ok := target.(*AppError)
	return ok && e.Type == other.Type && e.Code == other.Code
}

func (e *AppError) IsType(errorType ErrorType) bool {
	return e.Type == errorType
}

// WithContext records key on the error and returns it for chaining.
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func (e *AppError) GetContext(key string) (any, bool) {
	value, ok := e.Context[key]
	return value, ok
}

// LogValue renders the error as a group so slog handlers keep the type,
// code and context as separate attributes.
func (e *AppError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("type", e.Type.String()),
		slog.String("code", e.Code),
		slog.String("message", e.Message),
	}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, e.Context[k]))
	}
	if e.Cause != nil {
		attrs = append(attrs, slog.String("cause", e.Cause.Error()))
	}
	return slog.GroupValue(attrs...)
}
