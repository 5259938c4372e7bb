package validation

import (
	"fmt"
	"strings"
	"testing"

	apperrors "project-tracker/internal/errors"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		errors   []FieldError
		contains string
	}{
		{"No errors", []FieldError{}, "validation error"},
		{"Single error", []FieldError{{Field: "title", Message: "is required"}}, "validation error for field 'title': is required"},
		{"Multiple errors", []FieldError{
			{Field: "title", Message: "is required"},
			{Field: "project_id", Message: "must be positive"},
		}, "multiple validation errors"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ve := &ValidationError{Errors: tt.errors}
			if result := ve.Error(); !strings.Contains(result, tt.contains) {
				t.Errorf("ValidationError.Error() = %v, expected to contain %v", result, tt.contains)
			}
		})
	}
}

func TestValidationError_Err(t *testing.T) {
	ve := NewValidationError()
	if ve.Err() != nil {
		t.Errorf("Err() on an empty collection should be nil")
	}

	ve.AddRequiredError("title")
	if ve.Err() == nil {
		t.Errorf("Err() should return the collection once an error was added")
	}
}

func TestValidationError_Merge(t *testing.T) {
	first := NewValidationError()
	first.AddRequiredError("title")

	second := NewValidationError()
	second.AddInvalidValueError("status", "Done", "unknown")

	first.Merge(second)
	first.Merge(nil)
	first.Merge(fmt.Errorf("plain error"))

	if len(first.Errors) != 2 {
		t.Fatalf("Merge() expected 2 errors, got %d", len(first.Errors))
	}
	if first.Errors[1].Field != "status" {
		t.Errorf("Merge() should append in order, got %v", first.Errors)
	}
}

func TestValidationError_Messages(t *testing.T) {
	ve := NewValidationError()
	ve.AddRequiredError("title")
	ve.AddInvalidLengthError("name", "x", 2, 0)
	ve.AddInvalidFormatError("deadline", "tomorrow", "YYYY-MM-DD")
	ve.AddInvalidRangeError("page", 0, "must be at least 1")

	if got := ve.Errors[1].Message; got != "name must be at least 2 characters long" {
		t.Errorf("AddInvalidLengthError() message = %q", got)
	}
	if got := ve.Errors[2].Message; got != "deadline has invalid format, expected: YYYY-MM-DD" {
		t.Errorf("AddInvalidFormatError() message = %q", got)
	}

	friendly := ve.GetUserFriendlyMessage()
	if !strings.HasPrefix(friendly, "Multiple validation errors occurred:\n- title is required") {
		t.Errorf("GetUserFriendlyMessage() = %q", friendly)
	}
	if len(ve.GetFieldErrors("page")) != 1 {
		t.Errorf("GetFieldErrors(page) expected one error")
	}
}

func TestValidationError_AsAppError(t *testing.T) {
	ve := NewValidationError()
	ve.AddRequiredError("title")

	appErr := ve.AsAppError()
	if !appErr.IsType(apperrors.ErrorTypeValidation) {
		t.Errorf("AsAppError() type = %v", appErr.Type)
	}
	if appErr.Message != "title is required" {
		t.Errorf("AsAppError() message = %q", appErr.Message)
	}
	if value, ok := appErr.GetContext("title"); !ok || value != "required" {
		t.Errorf("AsAppError() context = %v", appErr.Context)
	}
	if !IsValidationError(appErr) {
		t.Errorf("IsValidationError() should see through the AppError cause")
	}
}
