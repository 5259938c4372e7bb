package validation

import (
	"project-tracker/internal/domain"
)

const ProjectNameMaxLength = 100

// ProjectValidator provides validation for Project-related operations
type ProjectValidator struct {
	validator *Validator
}

// NewProjectValidator creates a new project validator
func NewProjectValidator() *ProjectValidator {
	return &ProjectValidator{validator: NewValidator()}
}

// ValidateProject validates a project about to be created or updated
func (pv *ProjectValidator) ValidateProject(project domain.Project) error {
	validationError := NewValidationError()

	name := pv.validator.TrimAndValidateString(project.Name)
	if !pv.validator.IsNonEmptyString(name) {
		validationError.AddRequiredError("name")
	} else if !pv.validator.IsValidStringLength(name, 1, ProjectNameMaxLength) {
		validationError.AddInvalidLengthError("name", name, 1, ProjectNameMaxLength)
	}

	if project.Deadline == nil {
		validationError.AddRequiredError("deadline")
	} else if !pv.validator.IsReasonableDate(*project.Deadline) {
		validationError.AddInvalidRangeError("deadline", *project.Deadline, "must be within ten years of today")
	}

	if project.ManagerID != nil && !pv.validator.IsValidID(*project.ManagerID) {
		validationError.AddInvalidValueError("manager_id", *project.ManagerID, "must be a positive integer")
	}

	return validationError.Err()
}

// ValidateProjectID validates a project ID
func (pv *ProjectValidator) ValidateProjectID(id int64) error {
	return validateID("project_id", id)
}

// ValidateCredentials validates a login request
func ValidateCredentials(username, password string) error {
	validationError := NewValidationError()
	if NewValidator().TrimAndValidateString(username) == "" {
		validationError.AddRequiredError("username")
	}
	if password == "" {
		validationError.AddRequiredError("password")
	}
	return validationError.Err()
}

// ValidatePage validates a 1-based page number
func ValidatePage(page int) error {
	if page >= 1 {
		return nil
	}
	validationError := NewValidationError()
	validationError.AddInvalidRangeError("page", page, "must be at least 1")
	return validationError
}
