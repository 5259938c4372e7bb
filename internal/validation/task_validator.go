package validation

import (
	"project-tracker/internal/domain"
)

const (
	TitleMaxLength       = 255
	DescriptionMaxLength = 2000
	CommentMaxLength     = 1000
)

// TaskValidator provides validation for Task-related operations
type TaskValidator struct {
	validator *Validator
}

// NewTaskValidator creates a new task validator
func NewTaskValidator() *TaskValidator {
	return &TaskValidator{
		validator: NewValidator(),
	}
}

// ValidateTitle validates a task title for creation or update
func (tv *TaskValidator) ValidateTitle(title string) error {
	validationError := NewValidationError()

	trimmed := tv.validator.TrimAndValidateString(title)
	if !tv.validator.IsNonEmptyString(trimmed) {
		validationError.AddRequiredError("title")
		return validationError
	}

	if !tv.validator.IsValidStringLength(trimmed, 1, TitleMaxLength) {
		validationError.AddInvalidLengthError("title", trimmed, 1, TitleMaxLength)
	}

	return validationError.Err()
}

// ValidateTask validates the fields of a task about to be created or updated
func (tv *TaskValidator) ValidateTask(task domain.Task) error {
	validationError := NewValidationError()

	validationError.Merge(tv.ValidateTitle(task.Title))

	if !tv.validator.IsValidStringLength(task.Description, 0, DescriptionMaxLength) {
		validationError.AddInvalidLengthError("description", len(task.Description), 0, DescriptionMaxLength)
	}
	if !task.Status.IsValid() {
		validationError.AddInvalidValueError("status", task.Status, "must be one of Pendiente, En progreso, Completada")
	}
	if !task.Priority.IsValid() {
		validationError.AddInvalidValueError("priority", task.Priority, "must be one of Baja, Media, Alta")
	}
	if !tv.validator.IsValidID(task.ProjectID) {
		validationError.AddInvalidValueError("project_id", task.ProjectID, "must be a positive integer")
	}
	if task.AssigneeID != nil && !tv.validator.IsValidID(*task.AssigneeID) {
		validationError.AddInvalidValueError("assignee_id", *task.AssigneeID, "must be a positive integer")
	}
	if task.Deadline != nil && !tv.validator.IsReasonableDate(*task.Deadline) {
		validationError.AddInvalidRangeError("deadline", *task.Deadline, "must be within ten years of today")
	}

	return validationError.Err()
}

// ValidateTaskForUpdate validates an existing task
func (tv *TaskValidator) ValidateTaskForUpdate(task domain.Task) error {
	validationError := NewValidationError()
	validationError.Merge(tv.ValidateTaskID(task.ID))
	validationError.Merge(tv.ValidateTask(task))
	return validationError.Err()
}

// ValidateTaskID validates a task ID
func (tv *TaskValidator) ValidateTaskID(id int64) error {
	return validateID("task_id", id)
}

// ParseStatus validates a status name and returns its canonical value
func (tv *TaskValidator) ParseStatus(name string) (domain.Status, error) {
	status, err := domain.ParseStatus(name)
	if err != nil {
		validationError := NewValidationError()
		validationError.AddInvalidValueError("status", name, "must be one of Pendiente, En progreso, Completada")
		return "", validationError
	}
	return status, nil
}

// ValidateComment validates the text of a new comment
func (tv *TaskValidator) ValidateComment(taskID int64, text string) error {
	validationError := NewValidationError()
	validationError.Merge(tv.ValidateTaskID(taskID))

	trimmed := tv.validator.TrimAndValidateString(text)
	if !tv.validator.IsNonEmptyString(trimmed) {
		validationError.AddRequiredError("text")
	} else if !tv.validator.IsValidStringLength(trimmed, 1, CommentMaxLength) {
		validationError.AddInvalidLengthError("text", len(trimmed), 1, CommentMaxLength)
	}

	return validationError.Err()
}

func validateID(field string, id int64) error {
	if id > 0 {
		return nil
	}
	validationError := NewValidationError()
	validationError.AddInvalidValueError(field, id, "must be a positive integer")
	return validationError
}
