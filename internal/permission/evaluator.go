package permission

import (
	"project-tracker/internal/domain"
)

// CurrentUserSource supplies the user every check is made for.
type CurrentUserSource interface {
	CurrentUser() *domain.User
}

// Evaluator binds the permission functions to the session's current user.
type Evaluator struct {
	users CurrentUserSource
}

// NewEvaluator returns an Evaluator that checks against users.CurrentUser on every call.
func NewEvaluator(users CurrentUserSource) *Evaluator {
	return &Evaluator{users: users}
}

func (e *Evaluator) user() *domain.User {
	if e == nil || e.users == nil {
		return nil
	}
	return e.users.CurrentUser()
}

// CanViewTask reports whether the current user may open task details.
func (e *Evaluator) CanViewTask() bool { return CanViewTask(e.user()) }

// CanEditTask reports whether the current user may edit task.
func (e *Evaluator) CanEditTask(task domain.EnrichedTask) bool { return CanEditTask(e.user(), task) }

// CanDeleteTask reports whether the current user may delete task.
func (e *Evaluator) CanDeleteTask(task domain.EnrichedTask) bool {
	return CanDeleteTask(e.user(), task)
}

// CanChangeStatus reports whether the current user may move task to another status.
func (e *Evaluator) CanChangeStatus(task domain.Task) bool { return CanChangeStatus(e.user(), task) }

// CanUploadAttachments reports whether the current user may attach files to task.
func (e *Evaluator) CanUploadAttachments(task domain.Task) bool {
	return CanUploadAttachments(e.user(), task)
}

// CanEditProject reports whether the current user may edit project.
func (e *Evaluator) CanEditProject(project domain.Project) bool {
	return CanEditProject(e.user(), project)
}

// CanDeleteProject reports whether the current user may delete projects.
func (e *Evaluator) CanDeleteProject() bool { return CanDeleteProject(e.user()) }

// CanAddComment reports whether the current user may comment on tasks.
func (e *Evaluator) CanAddComment() bool { return CanAddComment(e.user()) }

// CanDeleteComment reports whether the current user may delete comment.
func (e *Evaluator) CanDeleteComment(comment domain.Comment) bool {
	return CanDeleteComment(e.user(), comment)
}

// CanViewAttachments reports whether the current user may list attachments.
func (e *Evaluator) CanViewAttachments() bool { return CanViewAttachments(e.user()) }

// CanDownloadAttachment reports whether the current user may download attachments.
func (e *Evaluator) CanDownloadAttachment() bool { return CanDownloadAttachment(e.user()) }

// CanDeleteAttachment reports whether the current user may delete attachment.
func (e *Evaluator) CanDeleteAttachment(attachment domain.Attachment) bool {
	return CanDeleteAttachment(e.user(), attachment)
}

// CanAccess reports whether the current user holds any of the required roles.
func (e *Evaluator) CanAccess(required ...domain.Role) bool { return CanAccess(e.user(), required...) }

// TaskPermissions summarizes what a user may do with one task.
type TaskPermissions struct {
	View              bool `json:"view"`
	Edit              bool `json:"edit"`
	Delete            bool `json:"delete"`
	ChangeStatus      bool `json:"changeStatus"`
	UploadAttachments bool `json:"uploadAttachments"`
	Comment           bool `json:"comment"`
	ViewAttachments   bool `json:"viewAttachments"`
}

// ForTask evaluates every task-level check for user.
func ForTask(user *domain.User, task domain.EnrichedTask) TaskPermissions {
	return TaskPermissions{
		View:              CanViewTask(user),
		Edit:              CanEditTask(user, task),
		Delete:            CanDeleteTask(user, task),
		ChangeStatus:      CanChangeStatus(user, task.Task),
		UploadAttachments: CanUploadAttachments(user, task.Task),
		Comment:           CanAddComment(user),
		ViewAttachments:   CanViewAttachments(user),
	}
}

// ForTask evaluates every task-level check for the current user.
func (e *Evaluator) ForTask(task domain.EnrichedTask) TaskPermissions { return ForTask(e.user(), task) }
