// Package permission decides which actions a user may take on tasks, projects,
// comments and attachments.
//
// Every function is pure and treats a nil user as unauthenticated, which is
// always denied. The REST API re-validates each request; these checks decide
// what the client offers and short-circuit requests that would be refused.
package permission

import (
	"project-tracker/internal/domain"
)

// CanViewTask reports whether user may view tasks at all.
func CanViewTask(user *domain.User) bool {
	return user != nil
}

// CanEditTask grants administrators everything. Managers may edit tasks whose
// project manager has their username. Everybody else may edit tasks assigned
// to them.
//
// A manager who is not the project manager does not fall back to the
// assignee rule.
func CanEditTask(user *domain.User, task domain.EnrichedTask) bool {
	if user == nil {
		return false
	}
	if user.IsAdmin() {
		return true
	}
	if user.IsManager() {
		return IsProjectManager(user, task)
	}
	return task.IsAssignedTo(user.ID)
}

// CanDeleteTask currently follows CanEditTask.
func CanDeleteTask(user *domain.User, task domain.EnrichedTask) bool {
	return CanEditTask(user, task)
}

// IsProjectManager compares the resolved project manager with user by username.
func IsProjectManager(user *domain.User, task domain.EnrichedTask) bool {
	if user == nil || task.ProjectManager == nil {
		return false
	}
	return task.ProjectManager.Username == user.Username
}

// CanChangeStatus lets administrators and the task's assignee move a task
// between statuses. The assignee is matched by username.
func CanChangeStatus(user *domain.User, task domain.Task) bool {
	if user == nil {
		return false
	}
	if user.IsAdmin() {
		return true
	}
	return task.AssigneeUsername != "" && task.AssigneeUsername == user.Username
}

// CanUploadAttachments follows CanChangeStatus.
func CanUploadAttachments(user *domain.User, task domain.Task) bool {
	return CanChangeStatus(user, task)
}

// CanEditProject grants administrators everything, and managers the projects
// they manage or created. Both are matched by user id.
func CanEditProject(user *domain.User, project domain.Project) bool {
	if user == nil {
		return false
	}
	if user.IsAdmin() {
		return true
	}
	if !user.IsManager() {
		return false
	}
	managed := project.ManagerID != nil && *project.ManagerID == user.ID
	return managed || project.CreatorID == user.ID
}

// CanDeleteProject is reserved to administrators.
func CanDeleteProject(user *domain.User) bool {
	return user != nil && user.IsAdmin()
}

// CanAddComment reports whether user may comment on tasks.
func CanAddComment(user *domain.User) bool {
	return user != nil
}

// CanViewAttachments reports whether user may list attachments.
func CanViewAttachments(user *domain.User) bool {
	return user != nil
}

// CanDownloadAttachment reports whether user may download attachments.
func CanDownloadAttachment(user *domain.User) bool {
	return user != nil
}

// CanDeleteComment lets administrators and the comment's author delete it.
func CanDeleteComment(user *domain.User, comment domain.Comment) bool {
	if user == nil {
		return false
	}
	return user.IsAdmin() || comment.AuthorUsername == user.Username
}

// CanDeleteAttachment lets administrators and the uploader delete an attachment.
func CanDeleteAttachment(user *domain.User, attachment domain.Attachment) bool {
	if user == nil {
		return false
	}
	return user.IsAdmin() || attachment.UploaderUsername == user.Username
}

// CanAccess is a route guard: the user must be authenticated and, when roles
// are given, hold at least one of them.
func CanAccess(user *domain.User, required ...domain.Role) bool {
	if user == nil {
		return false
	}
	if len(required) == 0 {
		return true
	}
	for _, role := range required {
		if user.HasRole(role) {
			return true
		}
	}
	return false
}
