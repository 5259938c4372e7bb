package sqlite

import (
	"fmt"

	"project-tracker/internal/domain"
)

// storedAttachment is an attachment row together with its content.
type storedAttachment struct {
	domain.Attachment
	StoredName string
}

// downloadURL is the path the REST backend serves attachment content from.
func downloadURL(id int64) string {
	return fmt.Sprintf("/api/attachments/%d/download", id)
}

const taskColumns = `
	t.id, t.title, t.description, t.status, t.priority, t.created_at, t.deadline,
	t.project_id, p.name, t.assignee_id, COALESCE(a.username, ''), t.creator_id, COALESCE(c.username, '')
	FROM tasks t
	JOIN projects p ON p.id = t.project_id
	LEFT JOIN users a ON a.id = t.assignee_id
	LEFT JOIN users c ON c.id = t.creator_id`

const projectColumns = `
	p.id, p.name, p.description, p.created_at, p.deadline,
	p.creator_id, COALESCE(c.username, ''), p.manager_id, COALESCE(m.username, '')
	FROM projects p
	LEFT JOIN users c ON c.id = p.creator_id
	LEFT JOIN users m ON m.id = p.manager_id`

const userColumns = `u.id, u.username, u.email, u.roles, u.created_at FROM users u`

const commentColumns = `
	cm.id, cm.text, COALESCE(NULLIF(u.email, ''), u.username), u.username, cm.created_at, cm.task_id
	FROM comments cm
	JOIN users u ON u.id = cm.author_id`

const attachmentColumns = `
	at.id, at.name, at.content_type, at.size, COALESCE(NULLIF(u.email, ''), u.username), u.username,
	at.uploaded_at, at.task_id, at.stored_name
	FROM attachments at
	JOIN users u ON u.id = at.uploader_id`
