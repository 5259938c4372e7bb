package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status is the workflow state of a task. Any status may follow any other.
type Status string

const (
	StatusPending    Status = "Pendiente"
	StatusInProgress Status = "En progreso"
	StatusCompleted  Status = "Completada"
)

// AllStatuses lists the statuses in display order.
var AllStatuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

// ParseStatus accepts the wire labels as well as their English names.
func ParseStatus(s string) (Status, error) {
	switch normalize(s) {
	case "pendiente", "pending":
		return StatusPending, nil
	case "enprogreso", "inprogress":
		return StatusInProgress, nil
	case "completada", "completed", "done":
		return StatusCompleted, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// UnmarshalText decodes any name accepted by ParseStatus.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Status) String() string {
	return string(s)
}

// Priority ranks how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "Baja"
	PriorityMedium Priority = "Media"
	PriorityHigh   Priority = "Alta"
)

// ParsePriority accepts the wire labels as well as their English names.
func ParsePriority(s string) (Priority, error) {
	switch normalize(s) {
	case "baja", "low":
		return PriorityLow, nil
	case "media", "medium":
		return PriorityMedium, nil
	case "alta", "high":
		return PriorityHigh, nil
	default:
		return "", fmt.Errorf("unknown priority %q", s)
	}
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// UnmarshalText decodes any name accepted by ParsePriority.
func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Priority) String() string {
	return string(p)
}

// StatusFilter selects tasks by status. The zero value matches every task.
type StatusFilter string

// AllStatusFilter matches every status.
const AllStatusFilter StatusFilter = "todas"

// ParseStatusFilter accepts "todas", "all", the empty string, or any status name.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch normalize(s) {
	case "", "todas", "all":
		return AllStatusFilter, nil
	}
	status, err := ParseStatus(s)
	if err != nil {
		return "", err
	}
	return StatusFilter(status), nil
}

// FilterFor returns the filter that matches only status.
func FilterFor(status Status) StatusFilter {
	return StatusFilter(status)
}

func (f StatusFilter) IsAll() bool {
	return f == "" || f == AllStatusFilter
}

// Matches reports whether a task with the given status passes the filter.
func (f StatusFilter) Matches(status Status) bool {
	return f.IsAll() || Status(f) == status
}

func (f StatusFilter) String() string {
	if f.IsAll() {
		return string(AllStatusFilter)
	}
	return string(f)
}

func normalize(s string) string {
	return strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.TrimSpace(s)))
}

// Task is a unit of work inside a project.
type Task struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Status           Status     `json:"status"`
	Priority         Priority   `json:"priority"`
	CreatedAt        time.Time  `json:"createdAt"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	ProjectID        int64      `json:"projectId"`
	ProjectName      string     `json:"projectName,omitempty"`
	AssigneeID       *int64     `json:"assigneeId,omitempty"`
	AssigneeUsername string     `json:"assigneeUsername,omitempty"`
	CreatorID        int64      `json:"creatorId"`
	CreatorUsername  string     `json:"creatorUsername,omitempty"`
}

// IsAssignedTo reports whether the task's assignee is the user with the given id.
func (t Task) IsAssignedTo(userID int64) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

// IsOverdue reports whether the deadline day lies before the day of now.
func (t Task) IsOverdue(now time.Time) bool {
	return dayBefore(t.Deadline, now)
}

// Clone returns a copy whose pointer fields are not shared with t.
func (t Task) Clone() Task {
	if t.AssigneeID != nil {
		id := *t.AssigneeID
		t.AssigneeID = &id
	}
	if t.Deadline != nil {
		d := *t.Deadline
		t.Deadline = &d
	}
	return t
}

// EnrichedTask is a task annotated at read time with the manager of its project.
// ProjectManager is nil when the project has no manager or the lookup failed.
// It is never persisted.
type EnrichedTask struct {
	Task
	ProjectManager *User `json:"projectManager"`
}

// WithStatus returns a copy of the enriched task carrying status.
func (e EnrichedTask) WithStatus(status Status) EnrichedTask {
	e.Task = e.Task.Clone()
	e.Status = status
	return e
}

// Plain strips the enrichment.
func Plain(tasks []EnrichedTask) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Task
	}
	return out
}
