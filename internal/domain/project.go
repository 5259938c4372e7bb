package domain

import "time"

// Project groups tasks and is optionally supervised by a manager.
type Project struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	CreatorID       int64      `json:"creatorId"`
	CreatorUsername string     `json:"creatorUsername,omitempty"`
	ManagerID       *int64     `json:"managerId,omitempty"`
	ManagerUsername string     `json:"managerUsername,omitempty"`
}

// HasManager reports whether a manager is assigned to the project.
func (p Project) HasManager() bool {
	return p.ManagerID != nil
}

// IsOverdue reports whether the deadline day lies before the day of now.
func (p Project) IsOverdue(now time.Time) bool {
	return dayBefore(p.Deadline, now)
}

func dayBefore(deadline *time.Time, now time.Time) bool {
	if deadline == nil {
		return false
	}
	d := deadline.In(now.Location())
	dy, dm, dd := d.Date()
	ny, nm, nd := now.Date()
	return time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC).Before(time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC))
}
