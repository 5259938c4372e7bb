// Package partition splits enriched tasks into role-scoped buckets and pages
// through them.
package partition

import (
	"project-tracker/internal/domain"
)

// Buckets is the ordered set of buckets built for one user.
type Buckets struct {
	order []*Bucket
}

// NewBuckets groups buckets in display order.
func NewBuckets(buckets ...*Bucket) *Buckets {
	return &Buckets{order: buckets}
}

// Get returns the bucket called name, or nil.
func (bs *Buckets) Get(name Name) *Bucket {
	if bs == nil {
		return nil
	}
	for _, b := range bs.order {
		if b.Name() == name {
			return b
		}
	}
	return nil
}

// All returns the buckets in display order.
func (bs *Buckets) All() []*Bucket {
	if bs == nil {
		return nil
	}
	return append([]*Bucket(nil), bs.order...)
}

func (bs *Buckets) Names() []Name {
	names := make([]Name, 0, len(bs.All()))
	for _, b := range bs.All() {
		names = append(names, b.Name())
	}
	return names
}

// FilterByStatus applies filter to every bucket.
func (bs *Buckets) FilterByStatus(filter domain.StatusFilter) {
	for _, b := range bs.All() {
		b.FilterByStatus(filter)
	}
}

// SetPage moves every bucket to page n.
func (bs *Buckets) SetPage(n int) {
	for _, b := range bs.All() {
		b.SetPage(n)
	}
}

// CountByStatus counts distinct tasks with status across all buckets.
func (bs *Buckets) CountByStatus(status domain.Status) int {
	seen := make(map[int64]struct{})
	for _, b := range bs.All() {
		for _, t := range b.Items() {
			if t.Status == status {
				seen[t.ID] = struct{}{}
			}
		}
	}
	return len(seen)
}

// Len counts distinct tasks across all buckets.
func (bs *Buckets) Len() int {
	seen := make(map[int64]struct{})
	for _, b := range bs.All() {
		for _, t := range b.Items() {
			seen[t.ID] = struct{}{}
		}
	}
	return len(seen)
}

// Find returns the first copy of the task found in display order.
func (bs *Buckets) Find(taskID int64) (domain.EnrichedTask, bool) {
	for _, b := range bs.All() {
		if t, ok := b.Find(taskID); ok {
			return t, true
		}
	}
	return domain.EnrichedTask{}, false
}

// Replace swaps every cached copy of task and returns how many were replaced.
func (bs *Buckets) Replace(task domain.EnrichedTask) int {
	n := 0
	for _, b := range bs.All() {
		n += b.Replace(task)
	}
	return n
}

// Remove drops the task from every bucket and returns how many copies were removed.
func (bs *Buckets) Remove(taskID int64) int {
	n := 0
	for _, b := range bs.All() {
		n += b.Remove(taskID)
	}
	return n
}

// Clear empties every bucket.
func (bs *Buckets) Clear() {
	for _, b := range bs.All() {
		b.Clear()
	}
}

// Snapshot captures every bucket's current page.
func (bs *Buckets) Snapshot() []View {
	views := make([]View, 0, len(bs.All()))
	for _, b := range bs.All() {
		views = append(views, b.Snapshot())
	}
	return views
}

// Partitioner builds buckets sized to a fixed page size.
type Partitioner struct {
	pageSize int
}

func NewPartitioner(pageSize int) *Partitioner {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &Partitioner{pageSize: pageSize}
}

// Partition splits tasks by the user's most privileged role:
//
//   - ADMIN gets a single "all" bucket.
//   - MANAGER gets "assignedToMe" and "managedProjects"; the latter holds tasks
//     of managedProjectIDs not already in "assignedToMe".
//   - USER gets "assignedToMe" only.
//
// Assignment is re-checked here even when the server already scoped the list.
// A nil user gets no buckets.
func (p *Partitioner) Partition(tasks []domain.EnrichedTask, user *domain.User, managedProjectIDs []int64) *Buckets {
	if user == nil {
		return NewBuckets()
	}

	switch user.PrimaryRole() {
	case domain.RoleAdmin:
		return NewBuckets(NewBucket(BucketAll, tasks, p.pageSize))

	case domain.RoleManager:
		assigned := assignedTo(tasks, user.ID)
		mine := make(map[int64]struct{}, len(assigned))
		for _, t := range assigned {
			mine[t.ID] = struct{}{}
		}
		managed := make(map[int64]struct{}, len(managedProjectIDs))
		for _, id := range managedProjectIDs {
			managed[id] = struct{}{}
		}

		inProjects := make([]domain.EnrichedTask, 0)
		for _, t := range tasks {
			if _, ok := managed[t.ProjectID]; !ok {
				continue
			}
			if _, ok := mine[t.ID]; ok {
				continue
			}
			inProjects = append(inProjects, t)
		}
		return NewBuckets(
			NewBucket(BucketAssignedToMe, assigned, p.pageSize),
			NewBucket(BucketManagedProjects, inProjects, p.pageSize),
		)

	default:
		return NewBuckets(NewBucket(BucketAssignedToMe, assignedTo(tasks, user.ID), p.pageSize))
	}
}

func assignedTo(tasks []domain.EnrichedTask, userID int64) []domain.EnrichedTask {
	out := make([]domain.EnrichedTask, 0)
	for _, t := range tasks {
		if t.IsAssignedTo(userID) {
			out = append(out, t)
		}
	}
	return out
}
