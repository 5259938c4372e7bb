package partition

import (
	"sync"

	"project-tracker/internal/domain"
)

// Name identifies a bucket.
type Name string

const (
	BucketAll             Name = "all"
	BucketAssignedToMe    Name = "assignedToMe"
	BucketManagedProjects Name = "managedProjects"
)

// Bucket is a named, filterable, paginated view over enriched tasks.
// It is safe for concurrent use.
type Bucket struct {
	mu       sync.RWMutex
	name     Name
	items    []domain.EnrichedTask
	filter   domain.StatusFilter
	page     int
	pageSize int
}

// NewBucket copies items into a bucket showing the first page, unfiltered.
func NewBucket(name Name, items []domain.EnrichedTask, pageSize int) *Bucket {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &Bucket{
		name:     name,
		items:    append([]domain.EnrichedTask{}, items...),
		filter:   domain.AllStatusFilter,
		page:     1,
		pageSize: pageSize,
	}
}

func (b *Bucket) Name() Name { return b.name }

func (b *Bucket) Filter() domain.StatusFilter {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.filter
}

func (b *Bucket) CurrentPage() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.page
}

func (b *Bucket) PageSize() int { return b.pageSize }

// FilterByStatus applies filter and goes back to the first page.
func (b *Bucket) FilterByStatus(filter domain.StatusFilter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if filter.IsAll() {
		filter = domain.AllStatusFilter
	}
	b.filter = filter
	b.page = 1
}

// SetPage moves to page n, keeping the filter. Pages below 1 become 1.
func (b *Bucket) SetPage(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n < 1 {
		n = 1
	}
	b.page = n
}

// Page returns the tasks of the current page of the filtered contents.
func (b *Bucket) Page() []domain.EnrichedTask {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.paginatorLocked().Items()
}

// DisplayRange describes the current page, e.g. "21 - 23 de 23".
// The total is the number of tasks passing the filter.
func (b *Bucket) DisplayRange() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.paginatorLocked().DisplayRange()
}

func (b *Bucket) TotalPages() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.paginatorLocked().TotalPages()
}

// CountByStatus counts tasks with status over the whole bucket, ignoring the
// current filter and page.
func (b *Bucket) CountByStatus(status domain.Status) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, t := range b.items {
		if t.Status == status {
			n++
		}
	}
	return n
}

// Len is the number of tasks in the bucket.
func (b *Bucket) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

// FilteredLen is the number of tasks passing the current filter.
func (b *Bucket) FilteredLen() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.filteredLocked())
}

// Items returns a copy of the unfiltered contents.
func (b *Bucket) Items() []domain.EnrichedTask {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.EnrichedTask{}, b.items...)
}

// Find returns the task with id.
func (b *Bucket) Find(taskID int64) (domain.EnrichedTask, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, t := range b.items {
		if t.ID == taskID {
			return t, true
		}
	}
	return domain.EnrichedTask{}, false
}

// SetStatus rewrites the status of every copy of the task in place and
// reports how many copies changed.
func (b *Bucket) SetStatus(taskID int64, status domain.Status) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for i := range b.items {
		if b.items[i].ID == taskID {
			b.items[i] = b.items[i].WithStatus(status)
			n++
		}
	}
	return n
}

// Replace swaps every copy of task.ID for task, keeping its position.
func (b *Bucket) Replace(task domain.EnrichedTask) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for i := range b.items {
		if b.items[i].ID == task.ID {
			b.items[i] = task
			n++
		}
	}
	return n
}

// Remove drops every copy of the task.
func (b *Bucket) Remove(taskID int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.items[:0:0]
	for _, t := range b.items {
		if t.ID != taskID {
			kept = append(kept, t)
		}
	}
	removed := len(b.items) - len(kept)
	b.items = kept
	return removed
}

// Clear empties the bucket, keeping filter and page size.
func (b *Bucket) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = nil
	b.page = 1
}

func (b *Bucket) paginatorLocked() Paginator[domain.EnrichedTask] {
	return NewPaginator(b.filteredLocked(), b.page, b.pageSize)
}

func (b *Bucket) filteredLocked() []domain.EnrichedTask {
	if b.filter.IsAll() {
		return b.items
	}
	filtered := make([]domain.EnrichedTask, 0, len(b.items))
	for _, t := range b.items {
		if b.filter.Matches(t.Status) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// View is a serializable snapshot of a bucket's current page.
type View struct {
	Name         Name                  `json:"name"`
	Filter       string                `json:"filter"`
	Page         int                   `json:"page"`
	PageSize     int                   `json:"pageSize"`
	TotalPages   int                   `json:"totalPages"`
	Total        int                   `json:"total"`
	Filtered     int                   `json:"filtered"`
	DisplayRange string                `json:"displayRange"`
	Counts       map[domain.Status]int `json:"counts"`
	Tasks        []domain.EnrichedTask `json:"tasks"`
}

// Snapshot captures the bucket's current page in one consistent read.
func (b *Bucket) Snapshot() View {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p := b.paginatorLocked()
	counts := make(map[domain.Status]int, len(domain.AllStatuses))
	for _, status := range domain.AllStatuses {
		counts[status] = 0
	}
	for _, t := range b.items {
		counts[t.Status]++
	}
	return View{
		Name:         b.name,
		Filter:       b.filter.String(),
		Page:         p.Page(),
		PageSize:     p.PageSize(),
		TotalPages:   p.TotalPages(),
		Total:        len(b.items),
		Filtered:     p.Total(),
		DisplayRange: p.DisplayRange(),
		Counts:       counts,
		Tasks:        p.Items(),
	}
}
