package partition

import (
	"fmt"
	"math"
)

// DefaultPageSize is used when a non-positive page size is requested.
const DefaultPageSize = 10

// Paginator slices a collection into fixed-size, 1-based pages.
type Paginator[T any] struct {
	items    []T
	page     int
	pageSize int
}

// NewPaginator positions a paginator on page of items. Pages below 1 are
// clamped to 1; pages past the end are kept and yield empty slices.
func NewPaginator[T any](items []T, page, pageSize int) Paginator[T] {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	return Paginator[T]{items: items, page: page, pageSize: pageSize}
}

func (p Paginator[T]) Page() int     { return p.page }
func (p Paginator[T]) PageSize() int { return p.pageSize }
func (p Paginator[T]) Total() int    { return len(p.items) }

// TotalPages is at least 1, so an empty collection still has a first page.
func (p Paginator[T]) TotalPages() int {
	if len(p.items) == 0 {
		return 1
	}
	return (len(p.items)-1)/p.pageSize + 1
}

// offset is the number of items on the first pages pages, saturating at
// math.MaxInt.
func (p Paginator[T]) offset(pages int) int {
	if pages > math.MaxInt/p.pageSize {
		return math.MaxInt
	}
	return pages * p.pageSize
}

// Start is the 1-based position of the first item of the page. It saturates
// at math.MaxInt for pages whose offset does not fit an int.
func (p Paginator[T]) Start() int {
	from := p.offset(p.page - 1)
	if from == math.MaxInt {
		return from
	}
	return from + 1
}

// End is the 1-based position of the last item of the page.
func (p Paginator[T]) End() int {
	return min(p.offset(p.page), len(p.items))
}

// Items returns a copy of the current page, empty when the page lies past the end.
func (p Paginator[T]) Items() []T {
	from := min(p.offset(p.page-1), len(p.items))
	to := min(p.offset(p.page), len(p.items))
	out := make([]T, to-from)
	copy(out, p.items[from:to])
	return out
}

func (p Paginator[T]) HasNext() bool { return p.page < p.TotalPages() }
func (p Paginator[T]) HasPrev() bool { return p.page > 1 }

// DisplayRange renders "<start> - <end> de <total>". For pages past the end
// start exceeds end; the values still follow the same formulas.
func (p Paginator[T]) DisplayRange() string {
	return fmt.Sprintf("%d - %d de %d", p.Start(), p.End(), p.Total())
}
