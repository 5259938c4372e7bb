package partition

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPaginator(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		page       int
		size       int
		items      []int
		display    string
		totalPages int
	}{
		{"third page of 23", 23, 3, 10, []int{20, 21, 22}, "21 - 23 de 23", 3},
		{"first page", 23, 1, 10, seq(10), "1 - 10 de 23", 3},
		{"exact fit", 20, 2, 10, []int{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}, "11 - 20 de 20", 2},
		{"past the end", 23, 4, 10, []int{}, "31 - 23 de 23", 3},
		{"empty collection", 0, 1, 10, []int{}, "1 - 0 de 0", 1},
		{"page below one clamps", 5, 0, 2, []int{0, 1}, "1 - 2 de 5", 3},
		{"non-positive size uses default", 12, 2, 0, []int{10, 11}, "11 - 12 de 12", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPaginator(seq(tt.total), tt.page, tt.size)
			assert.Equal(t, tt.items, p.Items())
			assert.Equal(t, tt.display, p.DisplayRange())
			assert.Equal(t, tt.totalPages, p.TotalPages())
		})
	}
}

func TestPaginator_Navigation(t *testing.T) {
	p := NewPaginator(seq(25), 2, 10)
	assert.True(t, p.HasPrev())
	assert.True(t, p.HasNext())
	assert.Equal(t, 11, p.Start())
	assert.Equal(t, 20, p.End())

	last := NewPaginator(seq(25), 3, 10)
	assert.False(t, last.HasNext())
	assert.False(t, NewPaginator(seq(25), 1, 10).HasPrev())
}

func TestPaginator_ItemsAreCopied(t *testing.T) {
	source := []string{"a", "b", "c"}
	page := NewPaginator(source, 1, 2).Items()
	page[0] = "z"
	assert.Equal(t, "a", source[0])
}

func TestPaginator_HugePageSaturates(t *testing.T) {
	p := NewPaginator(seq(23), math.MaxInt, 10)

	assert.NotPanics(t, func() { p.Items() })
	assert.Empty(t, p.Items())
	assert.Equal(t, math.MaxInt, p.Start())
	assert.Equal(t, 23, p.End())
	assert.Equal(t, fmt.Sprintf("%d - 23 de 23", math.MaxInt), p.DisplayRange())
	assert.False(t, p.HasNext())
}

func TestPaginator_HugePageSize(t *testing.T) {
	p := NewPaginator(seq(5), 2, math.MaxInt)

	assert.Equal(t, 1, p.TotalPages())
	assert.Empty(t, p.Items())
	assert.Equal(t, seq(5), NewPaginator(seq(5), 1, math.MaxInt).Items())
	assert.Equal(t, "1 - 5 de 5", NewPaginator(seq(5), 1, math.MaxInt).DisplayRange())
}
