package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageQuery_Normalize(t *testing.T) {
	tests := []struct {
		name        string
		in          PageQuery
		wantPage    int
		wantPerPage int
	}{
		{"zero values take defaults", PageQuery{}, 1, DefaultPerPage},
		{"negative page clamps to 1", PageQuery{Page: -3, PerPage: 20}, 1, 20},
		{"per_page above max clamps", PageQuery{Page: 2, PerPage: 500}, 2, MaxPerPage},
		{"valid values pass through", PageQuery{Page: 4, PerPage: 25}, 4, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Normalize()
			assert.Equal(t, tt.wantPage, tt.in.Page)
			assert.Equal(t, tt.wantPerPage, tt.in.PerPage)
		})
	}
}

func TestPageQuery_Offset(t *testing.T) {
	q := PageQuery{Page: 3, PerPage: 10}
	assert.Equal(t, 20, q.Offset())

	q = PageQuery{Page: 1, PerPage: 50}
	assert.Equal(t, 0, q.Offset())
}

func TestNewPageMeta(t *testing.T) {
	q := PageQuery{Page: 2, PerPage: 10}

	meta := NewPageMeta(q, 25)
	assert.Equal(t, 2, meta.CurrentPage)
	assert.Equal(t, 10, meta.PerPage)
	assert.Equal(t, int64(25), meta.TotalCount)
	assert.Equal(t, 3, meta.TotalPages)

	// Exact multiple does not grow an extra page.
	meta = NewPageMeta(q, 20)
	assert.Equal(t, 2, meta.TotalPages)

	// Empty collection still reports the requested page.
	meta = NewPageMeta(PageQuery{Page: 9, PerPage: 10}, 0)
	assert.Equal(t, 9, meta.CurrentPage)
	assert.Equal(t, 0, meta.TotalPages)
}
