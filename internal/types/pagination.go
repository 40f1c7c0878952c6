package types

// Pagination defaults. PerPage is clamped so a single page can never ask the
// store for an unbounded slice.
const (
	DefaultPerPage = 10
	MaxPerPage     = 50
)

// PageQuery is the normalized page/per_page pair parsed from a list request.
type PageQuery struct {
	Page    int `json:"page" schema:"page" query:"page"`
	PerPage int `json:"per_page" schema:"per_page" query:"per_page"`
}

// Normalize clamps the query into valid bounds: page >= 1 and
// 1 <= per_page <= MaxPerPage, with DefaultPerPage when unset.
func (q *PageQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
}

// Offset returns the SQL offset for the normalized query.
func (q PageQuery) Offset() int {
	return (q.Page - 1) * q.PerPage
}

// PageMeta is attached to every list response.
type PageMeta struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	TotalCount  int64 `json:"total_count"`
	TotalPages  int   `json:"total_pages"`
}

// NewPageMeta derives the response meta from a normalized query and the
// total row count. A page beyond the last yields an empty list but the meta
// still reports the true totals.
func NewPageMeta(q PageQuery, totalCount int64) PageMeta {
	totalPages := int(totalCount) / q.PerPage
	if int(totalCount)%q.PerPage != 0 {
		totalPages++
	}
	return PageMeta{
		CurrentPage: q.Page,
		PerPage:     q.PerPage,
		TotalCount:  totalCount,
		TotalPages:  totalPages,
	}
}
