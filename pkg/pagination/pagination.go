package pagination

import "gorm.io/gorm"

const (
	// DefaultPageSize is the page size when a caller omits one.
	DefaultPageSize = 20
	// MaxPageSize caps how many rows a page query can request.
	MaxPageSize = 100
)

// Params holds page based pagination inputs from controllers or services.
type Params struct {
	Page     int
	PageSize int
}

// Normalize floors the page at 1 and clamps the page size to [1, MaxPageSize].
// Callers apply DefaultPageSize when the size was omitted; see Default.
func Normalize(p Params) Params {
	p.Page = max(p.Page, 1)
	p.PageSize = min(max(p.PageSize, 1), MaxPageSize)
	return p
}

// Default is the first page at DefaultPageSize.
func Default() Params {
	return Params{Page: 1, PageSize: DefaultPageSize}
}

// Offset returns the row offset for the page.
func (p Params) Offset() int {
	n := Normalize(p)
	return (n.Page - 1) * n.PageSize
}

// Scope applies limit/offset to a GORM query.
func (p Params) Scope() func(*gorm.DB) *gorm.DB {
	n := Normalize(p)
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(n.Offset()).Limit(n.PageSize)
	}
}

// Page is the response envelope for paged listings.
type Page[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPage assembles a Page from rows, the normalized params and the total count.
func NewPage[T any](rows []T, p Params, total int64) Page[T] {
	n := Normalize(p)
	if rows == nil {
		rows = []T{}
	}
	return Page[T]{
		Data:       rows,
		Page:       n.Page,
		PageSize:   n.PageSize,
		Total:      total,
		TotalPages: TotalPages(total, n.PageSize),
	}
}

// TotalPages returns ceil(total / pageSize).
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
