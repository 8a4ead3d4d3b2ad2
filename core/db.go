package core

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

const (
	defaultPageLimit = 10
	maxPageLimit     = 50
)

// Pagination is the standard page/limit query pair accepted by all list endpoints.
type Pagination struct {
	Page  int `query:"page"`
	Limit int `query:"limit"`
}

// Clean clamps the pagination to sane values: page >= 1, 1 <= limit <= 50 (default 10).
func (p *Pagination) Clean() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > maxPageLimit {
		p.Limit = defaultPageLimit
	}
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PageMetadata is returned alongside paginated results.
type PageMetadata struct {
	TotalPages   int `json:"total_pages"`
	CurrentPage  int `json:"current_page"`
	CurrentLimit int `json:"current_limit"`
	TotalCount   int `json:"total_count"`
}

func NewPageMetadata(p Pagination, total int) PageMetadata {
	pages := total / p.Limit
	if total%p.Limit > 0 {
		pages++
	}
	return PageMetadata{
		TotalPages:   pages,
		CurrentPage:  p.Page,
		CurrentLimit: p.Limit,
		TotalCount:   total,
	}
}
