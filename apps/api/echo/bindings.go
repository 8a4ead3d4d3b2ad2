package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/campushub/backend/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses the "ordering" query param: comma-separated field names, each
// optionally prefixed with "-" for descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

func bindPagination(ctx echo.Context) *core.Pagination {
	page := new(core.Pagination)
	if err := ctx.Bind(page); err != nil {
		return &core.Pagination{}
	}
	page.Clean()
	return page
}

// PagedResponse is the envelope all list endpoints reply with.
type PagedResponse struct {
	Metadata core.PageMetadata `json:"metadata"`
	Results  interface{}       `json:"results"`
}

func newPagedResponse(page *core.Pagination, total int, results interface{}) PagedResponse {
	return PagedResponse{
		Metadata: core.NewPageMetadata(*page, total),
		Results:  results,
	}
}
