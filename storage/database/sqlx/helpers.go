// Package sqlxrepos implements the domain repositories on PostgreSQL via sqlx.
package sqlxrepos

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/campushub/backend/core"
)

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}

// orderClause renders an ORDER BY for the given ordering, falling back to
// fallback when none is provided. Fields are matched against allowed to keep
// user input out of the SQL.
func orderClause(ordering []core.DBOrdering, fallback string, allowed ...string) string {
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		for _, fld := range allowed {
			if ord.Field == fld {
				orderList = append(orderList, ord.String())
				break
			}
		}
	}
	if len(orderList) == 0 {
		return " ORDER BY " + fallback
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}

func pageClause(page *core.Pagination) string {
	if page == nil {
		return ""
	}
	page.Clean()
	return fmt.Sprintf(" LIMIT %d OFFSET %d", page.Limit, page.Offset())
}
