// Package pagination parses limit/offset/order query parameters shared by
// list endpoints and shapes paginated responses.
package pagination

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/cloudsystem/cloudsystem/internal/apperror"
	"github.com/cloudsystem/cloudsystem/internal/validate"
)

// Defaults applied when a parameter is absent.
const (
	DefaultLimit   = 10
	DefaultOrderBy = "created_at"
	DefaultOrder   = "desc"
)

// Query is a parsed pagination and ordering request.
type Query struct {
	Limit      int
	Offset     int
	NoPaginate bool
	OrderBy    string
	Order      string
}

// FromRequest reads limit, offset, nopaginate, order_by and order from the
// query string. columns whitelists order_by values against the SQL column
// each one sorts by.
func FromRequest(c echo.Context, columns map[string]string) (Query, error) {
	q := Query{
		Limit:   DefaultLimit,
		OrderBy: DefaultOrderBy,
		Order:   DefaultOrder,
	}

	err := echo.QueryParamsBinder(c).
		Int("limit", &q.Limit).
		Int("offset", &q.Offset).
		Bool("nopaginate", &q.NoPaginate).
		String("order_by", &q.OrderBy).
		String("order", &q.Order).
		BindError()
	if err != nil {
		if be, ok := err.(*echo.BindingError); ok {
			return q, apperror.NewInvalidInput(validate.QueryMessage, map[string]string{
				be.Field: be.Field + " has the wrong type",
			})
		}
		return q, apperror.NewInvalidInput(validate.QueryMessage, nil)
	}

	fields := map[string]string{}
	if q.Limit < 0 {
		fields["limit"] = "limit must be at least 0"
	}
	if q.Offset < 0 {
		fields["offset"] = "offset must be at least 0"
	}
	if q.Order != "asc" && q.Order != "desc" {
		fields["order"] = "order must be one of [asc, desc]"
	}
	if _, ok := columns[q.OrderBy]; !ok {
		fields["order_by"] = fmt.Sprintf("order_by %q is not a sortable field", q.OrderBy)
	}
	if len(fields) > 0 {
		return q, apperror.NewInvalidInput(validate.QueryMessage, fields)
	}

	q.OrderBy = columns[q.OrderBy]
	return q, nil
}

// OrderClause renders ORDER BY for an already-whitelisted column.
func (q Query) OrderClause() string {
	dir := "DESC"
	if q.Order == "asc" {
		dir = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", q.OrderBy, dir)
}

// Result is the paginated list envelope.
type Result[T any] struct {
	Items     []T `json:"items"`
	ItemCount int `json:"item_count"`
	Limit     int `json:"limit"`
	Offset    int `json:"offset"`
}

// Respond returns a bare slice when pagination was disabled, otherwise a
// Result carrying the total row count.
func Respond[T any](items []T, total int, q Query) any {
	if items == nil {
		items = []T{}
	}
	if q.NoPaginate {
		return items
	}
	return Result[T]{
		Items:     items,
		ItemCount: total,
		Limit:     q.Limit,
		Offset:    q.Offset,
	}
}
