package pagination

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/cloudsystem/cloudsystem/internal/apperror"
)

var testColumns = map[string]string{
	"created_at": "f.created_at",
	"file_name":  "f.file_name",
}

func newContext(rawQuery string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/files?"+rawQuery, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestFromRequest_Defaults(t *testing.T) {
	q, err := FromRequest(newContext(""), testColumns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Limit != 10 || q.Offset != 0 || q.NoPaginate {
		t.Errorf("unexpected defaults %+v", q)
	}
	if got := q.OrderClause(); got != " ORDER BY f.created_at DESC" {
		t.Errorf("unexpected order clause %q", got)
	}
}

func TestFromRequest_ExplicitZeroLimit(t *testing.T) {
	q, err := FromRequest(newContext("limit=0&offset=5&order=asc&order_by=file_name&nopaginate=true"), testColumns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Limit != 0 {
		t.Errorf("expected explicit 0 limit to be kept, got %d", q.Limit)
	}
	if q.Offset != 5 || !q.NoPaginate {
		t.Errorf("unexpected query %+v", q)
	}
	if got := q.OrderClause(); got != " ORDER BY f.file_name ASC" {
		t.Errorf("unexpected order clause %q", got)
	}
}

func TestFromRequest_Invalid(t *testing.T) {
	tests := map[string]string{
		"negative limit":  "limit=-1",
		"negative offset": "offset=-3",
		"bad order":       "order=sideways",
		"unknown column":  "order_by=password_hash",
		"sql in column":   "order_by=created_at%3BDROP%20TABLE%20files",
		"non-numeric":     "limit=ten",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromRequest(newContext(raw), testColumns)
			var appErr *apperror.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("expected AppError, got %v", err)
			}
			if appErr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", appErr.Code)
			}
			if appErr.Message != "Your request query parameters are invalid" {
				t.Errorf("unexpected message %q", appErr.Message)
			}
		})
	}
}

func TestRespond(t *testing.T) {
	paged := Respond[string](nil, 0, Query{Limit: 10})
	res, ok := paged.(Result[string])
	if !ok {
		t.Fatalf("expected Result, got %T", paged)
	}
	if res.Items == nil || len(res.Items) != 0 {
		t.Error("expected empty, non-nil items")
	}
	if res.Limit != 10 || res.ItemCount != 0 {
		t.Errorf("unexpected result %+v", res)
	}

	bare := Respond([]string{"a"}, 1, Query{NoPaginate: true})
	if _, ok := bare.([]string); !ok {
		t.Errorf("expected bare slice, got %T", bare)
	}
}
