package histories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cloudsystem/cloudsystem/internal/pagination"
)

// HistoryRepository defines the data access contract for history rows.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type HistoryRepository interface {
	// Create inserts a new history row.
	Create(ctx context.Context, h *History) error

	// List returns rows matching filter in the requested order and page,
	// along with the total number of matching rows.
	List(ctx context.Context, filter Filter, page pagination.Query) ([]History, int, error)
}

// historyRepository implements HistoryRepository with MariaDB queries.
type historyRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new repository backed by the given DB pool.
func NewHistoryRepository(db *sql.DB) HistoryRepository {
	return &historyRepository{db: db}
}

// Create inserts a history row.
func (r *historyRepository) Create(ctx context.Context, h *History) error {
	query := `INSERT INTO histories (id, owner_id, file_id, file_status, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		h.ID, h.OwnerID, h.FileID, h.FileStatus, h.CreatedAt, h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting history: %w", err)
	}
	return nil
}

// List counts the matching rows, then fetches one page of them. With
// NoPaginate set the whole result is returned and no count is run.
func (r *historyRepository) List(ctx context.Context, filter Filter, page pagination.Query) ([]History, int, error) {
	where, args := filter.where()

	query := `SELECT id, owner_id, file_id, file_status, created_at, updated_at
	          FROM histories` + where + page.OrderClause()
	queryArgs := args
	if !page.NoPaginate {
		query += ` LIMIT ? OFFSET ?`
		queryArgs = append(append([]any{}, args...), page.Limit, page.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing histories: %w", err)
	}
	defer rows.Close()

	var out []History
	for rows.Next() {
		var h History
		if err := rows.Scan(&h.ID, &h.OwnerID, &h.FileID, &h.FileStatus, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning history: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating histories: %w", err)
	}

	if page.NoPaginate {
		return out, len(out), nil
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM histories` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting histories: %w", err)
	}
	return out, total, nil
}

// where renders the filter as a WHERE clause with positional args.
func (f Filter) where() (string, []any) {
	var conds []string
	var args []any
	if f.OwnerID != "" {
		conds = append(conds, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.FileID != "" {
		conds = append(conds, "file_id = ?")
		args = append(args, f.FileID)
	}
	if f.FileStatus != "" {
		conds = append(conds, "file_status = ?")
		args = append(args, f.FileStatus)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
