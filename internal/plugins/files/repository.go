package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudsystem/cloudsystem/internal/apperror"
	"github.com/cloudsystem/cloudsystem/internal/pagination"
)

// FileRepository defines the data access contract for file rows.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type FileRepository interface {
	Create(ctx context.Context, f *File) error

	// List returns rows matching filter in the requested order and page,
	// along with the total number of matching rows.
	List(ctx context.Context, filter Filter, page pagination.Query) ([]File, int, error)

	// FindForOwner returns the file only if ownerID owns it.
	// Returns apperror.NotFound otherwise.
	FindForOwner(ctx context.Context, id, ownerID string) (*File, error)

	// DeleteByIDs removes the listed rows and returns how many existed.
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

// fileRepository implements FileRepository with MariaDB queries.
type fileRepository struct {
	db *sql.DB
}

// NewFileRepository creates a new repository backed by the given DB pool.
func NewFileRepository(db *sql.DB) FileRepository {
	return &fileRepository{db: db}
}

const fileColumns = `id, file_name, file, size, description, owner_id, created_at, updated_at`

// Create inserts a file row.
func (r *fileRepository) Create(ctx context.Context, f *File) error {
	query := `INSERT INTO files (` + fileColumns + `)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		f.ID, f.FileName, f.File, f.Size, f.Description, f.OwnerID, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting file: %w", err)
	}
	return nil
}

// List fetches one page of matching rows and counts the total. With
// NoPaginate set the whole result is returned and no count is run.
func (r *fileRepository) List(ctx context.Context, filter Filter, page pagination.Query) ([]File, int, error) {
	where, args := filter.where()

	query := `SELECT ` + fileColumns + ` FROM files` + where + page.OrderClause()
	queryArgs := args
	if !page.NoPaginate {
		query += ` LIMIT ? OFFSET ?`
		queryArgs = append(append([]any{}, args...), page.Limit, page.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing files: %w", err)
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating files: %w", err)
	}

	if page.NoPaginate {
		return out, len(out), nil
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM files` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting files: %w", err)
	}
	return out, total, nil
}

// FindForOwner retrieves a file scoped to its owner.
func (r *fileRepository) FindForOwner(ctx context.Context, id, ownerID string) (*File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = ? AND owner_id = ?`
	f, err := scanFile(r.db.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound(msgFileNotFound)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// DeleteByIDs removes every listed row in one statement. History rows go
// with them through the foreign key cascade.
func (r *fileRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting files: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted files: %w", err)
	}
	return n, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*File, error) {
	var f File
	var description sql.NullString
	err := row.Scan(&f.ID, &f.FileName, &f.File, &f.Size, &description, &f.OwnerID, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning file: %w", err)
	}
	if description.Valid {
		f.Description = &description.String
	}
	return &f, nil
}

// where renders the filter as a WHERE clause with positional args.
func (f Filter) where() (string, []any) {
	if f.OwnerID == "" {
		return "", nil
	}
	return " WHERE owner_id = ?", []any{f.OwnerID}
}
