package histories

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cloudsystem/cloudsystem/internal/apperror"
	"github.com/cloudsystem/cloudsystem/internal/pagination"
)

// HistoryService handles business logic for the history log.
type HistoryService interface {
	// Record appends an upload or download to the log.
	Record(ctx context.Context, ownerID, fileID, status string) error

	// List returns a page of history rows and the total match count.
	List(ctx context.Context, filter Filter, page pagination.Query) ([]History, int, error)
}

// historyService implements HistoryService.
type historyService struct {
	repo HistoryRepository
	now  func() time.Time
}

// NewHistoryService creates a new history service with the given repository.
func NewHistoryService(repo HistoryRepository) HistoryService {
	return &historyService{repo: repo, now: time.Now}
}

// Record validates and persists a history row.
func (s *historyService) Record(ctx context.Context, ownerID, fileID, status string) error {
	if ownerID == "" || fileID == "" {
		return apperror.NewBadRequest("owner and file are required for a history entry")
	}
	if status != StatusUpload && status != StatusDownload {
		return apperror.NewBadRequest("unknown file status " + status)
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	h := &History{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		FileID:     fileID,
		FileStatus: status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, h); err != nil {
		slog.Error("failed to record file history",
			slog.String("file_id", fileID),
			slog.String("status", status),
			slog.Any("error", err),
		)
		return apperror.NewInternal(fmt.Errorf("recording history: %w", err))
	}
	return nil
}

// List returns a page of history rows.
func (s *historyService) List(ctx context.Context, filter Filter, page pagination.Query) ([]History, int, error) {
	rows, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, 0, apperror.NewInternal(fmt.Errorf("listing histories: %w", err))
	}
	return rows, total, nil
}
