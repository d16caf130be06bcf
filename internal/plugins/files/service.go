package files

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/cloudsystem/cloudsystem/internal/apperror"
	"github.com/cloudsystem/cloudsystem/internal/pagination"
	"github.com/cloudsystem/cloudsystem/internal/plugins/auth"
	"github.com/cloudsystem/cloudsystem/internal/plugins/histories"
	"github.com/cloudsystem/cloudsystem/internal/plugins/media"
	"github.com/cloudsystem/cloudsystem/internal/sanitize"
	"github.com/cloudsystem/cloudsystem/internal/validate"
)

// Client-facing messages.
const (
	msgUnknownUser   = "We could not find any account for this email"
	msgFileNotFound  = "File not found"
	msgFilesRemoved  = "Files have been successfully removed"
	msgFileTooLarge  = "File exceeds the maximum upload size"
	msgFileRequired  = "file is required"
	msgUploadInvalid = validate.BodyMessage
)

// HistoryRecorder is the subset of the histories plugin that files needs.
// Defined here so the two plugins stay decoupled.
type HistoryRecorder interface {
	Record(ctx context.Context, ownerID, fileID, status string) error
}

// UserFinder resolves the uploading user. Satisfied by auth.AuthService.
type UserFinder interface {
	FindUser(ctx context.Context, id string) (*auth.User, error)
}

// FileService handles business logic for file operations.
type FileService interface {
	// Upload pushes body to the media host, stores the row and records an
	// upload history entry.
	Upload(ctx context.Context, input UploadInput, body io.Reader) (*File, error)

	// List returns a page of files and the total match count.
	List(ctx context.Context, filter Filter, page pagination.Query) ([]File, int, error)

	// DownloadLink returns a forced-download URL for a file the owner holds
	// and records a download history entry.
	DownloadLink(ctx context.Context, id, ownerID string) (*DownloadLink, error)

	// RemoveUnsafe deletes file rows by ID. Media host assets are left as is.
	RemoveUnsafe(ctx context.Context, ids []string) error
}

// Options configures a FileService.
type Options struct {
	// RootFolder is the media host folder uploads are placed under when no
	// folder is requested.
	RootFolder string

	// MaxSize caps the upload size in bytes. Zero disables the check.
	MaxSize int64
}

// fileService implements FileService.
type fileService struct {
	repo    FileRepository
	media   media.MediaService
	history HistoryRecorder
	users   UserFinder
	opts    Options
	now     func() time.Time
}

// NewFileService creates a new file service.
func NewFileService(repo FileRepository, mediaSvc media.MediaService, history HistoryRecorder, users UserFinder, opts Options) FileService {
	if opts.RootFolder == "" {
		opts.RootFolder = "upload-files"
	}
	return &fileService{
		repo:    repo,
		media:   mediaSvc,
		history: history,
		users:   users,
		opts:    opts,
		now:     time.Now,
	}
}

// Upload stores a new file for input.OwnerID.
func (s *fileService) Upload(ctx context.Context, input UploadInput, body io.Reader) (*File, error) {
	if body == nil {
		return nil, apperror.NewInvalidInput(msgUploadInvalid, map[string]string{"file": msgFileRequired})
	}
	if s.opts.MaxSize > 0 && input.Size > s.opts.MaxSize {
		return nil, apperror.NewTooLarge(msgFileTooLarge)
	}

	if _, err := s.users.FindUser(ctx, input.OwnerID); err != nil {
		if apperror.SafeCode(err) == http.StatusNotFound {
			return nil, apperror.NewUnauthorized(msgUnknownUser)
		}
		return nil, err
	}

	name := sanitize.Text(input.FileName)
	if name == "" {
		return nil, apperror.NewInvalidInput(msgUploadInvalid, map[string]string{"file_name": "file_name is required"})
	}

	id := uuid.NewString()
	asset, err := s.media.Upload(ctx, media.UploadInput{
		Body:        body,
		Folder:      s.folderFor(input.OwnerID, input.Folder),
		PublicID:    id,
		ContentType: input.ContentType,
	})
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("uploading to media host: %w", err))
	}

	size := asset.Bytes
	if size == 0 {
		size = input.Size
	}
	now := s.now().UTC().Truncate(time.Millisecond)
	f := &File{
		ID:        id,
		FileName:  name,
		File:      asset.URL,
		Size:      size,
		OwnerID:   input.OwnerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if desc := sanitize.Text(input.Description); desc != "" {
		f.Description = &desc
	}

	if err := s.repo.Create(ctx, f); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("storing file: %w", err))
	}

	s.record(ctx, f.OwnerID, f.ID, histories.StatusUpload)

	slog.Info("file uploaded",
		slog.String("file_id", f.ID),
		slog.String("owner_id", f.OwnerID),
		slog.Int64("size", f.Size),
	)
	return f, nil
}

// List returns a page of files.
func (s *fileService) List(ctx context.Context, filter Filter, page pagination.Query) ([]File, int, error) {
	rows, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, 0, apperror.NewInternal(fmt.Errorf("listing files: %w", err))
	}
	return rows, total, nil
}

// DownloadLink builds an attachment URL for an owned file.
func (s *fileService) DownloadLink(ctx context.Context, id, ownerID string) (*DownloadLink, error) {
	f, err := s.repo.FindForOwner(ctx, id, ownerID)
	if err != nil {
		if apperror.SafeCode(err) == http.StatusNotFound {
			return nil, apperror.NewNotFound(msgFileNotFound)
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding file: %w", err))
	}

	s.record(ctx, ownerID, f.ID, histories.StatusDownload)

	return &DownloadLink{Link: media.DownloadURL(f.File, f.FileName)}, nil
}

// RemoveUnsafe deletes file rows without touching media host assets.
func (s *fileService) RemoveUnsafe(ctx context.Context, ids []string) error {
	n, err := s.repo.DeleteByIDs(ctx, ids)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("removing files: %w", err))
	}
	slog.Warn("file rows removed", slog.Int("requested", len(ids)), slog.Int64("removed", n))
	return nil
}

// folderFor places uploads under {root}/{owner} or, when a folder was
// requested, under {owner}/{folder}.
func (s *fileService) folderFor(ownerID, requested string) string {
	if folder := sanitize.FolderName(requested); folder != "" {
		return path.Join(ownerID, folder)
	}
	return path.Join(s.opts.RootFolder, ownerID)
}

// record appends a history row. The file operation has already succeeded,
// so a failure here is logged and not returned.
func (s *fileService) record(ctx context.Context, ownerID, fileID, status string) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(ctx, ownerID, fileID, status); err != nil {
		slog.Warn("history not recorded",
			slog.String("file_id", fileID),
			slog.String("status", status),
			slog.Any("error", err),
		)
	}
}
