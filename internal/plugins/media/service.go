package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how much of the body is inspected to detect its type.
const sniffLen = 3072

// ErrNotConfigured is returned by Upload when no Cloudinary URL was set.
var ErrNotConfigured = errors.New("media: cloudinary is not configured")

// MediaService uploads files to the media host.
type MediaService interface {
	Upload(ctx context.Context, input UploadInput) (*Asset, error)
}

// uploadAPI is the part of the Cloudinary SDK the service calls.
type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// mediaService implements MediaService on Cloudinary.
type mediaService struct {
	api uploadAPI
}

// NewMediaService creates a media service from a cloudinary:// URL. An
// empty URL yields a service whose uploads fail with ErrNotConfigured.
func NewMediaService(cloudinaryURL string) (MediaService, error) {
	if cloudinaryURL == "" {
		return &mediaService{}, nil
	}
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("configuring cloudinary: %w", err)
	}
	return &mediaService{api: &cld.Upload}, nil
}

// Upload streams the body to the media host. The resource type comes from
// the declared content type, or from sniffing the body when none was sent.
// Images are always stored as JPEG.
func (s *mediaService) Upload(ctx context.Context, input UploadInput) (*Asset, error) {
	if s.api == nil {
		return nil, ErrNotConfigured
	}
	if input.Body == nil {
		return nil, errors.New("media: empty upload body")
	}

	body := bufio.NewReaderSize(input.Body, sniffLen)
	contentType := input.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		head, _ := body.Peek(sniffLen)
		contentType = mimetype.Detect(head).String()
	}
	resourceType := ResourceType(contentType)

	params := uploader.UploadParams{
		PublicID:     input.PublicID,
		Folder:       input.Folder,
		ResourceType: resourceType,
	}
	if resourceType == ResourceImage {
		params.Format = "jpg"
	}

	res, err := s.api.Upload(ctx, body, params)
	if err != nil {
		return nil, fmt.Errorf("uploading to media host: %w", err)
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("media host rejected upload: %s", res.Error.Message)
	}

	slog.Info("media uploaded",
		slog.String("public_id", res.PublicID),
		slog.String("resource_type", resourceType),
		slog.Int("bytes", res.Bytes),
	)
	return &Asset{
		URL:          res.SecureURL,
		PublicID:     res.PublicID,
		ResourceType: resourceType,
		Bytes:        int64(res.Bytes),
	}, nil
}
