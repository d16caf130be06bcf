package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// --- Mock Upload API ---

type mockUploadAPI struct {
	uploadFn func(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)

	gotParams uploader.UploadParams
	gotBody   []byte
}

func (m *mockUploadAPI) Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
	m.gotParams = params
	if r, ok := file.(io.Reader); ok {
		m.gotBody, _ = io.ReadAll(r)
	}
	if m.uploadFn != nil {
		return m.uploadFn(ctx, file, params)
	}
	return &uploader.UploadResult{
		PublicID:  params.Folder + "/" + params.PublicID,
		SecureURL: "https://res.cloudinary.com/demo/image/upload/v1/" + params.Folder + "/" + params.PublicID + ".jpg",
		Bytes:     len(m.gotBody),
	}, nil
}

// pngHeader is enough of a PNG for content sniffing.
var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

func TestUpload_ImageForcedToJPEG(t *testing.T) {
	mock := &mockUploadAPI{}
	svc := &mediaService{api: mock}

	asset, err := svc.Upload(context.Background(), UploadInput{
		Body:        bytes.NewReader(pngHeader),
		Folder:      "upload-files/user-1/",
		PublicID:    "abc",
		ContentType: "image/png",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.gotParams.Format != "jpg" {
		t.Errorf("expected jpg format, got %q", mock.gotParams.Format)
	}
	if mock.gotParams.ResourceType != ResourceImage {
		t.Errorf("expected image resource type, got %q", mock.gotParams.ResourceType)
	}
	if mock.gotParams.Folder != "upload-files/user-1/" {
		t.Errorf("unexpected folder %q", mock.gotParams.Folder)
	}
	if !bytes.Equal(mock.gotBody, pngHeader) {
		t.Error("body was not passed through intact")
	}
	if asset.Bytes != int64(len(pngHeader)) || !strings.HasPrefix(asset.URL, "https://") {
		t.Errorf("unexpected asset %+v", asset)
	}
}

func TestUpload_RawKeepsFormat(t *testing.T) {
	mock := &mockUploadAPI{}
	svc := &mediaService{api: mock}

	_, err := svc.Upload(context.Background(), UploadInput{
		Body:        strings.NewReader("%PDF-1.4"),
		ContentType: "application/pdf",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.gotParams.Format != "" {
		t.Errorf("raw uploads must keep their format, got %q", mock.gotParams.Format)
	}
	if mock.gotParams.ResourceType != ResourceRaw {
		t.Errorf("expected raw, got %q", mock.gotParams.ResourceType)
	}
}

func TestUpload_SniffsMissingContentType(t *testing.T) {
	mock := &mockUploadAPI{}
	svc := &mediaService{api: mock}

	_, err := svc.Upload(context.Background(), UploadInput{
		Body:        bytes.NewReader(pngHeader),
		ContentType: "application/octet-stream",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.gotParams.ResourceType != ResourceImage {
		t.Errorf("expected sniffed image, got %q", mock.gotParams.ResourceType)
	}
}

func TestUpload_HostErrors(t *testing.T) {
	tests := map[string]func(context.Context, interface{}, uploader.UploadParams) (*uploader.UploadResult, error){
		"transport": func(context.Context, interface{}, uploader.UploadParams) (*uploader.UploadResult, error) {
			return nil, errors.New("connection reset")
		},
		"rejected": func(context.Context, interface{}, uploader.UploadParams) (*uploader.UploadResult, error) {
			return &uploader.UploadResult{Error: api.ErrorResp{Message: "Invalid image file"}}, nil
		},
	}
	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			svc := &mediaService{api: &mockUploadAPI{uploadFn: fn}}
			_, err := svc.Upload(context.Background(), UploadInput{
				Body:        strings.NewReader("x"),
				ContentType: "text/plain",
			})
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestUpload_NilBody(t *testing.T) {
	svc := &mediaService{api: &mockUploadAPI{}}
	if _, err := svc.Upload(context.Background(), UploadInput{}); err == nil {
		t.Error("expected error for nil body")
	}
}

func TestUpload_NotConfigured(t *testing.T) {
	svc, err := NewMediaService("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = svc.Upload(context.Background(), UploadInput{Body: strings.NewReader("x")})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestResourceType(t *testing.T) {
	tests := map[string]string{
		"image/jpeg":      ResourceImage,
		"image/png":       ResourceImage,
		"video/mp4":       ResourceVideo,
		"application/pdf": ResourceRaw,
		"":                ResourceRaw,
	}
	for in, want := range tests {
		if got := ResourceType(in); got != want {
			t.Errorf("ResourceType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDownloadURL(t *testing.T) {
	got := DownloadURL("https://res.cloudinary.com/demo/image/upload/v1/upload-files/u/abc.jpg", "holiday.jpg")
	want := "https://res.cloudinary.com/demo/image/upload/fl_attachment:holiday.jpg/v1/upload-files/u/abc.jpg"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if got := DownloadURL("https://example.com/file.pdf", "x"); got != "https://example.com/file.pdf" {
		t.Errorf("URL without upload segment should be unchanged, got %q", got)
	}
}
