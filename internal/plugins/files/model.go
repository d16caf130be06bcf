// Package files lets users upload files to the media host, list what has
// been uploaded, fetch forced-download links for their own files, and lets
// admins remove file records in bulk. Every upload and download is recorded
// in the history log.
package files

import "time"

// File is one uploaded file. The bytes live at the media host; File holds
// the delivery URL.
type File struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	File        string    `json:"file"`
	Size        int64     `json:"size"`
	Description *string   `json:"description"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// --- Request DTOs ---

// UploadRequest holds the multipart form fields of POST /files. The file
// part itself is read separately.
type UploadRequest struct {
	FileName    string `form:"file_name" json:"file_name" validate:"required,max=255"`
	Description string `form:"description" json:"description" validate:"max=5000"`
}

// ListQuery holds the filters of GET /files.
type ListQuery struct {
	OwnerID string `query:"owner_id" validate:"omitempty,uuid4"`
}

// DownloadParams holds the path of GET /files/download/:id.
type DownloadParams struct {
	ID string `param:"id" validate:"required,uuid"`
}

// UnsafeRequest holds the body of PATCH /files/unsafe.
type UnsafeRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,uuid"`
}

// --- Service Input DTOs ---

// UploadInput is the validated input for storing a new file.
type UploadInput struct {
	OwnerID     string
	FileName    string
	Description string
	Folder      string
	ContentType string
	Size        int64
}

// Filter narrows a file listing. Empty fields are not filtered on.
type Filter struct {
	OwnerID string
}

// --- Responses ---

// DownloadLink is the body of GET /files/download/:id.
type DownloadLink struct {
	Link string `json:"link"`
}

// sortColumns whitelists order_by values.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"file_name":  "file_name",
	"size":       "size",
}
