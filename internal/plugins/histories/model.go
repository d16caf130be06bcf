// Package histories records every upload and download a user performs and
// lets clients page through that log. Rows are written by the files plugin
// and removed with their file.
package histories

import "time"

// File statuses recorded in the history log.
const (
	StatusDownload = "download"
	StatusUpload   = "upload"
)

// History is one recorded upload or download.
type History struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	FileID     string    `json:"file_id"`
	FileStatus string    `json:"file_status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ListQuery holds the filters of GET /histories. Pagination and ordering
// are parsed separately.
type ListQuery struct {
	UserID     string `query:"user_id" validate:"omitempty,uuid4"`
	FileID     string `query:"file_id" validate:"omitempty,uuid4"`
	FileStatus string `query:"file_status" validate:"omitempty,oneof=download upload"`
}

// Normalize applies the default status.
func (q *ListQuery) Normalize() {
	if q.FileStatus == "" {
		q.FileStatus = StatusDownload
	}
}

// Filter narrows a history listing. Empty fields are not filtered on.
type Filter struct {
	OwnerID    string
	FileID     string
	FileStatus string
}

// sortColumns whitelists order_by values.
var sortColumns = map[string]string{
	"created_at":  "created_at",
	"updated_at":  "updated_at",
	"file_status": "file_status",
}
