// Package media pushes uploaded bytes to the media host (Cloudinary) and
// builds the links clients download them from. No bytes are kept locally.
package media

import (
	"io"
	"strings"
)

// Resource types understood by the media host.
const (
	ResourceImage = "image"
	ResourceVideo = "video"
	ResourceRaw   = "raw"
)

// UploadInput describes one file to push to the media host.
type UploadInput struct {
	Body        io.Reader
	Folder      string
	PublicID    string
	ContentType string
}

// Asset is what the media host reports back after an upload.
type Asset struct {
	URL          string
	PublicID     string
	ResourceType string
	Bytes        int64
}

// ResourceType maps a MIME type to the media host's resource type. Anything
// that is neither an image nor a video is stored raw.
func ResourceType(contentType string) string {
	switch {
	case strings.Contains(contentType, "image"):
		return ResourceImage
	case strings.Contains(contentType, "video"):
		return ResourceVideo
	default:
		return ResourceRaw
	}
}

// DownloadURL turns a delivery URL into one that forces a download named
// fileName, by inserting the fl_attachment flag right after "/upload/".
// URLs without an upload segment are returned unchanged.
func DownloadURL(url, fileName string) string {
	before, after, ok := strings.Cut(url, "/upload/")
	if !ok {
		return url
	}
	return before + "/upload/fl_attachment:" + fileName + "/" + after
}
