package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Object describes an uploaded file.
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	URL          string    `json:"url"`
}

// Storage is an object store holding uploaded media.
type Storage interface {
	Upload(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) (Object, error)
	List(ctx context.Context, prefix string) ([]Object, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// CacheControl is applied to every upload; object keys are unique so they never change.
const CacheControl = "public, max-age=31536000"

// MaxUploadSize is the largest accepted upload.
const MaxUploadSize = 500 << 20

var ErrUnsupportedType = errors.New("only video and image files are allowed")

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func sanitize(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
	return unsafeChars.ReplaceAllString(s, "")
}

// ObjectKey builds a unique key for an upload under folder. A display name,
// when given, becomes the base name; otherwise the original file name is kept
// behind a timestamp.
func ObjectKey(folder, name, original string, now time.Time) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		folder = "videos"
	}
	ext := strings.ToLower(filepath.Ext(original))
	ts := now.UnixMilli()

	var filename string
	if base := sanitize(name); base != "" {
		filename = fmt.Sprintf("%s_%d%s", base, ts, ext)
	} else {
		base = sanitize(strings.TrimSuffix(filepath.Base(original), filepath.Ext(original)))
		if base == "" {
			base = "file"
		}
		filename = fmt.Sprintf("%d_%s%s", ts, base, ext)
	}
	return folder + "/" + filename
}

// ContentType returns the MIME type for a media file name.
func ContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".svg":
		return "image/svg+xml"
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".mkv":
		return "video/x-matroska"
	case ".avi":
		return "video/x-msvideo"
	default:
		return "application/octet-stream"
	}
}

// Allowed reports whether contentType may be uploaded.
func Allowed(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return strings.HasPrefix(ct, "video/") || strings.HasPrefix(ct, "image/")
}

func joinURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(key, "/")
}
