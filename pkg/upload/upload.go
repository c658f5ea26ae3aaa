// Package upload stores payment slip images and returns their public URL.
package upload

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

var (
	// ErrRejected the upload backend refused the file (4xx); shown to the user
	ErrRejected = errors.New("slip upload rejected")
	// ErrFailed any other upload failure
	ErrFailed = errors.New("slip upload failed")
	// ErrDisabled no upload backend is configured
	ErrDisabled = errors.New("slip upload disabled")
)

// File an uploaded slip held in memory
type File struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Result where the slip ended up
type Result struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
	URL      string `json:"url"`
}

// Uploader persists a slip for the given identifier
type Uploader interface {
	Upload(ctx context.Context, f File, identifier string) (*Result, error)
}

// RejectedError carries the backend's message for a 4xx response
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s (status %d): %s", ErrRejected, e.Status, e.Message)
}

func (e *RejectedError) Unwrap() error { return ErrRejected }

// Disabled is the Uploader used when no backend is configured
type Disabled struct{}

// Upload always fails with ErrDisabled
func (Disabled) Upload(context.Context, File, string) (*Result, error) {
	return nil, ErrDisabled
}

// objectName builds "slips/<identifier>/<unix-nano>-<base filename>"
func objectName(identifier, filename string, now time.Time) string {
	owner := identifier
	if owner == "" {
		owner = "anonymous"
	}
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "slip"
	}
	return fmt.Sprintf("slips/%s/%d-%s", owner, now.UnixNano(), base)
}
