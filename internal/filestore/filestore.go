// Package filestore persists complaint photos. The lifecycle engine treats
// the returned path as opaque.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Upload is one photo supplied with a transition.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store saves and removes photos.
type Store interface {
	// Save writes the upload and returns its non-empty path.
	Save(ctx context.Context, up *Upload) (string, error)
	// Delete removes a previously saved photo. Used to discard the photos of
	// a transition whose commit failed.
	Delete(ctx context.Context, path string) error
}

// ErrUnsupportedType is returned by Check for anything but a raster image.
var ErrUnsupportedType = errors.New("unsupported image type")

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	// multipart clients that do not sniff send this
	"application/octet-stream": true,
}

// Check accepts jpeg, png, gif and webp photos only. The content type may be
// empty but is never allowed to name a different kind of document.
func (up *Upload) Check() error {
	ext := strings.ToLower(filepath.Ext(up.Filename))
	if !imageExts[ext] {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, up.Filename)
	}
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(up.ContentType, ";")[0]))
	if mediaType != "" && !imageTypes[mediaType] {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, up.ContentType)
	}
	return nil
}

// objectName generates a collision-free name. Only image extensions survive.
func objectName(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if !imageExts[ext] {
		ext = ""
	}
	return uuid.New().String() + ext
}
