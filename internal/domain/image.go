// Package domain contains core business types and interfaces.
//
// This file defines the LoadImage domain type for photos attached to a load.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// SupportedImageTypes maps MIME types to their human-readable names.
var SupportedImageTypes = map[string]string{
	"image/jpeg": "JPEG",
	"image/png":  "PNG",
}

const (
	// MaxImageSize is the maximum allowed size for uploaded images (10MB).
	MaxImageSize = 10 * 1024 * 1024

	// MaxImagesPerLoad caps how many photos a single load may carry.
	MaxImagesPerLoad = 8

	ThumbnailMaxWidth    = 320
	ThumbnailMaxHeight   = 240
	ThumbnailJPEGQuality = 85
)

// LoadImage is a photo of the goods attached to a load.
type LoadImage struct {
	ID               uuid.UUID
	LoadID           uuid.UUID
	StorageKey       string
	ThumbnailKey     string // Empty until the thumbnail job has run
	OriginalFilename string
	ContentType      string
	SizeBytes        int64
	CreatedAt        time.Time
}

// HasThumbnail returns true once a thumbnail has been generated.
func (i *LoadImage) HasThumbnail() bool {
	return i.ThumbnailKey != ""
}

// IsValidImageContentType checks if the content type is supported.
func IsValidImageContentType(contentType string) bool {
	_, ok := SupportedImageTypes[contentType]
	return ok
}

// ValidateImageSize checks if the file size is within limits.
func ValidateImageSize(size int64) error {
	if size > MaxImageSize {
		return Errorf(ETOOLARGE, "image.validate", "Image exceeds the maximum size of %.0fMB", float64(MaxImageSize)/(1024*1024))
	}
	if size == 0 {
		return Invalid("image.validate", "Image file is empty")
	}
	return nil
}
