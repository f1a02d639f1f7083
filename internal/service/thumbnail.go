package service

import (
	"bytes"
	"fmt"
	"io"

	"github.com/DukeRupert/loadshare/internal/domain"
	"github.com/disintegration/imaging"
)

// Thumbnail is a downscaled JPEG rendition of a load photo.
type Thumbnail struct {
	Data   []byte
	Width  int // of the original
	Height int // of the original
}

// ThumbnailProcessor turns an uploaded photo into a thumbnail.
type ThumbnailProcessor interface {
	// GenerateThumbnail fits the image into maxWidth x maxHeight, keeping the
	// aspect ratio, and encodes it as JPEG.
	GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) (Thumbnail, error)
}

type imagingProcessor struct {
	quality int
}

// NewImagingProcessor creates a processor backed by the imaging library.
func NewImagingProcessor() ThumbnailProcessor {
	return &imagingProcessor{quality: domain.ThumbnailJPEGQuality}
}

// GenerateThumbnail honours the EXIF orientation of phone photos before
// resizing.
func (p *imagingProcessor) GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) (Thumbnail, error) {
	img, err := imaging.Decode(data, imaging.AutoOrientation(true))
	if err != nil {
		return Thumbnail{}, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	thumb := imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return Thumbnail{}, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return Thumbnail{Data: buf.Bytes(), Width: bounds.Dx(), Height: bounds.Dy()}, nil
}
