// Package jobs contains the background job handlers run by the worker.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/DukeRupert/loadshare/internal/domain"
	"github.com/DukeRupert/loadshare/internal/worker"
	"github.com/google/uuid"
)

// Thumbnailer renders the thumbnail of a stored photo.
type Thumbnailer interface {
	GenerateThumbnail(ctx context.Context, imageID uuid.UUID) error
}

// GenerateThumbnailHandler processes jobs that create load photo thumbnails.
type GenerateThumbnailHandler struct {
	images Thumbnailer
	logger *slog.Logger
}

// NewGenerateThumbnailHandler creates a new handler for thumbnail jobs.
func NewGenerateThumbnailHandler(images Thumbnailer, logger *slog.Logger) *GenerateThumbnailHandler {
	return &GenerateThumbnailHandler{images: images, logger: logger}
}

// Type returns the job type identifier.
func (h *GenerateThumbnailHandler) Type() string {
	return worker.JobTypeGenerateThumbnail
}

// Handle executes the thumbnail job. Missing photos and undecodable files
// fail permanently; storage and database errors are retried.
func (h *GenerateThumbnailHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.GenerateThumbnailPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}
	if p.ImageID == uuid.Nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: missing image_id"))
	}

	h.logger.Debug("generating thumbnail", "image_id", p.ImageID, "load_id", p.LoadID)

	if err := h.images.GenerateThumbnail(ctx, p.ImageID); err != nil {
		switch domain.ErrorCode(err) {
		case domain.ENOTFOUND, domain.EINVALID:
			return worker.NewPermanentError(err)
		}
		return err
	}
	return nil
}
