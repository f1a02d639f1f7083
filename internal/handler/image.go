package handler

// This file serves the photos attached to loads. Photos are readable by
// anyone who has the link; ids are random uuids.

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/DukeRupert/loadshare/internal/service"
)

// ImageHandler handles image-related HTTP requests.
type ImageHandler struct {
	imageService service.ImageService
	logger       *slog.Logger
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(imageService service.ImageService, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{imageService: imageService, logger: logger}
}

// RegisterRoutes registers all image routes with the provided mux.
//
// Routes:
// - GET /images/{id}           -> ServeOriginal
// - GET /images/{id}/thumbnail -> ServeThumbnail
func (h *ImageHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /images/{id}", h.ServeOriginal)
	mux.HandleFunc("GET /images/{id}/thumbnail", h.ServeThumbnail)
}

// ServeOriginal streams the uploaded photo.
func (h *ImageHandler) ServeOriginal(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, false)
}

// ServeThumbnail streams the thumbnail, or the original while the
// thumbnail job has not run yet.
func (h *ImageHandler) ServeThumbnail(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, true)
}

func (h *ImageHandler) serve(w http.ResponseWriter, r *http.Request, thumbnail bool) {
	imageID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid image ID", http.StatusBadRequest)
		return
	}

	rc, img, err := h.imageService.Open(r.Context(), imageID, thumbnail)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	defer rc.Close()

	contentType := img.ContentType
	if thumbnail && img.HasThumbnail() {
		contentType = "image/jpeg"
	} else if img.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(img.SizeBytes, 10))
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("image stream interrupted", "image_id", imageID, "error", err)
	}
}
