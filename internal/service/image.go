package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/DukeRupert/loadshare/internal/domain"
	"github.com/DukeRupert/loadshare/internal/metrics"
	"github.com/DukeRupert/loadshare/internal/repository"
	"github.com/DukeRupert/loadshare/internal/storage"
	"github.com/DukeRupert/loadshare/internal/worker"
	"github.com/google/uuid"
)

// UploadImageParams describes one photo uploaded for a load.
type UploadImageParams struct {
	LoadID   uuid.UUID
	UserID   uuid.UUID
	Filename string
	Size     int64
	Data     io.Reader
}

// ImageService manages the photos attached to loads.
type ImageService interface {
	// Upload stores a photo and schedules its thumbnail.
	// Returns domain.EFORBIDDEN unless the user owns the load,
	// domain.ETOOLARGE for oversized files and domain.EINVALID for
	// unsupported formats or when the load already has the maximum number
	// of photos.
	Upload(ctx context.Context, params UploadImageParams) (*domain.LoadImage, error)

	// ListByLoad returns the photos of a load in upload order.
	ListByLoad(ctx context.Context, loadID uuid.UUID) ([]domain.LoadImage, error)

	// Open returns the stored photo, or its thumbnail when one exists and
	// thumbnail is true. The caller must close the reader.
	Open(ctx context.Context, imageID uuid.UUID, thumbnail bool) (io.ReadCloser, *domain.LoadImage, error)

	// GenerateThumbnail renders and stores the thumbnail of a photo. It is
	// idempotent.
	GenerateThumbnail(ctx context.Context, imageID uuid.UUID) error
}

type imageService struct {
	queries            *repository.Queries
	storage            storage.Storage
	thumbnailProcessor ThumbnailProcessor
	logger             *slog.Logger
}

// NewImageService creates a new ImageService.
func NewImageService(
	queries *repository.Queries,
	store storage.Storage,
	thumbnailProcessor ThumbnailProcessor,
	logger *slog.Logger,
) ImageService {
	return &imageService{
		queries:            queries,
		storage:            store,
		thumbnailProcessor: thumbnailProcessor,
		logger:             logger,
	}
}

func (s *imageService) Upload(ctx context.Context, params UploadImageParams) (*domain.LoadImage, error) {
	const op = "ImageService.Upload"

	load, err := s.queries.GetLoadByID(ctx, params.LoadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "load", params.LoadID.String())
		}
		return nil, domain.Internal(err, op, "Failed to fetch load")
	}
	if load.OwnerID != params.UserID {
		return nil, domain.Forbidden(op, "Only the load owner can add photos")
	}

	if err := domain.ValidateImageSize(params.Size); err != nil {
		return nil, err
	}

	count, err := s.queries.CountLoadImages(ctx, params.LoadID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to count photos")
	}
	if count >= domain.MaxImagesPerLoad {
		return nil, domain.Errorf(domain.EINVALID, op, "A load can have at most %d photos", domain.MaxImagesPerLoad)
	}

	contentType, head, err := storage.SniffContentType(params.Data)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to read upload")
	}
	if !domain.IsValidImageContentType(contentType) {
		return nil, domain.Invalid(op, "Unsupported image type. Only JPEG and PNG are supported.")
	}

	imageID := uuid.New()
	key := storage.ImageKey(params.LoadID, imageID, contentType)
	body := io.MultiReader(bytes.NewReader(head), params.Data)

	if err := s.storage.Put(ctx, key, body, storage.PutOptions{
		ContentType: contentType,
		MaxSize:     domain.MaxImageSize,
	}); err != nil {
		if storage.IsTooLarge(err) {
			return nil, domain.ValidateImageSize(domain.MaxImageSize + 1)
		}
		return nil, domain.Internal(err, op, "Failed to store photo")
	}

	row, err := s.queries.CreateLoadImage(ctx, repository.CreateLoadImageParams{
		ID:               imageID,
		LoadID:           params.LoadID,
		StorageKey:       key,
		OriginalFilename: domain.ToNullString(filepath.Base(params.Filename)),
		ContentType:      contentType,
		SizeBytes:        params.Size,
	})
	if err != nil {
		_ = s.storage.Delete(ctx, key)
		return nil, domain.Internal(err, op, "Failed to save photo")
	}

	// The photo is usable without a thumbnail; a failed enqueue only
	// means the full image is served in listings.
	if _, err := worker.EnqueueGenerateThumbnail(ctx, s.queries, params.LoadID, imageID); err != nil {
		s.logger.Error("failed to enqueue thumbnail job", "image_id", imageID, "error", err)
	}

	metrics.ImagesUploaded.Inc()
	s.logger.Info("load photo uploaded", "load_id", params.LoadID, "image_id", imageID, "size", params.Size)

	return repoImageToDomain(row), nil
}

func (s *imageService) ListByLoad(ctx context.Context, loadID uuid.UUID) ([]domain.LoadImage, error) {
	const op = "ImageService.ListByLoad"

	rows, err := s.queries.ListLoadImagesByLoad(ctx, loadID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to fetch photos")
	}
	images := make([]domain.LoadImage, len(rows))
	for i, row := range rows {
		images[i] = *repoImageToDomain(row)
	}
	return images, nil
}

func (s *imageService) Open(ctx context.Context, imageID uuid.UUID, thumbnail bool) (io.ReadCloser, *domain.LoadImage, error) {
	const op = "ImageService.Open"

	img, err := s.get(ctx, op, imageID)
	if err != nil {
		return nil, nil, err
	}

	key := img.StorageKey
	if thumbnail && img.HasThumbnail() {
		key = img.ThumbnailKey
	}

	rc, _, err := s.storage.Get(ctx, key)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, nil, domain.NotFound(op, "image", imageID.String())
		}
		return nil, nil, domain.Internal(err, op, "Failed to read photo")
	}
	return rc, img, nil
}

func (s *imageService) GenerateThumbnail(ctx context.Context, imageID uuid.UUID) error {
	const op = "ImageService.GenerateThumbnail"

	img, err := s.get(ctx, op, imageID)
	if err != nil {
		return err
	}
	if img.HasThumbnail() {
		return nil
	}

	rc, _, err := s.storage.Get(ctx, img.StorageKey)
	if err != nil {
		if storage.IsNotFound(err) {
			return domain.NotFound(op, "image file", img.StorageKey)
		}
		return domain.Internal(err, op, "Failed to read photo")
	}
	defer rc.Close()

	thumb, err := s.thumbnailProcessor.GenerateThumbnail(rc, domain.ThumbnailMaxWidth, domain.ThumbnailMaxHeight)
	if err != nil {
		return domain.Wrap(err, domain.EINVALID, op, "Photo could not be decoded")
	}

	key := storage.ThumbnailKey(img.LoadID, img.ID)
	if err := s.storage.Put(ctx, key, bytes.NewReader(thumb.Data), storage.PutOptions{
		ContentType: "image/jpeg",
		Overwrite:   true,
	}); err != nil {
		return domain.Internal(err, op, "Failed to store thumbnail")
	}

	if err := s.queries.SetLoadImageThumbnail(ctx, repository.SetLoadImageThumbnailParams{
		ID:           img.ID,
		ThumbnailKey: domain.ToNullString(key),
	}); err != nil {
		return domain.Internal(err, op, "Failed to save thumbnail")
	}

	s.logger.Info("thumbnail generated",
		"image_id", img.ID,
		"dimensions", fmt.Sprintf("%dx%d", thumb.Width, thumb.Height),
		"bytes", len(thumb.Data),
	)
	return nil
}

func (s *imageService) get(ctx context.Context, op string, imageID uuid.UUID) (*domain.LoadImage, error) {
	row, err := s.queries.GetLoadImageByID(ctx, imageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "image", imageID.String())
		}
		return nil, domain.Internal(err, op, "Failed to fetch photo")
	}
	return repoImageToDomain(row), nil
}

func repoImageToDomain(row repository.LoadImage) *domain.LoadImage {
	return &domain.LoadImage{
		ID:               row.ID,
		LoadID:           row.LoadID,
		StorageKey:       row.StorageKey,
		ThumbnailKey:     domain.NullStringValue(row.ThumbnailKey),
		OriginalFilename: domain.NullStringValue(row.OriginalFilename),
		ContentType:      row.ContentType,
		SizeBytes:        row.SizeBytes,
		CreatedAt:        row.CreatedAt,
	}
}
