package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/DukeRupert/loadshare/internal/domain"
	"github.com/DukeRupert/loadshare/internal/metrics"
	"github.com/DukeRupert/loadshare/internal/repository"
	"github.com/google/uuid"
)

// DefaultPageSize is used when a listing asks for no limit.
const DefaultPageSize = 50

// Page selects a window of a listing.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) bounds() (int32, int32) {
	limit := p.Limit
	if limit <= 0 || limit > 200 {
		limit = DefaultPageSize
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	return int32(limit), int32(offset)
}

// LoadService defines the load marketplace operations.
type LoadService interface {
	// Create posts a load for a load owner.
	// Returns domain.EFORBIDDEN for drivers and *domain.ValidationError for
	// invalid input.
	Create(ctx context.Context, user *domain.User, params domain.CreateLoadParams) (*domain.Load, error)

	// Get returns a load with its photos.
	Get(ctx context.Context, id uuid.UUID) (*domain.Load, error)

	ListByOwner(ctx context.Context, ownerID uuid.UUID, page Page) ([]domain.Load, error)

	// ListAvailable returns posted loads, soonest pickup first.
	ListAvailable(ctx context.Context, page Page) ([]domain.Load, error)

	ListByDriver(ctx context.Context, driverID uuid.UUID, page Page) ([]domain.Load, error)

	// CountByStatus summarises an owner's loads for the dashboard.
	CountByStatus(ctx context.Context, ownerID uuid.UUID) (map[domain.LoadStatus]int64, error)

	// Claim assigns a posted load to a driver.
	// Returns domain.ECONFLICT if the load is no longer available.
	Claim(ctx context.Context, user *domain.User, loadID uuid.UUID) (*domain.Load, error)

	// UpdateStatus moves a load along its lifecycle. Owners accept or
	// decline claims; the assigned driver reports progress.
	UpdateStatus(ctx context.Context, user *domain.User, loadID uuid.UUID, target domain.LoadStatus) (*domain.Load, error)
}

type loadService struct {
	queries *repository.Queries
	logger  *slog.Logger
	now     func() time.Time
}

// NewLoadService creates a new LoadService.
func NewLoadService(queries *repository.Queries, logger *slog.Logger) LoadService {
	return &loadService{queries: queries, logger: logger, now: time.Now}
}

func (s *loadService) Create(ctx context.Context, user *domain.User, params domain.CreateLoadParams) (*domain.Load, error) {
	const op = "LoadService.Create"

	if user == nil || !user.IsLoadOwner() {
		return nil, domain.Forbidden(op, "Access denied. Only load owners can post loads.")
	}
	params.OwnerID = user.ID

	params.Title = sanitizeText(params.Title)
	params.Description = sanitizeText(params.Description)
	params.PickupLocation = sanitizeText(params.PickupLocation)
	params.DeliveryLocation = sanitizeText(params.DeliveryLocation)
	params.Dimensions = sanitizeText(params.Dimensions)
	params.SpecialRequirements = sanitizeText(params.SpecialRequirements)

	if err := checkParams(op, params); err != nil {
		return nil, err
	}
	if params.PickupDate != nil && params.PickupDate.Before(startOfDay(s.now())) {
		return nil, domain.NewValidationError(op, "pickup_date", "Pickup date cannot be in the past")
	}

	row, err := s.queries.CreateLoad(ctx, repository.CreateLoadParams{
		OwnerID:             params.OwnerID,
		Title:               params.Title,
		Description:         params.Description,
		PickupLocation:      params.PickupLocation,
		DeliveryLocation:    params.DeliveryLocation,
		Weight:              domain.ToNullFloat(params.Weight),
		Dimensions:          domain.ToNullString(params.Dimensions),
		PickupDate:          domain.ToNullTime(params.PickupDate),
		SpecialRequirements: domain.ToNullString(params.SpecialRequirements),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to post load")
	}

	load := repoLoadToDomain(row)
	load.OwnerName = user.Name

	metrics.LoadsPosted.Inc()
	s.logger.Info("load posted", "load_id", load.ID, "owner_id", user.ID)

	return load, nil
}

func (s *loadService) Get(ctx context.Context, id uuid.UUID) (*domain.Load, error) {
	const op = "LoadService.Get"

	row, err := s.queries.GetLoadByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "load", id.String())
		}
		return nil, domain.Internal(err, op, "Failed to fetch load")
	}

	load := repoLoadWithOwnerToDomain(row)

	images, err := s.queries.ListLoadImagesByLoad(ctx, id)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to fetch photos")
	}
	for _, img := range images {
		load.Images = append(load.Images, *repoImageToDomain(img))
	}
	return load, nil
}

func (s *loadService) ListByOwner(ctx context.Context, ownerID uuid.UUID, page Page) ([]domain.Load, error) {
	limit, offset := page.bounds()
	rows, err := s.queries.ListLoadsByOwner(ctx, repository.ListLoadsByOwnerParams{OwnerID: ownerID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, domain.Internal(err, "LoadService.ListByOwner", "Failed to fetch loads")
	}
	return repoLoadsToDomain(rows), nil
}

func (s *loadService) ListAvailable(ctx context.Context, page Page) ([]domain.Load, error) {
	limit, offset := page.bounds()
	rows, err := s.queries.ListLoadsByStatus(ctx, repository.ListLoadsByStatusParams{
		Status: domain.LoadStatusPosted.String(),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, domain.Internal(err, "LoadService.ListAvailable", "Failed to fetch loads")
	}
	return repoLoadsToDomain(rows), nil
}

func (s *loadService) ListByDriver(ctx context.Context, driverID uuid.UUID, page Page) ([]domain.Load, error) {
	limit, offset := page.bounds()
	rows, err := s.queries.ListLoadsByDriver(ctx, repository.ListLoadsByDriverParams{DriverID: driverID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, domain.Internal(err, "LoadService.ListByDriver", "Failed to fetch loads")
	}
	return repoLoadsToDomain(rows), nil
}

func (s *loadService) CountByStatus(ctx context.Context, ownerID uuid.UUID) (map[domain.LoadStatus]int64, error) {
	rows, err := s.queries.CountLoadsByOwnerAndStatus(ctx, ownerID)
	if err != nil {
		return nil, domain.Internal(err, "LoadService.CountByStatus", "Failed to count loads")
	}
	counts := make(map[domain.LoadStatus]int64, len(rows))
	for _, row := range rows {
		counts[domain.LoadStatus(row.Status)] = row.Count
	}
	return counts, nil
}

func (s *loadService) Claim(ctx context.Context, user *domain.User, loadID uuid.UUID) (*domain.Load, error) {
	const op = "LoadService.Claim"

	if user == nil || !user.IsDriver() {
		return nil, domain.Forbidden(op, "Access denied. Only drivers can claim loads.")
	}

	existing, err := s.Get(ctx, loadID)
	if err != nil {
		return nil, err
	}
	if existing.Status != domain.LoadStatusPosted {
		return nil, domain.Conflict(op, "This load has already been claimed")
	}

	row, err := s.queries.ClaimLoad(ctx, repository.ClaimLoadParams{ID: loadID, DriverID: user.ID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Another driver won the race between the read and the update.
			return nil, domain.Conflict(op, "This load has already been claimed")
		}
		return nil, domain.Internal(err, op, "Failed to claim load")
	}

	load := repoLoadToDomain(row)
	load.OwnerName = existing.OwnerName
	load.Images = existing.Images

	metrics.LoadStatusChanges.WithLabelValues(domain.LoadStatusClaimed.String()).Inc()
	s.logger.Info("load claimed", "load_id", loadID, "driver_id", user.ID)

	return load, nil
}

func (s *loadService) UpdateStatus(ctx context.Context, user *domain.User, loadID uuid.UUID, target domain.LoadStatus) (*domain.Load, error) {
	const op = "LoadService.UpdateStatus"

	if user == nil {
		return nil, domain.Unauthorized(op, "Authentication required")
	}
	if !target.IsValid() {
		return nil, domain.Errorf(domain.EINVALID, op, "Unknown load status %q", target)
	}
	if target == domain.LoadStatusClaimed {
		return s.Claim(ctx, user, loadID)
	}

	existing, err := s.Get(ctx, loadID)
	if err != nil {
		return nil, err
	}

	from := existing.Status
	if !from.CanTransitionTo(target) {
		return nil, domain.Errorf(domain.EINVALID, op, "A %s load cannot be marked %s", from.Label(), target.Label())
	}

	switch from.ActorFor(target) {
	case domain.RoleLoadOwner:
		if !existing.IsOwnedBy(user.ID) {
			return nil, domain.Forbidden(op, "Only the load owner can make this change")
		}
	case domain.RoleDriver:
		if !existing.IsAssignedTo(user.ID) {
			return nil, domain.Forbidden(op, "Only the assigned driver can make this change")
		}
	}

	row, err := s.queries.UpdateLoadStatus(ctx, repository.UpdateLoadStatusParams{
		ID:        loadID,
		From:      from.String(),
		To:        target.String(),
		UpdatedAt: s.now(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Conflict(op, "The load was changed by someone else. Please reload.")
		}
		return nil, domain.Internal(err, op, "Failed to update load")
	}

	load := repoLoadToDomain(row)
	load.OwnerName = existing.OwnerName
	load.Images = existing.Images

	metrics.LoadStatusChanges.WithLabelValues(target.String()).Inc()
	s.logger.Info("load status changed", "load_id", loadID, "from", from, "to", target, "user_id", user.ID)

	return load, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func repoLoadToDomain(row repository.Load) *domain.Load {
	load := &domain.Load{
		ID:                  row.ID,
		OwnerID:             row.OwnerID,
		Title:               row.Title,
		Description:         row.Description,
		PickupLocation:      row.PickupLocation,
		DeliveryLocation:    row.DeliveryLocation,
		Status:              domain.LoadStatus(row.Status),
		Weight:              domain.NullFloatValue(row.Weight),
		Dimensions:          domain.NullStringValue(row.Dimensions),
		PickupDate:          domain.NullTimeValue(row.PickupDate),
		SpecialRequirements: domain.NullStringValue(row.SpecialRequirements),
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}
	if row.DriverID.Valid {
		id := row.DriverID.UUID
		load.DriverID = &id
	}
	return load
}

func repoLoadWithOwnerToDomain(row repository.LoadWithOwner) *domain.Load {
	load := repoLoadToDomain(row.Load)
	load.OwnerName = row.OwnerName
	return load
}

func repoLoadsToDomain(rows []repository.LoadWithOwner) []domain.Load {
	loads := make([]domain.Load, len(rows))
	for i, row := range rows {
		loads[i] = *repoLoadWithOwnerToDomain(row)
	}
	return loads
}
