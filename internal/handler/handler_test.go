package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/loadshare/internal/auth"
	"github.com/DukeRupert/loadshare/internal/domain"
	"github.com/DukeRupert/loadshare/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(RendererConfig{Logger: testLogger()})
	require.NoError(t, err)
	return r
}

func withUser(r *http.Request, user *domain.User) *http.Request {
	return r.WithContext(auth.SetUser(r.Context(), user))
}

func formBody(values url.Values) io.Reader {
	return strings.NewReader(values.Encode())
}

func testOwner() *domain.User {
	return &domain.User{
		ID:        uuid.New(),
		Name:      "Olivia Owner",
		Email:     "owner@example.com",
		Phone:     "+1-555-0100",
		Role:      domain.RoleLoadOwner,
		Profile:   domain.LoadOwnerProfile{Location: "Seattle, WA"},
		CreatedAt: time.Now(),
	}
}

func testDriver() *domain.User {
	return &domain.User{
		ID:    uuid.New(),
		Name:  "Dan Driver",
		Email: "driver@example.com",
		Phone: "+1-555-0101",
		Role:  domain.RoleDriver,
		Profile: domain.DriverProfile{
			LicenseInfo: "CDL-A",
			ServiceArea: "Seattle Metro Area",
			Vehicle:     domain.VehicleInfo{Type: "Box Truck", Capacity: "5000"},
		},
		CreatedAt: time.Now(),
	}
}

func testLoad(owner *domain.User, status domain.LoadStatus) *domain.Load {
	weight := 250.0
	return &domain.Load{
		ID:               uuid.New(),
		OwnerID:          owner.ID,
		OwnerName:        owner.Name,
		Title:            "Sofa to Portland",
		Description:      "Three-seat sofa, wrapped.",
		PickupLocation:   "Seattle, WA",
		DeliveryLocation: "Portland, OR",
		Status:           status,
		Weight:           &weight,
		CreatedAt:        time.Now().Add(-2 * time.Hour),
		UpdatedAt:        time.Now(),
	}
}

// =============================================================================
// Mock services
// =============================================================================

type mockUserService struct {
	RegisterFunc              func(ctx context.Context, params domain.RegisterParams) (*domain.LoginResult, error)
	LoginFunc                 func(ctx context.Context, params domain.LoginParams) (*domain.LoginResult, error)
	LogoutFunc                func(ctx context.Context, token string) error
	GetByIDFunc               func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetBySessionTokenFunc     func(ctx context.Context, token string) (*domain.User, error)
	DeleteExpiredSessionsFunc func(ctx context.Context) (int64, error)
}

func (m *mockUserService) Register(ctx context.Context, params domain.RegisterParams) (*domain.LoginResult, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, params)
	}
	return nil, errors.New("RegisterFunc not implemented")
}

func (m *mockUserService) Login(ctx context.Context, params domain.LoginParams) (*domain.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, params)
	}
	return nil, errors.New("LoginFunc not implemented")
}

func (m *mockUserService) Logout(ctx context.Context, token string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, token)
	}
	return nil
}

func (m *mockUserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, errors.New("GetByIDFunc not implemented")
}

func (m *mockUserService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	if m.GetBySessionTokenFunc != nil {
		return m.GetBySessionTokenFunc(ctx, token)
	}
	return nil, errors.New("GetBySessionTokenFunc not implemented")
}

func (m *mockUserService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	if m.DeleteExpiredSessionsFunc != nil {
		return m.DeleteExpiredSessionsFunc(ctx)
	}
	return 0, nil
}

type mockLoadService struct {
	CreateFunc        func(ctx context.Context, user *domain.User, params domain.CreateLoadParams) (*domain.Load, error)
	GetFunc           func(ctx context.Context, id uuid.UUID) (*domain.Load, error)
	ListByOwnerFunc   func(ctx context.Context, ownerID uuid.UUID, page service.Page) ([]domain.Load, error)
	ListAvailableFunc func(ctx context.Context, page service.Page) ([]domain.Load, error)
	ListByDriverFunc  func(ctx context.Context, driverID uuid.UUID, page service.Page) ([]domain.Load, error)
	CountByStatusFunc func(ctx context.Context, ownerID uuid.UUID) (map[domain.LoadStatus]int64, error)
	ClaimFunc         func(ctx context.Context, user *domain.User, loadID uuid.UUID) (*domain.Load, error)
	UpdateStatusFunc  func(ctx context.Context, user *domain.User, loadID uuid.UUID, target domain.LoadStatus) (*domain.Load, error)
}

func (m *mockLoadService) Create(ctx context.Context, user *domain.User, params domain.CreateLoadParams) (*domain.Load, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user, params)
	}
	return nil, errors.New("CreateFunc not implemented")
}

func (m *mockLoadService) Get(ctx context.Context, id uuid.UUID) (*domain.Load, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, errors.New("GetFunc not implemented")
}

func (m *mockLoadService) ListByOwner(ctx context.Context, ownerID uuid.UUID, page service.Page) ([]domain.Load, error) {
	if m.ListByOwnerFunc != nil {
		return m.ListByOwnerFunc(ctx, ownerID, page)
	}
	return nil, nil
}

func (m *mockLoadService) ListAvailable(ctx context.Context, page service.Page) ([]domain.Load, error) {
	if m.ListAvailableFunc != nil {
		return m.ListAvailableFunc(ctx, page)
	}
	return nil, nil
}

func (m *mockLoadService) ListByDriver(ctx context.Context, driverID uuid.UUID, page service.Page) ([]domain.Load, error) {
	if m.ListByDriverFunc != nil {
		return m.ListByDriverFunc(ctx, driverID, page)
	}
	return nil, nil
}

func (m *mockLoadService) CountByStatus(ctx context.Context, ownerID uuid.UUID) (map[domain.LoadStatus]int64, error) {
	if m.CountByStatusFunc != nil {
		return m.CountByStatusFunc(ctx, ownerID)
	}
	return map[domain.LoadStatus]int64{}, nil
}

func (m *mockLoadService) Claim(ctx context.Context, user *domain.User, loadID uuid.UUID) (*domain.Load, error) {
	if m.ClaimFunc != nil {
		return m.ClaimFunc(ctx, user, loadID)
	}
	return nil, errors.New("ClaimFunc not implemented")
}

func (m *mockLoadService) UpdateStatus(ctx context.Context, user *domain.User, loadID uuid.UUID, target domain.LoadStatus) (*domain.Load, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, user, loadID, target)
	}
	return nil, errors.New("UpdateStatusFunc not implemented")
}

type mockMessageService struct {
	SendFunc       func(ctx context.Context, user *domain.User, params domain.SendMessageParams) (*domain.Message, error)
	ListByLoadFunc func(ctx context.Context, user *domain.User, loadID uuid.UUID) ([]domain.Message, error)
}

func (m *mockMessageService) Send(ctx context.Context, user *domain.User, params domain.SendMessageParams) (*domain.Message, error) {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, user, params)
	}
	return nil, errors.New("SendFunc not implemented")
}

func (m *mockMessageService) ListByLoad(ctx context.Context, user *domain.User, loadID uuid.UUID) ([]domain.Message, error) {
	if m.ListByLoadFunc != nil {
		return m.ListByLoadFunc(ctx, user, loadID)
	}
	return nil, nil
}

type mockImageService struct {
	UploadFunc            func(ctx context.Context, params service.UploadImageParams) (*domain.LoadImage, error)
	ListByLoadFunc        func(ctx context.Context, loadID uuid.UUID) ([]domain.LoadImage, error)
	OpenFunc              func(ctx context.Context, imageID uuid.UUID, thumbnail bool) (io.ReadCloser, *domain.LoadImage, error)
	GenerateThumbnailFunc func(ctx context.Context, imageID uuid.UUID) error
}

func (m *mockImageService) Upload(ctx context.Context, params service.UploadImageParams) (*domain.LoadImage, error) {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, params)
	}
	return nil, errors.New("UploadFunc not implemented")
}

func (m *mockImageService) ListByLoad(ctx context.Context, loadID uuid.UUID) ([]domain.LoadImage, error) {
	if m.ListByLoadFunc != nil {
		return m.ListByLoadFunc(ctx, loadID)
	}
	return nil, nil
}

func (m *mockImageService) Open(ctx context.Context, imageID uuid.UUID, thumbnail bool) (io.ReadCloser, *domain.LoadImage, error) {
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, imageID, thumbnail)
	}
	return nil, nil, errors.New("OpenFunc not implemented")
}

func (m *mockImageService) GenerateThumbnail(ctx context.Context, imageID uuid.UUID) error {
	if m.GenerateThumbnailFunc != nil {
		return m.GenerateThumbnailFunc(ctx, imageID)
	}
	return nil
}

var (
	_ service.UserService    = (*mockUserService)(nil)
	_ service.LoadService    = (*mockLoadService)(nil)
	_ service.MessageService = (*mockMessageService)(nil)
	_ service.ImageService   = (*mockImageService)(nil)
)
