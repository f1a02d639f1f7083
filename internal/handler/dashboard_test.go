package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/loadshare/internal/domain"
	"github.com/DukeRupert/loadshare/internal/service"
)

func TestDashboard_RedirectsByRole(t *testing.T) {
	h := NewDashboardHandler(&mockLoadService{}, testRenderer(t), testLogger(), false)

	tests := []struct {
		user *domain.User
		want string
	}{
		{testOwner(), PathLoadOwnerDashboard},
		{testDriver(), PathDriverDashboard},
	}
	for _, tt := range tests {
		t.Run(tt.user.Role.String(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Dashboard(rec, withUser(httptest.NewRequest(http.MethodGet, "/dashboard", nil), tt.user))
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Location"))
		})
	}
}

func TestDashboard_AnonymousIsSentToLogin(t *testing.T) {
	h := NewDashboardHandler(&mockLoadService{}, testRenderer(t), testLogger(), false)

	rec := httptest.NewRecorder()
	h.Dashboard(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?return_to=%2Fdashboard", rec.Header().Get("Location"))
}

func TestLoadOwnerDashboard(t *testing.T) {
	owner := testOwner()
	loads := &mockLoadService{
		ListByOwnerFunc: func(ctx context.Context, ownerID uuid.UUID, page service.Page) ([]domain.Load, error) {
			assert.Equal(t, owner.ID, ownerID)
			return []domain.Load{*testLoad(owner, domain.LoadStatusClaimed)}, nil
		},
		CountByStatusFunc: func(ctx context.Context, ownerID uuid.UUID) (map[domain.LoadStatus]int64, error) {
			return map[domain.LoadStatus]int64{
				domain.LoadStatusPosted:  2,
				domain.LoadStatusClaimed: 1,
			}, nil
		},
	}
	h := NewDashboardHandler(loads, testRenderer(t), testLogger(), false)

	rec := httptest.NewRecorder()
	h.LoadOwner(rec, withUser(httptest.NewRequest(http.MethodGet, PathLoadOwnerDashboard, nil), owner))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Welcome back, Olivia Owner")
	assert.Contains(t, body, "3 loads posted")
	assert.Contains(t, body, "Sofa to Portland")
	assert.Contains(t, body, "bg-yellow-100")
	assert.Contains(t, body, "250 kg")
}

func TestLoadOwnerDashboard_Empty(t *testing.T) {
	h := NewDashboardHandler(&mockLoadService{}, testRenderer(t), testLogger(), false)

	rec := httptest.NewRecorder()
	h.LoadOwner(rec, withUser(httptest.NewRequest(http.MethodGet, PathLoadOwnerDashboard, nil), testOwner()))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Post your first load")
}

func TestDriverDashboard(t *testing.T) {
	owner := testOwner()
	driver := testDriver()
	available := testLoad(owner, domain.LoadStatusPosted)
	available.Title = "Piano to Tacoma"
	mine := testLoad(owner, domain.LoadStatusAccepted)
	mine.DriverID = &driver.ID

	loads := &mockLoadService{
		ListAvailableFunc: func(ctx context.Context, page service.Page) ([]domain.Load, error) {
			return []domain.Load{*available}, nil
		},
		ListByDriverFunc: func(ctx context.Context, driverID uuid.UUID, page service.Page) ([]domain.Load, error) {
			assert.Equal(t, driver.ID, driverID)
			return []domain.Load{*mine}, nil
		},
	}
	h := NewDashboardHandler(loads, testRenderer(t), testLogger(), false)

	rec := httptest.NewRecorder()
	h.Driver(rec, withUser(httptest.NewRequest(http.MethodGet, PathDriverDashboard, nil), driver))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Piano to Tacoma")
	assert.Contains(t, body, "Sofa to Portland")
	assert.Contains(t, body, "Box Truck")
	assert.NotContains(t, body, "No loads are available right now")
}

func TestDriverDashboard_ServiceError(t *testing.T) {
	loads := &mockLoadService{
		ListAvailableFunc: func(ctx context.Context, page service.Page) ([]domain.Load, error) {
			return nil, domain.Internal(nil, "LoadService.ListAvailable", "database unavailable")
		},
	}
	h := NewDashboardHandler(loads, testRenderer(t), testLogger(), false)

	rec := httptest.NewRecorder()
	h.Driver(rec, withUser(httptest.NewRequest(http.MethodGet, PathDriverDashboard, nil), testDriver()))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
