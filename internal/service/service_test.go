package service

import (
	"database/sql/driver"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/DukeRupert/loadshare/internal/domain"
	"github.com/DukeRupert/loadshare/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newMockQueries returns queries backed by sqlmock. Unmet expectations fail
// the test at cleanup.
func newMockQueries(t *testing.T) (*repository.Queries, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return repository.New(db), mock
}

var userColumns = []string{
	"id", "name", "email", "phone", "user_type", "password_hash",
	"location", "license_info", "service_area", "vehicle_info", "created_at", "updated_at",
}

func ownerRows(id uuid.UUID, email, hash string) *sqlmock.Rows {
	return sqlmock.NewRows(userColumns).AddRow(
		id.String(), "Sarah Johnson", email, "+1-555-0101", "load_owner", hash,
		"Downtown Seattle, WA", nil, nil, nil, testNow, testNow,
	)
}

func driverRows(id uuid.UUID, email, hash string) *sqlmock.Rows {
	return sqlmock.NewRows(userColumns).AddRow(
		id.String(), "Tom Rodriguez", email, "+1-555-0201", "driver", hash,
		nil, "CDL-A WA123456", "Seattle Metro Area",
		[]byte(`{"type":"Pickup Truck","capacity":"1000 kg"}`), testNow, testNow,
	)
}

var sessionColumns = []string{"id", "user_id", "token_hash", "expires_at", "created_at"}

func sessionRows(userID uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows(sessionColumns).AddRow(
		uuid.NewString(), userID.String(), "hash", testNow.Add(DefaultSessionDuration), testNow,
	)
}

var loadColumns = []string{
	"id", "owner_id", "driver_id", "title", "description", "pickup_location", "delivery_location",
	"status", "weight", "dimensions", "pickup_date", "special_requirements", "created_at", "updated_at",
}

type loadFixture struct {
	ID       uuid.UUID
	OwnerID  uuid.UUID
	DriverID *uuid.UUID
	Status   domain.LoadStatus
	Title    string
}

func (f loadFixture) values() []driver.Value {
	var driverID driver.Value
	if f.DriverID != nil {
		driverID = f.DriverID.String()
	}
	title := f.Title
	if title == "" {
		title = "Moving a vintage piano across town"
	}
	return []driver.Value{
		f.ID.String(), f.OwnerID.String(), driverID, title, "Baby grand piano",
		"Capitol Hill, Seattle, WA", "Ballard, Seattle, WA", f.Status.String(),
		300.0, "150x140x100 cm", testNow.AddDate(0, 0, 3), nil, testNow, testNow,
	}
}

// rows returns the fixture as a plain loads row.
func (f loadFixture) rows() *sqlmock.Rows {
	return sqlmock.NewRows(loadColumns).AddRow(f.values()...)
}

// ownerRows returns the fixture joined with its owner's name.
func (f loadFixture) ownerRows() *sqlmock.Rows {
	return sqlmock.NewRows(append(append([]string{}, loadColumns...), "name")).
		AddRow(append(f.values(), "Sarah Johnson")...)
}

var imageColumns = []string{
	"id", "load_id", "storage_key", "thumbnail_key", "original_filename", "content_type", "size_bytes", "created_at",
}

func noImages() *sqlmock.Rows {
	return sqlmock.NewRows(imageColumns)
}

// expectGetLoad queues the two queries LoadService.Get issues.
func expectGetLoad(mock sqlmock.Sqlmock, f loadFixture) {
	mock.ExpectQuery("FROM loads l").WithArgs(f.ID).WillReturnRows(f.ownerRows())
	mock.ExpectQuery("FROM load_images WHERE load_id").WithArgs(f.ID).WillReturnRows(noImages())
}

func ownerUser(id uuid.UUID) *domain.User {
	return &domain.User{ID: id, Name: "Sarah Johnson", Role: domain.RoleLoadOwner, Profile: domain.LoadOwnerProfile{Location: "Seattle"}}
}

func driverUser(id uuid.UUID) *domain.User {
	return &domain.User{ID: id, Name: "Tom Rodriguez", Role: domain.RoleDriver, Profile: domain.DriverProfile{LicenseInfo: "CDL"}}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, domain.ErrorCode(err), "error: %v", err)
}
