package worker

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/DukeRupert/loadshare/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid default config", mutate: func(c *Config) {}},
		{name: "concurrency too low", mutate: func(c *Config) { c.Concurrency = 0 }, wantErr: true},
		{name: "concurrency too high", mutate: func(c *Config) { c.Concurrency = 101 }, wantErr: true},
		{name: "poll interval too short", mutate: func(c *Config) { c.PollInterval = 500 * time.Millisecond }, wantErr: true},
		{name: "stale threshold too short", mutate: func(c *Config) { c.StaleJobThreshold = 30 * time.Second }, wantErr: true},
		{name: "session purge too frequent", mutate: func(c *Config) { c.SessionPurgeInterval = time.Second }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "permanent error",
			err:  NewPermanentError(context.Canceled),
			want: true,
		},
		{
			name: "regular error",
			err:  context.Canceled,
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPermanent(tt.err); got != tt.want {
				t.Errorf("IsPermanent() = %v, want %v", got, tt.want)
			}
		})
	}
}

// =============================================================================
// Job processing
// =============================================================================

type stubHandler struct {
	jobType string
	handle  func(ctx context.Context, payload []byte) error
	calls   int
}

func (h *stubHandler) Type() string { return h.jobType }

func (h *stubHandler) Handle(ctx context.Context, payload []byte) error {
	h.calls++
	return h.handle(ctx, payload)
}

var jobRowColumns = []string{
	"id", "job_type", "payload", "status", "priority", "attempts", "max_attempts",
	"scheduled_at", "started_at", "completed_at", "error_message", "created_at",
}

func newMockWorker(t *testing.T) (*Worker, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	w, err := New(db, repository.New(db), DefaultConfig(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return w, mock
}

func expectDequeue(mock sqlmock.Sqlmock, jobID uuid.UUID, jobType string, payload string) {
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE SKIP LOCKED").WillReturnRows(
		sqlmock.NewRows(jobRowColumns).AddRow(
			jobID.String(), jobType, []byte(payload), StatusPending, int64(PriorityNormal), int64(0), int64(3),
			now, nil, nil, nil, now,
		),
	)
	mock.ExpectExec("SET status = 'running'").WithArgs(jobID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

func TestRunOnce_NoJobs(t *testing.T) {
	w, mock := newMockWorker(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE SKIP LOCKED").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	found, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunOnce_CompletesJob(t *testing.T) {
	w, mock := newMockWorker(t)
	jobID := uuid.New()

	var got []byte
	h := &stubHandler{jobType: "test_job", handle: func(_ context.Context, payload []byte) error {
		got = payload
		return nil
	}}
	w.Register(h)

	expectDequeue(mock, jobID, "test_job", `{"n":1}`)
	mock.ExpectExec("SET status = 'completed'").WithArgs(jobID).WillReturnResult(sqlmock.NewResult(0, 1))

	found, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, h.calls)
	assert.JSONEq(t, `{"n":1}`, string(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunOnce_RetryableFailure(t *testing.T) {
	w, mock := newMockWorker(t)
	jobID := uuid.New()

	w.Register(&stubHandler{jobType: "test_job", handle: func(context.Context, []byte) error {
		return errors.New("storage unavailable")
	}})

	expectDequeue(mock, jobID, "test_job", `{}`)
	mock.ExpectQuery("UPDATE jobs").
		WithArgs(jobID, sql.NullString{String: "storage unavailable", Valid: true}, false).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(StatusPending))

	found, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunOnce_UnknownJobTypeIsPermanent(t *testing.T) {
	w, mock := newMockWorker(t)
	jobID := uuid.New()

	expectDequeue(mock, jobID, "mystery", `{}`)
	mock.ExpectQuery("UPDATE jobs").
		WithArgs(jobID, sqlmock.AnyArg(), true).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(StatusFailed))

	_, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewEnqueueParams(t *testing.T) {
	before := time.Now()
	params, err := NewEnqueueParams(JobTypeGenerateThumbnail,
		GenerateThumbnailPayload{ImageID: uuid.Nil, LoadID: uuid.Nil},
		WithPriority(PriorityHigh), WithMaxAttempts(5), WithDelay(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, JobTypeGenerateThumbnail, params.JobType)
	assert.Equal(t, int32(PriorityHigh), params.Priority)
	assert.Equal(t, int32(5), params.MaxAttempts)
	assert.False(t, params.ScheduledAt.Before(before.Add(time.Minute)))
	assert.JSONEq(t, `{"image_id":"00000000-0000-0000-0000-000000000000","load_id":"00000000-0000-0000-0000-000000000000"}`, string(params.Payload))
}
