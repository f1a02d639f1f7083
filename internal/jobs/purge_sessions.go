package jobs

import (
	"context"
	"log/slog"

	"github.com/DukeRupert/loadshare/internal/worker"
)

// SessionPurger removes expired sessions.
type SessionPurger interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// PurgeSessionsHandler deletes expired login sessions.
type PurgeSessionsHandler struct {
	sessions SessionPurger
	logger   *slog.Logger
}

func NewPurgeSessionsHandler(sessions SessionPurger, logger *slog.Logger) *PurgeSessionsHandler {
	return &PurgeSessionsHandler{sessions: sessions, logger: logger}
}

func (h *PurgeSessionsHandler) Type() string {
	return worker.JobTypePurgeSessions
}

// Handle ignores the payload.
func (h *PurgeSessionsHandler) Handle(ctx context.Context, _ []byte) error {
	n, err := h.sessions.DeleteExpiredSessions(ctx)
	if err != nil {
		return err
	}
	h.logger.Debug("session purge finished", "deleted", n)
	return nil
}
