package service

import (
	"context"
	"log/slog"

	"github.com/DukeRupert/loadshare/internal/domain"
	"github.com/DukeRupert/loadshare/internal/metrics"
	"github.com/DukeRupert/loadshare/internal/repository"
	"github.com/google/uuid"
)

// MessageService handles the conversation attached to a load.
type MessageService interface {
	// Send posts a message. Only the load owner and the assigned driver
	// may take part; others get domain.EFORBIDDEN.
	Send(ctx context.Context, user *domain.User, params domain.SendMessageParams) (*domain.Message, error)

	// ListByLoad returns the conversation oldest first, with the same
	// access rule as Send.
	ListByLoad(ctx context.Context, user *domain.User, loadID uuid.UUID) ([]domain.Message, error)
}

type messageService struct {
	queries *repository.Queries
	loads   LoadService
	logger  *slog.Logger
}

// NewMessageService creates a new MessageService.
func NewMessageService(queries *repository.Queries, loads LoadService, logger *slog.Logger) MessageService {
	return &messageService{queries: queries, loads: loads, logger: logger}
}

func (s *messageService) Send(ctx context.Context, user *domain.User, params domain.SendMessageParams) (*domain.Message, error) {
	const op = "MessageService.Send"

	if user == nil {
		return nil, domain.Unauthorized(op, "Authentication required")
	}
	params.SenderID = user.ID
	params.Body = sanitizeText(params.Body)

	if err := checkParams(op, params); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, op, user, params.LoadID); err != nil {
		return nil, err
	}

	row, err := s.queries.CreateMessage(ctx, repository.CreateMessageParams{
		LoadID:   params.LoadID,
		SenderID: user.ID,
		Body:     params.Body,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to send message")
	}

	metrics.MessagesSent.Inc()
	s.logger.Debug("message sent", "load_id", params.LoadID, "sender_id", user.ID)

	return &domain.Message{
		ID:         row.ID,
		LoadID:     row.LoadID,
		SenderID:   row.SenderID,
		SenderName: user.Name,
		Body:       row.Body,
		CreatedAt:  row.CreatedAt,
	}, nil
}

func (s *messageService) ListByLoad(ctx context.Context, user *domain.User, loadID uuid.UUID) ([]domain.Message, error) {
	const op = "MessageService.ListByLoad"

	if user == nil {
		return nil, domain.Unauthorized(op, "Authentication required")
	}
	if err := s.authorize(ctx, op, user, loadID); err != nil {
		return nil, err
	}

	rows, err := s.queries.ListMessagesByLoad(ctx, loadID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to fetch messages")
	}

	messages := make([]domain.Message, len(rows))
	for i, row := range rows {
		messages[i] = domain.Message{
			ID:         row.ID,
			LoadID:     row.LoadID,
			SenderID:   row.SenderID,
			SenderName: row.SenderName,
			Body:       row.Body,
			CreatedAt:  row.CreatedAt,
		}
	}
	return messages, nil
}

func (s *messageService) authorize(ctx context.Context, op string, user *domain.User, loadID uuid.UUID) error {
	load, err := s.loads.Get(ctx, loadID)
	if err != nil {
		return err
	}
	if !load.IsParticipant(user.ID) {
		return domain.Forbidden(op, "Only the load owner and assigned driver can view messages")
	}
	return nil
}
