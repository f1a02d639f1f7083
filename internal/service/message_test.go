package service

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/DukeRupert/loadshare/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMessageService(t *testing.T) (MessageService, sqlmock.Sqlmock) {
	t.Helper()
	queries, mock := newMockQueries(t)
	loads := NewLoadService(queries, testLogger())
	return NewMessageService(queries, loads, testLogger()), mock
}

var messageColumns = []string{"id", "load_id", "sender_id", "body", "created_at"}

func TestMessageSend(t *testing.T) {
	ownerID, driverID := uuid.New(), uuid.New()
	f := loadFixture{ID: uuid.New(), OwnerID: ownerID, DriverID: &driverID, Status: domain.LoadStatusClaimed}

	t.Run("assigned driver", func(t *testing.T) {
		svc, mock := newTestMessageService(t)
		expectGetLoad(mock, f)
		mock.ExpectQuery("INSERT INTO messages").
			WithArgs(f.ID, driverID, "When is pickup?").
			WillReturnRows(sqlmock.NewRows(messageColumns).
				AddRow(uuid.NewString(), f.ID.String(), driverID.String(), "When is pickup?", testNow))

		msg, err := svc.Send(context.Background(), driverUser(driverID), domain.SendMessageParams{
			LoadID: f.ID,
			Body:   "  <em>When is pickup?</em> ",
		})
		require.NoError(t, err)
		assert.Equal(t, "Tom Rodriguez", msg.SenderName)
		assert.Equal(t, "When is pickup?", msg.Body)
	})

	t.Run("outsider is forbidden", func(t *testing.T) {
		svc, mock := newTestMessageService(t)
		expectGetLoad(mock, f)

		_, err := svc.Send(context.Background(), driverUser(uuid.New()), domain.SendMessageParams{LoadID: f.ID, Body: "Hello"})
		requireCode(t, err, domain.EFORBIDDEN)
	})

	t.Run("empty message", func(t *testing.T) {
		svc, _ := newTestMessageService(t)

		_, err := svc.Send(context.Background(), ownerUser(ownerID), domain.SendMessageParams{LoadID: f.ID, Body: "   "})

		var ve *domain.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "Message is required", ve.Field("message"))
	})

	t.Run("anonymous", func(t *testing.T) {
		svc, _ := newTestMessageService(t)
		_, err := svc.Send(context.Background(), nil, domain.SendMessageParams{LoadID: f.ID, Body: "Hi"})
		requireCode(t, err, domain.EUNAUTHORIZED)
	})
}

func TestMessageListByLoad(t *testing.T) {
	ownerID := uuid.New()
	f := loadFixture{ID: uuid.New(), OwnerID: ownerID, Status: domain.LoadStatusPosted}

	t.Run("owner sees the conversation", func(t *testing.T) {
		svc, mock := newTestMessageService(t)
		expectGetLoad(mock, f)
		mock.ExpectQuery("FROM messages m").WithArgs(f.ID).WillReturnRows(
			sqlmock.NewRows(append(append([]string{}, messageColumns...), "name")).
				AddRow(uuid.NewString(), f.ID.String(), ownerID.String(), "Anyone?", testNow, "Sarah Johnson"),
		)

		msgs, err := svc.ListByLoad(context.Background(), ownerUser(ownerID), f.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "Sarah Johnson", msgs[0].SenderName)
	})

	t.Run("unassigned driver is forbidden", func(t *testing.T) {
		svc, mock := newTestMessageService(t)
		expectGetLoad(mock, f)

		_, err := svc.ListByLoad(context.Background(), driverUser(uuid.New()), f.ID)
		requireCode(t, err, domain.EFORBIDDEN)
	})
}
