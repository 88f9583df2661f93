package outbox_poller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/pix-settlement-ledger/internal/domain/outbox"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newOutboxMessage(t *testing.T, id int64, event *shared.LedgerEvent) *outbox.Message {
	t.Helper()
	msg, err := outbox.NewMessage(event)
	require.NoError(t, err)
	msg.ID = id
	return msg
}

func TestKafkaEventPublisher_Publish(t *testing.T) {
	userID := uuid.New()

	t.Run("PublishesKeyedByUserAndMarksProcessed", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		producer := new(MockMessagePublisher)
		publisher := NewKafkaEventPublisher(repo, producer, newTestLogger())

		event := shared.DepositConfirmed(userID, "dep-1", 9500, 9500)
		event.CorrelationID = "corr-3"
		msg := newOutboxMessage(t, 7, event)

		producer.On("Publish", mock.MatchedBy(func(ctx context.Context) bool {
			return logger.CorrelationID(ctx) == "corr-3"
		}), userID.String(), msg.Payload).Return(nil).Once()
		repo.On("UpdateStatus", mock.Anything, int64(7), shared.OutboxStatusProcessed).Return(nil).Once()

		require.NoError(t, publisher.Publish(context.Background(), msg))
		producer.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("BrokerErrorLeavesRowPending", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		producer := new(MockMessagePublisher)
		publisher := NewKafkaEventPublisher(repo, producer, newTestLogger())
		msg := newOutboxMessage(t, 8, shared.BalanceUpdated(userID, 1))
		brokerErr := errors.New("not enough replicas")
		producer.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(brokerErr).Once()

		err := publisher.Publish(context.Background(), msg)

		assert.ErrorIs(t, err, brokerErr)
		repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UndecodablePayloadIsParked", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		producer := new(MockMessagePublisher)
		publisher := NewKafkaEventPublisher(repo, producer, newTestLogger())
		msg := &outbox.Message{ID: 9, Payload: json.RawMessage(`{"event_id":1`)}
		repo.On("UpdateStatus", mock.Anything, int64(9), shared.OutboxStatusFailedToPublish).Return(nil).Once()

		err := publisher.Publish(context.Background(), msg)

		var undecodable ErrUndecodablePayload
		require.ErrorAs(t, err, &undecodable)
		assert.Equal(t, int64(9), undecodable.OutboxID)
		producer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertExpectations(t)
	})

	t.Run("StatusUpdateFailure", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		producer := new(MockMessagePublisher)
		publisher := NewKafkaEventPublisher(repo, producer, newTestLogger())
		msg := newOutboxMessage(t, 10, shared.BalanceUpdated(userID, 1))
		producer.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
		repo.On("UpdateStatus", mock.Anything, int64(10), shared.OutboxStatusProcessed).Return(errors.New("conn closed")).Once()

		assert.Error(t, publisher.Publish(context.Background(), msg))
	})
}
