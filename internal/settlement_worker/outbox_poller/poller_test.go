package outbox_poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pix-settlement-ledger/internal/config"
	"github.com/pix-settlement-ledger/internal/domain/outbox"
	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestPoller_ProcessPendingMessages(t *testing.T) {
	cfg := &config.OutboxConfig{
		PollingInterval:  time.Second,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}
	alice, bob := uuid.New(), uuid.New()

	pending := func(id int64, userID uuid.UUID, attempts int) *outbox.Message {
		return &outbox.Message{ID: id, EventID: uuid.New(), UserID: userID, Status: shared.OutboxStatusPending, Attempts: attempts}
	}

	tests := []struct {
		name          string
		setupMocks    func(repo *MockOutboxRepo, publisher *MockEventPublisher)
		expectedError bool
	}{
		{
			name: "publishes every pending message",
			setupMocks: func(repo *MockOutboxRepo, publisher *MockEventPublisher) {
				m1, m2 := pending(1, alice, 0), pending(2, bob, 0)
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{m1, m2}, nil).Once()
				publisher.On("Publish", mock.Anything, m1).Return(nil).Once()
				publisher.On("Publish", mock.Anything, m2).Return(nil).Once()
			},
		},
		{
			name: "failure increments attempts and holds back later events of the same user",
			setupMocks: func(repo *MockOutboxRepo, publisher *MockEventPublisher) {
				m1, m2, m3 := pending(1, alice, 0), pending(2, alice, 0), pending(3, bob, 0)
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{m1, m2, m3}, nil).Once()
				publisher.On("Publish", mock.Anything, m1).Return(errors.New("broker down")).Once()
				repo.On("IncrementAttempts", mock.Anything, int64(1)).Return(nil).Once()
				publisher.On("Publish", mock.Anything, m3).Return(nil).Once()
			},
		},
		{
			name: "last attempt marks the message failed",
			setupMocks: func(repo *MockOutboxRepo, publisher *MockEventPublisher) {
				m1 := pending(1, alice, 2)
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{m1}, nil).Once()
				publisher.On("Publish", mock.Anything, m1).Return(errors.New("broker down")).Once()
				repo.On("IncrementAttempts", mock.Anything, int64(1)).Return(nil).Once()
				repo.On("UpdateStatus", mock.Anything, int64(1), shared.OutboxStatusFailedToPublish).Return(nil).Once()
			},
		},
		{
			name: "undecodable payload is not retried",
			setupMocks: func(repo *MockOutboxRepo, publisher *MockEventPublisher) {
				m1, m2 := pending(1, alice, 0), pending(2, alice, 0)
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{m1, m2}, nil).Once()
				publisher.On("Publish", mock.Anything, m1).Return(ErrUndecodablePayload{OutboxID: 1, Err: errors.New("bad json")}).Once()
				publisher.On("Publish", mock.Anything, m2).Return(nil).Once()
			},
		},
		{
			name: "repository error",
			setupMocks: func(repo *MockOutboxRepo, publisher *MockEventPublisher) {
				repo.On("GetPending", mock.Anything, 10).Return(nil, errors.New("db down")).Once()
			},
			expectedError: true,
		},
		{
			name: "nothing pending",
			setupMocks: func(repo *MockOutboxRepo, publisher *MockEventPublisher) {
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockOutboxRepo)
			publisher := new(MockEventPublisher)
			tt.setupMocks(repo, publisher)
			poller := NewPoller(cfg, repo, publisher, newTestLogger())

			err := poller.processPendingMessages(context.Background())

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			repo.AssertExpectations(t)
			publisher.AssertExpectations(t)
		})
	}
}

func TestPoller_StartStopsOnCancel(t *testing.T) {
	repo := new(MockOutboxRepo)
	publisher := new(MockEventPublisher)
	polled := make(chan struct{}, 1)
	repo.On("GetPending", mock.Anything, 5).Return([]*outbox.Message{}, nil).Run(func(mock.Arguments) {
		select {
		case polled <- struct{}{}:
		default:
		}
	})
	poller := NewPoller(&config.OutboxConfig{PollingInterval: 5 * time.Millisecond, BatchSize: 5, MaxRetryAttempts: 1}, repo, publisher, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Start(ctx)
		close(done)
	}()

	select {
	case <-polled:
	case <-time.After(time.Second):
		t.Fatal("poller never polled")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPoller_PurgeProcessed(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	cfg := &config.OutboxConfig{PollingInterval: time.Second, BatchSize: 10, MaxRetryAttempts: 3, Retention: 48 * time.Hour, PurgeInterval: time.Hour}

	t.Run("deletes rows older than the retention window", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		repo.On("PurgeProcessed", mock.Anything, now.Add(-48*time.Hour)).Return(int64(12), nil).Once()
		poller := NewPoller(cfg, repo, new(MockEventPublisher), newTestLogger())
		poller.now = func() time.Time { return now }

		poller.purgeProcessed(context.Background())

		repo.AssertExpectations(t)
	})

	t.Run("errors are logged and swallowed", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		repo.On("PurgeProcessed", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(0), errors.New("db down")).Once()
		poller := NewPoller(cfg, repo, new(MockEventPublisher), newTestLogger())

		assert.NotPanics(t, func() { poller.purgeProcessed(context.Background()) })
		repo.AssertExpectations(t)
	})
}

func TestPoller_StartPurgesOnSchedule(t *testing.T) {
	repo := new(MockOutboxRepo)
	purged := make(chan struct{}, 1)
	repo.On("GetPending", mock.Anything, 5).Return([]*outbox.Message{}, nil).Maybe()
	repo.On("PurgeProcessed", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(0), nil).Run(func(mock.Arguments) {
		select {
		case purged <- struct{}{}:
		default:
		}
	})
	cfg := &config.OutboxConfig{
		PollingInterval:  time.Hour,
		BatchSize:        5,
		MaxRetryAttempts: 1,
		Retention:        time.Hour,
		PurgeInterval:    5 * time.Millisecond,
	}
	poller := NewPoller(cfg, repo, new(MockEventPublisher), newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Start(ctx)

	select {
	case <-purged:
	case <-time.After(time.Second):
		t.Fatal("poller never purged")
	}
}
