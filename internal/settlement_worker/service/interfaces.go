// Package service projects published ledger events into the per-user activity feed.
package service

import (
	"context"

	"github.com/pix-settlement-ledger/internal/domain/shared"
)

// ProjectionService applies a ledger event to a read model. Implementations must be
// idempotent per event id since Kafka delivers at least once.
type ProjectionService interface {
	Project(ctx context.Context, event *shared.LedgerEvent) error
}
