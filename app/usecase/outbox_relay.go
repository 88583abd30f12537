package usecase

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"storefront/app/domain"
	"storefront/pkg/metrics"
	"time"

	"github.com/gofrs/uuid/v5"
)

// OutboxRelay moves committed outbox rows to the broker. A row is marked sent
// in the same transaction that locked it; if that commit fails the row is sent
// again and the broker drops the copy by its message id.
type OutboxRelay struct {
	outboxRepo domain.OutboxRepository
	broker     domain.BrokerPublisher
	batchSize  int
	interval   time.Duration
}

func NewOutboxRelay(outboxRepo domain.OutboxRepository, broker domain.BrokerPublisher, batchSize int, interval time.Duration) *OutboxRelay {
	return &OutboxRelay{
		outboxRepo: outboxRepo,
		broker:     broker,
		batchSize:  batchSize,
		interval:   interval,
	}
}

// Run relays pending rows every interval until ctx is done.
func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "[OutboxRelay] Run", "interval", r.interval, "batchSize", r.batchSize)
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "[OutboxRelay] Run", "stopped", ctx.Err())
			return
		case <-ticker.C:
			if _, err := r.RelayPending(ctx); err != nil {
				slog.ErrorContext(ctx, "[OutboxRelay] Run", "relayPending", err)
			}
		}
	}
}

// RelayPending publishes one batch and returns how many rows were marked sent.
// It stops at the first publish failure so the rest of the batch keeps its
// order for the next attempt.
func (r *OutboxRelay) RelayPending(ctx context.Context) (int, error) {
	var sent []uuid.UUID

	err := r.outboxRepo.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		msgs, err := r.outboxRepo.FetchPending(ctx, r.batchSize, tx)
		if err != nil {
			return err
		}
		metrics.OutboxPending.Set(float64(len(msgs)))

		for _, msg := range msgs {
			if msg.EventType != domain.ProductPriceChangedEventType {
				slog.WarnContext(ctx, "[OutboxRelay] RelayPending", "unknownEventType", msg.EventType, "id", msg.ID)
				sent = append(sent, msg.ID)
				continue
			}

			var event domain.ProductPriceChangedEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				slog.ErrorContext(ctx, "[OutboxRelay] RelayPending", "json.Unmarshal", err, "id", msg.ID)
				sent = append(sent, msg.ID)
				continue
			}

			if err := r.broker.PublishProductPriceChanged(ctx, event, msg.ID.String()); err != nil {
				slog.ErrorContext(ctx, "[OutboxRelay] RelayPending", "publish", err, "id", msg.ID)
				break
			}
			sent = append(sent, msg.ID)
		}

		return r.outboxRepo.MarkSent(ctx, sent, tx)
	})
	if err != nil {
		return 0, err
	}
	return len(sent), nil
}
