package usecase

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"storefront/app/domain"
	"storefront/config"
	"storefront/pkg/metrics"

	"github.com/gofrs/uuid/v5"
)

// detachedNotifier marks notifiers whose dispatch survives a rollback of the
// product transaction.
type detachedNotifier interface {
	detached()
}

type directNotifier struct {
	broker domain.BrokerPublisher
}

// NewDirectNotifier publishes straight to the broker from inside the product
// transaction, before the row is written.
func NewDirectNotifier(broker domain.BrokerPublisher) domain.PriceChangeNotifier {
	return &directNotifier{broker}
}

func (n *directNotifier) NotifyPriceChanged(ctx context.Context, event domain.ProductPriceChangedEvent, _ *sql.Tx) error {
	if err := n.broker.PublishProductPriceChanged(ctx, event, ""); err != nil {
		metrics.PriceChangePublishFailures.WithLabelValues(config.PublishModeDirect).Inc()
		return err
	}
	metrics.PriceChangesPublished.WithLabelValues(config.PublishModeDirect).Inc()
	return nil
}

func (n *directNotifier) detached() {}

type outboxNotifier struct {
	outboxRepo domain.OutboxRepository
}

// NewOutboxNotifier records the event in the outbox table in the same
// transaction as the product write. OutboxRelay publishes it after commit.
func NewOutboxNotifier(outboxRepo domain.OutboxRepository) domain.PriceChangeNotifier {
	return &outboxNotifier{outboxRepo}
}

func (n *outboxNotifier) NotifyPriceChanged(ctx context.Context, event domain.ProductPriceChangedEvent, tx *sql.Tx) error {
	id, err := uuid.NewV4()
	if err != nil {
		slog.ErrorContext(ctx, "[outboxNotifier] NotifyPriceChanged", "uuid.NewV4", err)
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		slog.ErrorContext(ctx, "[outboxNotifier] NotifyPriceChanged", "json.Marshal", err)
		return err
	}

	err = n.outboxRepo.Insert(ctx, domain.OutboxMessage{
		ID:        id,
		EventType: domain.ProductPriceChangedEventType,
		Payload:   payload,
	}, tx)
	if err != nil {
		metrics.PriceChangePublishFailures.WithLabelValues(config.PublishModeOutbox).Inc()
		return err
	}

	metrics.PriceChangesPublished.WithLabelValues(config.PublishModeOutbox).Inc()
	return nil
}

// NewPriceChangeNotifier picks the notifier for the configured publish mode.
func NewPriceChangeNotifier(mode string, broker domain.BrokerPublisher, outboxRepo domain.OutboxRepository) domain.PriceChangeNotifier {
	if mode == config.PublishModeOutbox {
		return NewOutboxNotifier(outboxRepo)
	}
	return NewDirectNotifier(broker)
}
