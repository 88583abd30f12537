package subscriber

import (
	"context"
	"encoding/json"
	"log/slog"
	"storefront/app/domain"
	"storefront/pkg/ctxutil"
	"storefront/pkg/metrics"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/shopspring/decimal"
)

// priceChangedPayload is the part of a ProductPriceChangedEvent the basket
// applies. Price is a pointer so a missing or null price fails validation
// instead of decoding as zero.
type priceChangedPayload struct {
	ProductID int64            `json:"product_id" validate:"required"`
	Price     *decimal.Decimal `json:"price" validate:"required"`
}

type PriceChangedSubscriber struct {
	basketUsecase domain.BasketUsecase
	validator     *validator.Validate
	nakDelay      time.Duration
	timeout       time.Duration
}

// NewPriceChangedSubscriber builds the JetStream callback for price changes.
// timeout bounds one delivery and should not exceed the consumer ack wait.
// A zero nakDelay leaves redelivery timing to the consumer backoff.
func NewPriceChangedSubscriber(basketUsecase domain.BasketUsecase, validator *validator.Validate, nakDelay, timeout time.Duration) *PriceChangedSubscriber {
	return &PriceChangedSubscriber{
		basketUsecase: basketUsecase,
		validator:     validator,
		nakDelay:      nakDelay,
		timeout:       timeout,
	}
}

// Handle acks only after every affected cart has been persisted. Store
// failures are negatively acked for redelivery; payloads that can never be
// applied are terminated.
func (s *PriceChangedSubscriber) Handle(msg jetstream.Msg) {
	ctx := context.Background()
	if meta, err := msg.Metadata(); err == nil {
		ctx = ctxutil.WithDelivery(ctx, msg.Subject(), meta.Sequence.Stream)
		if meta.NumDelivered > 1 {
			slog.InfoContext(ctx, "[PriceChangedSubscriber] Handle", "redelivery", meta.NumDelivered)
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var event priceChangedPayload
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		slog.ErrorContext(ctx, "[PriceChangedSubscriber] Handle", "json.Unmarshal", err)
		s.term(ctx, msg)
		return
	}

	if err := s.validator.Struct(event); err != nil {
		slog.ErrorContext(ctx, "[PriceChangedSubscriber] Handle", "validation", err)
		s.term(ctx, msg)
		return
	}

	if event.Price.IsNegative() {
		slog.ErrorContext(ctx, "[PriceChangedSubscriber] Handle", "negativePrice", event.Price.String(), "productID", event.ProductID)
		s.term(ctx, msg)
		return
	}

	if _, err := s.basketUsecase.UpdateItemPrices(ctx, event.ProductID, *event.Price); err != nil {
		slog.ErrorContext(ctx, "[PriceChangedSubscriber] Handle", "updateItemPrices", err, "productID", event.ProductID)
		s.nak(ctx, msg)
		return
	}

	if err := msg.Ack(); err != nil {
		// the delivery comes back after ack wait and is applied again
		slog.ErrorContext(ctx, "[PriceChangedSubscriber] Handle", "ack", err)
		return
	}
	metrics.PriceChangeDeliveries.WithLabelValues(metrics.DeliveryAck).Inc()
}

func (s *PriceChangedSubscriber) nak(ctx context.Context, msg jetstream.Msg) {
	var err error
	if s.nakDelay > 0 {
		err = msg.NakWithDelay(s.nakDelay)
	} else {
		err = msg.Nak()
	}
	if err != nil {
		slog.ErrorContext(ctx, "[PriceChangedSubscriber] nak", "nak", err)
		return
	}
	metrics.PriceChangeDeliveries.WithLabelValues(metrics.DeliveryNak).Inc()
}

func (s *PriceChangedSubscriber) term(ctx context.Context, msg jetstream.Msg) {
	if err := msg.Term(); err != nil {
		slog.ErrorContext(ctx, "[PriceChangedSubscriber] term", "term", err)
		return
	}
	metrics.PriceChangeDeliveries.WithLabelValues(metrics.DeliveryTerm).Inc()
}
