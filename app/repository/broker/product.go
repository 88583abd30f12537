package broker

import (
	"context"
	"encoding/json"
	"log/slog"
	"storefront/app/domain"

	"github.com/nats-io/nats.go/jetstream"
)

type streamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

type productBroker struct {
	js      streamPublisher
	subject string
}

func NewProductBrokerPublisher(js streamPublisher, streamName string) domain.BrokerPublisher {
	return &productBroker{
		js:      js,
		subject: domain.EventSubject(streamName, domain.ProductPriceChangedEventType),
	}
}

func (p *productBroker) PublishProductPriceChanged(ctx context.Context, data domain.ProductPriceChangedEvent, msgID string) error {
	msg, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(ctx, "[productBroker] PublishProductPriceChanged", "json.Marshal", err)
		return err
	}

	var opts []jetstream.PublishOpt
	if msgID != "" {
		opts = append(opts, jetstream.WithMsgID(msgID))
	}

	ack, err := p.js.Publish(ctx, p.subject, msg, opts...)
	if err != nil {
		slog.ErrorContext(ctx, "[productBroker] PublishProductPriceChanged", "Publish", err)
		return err
	}

	slog.InfoContext(ctx, "[productBroker] PublishProductPriceChanged",
		"subject", p.subject,
		"product_id", data.ProductID,
		"price", data.Price.String(),
		"stream_seq", ack.Sequence,
		"duplicate", ack.Duplicate)
	return nil
}
