package broker

import (
	"context"
	"fmt"
	"log/slog"
	"storefront/app/domain"
	"storefront/config"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
)

// EnsureStream creates the file backed stream holding every catalog event
// subject, or updates it when it already exists.
func EnsureStream(ctx context.Context, js jetstream.JetStream, cfg config.NatsConfig) (jetstream.Stream, error) {
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     strings.ToUpper(cfg.StreamName),
		Subjects: []string{fmt.Sprintf("%s.*", strings.ToLower(cfg.StreamName))},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		slog.ErrorContext(ctx, "[broker] EnsureStream", "createOrUpdateStream", err)
		return nil, err
	}
	return stream, nil
}

// EnsurePriceChangedConsumer creates the durable, explicitly acked consumer the
// basket service reads price changes from. Redelivery policy comes from cfg.
func EnsurePriceChangedConsumer(ctx context.Context, stream jetstream.Stream, natsCfg config.NatsConfig, cfg config.ConsumerConfig) (jetstream.Consumer, error) {
	consumerCfg := jetstream.ConsumerConfig{
		Durable:       cfg.Durable,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		FilterSubject: domain.EventSubject(natsCfg.StreamName, domain.ProductPriceChangedEventType),
		MaxDeliver:    cfg.MaxDeliver,
		AckWait:       cfg.AckWait,
	}
	if len(cfg.BackOff) > 0 {
		consumerCfg.BackOff = cfg.BackOff
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, consumerCfg)
	if err != nil {
		slog.ErrorContext(ctx, "[broker] EnsurePriceChangedConsumer", "createOrUpdateConsumer", err)
		return nil, err
	}
	return consumer, nil
}
