package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DeliveryAck  = "ack"
	DeliveryNak  = "nak"
	DeliveryTerm = "term"
)

var (
	PriceChangesPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_price_changes_published_total",
			Help: "Price change events handed to the broker or the outbox",
		},
		[]string{"mode"},
	)

	PriceChangePublishFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_price_change_publish_failures_total",
			Help: "Price change events the broker or the outbox did not accept",
		},
		[]string{"mode"},
	)

	OutboxPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_outbox_pending_batch",
			Help: "Size of the last pending outbox batch picked up by the relay",
		},
	)

	PriceChangeDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basket_price_change_deliveries_total",
			Help: "Price change deliveries by outcome",
		},
		[]string{"result"},
	)

	CartsRepriced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "basket_carts_repriced_total",
			Help: "Carts rewritten by a price change",
		},
	)
)

func RegisterCatalog(reg prometheus.Registerer) {
	reg.MustRegister(PriceChangesPublished)
	reg.MustRegister(PriceChangePublishFailures)
	reg.MustRegister(OutboxPending)
}

func RegisterBasket(reg prometheus.Registerer) {
	reg.MustRegister(PriceChangeDeliveries)
	reg.MustRegister(CartsRepriced)
}

// Handler exposes the default registry on a fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
