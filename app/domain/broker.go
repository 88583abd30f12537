package domain

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ProductPriceChangedEventType is the event type name. Subscribers register
// against it and it is the last token of the broker subject.
const ProductPriceChangedEventType = "product-price-changed"

// ProductPriceChangedEvent is published once per price change. It carries no
// version, so consumers apply deliveries in receipt order.
type ProductPriceChangedEvent struct {
	ProductID   int64           `json:"product_id" validate:"required"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url,omitempty"`
}

func NewProductPriceChangedEvent(id int64, proposed Product) ProductPriceChangedEvent {
	return ProductPriceChangedEvent{
		ProductID:   id,
		Name:        proposed.Name,
		Description: proposed.Description,
		Price:       proposed.Price,
		ImageURL:    proposed.ImageURL,
	}
}

func EventSubject(streamName, eventType string) string {
	return fmt.Sprintf("%s.%s", strings.ToLower(streamName), eventType)
}

type BrokerPublisher interface {
	// PublishProductPriceChanged returns once the broker has stored the
	// message. msgID is optional and enables broker side de-duplication.
	PublishProductPriceChanged(ctx context.Context, data ProductPriceChangedEvent, msgID string) error
}

// PriceChangeNotifier hands a detected price change to its dispatcher from
// inside the product update transaction.
type PriceChangeNotifier interface {
	NotifyPriceChanged(ctx context.Context, event ProductPriceChangedEvent, tx *sql.Tx) error
}
