package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

type ShoppingCart struct {
	UserName string             `json:"user_name" validate:"required"`
	Items    []ShoppingCartItem `json:"items" validate:"dive"`
}

// ShoppingCartItem holds a denormalized copy of catalog state as of the last
// observed change. Price and ProductName may lag the catalog.
type ShoppingCartItem struct {
	Quantity    int             `json:"quantity" validate:"gte=1"`
	Color       string          `json:"color"`
	ProductID   int64           `json:"product_id" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	ProductName string          `json:"product_name"`
}

func (c ShoppingCart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// ProductIDs returns the distinct product ids referenced by the cart.
func (c ShoppingCart) ProductIDs() []int64 {
	seen := make(map[int64]struct{}, len(c.Items))
	ids := make([]int64, 0, len(c.Items))
	for _, item := range c.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

// ApplyPrice overwrites the price of every item referencing productID and
// reports whether any item matched. Applying the same price twice is a no-op.
func (c *ShoppingCart) ApplyPrice(productID int64, price decimal.Decimal) bool {
	matched := false
	for i := range c.Items {
		if c.Items[i].ProductID != productID {
			continue
		}
		c.Items[i].Price = price
		matched = true
	}
	return matched
}

type BasketResponse struct {
	UserName   string             `json:"user_name"`
	Items      []ShoppingCartItem `json:"items"`
	TotalPrice decimal.Decimal    `json:"total_price"`
}

func NewBasketResponse(cart ShoppingCart) BasketResponse {
	return BasketResponse{
		UserName:   cart.UserName,
		Items:      cart.Items,
		TotalPrice: cart.TotalPrice(),
	}
}

// BasketRepository is a key-value accessor keyed by user name. It also keeps a
// product id -> user names index so a price change can find affected carts.
type BasketRepository interface {
	Get(ctx context.Context, userName string) (ShoppingCart, error)
	Set(ctx context.Context, cart ShoppingCart) error
	Delete(ctx context.Context, userName string) error
	UserNamesByProductID(ctx context.Context, productID int64) ([]string, error)
	// PruneProductIndex removes the given users from the product index when
	// their cart no longer exists and returns how many were removed.
	PruneProductIndex(ctx context.Context, productID int64, userNames ...string) (int, error)
}

type BasketUsecase interface {
	GetBasket(ctx context.Context, userName string) (ShoppingCart, error)
	UpdateBasket(ctx context.Context, cart ShoppingCart) (ShoppingCart, error)
	DeleteBasket(ctx context.Context, userName string) error
	// UpdateItemPrices rewrites the price of productID in every cart holding it.
	// It returns the number of carts written.
	UpdateItemPrices(ctx context.Context, productID int64, price decimal.Decimal) (int, error)
}
