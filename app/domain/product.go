package domain

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Product is owned by the catalog service. Baskets only ever see a snapshot of it.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductRequest.Price is a pointer so an absent or null price is told apart
// from an explicit zero.
type ProductRequest struct {
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	ImageURL    string           `json:"image_url"`
}

func (r ProductRequest) ToProduct() Product {
	product := Product{
		Name:        r.Name,
		Description: r.Description,
		ImageURL:    r.ImageURL,
	}
	if r.Price != nil {
		product.Price = *r.Price
	}
	return product
}

type ProductRepository interface {
	GetAll(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, product *Product) error
	Update(ctx context.Context, product Product, tx *sql.Tx) error
	Delete(ctx context.Context, id int64) error

	WithTransaction(ctx context.Context, fn func(context.Context, *sql.Tx) error) error
}

type ProductUsecase interface {
	GetAll(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, req ProductRequest) (Product, error)
	// Update applies proposed onto the product with the given id and emits a
	// ProductPriceChangedEvent when the price differs.
	Update(ctx context.Context, id int64, proposed ProductRequest) error
	Delete(ctx context.Context, id int64) error
}
