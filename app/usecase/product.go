package usecase

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"storefront/app/domain"
)

type productUsecase struct {
	productRepo domain.ProductRepository
	notifier    domain.PriceChangeNotifier
}

func NewProductUsecase(productRepo domain.ProductRepository, notifier domain.PriceChangeNotifier) domain.ProductUsecase {
	return &productUsecase{productRepo, notifier}
}

func (u *productUsecase) GetAll(ctx context.Context) ([]domain.Product, error) {
	products, err := u.productRepo.GetAll(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "[productUsecase] GetAll", "getAll", err)
		return nil, err
	}
	return products, nil
}

func (u *productUsecase) GetByID(ctx context.Context, id int64) (domain.Product, error) {
	product, err := u.productRepo.GetByID(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "[productUsecase] GetByID", "getByID", err)
		return domain.Product{}, err
	}
	return product, nil
}

func (u *productUsecase) Create(ctx context.Context, req domain.ProductRequest) (domain.Product, error) {
	if err := checkPrice(req); err != nil {
		return domain.Product{}, err
	}

	product := req.ToProduct()
	if err := u.productRepo.Create(ctx, &product); err != nil {
		slog.ErrorContext(ctx, "[productUsecase] Create", "createProduct", err)
		return domain.Product{}, err
	}

	slog.InfoContext(ctx, "[productUsecase] Create", "productID", product.ID)
	return product, nil
}

// Update persists name, description and price. When the price differs from
// the stored one, a ProductPriceChangedEvent is handed to the notifier before
// the row is written. There is no lock between the read and the write, so two
// concurrent updates both publish and the last write wins.
func (u *productUsecase) Update(ctx context.Context, id int64, req domain.ProductRequest) error {
	if err := checkPrice(req); err != nil {
		return err
	}

	existing, err := u.productRepo.GetByID(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "[productUsecase] Update", "getByID", err)
		return err
	}

	proposed := req.ToProduct()
	priceChanged := !existing.Price.Equal(proposed.Price)
	notified := false

	err = u.productRepo.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if priceChanged {
			event := domain.NewProductPriceChangedEvent(existing.ID, proposed)
			if err := u.notifier.NotifyPriceChanged(ctx, event, tx); err != nil {
				slog.ErrorContext(ctx, "[productUsecase] Update", "notifyPriceChanged", err)
				return fmt.Errorf("%w: %v", domain.ErrPublish, err)
			}
			notified = true
		}

		updated := existing
		updated.Name = proposed.Name
		updated.Description = proposed.Description
		updated.Price = proposed.Price

		if err := u.productRepo.Update(ctx, updated, tx); err != nil {
			slog.ErrorContext(ctx, "[productUsecase] Update", "updateProduct", err)
			return err
		}
		return nil
	})
	if err != nil {
		if _, ok := u.notifier.(detachedNotifier); ok && notified {
			// The event is already on the broker and is not retracted.
			slog.ErrorContext(ctx, "[productUsecase] Update", "inconsistentWriteWindow", err,
				"productID", existing.ID,
				"publishedPrice", proposed.Price.String(),
				"storedPrice", existing.Price.String())
		}
		return err
	}

	slog.InfoContext(ctx, "[productUsecase] Update", "productID", existing.ID, "priceChanged", priceChanged)
	return nil
}

// Delete removes the product. Baskets are not told; their items keep the last
// known name and price.
func (u *productUsecase) Delete(ctx context.Context, id int64) error {
	if err := u.productRepo.Delete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "[productUsecase] Delete", "deleteProduct", err)
		return err
	}
	return nil
}

func checkPrice(req domain.ProductRequest) error {
	if req.Price == nil {
		return fmt.Errorf("%w: price is required", domain.ErrInvalidRequest)
	}
	if req.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", domain.ErrInvalidRequest)
	}
	return nil
}
