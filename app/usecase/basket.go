package usecase

import (
	"context"
	"errors"
	"log/slog"
	"storefront/app/domain"
	"storefront/pkg/metrics"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type basketUsecase struct {
	basketRepo  domain.BasketRepository
	concurrency int
}

// NewBasketUsecase returns the basket usecase. concurrency bounds the number of
// carts rewritten in parallel for one price change.
func NewBasketUsecase(basketRepo domain.BasketRepository, concurrency int) domain.BasketUsecase {
	if concurrency < 1 {
		concurrency = 1
	}
	return &basketUsecase{basketRepo, concurrency}
}

func (u *basketUsecase) GetBasket(ctx context.Context, userName string) (domain.ShoppingCart, error) {
	cart, err := u.basketRepo.Get(ctx, userName)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.ErrorContext(ctx, "[basketUsecase] GetBasket", "get", err)
		}
		return domain.ShoppingCart{}, err
	}
	return cart, nil
}

func (u *basketUsecase) UpdateBasket(ctx context.Context, cart domain.ShoppingCart) (domain.ShoppingCart, error) {
	if err := u.basketRepo.Set(ctx, cart); err != nil {
		slog.ErrorContext(ctx, "[basketUsecase] UpdateBasket", "set", err)
		return domain.ShoppingCart{}, err
	}
	return cart, nil
}

func (u *basketUsecase) DeleteBasket(ctx context.Context, userName string) error {
	if err := u.basketRepo.Delete(ctx, userName); err != nil {
		slog.ErrorContext(ctx, "[basketUsecase] DeleteBasket", "delete", err)
		return err
	}
	return nil
}

// UpdateItemPrices overwrites the price of productID in every cart the product
// index points at. Any failed store read or write fails the whole call so the
// delivery is redelivered; carts already written converge again on the retry.
// Carts that no longer decode are skipped and logged.
// Each cart is a plain read-modify-write, so a concurrent basket edit and a
// price change on the same cart resolve as last write wins.
func (u *basketUsecase) UpdateItemPrices(ctx context.Context, productID int64, price decimal.Decimal) (int, error) {
	userNames, err := u.basketRepo.UserNamesByProductID(ctx, productID)
	if err != nil {
		slog.ErrorContext(ctx, "[basketUsecase] UpdateItemPrices", "userNamesByProductID", err)
		return 0, err
	}
	if len(userNames) == 0 {
		slog.InfoContext(ctx, "[basketUsecase] UpdateItemPrices", "noBaskets", productID)
		return 0, nil
	}

	var (
		written atomic.Int64
		skipped atomic.Int64
		mu      sync.Mutex
		gone    []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)
	for _, userName := range userNames {
		g.Go(func() error {
			cart, err := u.basketRepo.Get(gctx, userName)
			if errors.Is(err, domain.ErrNotFound) {
				mu.Lock()
				gone = append(gone, userName)
				mu.Unlock()
				return nil
			}
			if errors.Is(err, domain.ErrCorruptBasket) {
				// redelivery cannot repair it; the other carts still converge
				slog.WarnContext(gctx, "[basketUsecase] UpdateItemPrices", "skipCorruptBasket", err, "userName", userName)
				skipped.Add(1)
				return nil
			}
			if err != nil {
				return err
			}

			if !cart.ApplyPrice(productID, price) {
				return nil
			}

			if err := u.basketRepo.Set(gctx, cart); err != nil {
				return err
			}
			written.Add(1)
			metrics.CartsRepriced.Inc()
			return nil
		})
	}

	err = g.Wait()

	if len(gone) > 0 {
		if _, pruneErr := u.basketRepo.PruneProductIndex(ctx, productID, gone...); pruneErr != nil {
			slog.WarnContext(ctx, "[basketUsecase] UpdateItemPrices", "pruneProductIndex", pruneErr)
		}
	}

	if err != nil {
		slog.ErrorContext(ctx, "[basketUsecase] UpdateItemPrices", "applyPrice", err,
			"productID", productID, "written", written.Load(), "baskets", len(userNames))
		return int(written.Load()), err
	}

	slog.InfoContext(ctx, "[basketUsecase] UpdateItemPrices",
		"productID", productID, "price", price.String(), "written", written.Load(),
		"skipped", skipped.Load(), "baskets", len(userNames))
	return int(written.Load()), nil
}
