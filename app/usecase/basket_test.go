package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"storefront/app/domain"
	"storefront/app/repository/cache"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRepo wraps a real repository, counts cart writes and can fail the
// write for selected users.
type countingRepo struct {
	domain.BasketRepository
	sets   atomic.Int64
	mu     sync.Mutex
	failOn map[string]error
}

func (r *countingRepo) Set(ctx context.Context, cart domain.ShoppingCart) error {
	r.mu.Lock()
	err := r.failOn[cart.UserName]
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.sets.Add(1)
	return r.BasketRepository.Set(ctx, cart)
}

func (r *countingRepo) heal() {
	r.mu.Lock()
	r.failOn = nil
	r.mu.Unlock()
}

func newBasketFixture(t *testing.T) (*miniredis.Miniredis, *countingRepo, domain.BasketUsecase) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &countingRepo{BasketRepository: cache.NewBasketRepository(client, 0)}
	return mr, repo, NewBasketUsecase(repo, 4)
}

func item(productID int64, price string) domain.ShoppingCartItem {
	return domain.ShoppingCartItem{
		ProductID:   productID,
		ProductName: "product",
		Quantity:    2,
		Color:       "red",
		Price:       decimal.RequireFromString(price),
	}
}

func seed(t *testing.T, uc domain.BasketUsecase, carts ...domain.ShoppingCart) {
	t.Helper()
	for _, c := range carts {
		_, err := uc.UpdateBasket(context.Background(), c)
		require.NoError(t, err)
	}
}

func priceOf(t *testing.T, uc domain.BasketUsecase, userName string, productID int64) decimal.Decimal {
	t.Helper()
	cart, err := uc.GetBasket(context.Background(), userName)
	require.NoError(t, err)
	for _, it := range cart.Items {
		if it.ProductID == productID {
			return it.Price
		}
	}
	t.Fatalf("product %d not in %s's cart", productID, userName)
	return decimal.Zero
}

func TestUpdateItemPricesOnlyTouchesMatchingItems(t *testing.T) {
	_, repo, uc := newBasketFixture(t)
	seed(t, uc, domain.ShoppingCart{
		UserName: "alice",
		Items:    []domain.ShoppingCartItem{item(1, "5.00"), item(2, "10.00"), item(3, "15.00")},
	})
	repo.sets.Store(0)

	n, err := uc.UpdateItemPrices(context.Background(), 2, decimal.RequireFromString("9.99"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(1), repo.sets.Load())

	assert.True(t, priceOf(t, uc, "alice", 2).Equal(decimal.RequireFromString("9.99")))
	assert.True(t, priceOf(t, uc, "alice", 1).Equal(decimal.RequireFromString("5.00")))
	assert.True(t, priceOf(t, uc, "alice", 3).Equal(decimal.RequireFromString("15.00")))
}

func TestUpdateItemPricesFansOutAcrossUsers(t *testing.T) {
	_, _, uc := newBasketFixture(t)
	seed(t, uc,
		domain.ShoppingCart{UserName: "alice", Items: []domain.ShoppingCartItem{item(7, "3.00")}},
		domain.ShoppingCart{UserName: "bob", Items: []domain.ShoppingCartItem{item(5, "1.00"), item(7, "3.00")}},
		domain.ShoppingCart{UserName: "carol", Items: []domain.ShoppingCartItem{item(5, "1.00")}},
	)

	n, err := uc.UpdateItemPrices(context.Background(), 7, decimal.RequireFromString("4.25"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.True(t, priceOf(t, uc, "alice", 7).Equal(decimal.RequireFromString("4.25")))
	assert.True(t, priceOf(t, uc, "bob", 7).Equal(decimal.RequireFromString("4.25")))
	assert.True(t, priceOf(t, uc, "carol", 5).Equal(decimal.RequireFromString("1.00")))
}

func TestUpdateItemPricesIsIdempotent(t *testing.T) {
	_, _, uc := newBasketFixture(t)
	seed(t, uc, domain.ShoppingCart{UserName: "alice", Items: []domain.ShoppingCartItem{item(1, "5.00"), item(2, "10.00")}})
	ctx := context.Background()
	price := decimal.RequireFromString("7.50")

	_, err := uc.UpdateItemPrices(ctx, 2, price)
	require.NoError(t, err)
	once, err := uc.GetBasket(ctx, "alice")
	require.NoError(t, err)

	_, err = uc.UpdateItemPrices(ctx, 2, price)
	require.NoError(t, err)
	twice, err := uc.GetBasket(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestUpdateItemPricesAppliesInReceiptOrder(t *testing.T) {
	_, _, uc := newBasketFixture(t)
	seed(t, uc, domain.ShoppingCart{UserName: "alice", Items: []domain.ShoppingCartItem{item(2, "10.00")}})
	ctx := context.Background()

	// published as 11 then 12, delivered as 12 then 11
	_, err := uc.UpdateItemPrices(ctx, 2, decimal.NewFromInt(12))
	require.NoError(t, err)
	_, err = uc.UpdateItemPrices(ctx, 2, decimal.NewFromInt(11))
	require.NoError(t, err)

	assert.True(t, priceOf(t, uc, "alice", 2).Equal(decimal.NewFromInt(11)))
}

func TestUpdateItemPricesUnknownProductWritesNothing(t *testing.T) {
	_, repo, uc := newBasketFixture(t)
	seed(t, uc, domain.ShoppingCart{UserName: "alice", Items: []domain.ShoppingCartItem{item(1, "5.00")}})
	repo.sets.Store(0)

	n, err := uc.UpdateItemPrices(context.Background(), 404, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, repo.sets.Load())
}

func TestUpdateItemPricesWriteFailureFailsTheCall(t *testing.T) {
	_, repo, uc := newBasketFixture(t)
	seed(t, uc,
		domain.ShoppingCart{UserName: "alice", Items: []domain.ShoppingCartItem{item(7, "3.00")}},
		domain.ShoppingCart{UserName: "bob", Items: []domain.ShoppingCartItem{item(7, "3.00")}},
	)
	storeErr := errors.New("redis: connection refused")
	repo.failOn = map[string]error{"bob": storeErr}

	_, err := uc.UpdateItemPrices(context.Background(), 7, decimal.NewFromInt(4))
	assert.ErrorIs(t, err, storeErr)

	// a retry after the store recovers converges every cart
	repo.heal()
	_, err = uc.UpdateItemPrices(context.Background(), 7, decimal.NewFromInt(4))
	require.NoError(t, err)
	assert.True(t, priceOf(t, uc, "alice", 7).Equal(decimal.NewFromInt(4)))
	assert.True(t, priceOf(t, uc, "bob", 7).Equal(decimal.NewFromInt(4)))
}

func TestUpdateItemPricesIndexReadFailure(t *testing.T) {
	mr, _, uc := newBasketFixture(t)
	mr.SetError("ERR simulated outage")

	_, err := uc.UpdateItemPrices(context.Background(), 7, decimal.NewFromInt(4))
	assert.ErrorIs(t, err, domain.ErrBasketStore)
}

func TestUpdateItemPricesPrunesDeletedCarts(t *testing.T) {
	mr, repo, uc := newBasketFixture(t)
	seed(t, uc, domain.ShoppingCart{UserName: "alice", Items: []domain.ShoppingCartItem{item(7, "3.00")}})
	// the cart key vanishes without going through the repository
	mr.Del("basket:cart:alice")
	repo.sets.Store(0)

	n, err := uc.UpdateItemPrices(context.Background(), 7, decimal.NewFromInt(4))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, repo.sets.Load())
	userNames, err := repo.UserNamesByProductID(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, userNames)
}

func TestBasketCRUD(t *testing.T) {
	_, _, uc := newBasketFixture(t)
	ctx := context.Background()

	_, err := uc.GetBasket(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	seed(t, uc, domain.ShoppingCart{UserName: "alice", Items: []domain.ShoppingCartItem{item(1, "2.50")}})
	cart, err := uc.GetBasket(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, cart.TotalPrice().Equal(decimal.RequireFromString("5.00")))

	require.NoError(t, uc.DeleteBasket(ctx, "alice"))
	_, err = uc.GetBasket(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateItemPricesSkipsCorruptCarts(t *testing.T) {
	mr, repo, _ := newBasketFixture(t)
	uc := NewBasketUsecase(repo, 1)
	seed(t, uc, domain.ShoppingCart{UserName: "bob", Items: []domain.ShoppingCartItem{item(7, "10.00")}})
	require.NoError(t, mr.Set("basket:cart:aaron", "{not json"))
	_, err := mr.SAdd("basket:index:product:7", "aaron")
	require.NoError(t, err)

	for range 3 {
		n, err := uc.UpdateItemPrices(context.Background(), 7, decimal.RequireFromString("4.50"))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}

	assert.True(t, priceOf(t, uc, "bob", 7).Equal(decimal.RequireFromString("4.50")))
	got, err := mr.Get("basket:cart:aaron")
	require.NoError(t, err)
	assert.Equal(t, "{not json", got)
}
