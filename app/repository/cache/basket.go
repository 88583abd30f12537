package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"storefront/app/domain"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type basketRepository struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewBasketRepository stores carts as JSON under basket:cart:<user_name>. Every
// write also maintains basket:index:product:<product_id>, the set of user names whose
// cart holds that product. A ttl of zero keeps carts until deleted.
func NewBasketRepository(client *redis.Client, ttl time.Duration) domain.BasketRepository {
	if ttl < 0 {
		ttl = 0
	}
	return &basketRepository{redis: client, ttl: ttl}
}

func (r *basketRepository) Get(ctx context.Context, userName string) (domain.ShoppingCart, error) {
	data, err := r.redis.Get(ctx, basketKey(userName)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ShoppingCart{}, domain.ErrNotFound
		}
		slog.ErrorContext(ctx, "[basketRepository] Get", "redisGet", err)
		return domain.ShoppingCart{}, fmt.Errorf("%w: %v", domain.ErrBasketStore, err)
	}

	var cart domain.ShoppingCart
	if err := json.Unmarshal(data, &cart); err != nil {
		slog.ErrorContext(ctx, "[basketRepository] Get", "json.Unmarshal", err, "userName", userName)
		return domain.ShoppingCart{}, fmt.Errorf("%w: %v", domain.ErrCorruptBasket, err)
	}
	return cart, nil
}

func (r *basketRepository) Set(ctx context.Context, cart domain.ShoppingCart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		slog.ErrorContext(ctx, "[basketRepository] Set", "json.Marshal", err)
		return err
	}

	previous, err := r.previous(ctx, cart.UserName)
	if err != nil {
		return err
	}

	current := cart.ProductIDs()
	_, err = r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, basketKey(cart.UserName), data, r.ttl)
		for _, productID := range current {
			pipe.SAdd(ctx, productIndexKey(productID), cart.UserName)
		}
		for _, productID := range missing(previous.ProductIDs(), current) {
			pipe.SRem(ctx, productIndexKey(productID), cart.UserName)
		}
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "[basketRepository] Set", "txPipelined", err)
		return fmt.Errorf("%w: %v", domain.ErrBasketStore, err)
	}
	return nil
}

func (r *basketRepository) Delete(ctx context.Context, userName string) error {
	previous, err := r.previous(ctx, userName)
	if err != nil {
		return err
	}

	_, err = r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, basketKey(userName))
		for _, productID := range previous.ProductIDs() {
			pipe.SRem(ctx, productIndexKey(productID), userName)
		}
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "[basketRepository] Delete", "txPipelined", err)
		return fmt.Errorf("%w: %v", domain.ErrBasketStore, err)
	}
	return nil
}

func (r *basketRepository) UserNamesByProductID(ctx context.Context, productID int64) ([]string, error) {
	userNames, err := r.redis.SMembers(ctx, productIndexKey(productID)).Result()
	if err != nil {
		slog.ErrorContext(ctx, "[basketRepository] UserNamesByProductID", "sMembers", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrBasketStore, err)
	}
	sort.Strings(userNames)
	return userNames, nil
}

// pruneScript drops a user from a product index only while their cart key is
// absent, so a cart recreated concurrently keeps its index entry.
var pruneScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return redis.call("SREM", KEYS[2], ARGV[1])
end
return 0
`)

func (r *basketRepository) PruneProductIndex(ctx context.Context, productID int64, userNames ...string) (int, error) {
	pruned := 0
	for _, userName := range userNames {
		n, err := pruneScript.Run(ctx, r.redis, []string{basketKey(userName), productIndexKey(productID)}, userName).Int()
		if err != nil {
			slog.ErrorContext(ctx, "[basketRepository] PruneProductIndex", "script", err)
			return pruned, fmt.Errorf("%w: %v", domain.ErrBasketStore, err)
		}
		pruned += n
	}
	return pruned, nil
}

// previous returns the stored cart a write replaces. An absent or undecodable
// cart counts as empty so it can always be overwritten; index entries it
// leaves behind are pruned once the cart is gone.
func (r *basketRepository) previous(ctx context.Context, userName string) (domain.ShoppingCart, error) {
	cart, err := r.Get(ctx, userName)
	switch {
	case err == nil:
		return cart, nil
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrCorruptBasket):
		return domain.ShoppingCart{}, nil
	default:
		return domain.ShoppingCart{}, err
	}
}

// missing returns the ids in previous that are not in current.
func missing(previous, current []int64) []int64 {
	keep := make(map[int64]struct{}, len(current))
	for _, id := range current {
		keep[id] = struct{}{}
	}
	var out []int64
	for _, id := range previous {
		if _, ok := keep[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func basketKey(userName string) string {
	return "basket:cart:" + userName
}

func productIndexKey(productID int64) string {
	return "basket:index:product:" + strconv.FormatInt(productID, 10)
}
