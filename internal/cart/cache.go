package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("cache miss")

	// ErrStaleFill means the cart or the catalog was invalidated after the
	// fill's ticket was taken. The value read is dropped.
	ErrStaleFill = errors.New("cache fill is stale")
)

const catalogGenKey = "cart:catalog:gen"

// Ticket records the invalidation counters seen before a database read.
type Ticket struct {
	Cart    int64
	Catalog int64
}

// Cache holds read-through copies of carts keyed by user.
type Cache interface {
	Get(ctx context.Context, userID uint) (*Cart, error)

	// Ticket must be taken before reading the cart from the database and
	// handed to Set with the value read.
	Ticket(ctx context.Context, userID uint) (Ticket, error)
	Set(ctx context.Context, userID uint, c *Cart, t Ticket) error
	Delete(ctx context.Context, userID uint) error

	// CatalogChanged drops every cached cart. Cached carts carry product
	// names, prices and stock, so any catalog write makes them stale.
	CatalogChanged(ctx context.Context) error
}

type entry struct {
	Catalog int64 `json:"catalog"`
	Cart    *Cart `json:"cart"`
}

type RedisCache struct {
	client    *redis.Client
	baseTTL   time.Duration
	maxJitter time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisCache{
		client:    client,
		baseTTL:   ttl,
		maxJitter: 5 * time.Minute,
	}
}

func (r *RedisCache) Get(ctx context.Context, userID uint) (*Cart, error) {
	vals, err := r.client.MGet(ctx, cacheKey(userID), catalogGenKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, ErrCacheMiss
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	if e.Cart == nil || e.Catalog != counter(vals[1]) {
		return nil, ErrCacheMiss
	}
	return e.Cart, nil
}

func (r *RedisCache) Ticket(ctx context.Context, userID uint) (Ticket, error) {
	return readTicket(ctx, r.client, userID)
}

// multiGetter is satisfied by both *redis.Client and *redis.Tx.
type multiGetter interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

func readTicket(ctx context.Context, c multiGetter, userID uint) (Ticket, error) {
	vals, err := c.MGet(ctx, genKey(userID), catalogGenKey).Result()
	if err != nil {
		return Ticket{}, fmt.Errorf("redis get failed: %w", err)
	}
	return Ticket{Cart: counter(vals[0]), Catalog: counter(vals[1])}, nil
}

// Set writes c only if neither counter in t has moved. The check and the
// write run in one WATCH transaction.
func (r *RedisCache) Set(ctx context.Context, userID uint, c *Cart, t Ticket) error {
	data, err := json.Marshal(entry{Catalog: t.Catalog, Cart: c})
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	// Jitter spreads expiry so carts cached together do not expire together.
	ttl := r.baseTTL
	if r.maxJitter > 0 {
		ttl += time.Duration(rand.Int63n(int64(r.maxJitter)))
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := readTicket(ctx, tx, userID)
		if err != nil {
			return err
		}
		if cur != t {
			return ErrStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, cacheKey(userID), data, ttl)
			return nil
		})
		return err
	}, genKey(userID), catalogGenKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleFill), errors.Is(err, redis.TxFailedErr):
		return ErrStaleFill
	default:
		return fmt.Errorf("redis set failed: %w", err)
	}
}

func (r *RedisCache) Delete(ctx context.Context, userID uint) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, genKey(userID))
		// The counter only has to outlive any entry filled before it moved.
		p.Expire(ctx, genKey(userID), 2*(r.baseTTL+r.maxJitter))
		p.Del(ctx, cacheKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisCache) CatalogChanged(ctx context.Context) error {
	if err := r.client.Incr(ctx, catalogGenKey).Err(); err != nil {
		return fmt.Errorf("redis incr failed: %w", err)
	}
	return nil
}

func cacheKey(userID uint) string {
	return fmt.Sprintf("cart:%d", userID)
}

func genKey(userID uint) string {
	return fmt.Sprintf("cart:%d:gen", userID)
}

// counter reads an MGET slot holding an INCR counter. Missing is zero.
func counter(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

// NoopCache is used when no Redis address is configured.
type NoopCache struct{}

func (NoopCache) Get(context.Context, uint) (*Cart, error)       { return nil, ErrCacheMiss }
func (NoopCache) Ticket(context.Context, uint) (Ticket, error)   { return Ticket{}, nil }
func (NoopCache) Set(context.Context, uint, *Cart, Ticket) error { return nil }
func (NoopCache) Delete(context.Context, uint) error             { return nil }
func (NoopCache) CatalogChanged(context.Context) error           { return nil }
