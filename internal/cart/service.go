package cart

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"storefront-be/internal/apperror"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/product"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ProductFinder resolves catalog entries for cart validation.
type ProductFinder interface {
	GetByID(ctx context.Context, id string) (*product.Product, error)
}

// Service defines the business logic for carts.
type Service interface {
	GetCart(ctx context.Context, userID uint) (*Cart, error)
	GetCartCount(ctx context.Context, userID uint) (int, error)
	AddItem(ctx context.Context, userID uint, productID string, quantity int) (*Cart, error)
	UpdateItem(ctx context.Context, userID uint, productID string, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, userID uint, productID string) (*Cart, error)
	Cleanup(ctx context.Context, userID uint) (*Cart, error)
	Clear(ctx context.Context, userID uint) (*Cart, error)

	// Invalidate drops the cached copy after an out-of-band change.
	Invalidate(ctx context.Context, userID uint)
	// CatalogChanged drops every cached cart after product or stock changes.
	CatalogChanged(ctx context.Context) error
}

const fillTimeout = 5 * time.Second

type service struct {
	repo     Repository
	products ProductFinder
	cache    Cache
	group    singleflight.Group
	now      func() time.Time
}

func NewService(repo Repository, products ProductFinder, cache Cache) Service {
	if cache == nil {
		cache = NoopCache{}
	}
	return &service{
		repo:     repo,
		products: products,
		cache:    cache,
		now:      time.Now,
	}
}

func (s *service) GetCart(ctx context.Context, userID uint) (*Cart, error) {
	if userID == 0 {
		return nil, ErrUserNotAuthenticated
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "GetCart"),
	)

	if cached, err := s.cache.Get(ctx, userID); err == nil {
		metrics.CacheLookups.WithLabelValues("cart", "hit").Inc()
		return cached, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		log.Warn("cart cache read failed", zap.Error(err))
	}
	metrics.CacheLookups.WithLabelValues("cart", "miss").Inc()

	// Concurrent misses for the same user share one database read. The read
	// is detached from the first caller so its cancellation does not fail
	// the others.
	v, err, _ := s.group.Do(flightKey(userID), func() (any, error) {
		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fillTimeout)
		defer cancel()

		ticket, ticketErr := s.cache.Ticket(fillCtx, userID)
		c, err := s.repo.GetByUser(fillCtx, userID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			c = emptyCart(userID)
		}

		if ticketErr != nil {
			log.Warn("cart cache ticket failed", zap.Error(ticketErr))
		} else if err := s.cache.Set(fillCtx, userID, c, ticket); errors.Is(err, ErrStaleFill) {
			log.Debug("cart changed during cache fill, not cached")
		} else if err != nil {
			log.Warn("cart cache write failed", zap.Error(err))
		}
		return c, nil
	})
	if err != nil {
		return nil, apperror.Wrap(err, "cart.GetCart")
	}
	return v.(*Cart), nil
}

func (s *service) GetCartCount(ctx context.Context, userID uint) (int, error) {
	c, err := s.GetCart(ctx, userID)
	if err != nil {
		return 0, err
	}
	return c.TotalItems, nil
}

func (s *service) lookupProduct(ctx context.Context, productID string) (*product.Product, error) {
	p, err := s.products.GetByID(ctx, productID)
	if errors.Is(err, product.ErrProductNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// AddItem adds quantity of a product to the user's cart, merging into an
// existing line and refreshing its price.
func (s *service) AddItem(ctx context.Context, userID uint, productID string, quantity int) (*Cart, error) {
	if userID == 0 {
		return nil, ErrUserNotAuthenticated
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, ErrInvalidProductID
	}
	if quantity < 1 || quantity > MaxQuantityPerLine {
		return nil, ErrInvalidQuantity
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AddItem"),
		zap.String("product_id", productID),
		zap.Int("quantity", quantity),
	)

	// 1. Product must exist and cover the requested quantity
	p, err := s.lookupProduct(ctx, productID)
	if err != nil {
		return nil, apperror.Wrap(err, "cart.AddItem")
	}
	if !p.InStock || p.StockQuantity <= 0 {
		return nil, ErrOutOfStock
	}
	if quantity > p.StockQuantity {
		return nil, insufficientStock(p.StockQuantity)
	}

	// 2. Merge or append under the cart lock
	c, err := s.repo.Mutate(ctx, userID, true, func(ctx context.Context, c *Cart) error {
		if i, ok := c.Find(p.ID); ok {
			line := &c.Items[i]
			if line.Quantity+quantity > MaxQuantityPerLine {
				return ErrMaxQuantityExceeded
			}
			line.Quantity += quantity
			line.UnitPrice = p.Price
			line.Name = p.Name
			line.Image = p.ImageURL
			line.StockQuantity = p.StockQuantity
			line.Available = true
			return nil
		}

		c.Items = append(c.Items, Line{
			ProductID:     p.ID,
			Name:          p.Name,
			Image:         p.ImageURL,
			StockQuantity: p.StockQuantity,
			Available:     true,
			Quantity:      quantity,
			UnitPrice:     p.Price,
			AddedAt:       s.now().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err, "cart.AddItem")
	}

	s.Invalidate(ctx, userID)
	log.Info("item added to cart", zap.Int("total_items", c.TotalItems))
	return c, nil
}

// UpdateItem sets the quantity of an existing line. Zero removes it.
func (s *service) UpdateItem(ctx context.Context, userID uint, productID string, quantity int) (*Cart, error) {
	if userID == 0 {
		return nil, ErrUserNotAuthenticated
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, ErrInvalidProductID
	}
	if quantity < 0 || quantity > MaxQuantityPerLine {
		return nil, ErrInvalidUpdateQuantity
	}

	var p *product.Product
	if quantity > 0 {
		var err error
		p, err = s.lookupProduct(ctx, productID)
		if err != nil {
			return nil, apperror.Wrap(err, "cart.UpdateItem")
		}
		if quantity > p.StockQuantity {
			return nil, insufficientStock(p.StockQuantity)
		}
	}

	c, err := s.repo.Mutate(ctx, userID, false, func(ctx context.Context, c *Cart) error {
		i, ok := c.Find(productID)
		if !ok {
			return ErrCartItemNotFound
		}
		if quantity == 0 {
			c.Remove(i)
			return nil
		}
		c.Items[i].Quantity = quantity
		c.Items[i].StockQuantity = p.StockQuantity
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err, "cart.UpdateItem")
	}

	s.Invalidate(ctx, userID)
	return c, nil
}

func (s *service) RemoveItem(ctx context.Context, userID uint, productID string) (*Cart, error) {
	if userID == 0 {
		return nil, ErrUserNotAuthenticated
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, ErrInvalidProductID
	}

	c, err := s.repo.Mutate(ctx, userID, false, func(ctx context.Context, c *Cart) error {
		i, ok := c.Find(productID)
		if !ok {
			return ErrCartItemNotFound
		}
		c.Remove(i)
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err, "cart.RemoveItem")
	}

	s.Invalidate(ctx, userID)
	return c, nil
}

// Cleanup merges duplicate lines. Running it twice equals running it once.
func (s *service) Cleanup(ctx context.Context, userID uint) (*Cart, error) {
	if userID == 0 {
		return nil, ErrUserNotAuthenticated
	}

	c, err := s.repo.Mutate(ctx, userID, false, func(ctx context.Context, c *Cart) error {
		before := len(c.Items)
		c.Items = MergeDuplicates(c.Items)
		if merged := before - len(c.Items); merged > 0 {
			logger.FromCtx(ctx).Info("merged duplicate cart lines", zap.Int("merged", merged))
		}
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err, "cart.Cleanup")
	}

	s.Invalidate(ctx, userID)
	return c, nil
}

// Clear empties the cart. A user without a cart is not an error.
func (s *service) Clear(ctx context.Context, userID uint) (*Cart, error) {
	if userID == 0 {
		return nil, ErrUserNotAuthenticated
	}

	c, err := s.repo.Mutate(ctx, userID, false, func(ctx context.Context, c *Cart) error {
		c.Items = []Line{}
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err, "cart.Clear")
	}

	s.Invalidate(ctx, userID)
	return c, nil
}

func (s *service) Invalidate(ctx context.Context, userID uint) {
	// A read already in flight started before this change.
	s.group.Forget(flightKey(userID))
	if err := s.cache.Delete(ctx, userID); err != nil {
		logger.FromCtx(ctx).Warn("cart cache invalidation failed", zap.Error(err))
	}
}

func (s *service) CatalogChanged(ctx context.Context) error {
	if err := s.cache.CatalogChanged(ctx); err != nil {
		logger.FromCtx(ctx).Warn("cart cache catalog invalidation failed", zap.Error(err))
		return err
	}
	return nil
}

func flightKey(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}
