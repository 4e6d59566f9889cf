package cart

import (
	"context"
	"database/sql"
	"errors"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

// MutateFunc changes a locked cart in place. Returning an error aborts the
// mutation and nothing is persisted.
type MutateFunc func(ctx context.Context, c *Cart) error

type Repository interface {
	// GetByUser returns the user's cart with lines resolved against the
	// catalog, or nil when the user has never had a cart.
	GetByUser(ctx context.Context, userID uint) (*Cart, error)

	// Mutate runs fn against the user's cart while holding a row lock on it,
	// then recalculates totals and persists the result in the same
	// transaction. When create is false and no cart exists, fn runs against
	// an empty cart that is not persisted.
	Mutate(ctx context.Context, userID uint, create bool, fn MutateFunc) (*Cart, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const linesQuery = `
	SELECT
		ci.product_id,
		ci.quantity,
		ci.unit_price,
		ci.added_at,
		COALESCE(p.name, ''),
		COALESCE(p.image_url, ''),
		COALESCE(p.stock_quantity, 0),
		p.id IS NOT NULL
	FROM cart_items ci
	LEFT JOIN products p ON p.id = ci.product_id
	WHERE ci.cart_id = $1
	ORDER BY ci.added_at, ci.id
`

func loadLines(ctx context.Context, q queryer, cartID int64) ([]Line, error) {
	rows, err := q.QueryContext(ctx, linesQuery, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []Line{}
	for rows.Next() {
		var l Line
		if err := rows.Scan(
			&l.ProductID,
			&l.Quantity,
			&l.UnitPrice,
			&l.AddedAt,
			&l.Name,
			&l.Image,
			&l.StockQuantity,
			&l.Available,
		); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) GetByUser(ctx context.Context, userID uint) (*Cart, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetByUser"),
	)

	c := &Cart{UserID: userID}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, version, updated_at
		FROM carts
		WHERE user_id = $1
	`, userID).Scan(&c.ID, &c.Version, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get cart", zap.Error(err))
		return nil, err
	}

	c.Items, err = loadLines(ctx, r.db, c.ID)
	if err != nil {
		log.Error("failed to load cart lines", zap.Error(err))
		return nil, err
	}

	c.Recalculate()
	return c, nil
}

func (r *repository) Mutate(ctx context.Context, userID uint, create bool, fn MutateFunc) (*Cart, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Mutate"),
		zap.Bool("create", create),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return nil, err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	if create {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO carts (user_id)
			VALUES ($1)
			ON CONFLICT (user_id) DO NOTHING
		`, userID); err != nil {
			log.Error("failed to ensure cart row", zap.Error(err))
			return nil, err
		}
	}

	// Row lock serializes every mutation of this user's cart.
	c := &Cart{UserID: userID}
	err = tx.QueryRowContext(ctx, `
		SELECT id, version
		FROM carts
		WHERE user_id = $1
		FOR UPDATE
	`, userID).Scan(&c.ID, &c.Version)

	if errors.Is(err, sql.ErrNoRows) {
		transient := emptyCart(userID)
		if err := fn(ctx, transient); err != nil {
			return nil, err
		}
		transient.Recalculate()
		return transient, nil
	}
	if err != nil {
		log.Error("failed to lock cart", zap.Error(err))
		return nil, err
	}

	c.Items, err = loadLines(ctx, tx, c.ID)
	if err != nil {
		log.Error("failed to load cart lines", zap.Error(err))
		return nil, err
	}

	if err := fn(ctx, c); err != nil {
		log.Debug("cart mutation rejected", zap.Error(err))
		return nil, err
	}

	c.Recalculate()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, c.ID); err != nil {
		log.Error("failed to reset cart lines", zap.Error(err))
		return nil, err
	}

	for i, l := range c.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cart_items (cart_id, product_id, quantity, unit_price, added_at)
			VALUES ($1, $2, $3, $4, $5)
		`, c.ID, l.ProductID, l.Quantity, l.UnitPrice, l.AddedAt); err != nil {
			log.Error("failed to insert cart line",
				zap.Int("line_index", i),
				zap.String("product_id", l.ProductID),
				zap.Error(err),
			)
			return nil, err
		}
	}

	if err := tx.QueryRowContext(ctx, `
		UPDATE carts
		SET total_amount = $1,
		    total_items = $2,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $3
		RETURNING version, updated_at
	`, c.TotalAmount, c.TotalItems, c.ID).Scan(&c.Version, &c.UpdatedAt); err != nil {
		log.Error("failed to update cart totals", zap.Error(err))
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit cart mutation", zap.Error(err))
		return nil, err
	}
	committed = true

	log.Debug("cart mutation committed",
		zap.Int64("cart_id", c.ID),
		zap.Int64("version", c.Version),
		zap.Int("total_items", c.TotalItems),
	)

	return c, nil
}
