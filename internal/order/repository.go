package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront-be/internal/logger"
	"storefront-be/internal/utils"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	// CreateFromCart converts the user's cart into an order in a single
	// transaction: lock cart, lock products, snapshot, insert, decrement
	// stock, empty cart.
	CreateFromCart(ctx context.Context, userID uint, input CreateOrderInput) (*Order, error)

	List(ctx context.Context, userID uint, opts ListOptions) ([]Order, int, error)
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByReference(ctx context.Context, reference string) (*Order, error)
	Stats(ctx context.Context, userID uint) (*Stats, error)

	// UpdateStatus moves the order from one status to another only if it is
	// still in from.
	UpdateStatus(ctx context.Context, id string, from, to Status) error

	AttachPaymentReference(ctx context.Context, id string, userID uint, reference string) error

	// MarkPaymentByReference applies a verification outcome and reports
	// whether any row changed.
	MarkPaymentByReference(ctx context.Context, reference string, outcome PaymentOutcome) (string, bool, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `
	id, order_number, user_id, total_amount, currency, status, payment_status,
	shipping_full_name, shipping_phone, shipping_address, shipping_city, shipping_region,
	payment_reference, notes, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(s rowScanner) (*Order, error) {
	var (
		o     Order
		ref   sql.NullString
		notes sql.NullString
	)
	if err := s.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.TotalAmount,
		&o.Currency,
		&o.Status,
		&o.PaymentStatus,
		&o.ShippingAddress.FullName,
		&o.ShippingAddress.Phone,
		&o.ShippingAddress.Address,
		&o.ShippingAddress.City,
		&o.ShippingAddress.Region,
		&ref,
		&notes,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if ref.Valid {
		o.PaymentReference = &ref.String
	}
	if notes.Valid {
		o.Notes = &notes.String
	}
	o.Items = []Item{}
	return &o, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (r *repository) CreateFromCart(ctx context.Context, userID uint, input CreateOrderInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateFromCart"),
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

	// 1. Lock the cart so no add/update can interleave with checkout
	var cartID int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM carts WHERE user_id = $1 FOR UPDATE
	`, userID).Scan(&cartID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartEmpty
	}
	if err != nil {
		log.Error("failed to lock cart", zap.Error(err))
		return nil, err
	}

	lines, err := loadCartLines(ctx, tx, cartID)
	if err != nil {
		log.Error("failed to load cart lines", zap.Error(err))
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrCartEmpty
	}

	// 2. Lock the products in id order so concurrent checkouts cannot deadlock
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := lockProducts(ctx, tx, ids)
	if err != nil {
		log.Error("failed to lock products", zap.Error(err))
		return nil, err
	}

	// 3. Validate and snapshot
	items, total, err := buildItems(lines, products)
	if err != nil {
		return nil, err
	}

	settled := false
	if input.PaymentReference != nil && *input.PaymentReference != "" {
		settled, err = paymentSettled(ctx, tx, *input.PaymentReference, userID, total)
		if err != nil {
			log.Error("failed to look up payment", zap.Error(err))
			return nil, err
		}
		if !settled {
			log.Info("payment reference not settled, order starts pending",
				zap.String("reference", *input.PaymentReference),
			)
		}
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT nextval('order_number_seq')`).Scan(&seq); err != nil {
		log.Error("failed to allocate order number", zap.Error(err))
		return nil, err
	}

	status, paymentStatus := initialStatus(settled)
	o := &Order{
		OrderNumber:      formatOrderNumber(seq),
		UserID:           userID,
		Items:            items,
		TotalAmount:      total,
		Currency:         DefaultCurrency,
		Status:           status,
		PaymentStatus:    paymentStatus,
		ShippingAddress:  input.ShippingAddress,
		PaymentReference: input.PaymentReference,
		Notes:            input.Notes,
	}

	// 4. Insert order and its lines
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			order_number, user_id, total_amount, currency, status, payment_status,
			shipping_full_name, shipping_phone, shipping_address, shipping_city, shipping_region,
			payment_reference, notes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id, created_at, updated_at
	`,
		o.OrderNumber,
		o.UserID,
		o.TotalAmount,
		o.Currency,
		o.Status,
		o.PaymentStatus,
		o.ShippingAddress.FullName,
		o.ShippingAddress.Phone,
		o.ShippingAddress.Address,
		o.ShippingAddress.City,
		o.ShippingAddress.Region,
		o.PaymentReference,
		o.Notes,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateReference
		}
		log.Error("failed to insert order", zap.Error(err))
		return nil, err
	}

	for _, it := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, name, image_url, unit_price, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, o.ID, it.ProductID, it.Name, it.Image, it.UnitPrice, it.Quantity); err != nil {
			log.Error("failed to insert order item",
				zap.String("product_id", it.ProductID),
				zap.Error(err),
			)
			return nil, err
		}
	}

	// 5. Decrement stock; the floor check rejects anything that slipped past validation
	for _, it := range items {
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock_quantity = stock_quantity - $1,
			    updated_at = NOW()
			WHERE id = $2 AND stock_quantity >= $1
		`, it.Quantity, it.ProductID)
		if err != nil {
			log.Error("failed to decrement stock",
				zap.String("product_id", it.ProductID),
				zap.Error(err),
			)
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, productOutOfStock(it.Name)
		}
	}

	// 6. Empty the cart
	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		log.Error("failed to clear cart lines", zap.Error(err))
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE carts
		SET total_amount = 0,
		    total_items = 0,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1
	`, cartID); err != nil {
		log.Error("failed to reset cart totals", zap.Error(err))
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit checkout", zap.Error(err))
		return nil, err
	}
	committed = true

	log.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.Int("items", len(items)),
	)

	return o, nil
}

// paymentSettled looks up the payment a client-supplied reference names. It
// must belong to the buyer (or a guest), not already be tied to an order, and
// cover the total.
func paymentSettled(ctx context.Context, tx *sql.Tx, reference string, userID uint, total decimal.Decimal) (bool, error) {
	var (
		status string
		amount decimal.Decimal
	)
	err := tx.QueryRowContext(ctx, `
		SELECT status, amount
		FROM payments
		WHERE reference = $1
		  AND (user_id IS NULL OR user_id = $2)
		  AND order_id IS NULL
		FOR SHARE
	`, reference, userID).Scan(&status, &amount)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return paymentCovers(status, amount, total), nil
}

func loadCartLines(ctx context.Context, tx *sql.Tx, cartID int64) ([]cartLine, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT product_id, quantity
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY added_at, id
	`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []cartLine
	for rows.Next() {
		var l cartLine
		if err := rows.Scan(&l.ProductID, &l.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func lockProducts(ctx context.Context, tx *sql.Tx, ids []string) (map[string]stockRow, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, image_url, price, stock_quantity, in_stock
		FROM products
		WHERE id = ANY($1::uuid[])
		ORDER BY id
		FOR UPDATE
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make(map[string]stockRow, len(ids))
	for rows.Next() {
		var p stockRow
		if err := rows.Scan(&p.ID, &p.Name, &p.Image, &p.Price, &p.StockQuantity, &p.InStock); err != nil {
			return nil, err
		}
		products[p.ID] = p
	}
	return products, rows.Err()
}

func (r *repository) loadItems(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, 0, len(orders))
	byID := make(map[string]*Order, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
		byID[o.ID] = o
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, name, image_url, unit_price, quantity
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY id
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			it      Item
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Image, &it.UnitPrice, &it.Quantity); err != nil {
			return err
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

func (r *repository) List(ctx context.Context, userID uint, opts ListOptions) ([]Order, int, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "List"),
	)

	where := []string{"user_id = $1"}
	args := []any{userID}
	argIndex := 2

	if opts.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *opts.Status)
		argIndex++
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM orders WHERE "+whereSQL, args...,
	).Scan(&total); err != nil {
		log.Error("failed to count orders", zap.Error(err))
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, orderColumns, whereSQL, argIndex, argIndex+1)
	args = append(args, opts.Limit, utils.Offset(opts.Page, opts.Limit))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list orders", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	var ptrs []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			log.Error("failed to scan order", zap.Error(err))
			return nil, 0, err
		}
		ptrs = append(ptrs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.loadItems(ctx, ptrs); err != nil {
		log.Error("failed to load order items", zap.Error(err))
		return nil, 0, err
	}

	orders := make([]Order, 0, len(ptrs))
	for _, o := range ptrs {
		orders = append(orders, *o)
	}
	return orders, total, nil
}

func (r *repository) getOne(ctx context.Context, where string, arg any) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE "+where, arg,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Order, error) {
	o, err := r.getOne(ctx, "id = $1", id)
	if err != nil && !errors.Is(err, ErrOrderNotFound) {
		logger.FromCtx(ctx).Error("failed to get order",
			zap.String("layer", "repository"),
			zap.String("order_id", id),
			zap.Error(err),
		)
	}
	return o, err
}

func (r *repository) GetByReference(ctx context.Context, reference string) (*Order, error) {
	return r.getOne(ctx, "payment_reference = $1", reference)
}

func (r *repository) Stats(ctx context.Context, userID uint) (*Stats, error) {
	var s Stats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(total_amount), 0),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'delivered')
		FROM orders
		WHERE user_id = $1
	`, userID).Scan(&s.TotalOrders, &s.TotalSpent, &s.PendingOrders, &s.CompletedOrders)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to compute order stats",
			zap.String("layer", "repository"),
			zap.Error(err),
		)
		return nil, err
	}
	return &s, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id string, from, to Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStatusChanged
	}
	return nil
}

func (r *repository) AttachPaymentReference(ctx context.Context, id string, userID uint, reference string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_reference = $1, updated_at = NOW()
		WHERE id = $2
		  AND user_id = $3
		  AND payment_status <> 'paid'
	`, reference, id, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateReference
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAlreadyPaid
	}
	return nil
}

func (r *repository) MarkPaymentByReference(ctx context.Context, reference string, outcome PaymentOutcome) (string, bool, error) {
	var query string
	switch outcome {
	case OutcomePaid:
		query = `
			UPDATE orders
			SET payment_status = 'paid',
			    status = CASE WHEN status = 'pending' THEN 'processing' ELSE status END,
			    updated_at = NOW()
			WHERE payment_reference = $1 AND payment_status <> 'paid'
			RETURNING id
		`
	case OutcomeFailed:
		query = `
			UPDATE orders
			SET payment_status = 'failed', updated_at = NOW()
			WHERE payment_reference = $1 AND payment_status = 'pending'
			RETURNING id
		`
	default:
		return "", false, fmt.Errorf("unknown payment outcome %q", outcome)
	}

	var id string
	err := r.db.QueryRowContext(ctx, query, reference).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}
