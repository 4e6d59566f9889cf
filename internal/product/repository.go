package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, opts ListOptions) ([]Product, int, error)
	Create(ctx context.Context, input ProductInput) (*Product, error)
	Update(ctx context.Context, id string, input UpdateProductInput) (*Product, error)
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const productColumns = `
	id, name, description, price, currency, category, image_url, specs,
	stock_quantity, in_stock, featured, rating_average, rating_count,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Currency,
		&p.Category,
		&p.ImageURL,
		pq.Array(&p.Specs),
		&p.StockQuantity,
		&p.InStock,
		&p.Featured,
		&p.Ratings.Average,
		&p.Ratings.Count,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.Specs == nil {
		p.Specs = []string{}
	}
	return &p, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetByID"),
		zap.String("product_id", id),
	)

	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		log.Error("failed to get product", zap.Error(err))
		return nil, err
	}
	return p, nil
}

var sortColumns = map[string]string{
	SortCreatedAt: "created_at",
	SortPrice:     "price",
	SortName:      "name",
	SortRating:    "rating_average",
}

func (r *repository) List(ctx context.Context, opts ListOptions) ([]Product, int, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "List"),
		zap.Int("page", opts.Page),
		zap.Int("limit", opts.Limit),
	)

	// ---------- FILTERING ----------
	where := " WHERE 1=1"
	args := []any{}
	argIndex := 1

	if opts.Category != nil {
		where += fmt.Sprintf(" AND category = $%d", argIndex)
		args = append(args, string(*opts.Category))
		argIndex++
	}
	if opts.MinPrice != nil {
		where += fmt.Sprintf(" AND price >= $%d", argIndex)
		args = append(args, *opts.MinPrice)
		argIndex++
	}
	if opts.MaxPrice != nil {
		where += fmt.Sprintf(" AND price <= $%d", argIndex)
		args = append(args, *opts.MaxPrice)
		argIndex++
	}
	if opts.InStock != nil {
		where += fmt.Sprintf(" AND in_stock = $%d", argIndex)
		args = append(args, *opts.InStock)
		argIndex++
	}
	if opts.Featured != nil {
		where += fmt.Sprintf(" AND featured = $%d", argIndex)
		args = append(args, *opts.Featured)
		argIndex++
	}
	if search := strings.TrimSpace(opts.Search); search != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex)
		args = append(args, "%"+search+"%")
		argIndex++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		log.Error("failed to count products", zap.Error(err))
		return nil, 0, err
	}

	// ---------- SORTING ----------
	column, ok := sortColumns[opts.Sort]
	if !ok {
		column = "created_at"
	}
	dir := "ASC"
	if opts.Desc {
		dir = "DESC"
	}

	query := `SELECT ` + productColumns + ` FROM products` + where +
		fmt.Sprintf(" ORDER BY %s %s, id ASC LIMIT $%d OFFSET $%d", column, dir, argIndex, argIndex+1)
	args = append(args, opts.Limit, (opts.Page-1)*opts.Limit)

	log.Debug("executing list products query", zap.String("query", query))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query products", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			log.Error("failed to scan product row", zap.Error(err))
			return nil, 0, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		log.Error("rows iteration error", zap.Error(err))
		return nil, 0, err
	}

	return products, total, nil
}

func (r *repository) Create(ctx context.Context, in ProductInput) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Create"),
	)

	var ratingAvg any = 0
	ratingCount := 0
	if in.Ratings != nil {
		ratingAvg = in.Ratings.Average
		ratingCount = in.Ratings.Count
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO products (
			name, description, price, currency, category, image_url, specs,
			stock_quantity, featured, rating_average, rating_count
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING `+productColumns,
		in.Name,
		in.Description,
		in.Price,
		string(in.Currency),
		string(in.Category),
		in.ImageURL,
		pq.Array(in.Specs),
		in.StockQuantity,
		in.Featured,
		ratingAvg,
		ratingCount,
	)

	p, err := scanProduct(row)
	if err != nil {
		log.Error("failed to insert product", zap.Error(err))
		return nil, err
	}

	log.Info("product created", zap.String("product_id", p.ID))
	return p, nil
}

func (r *repository) Update(ctx context.Context, id string, in UpdateProductInput) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Update"),
		zap.String("product_id", id),
	)

	sets := []string{}
	args := []any{}
	argIndex := 1

	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if in.Name != nil {
		add("name", *in.Name)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.Price != nil {
		add("price", *in.Price)
	}
	if in.Currency != nil {
		add("currency", string(*in.Currency))
	}
	if in.Category != nil {
		add("category", string(*in.Category))
	}
	if in.ImageURL != nil {
		add("image_url", *in.ImageURL)
	}
	if in.Specs != nil {
		add("specs", pq.Array(in.Specs))
	}
	if in.StockQuantity != nil {
		add("stock_quantity", *in.StockQuantity)
	}
	if in.Featured != nil {
		add("featured", *in.Featured)
	}
	if in.Ratings != nil {
		add("rating_average", in.Ratings.Average)
		add("rating_count", in.Ratings.Count)
	}

	if len(sets) == 0 {
		return nil, ErrNoFieldsToApply
	}

	query := fmt.Sprintf(
		`UPDATE products SET %s, updated_at = NOW() WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), argIndex, productColumns,
	)
	args = append(args, id)

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		log.Error("failed to update product", zap.Error(err))
		return nil, err
	}

	log.Info("product updated")
	return p, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Delete"),
		zap.String("product_id", id),
	)

	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete product", zap.Error(err))
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}

	log.Info("product deleted")
	return nil
}
