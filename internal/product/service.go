package product

import (
	"context"
	"strings"

	"storefront-be/internal/apperror"
	"storefront-be/internal/logger"
	"storefront-be/internal/utils"
	"storefront-be/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	List(ctx context.Context, opts ListOptions) ([]Product, utils.Pagination, error)
	ListByCategory(ctx context.Context, category Category, page, limit int) ([]Product, utils.Pagination, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, input ProductInput) (*Product, error)
	Update(ctx context.Context, id string, input UpdateProductInput) (*Product, error)
	Delete(ctx context.Context, id string) error
}

// CatalogListener is told when existing products change, so copies of
// product data held elsewhere can be dropped.
type CatalogListener interface {
	CatalogChanged(ctx context.Context) error
}

type service struct {
	repo     Repository
	listener CatalogListener
}

// NewService builds the catalog service. listener may be nil.
func NewService(repo Repository, listener CatalogListener) Service {
	return &service{repo: repo, listener: listener}
}

func (s *service) notifyChanged(ctx context.Context) {
	if s.listener == nil {
		return
	}
	if err := s.listener.CatalogChanged(ctx); err != nil {
		logger.FromCtx(ctx).Warn("catalog change notification failed", zap.Error(err))
	}
}

func (s *service) List(ctx context.Context, opts ListOptions) ([]Product, utils.Pagination, error) {
	if opts.Category != nil && !opts.Category.Valid() {
		return nil, utils.Pagination{}, ErrInvalidCategory
	}
	if opts.Sort == "" {
		opts.Sort = SortCreatedAt
		opts.Desc = true
	}
	if _, ok := sortColumns[opts.Sort]; !ok {
		return nil, utils.Pagination{}, ErrInvalidSort
	}
	if opts.MinPrice != nil && opts.MaxPrice != nil && opts.MinPrice.GreaterThan(*opts.MaxPrice) {
		return nil, utils.Pagination{}, ErrInvalidPrice
	}

	opts.Page, opts.Limit = utils.NormalizePage(opts.Page, opts.Limit, DefaultListLimit, MaxListLimit)

	products, total, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, utils.Pagination{}, apperror.Wrap(err, "product.List")
	}

	return products, utils.NewPagination(opts.Page, opts.Limit, total), nil
}

func (s *service) ListByCategory(ctx context.Context, category Category, page, limit int) ([]Product, utils.Pagination, error) {
	if !category.Valid() {
		return nil, utils.Pagination{}, ErrInvalidCategory
	}
	return s.List(ctx, ListOptions{Category: &category, Page: page, Limit: limit})
}

func (s *service) GetByID(ctx context.Context, id string) (*Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrProductNotFound
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Wrap(err, "product.GetByID")
	}
	return p, nil
}

func (s *service) Create(ctx context.Context, input ProductInput) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Create"),
	)

	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if input.Currency == "" {
		input.Currency = CurrencyGHS
	}
	if input.Specs == nil {
		input.Specs = []string{}
	}

	if err := validation.Struct(input); err != nil {
		log.Warn("invalid product input", zap.Error(err))
		return nil, err
	}

	p, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, apperror.Wrap(err, "product.Create")
	}
	return p, nil
}

func (s *service) Update(ctx context.Context, id string, input UpdateProductInput) (*Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrProductNotFound
	}
	if input.Empty() {
		return nil, ErrNoFieldsToApply
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	p, err := s.repo.Update(ctx, id, input)
	if err != nil {
		return nil, apperror.Wrap(err, "product.Update")
	}
	s.notifyChanged(ctx)
	return p, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrProductNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperror.Wrap(err, "product.Delete")
	}
	s.notifyChanged(ctx)
	return nil
}
