package rest

import (
	"net/http"
	"strings"

	"storefront-be/internal/apperror"
	"storefront-be/internal/product"
	"storefront-be/internal/transport"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

var errInvalidPriceFilter = apperror.Detail(product.ErrInvalidPrice, "minPrice and maxPrice must be numbers")

type ProductHandler struct {
	svc product.Service
}

func parseListOptions(r *http.Request) (product.ListOptions, error) {
	q := r.URL.Query()
	opts := product.ListOptions{
		InStock:  utils.ParseBoolPtr(q.Get("inStock")),
		Featured: utils.ParseBoolPtr(q.Get("featured")),
		Search:   strings.TrimSpace(q.Get("search")),
		Sort:     q.Get("sort"),
		Desc:     !strings.EqualFold(q.Get("order"), "asc"),
		Page:     utils.AtoiDefault(q.Get("page"), 1),
		Limit:    utils.AtoiDefault(q.Get("limit"), product.DefaultListLimit),
	}

	if c := strings.TrimSpace(q.Get("category")); c != "" {
		cat := product.Category(strings.ToLower(c))
		opts.Category = &cat
	}
	for key, dst := range map[string]**decimal.Decimal{"minPrice": &opts.MinPrice, "maxPrice": &opts.MaxPrice} {
		if v := q.Get(key); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return opts, errInvalidPriceFilter
			}
			*dst = &d
		}
	}
	return opts, nil
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		transport.Error(w, r, err)
		return
	}

	products, page, err := h.svc.List(r.Context(), opts)
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.OK(w, map[string]any{"products": products, "pagination": page})
}

func (h *ProductHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := product.Category(strings.ToLower(chi.URLParam(r, "category")))

	products, page, err := h.svc.ListByCategory(r.Context(), category,
		utils.AtoiDefault(q.Get("page"), 1),
		utils.AtoiDefault(q.Get("limit"), product.DefaultListLimit),
	)
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.OK(w, map[string]any{"products": products, "count": len(products), "pagination": page})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.OK(w, map[string]any{"product": p})
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in product.ProductInput
	if err := transport.Decode(w, r, &in); err != nil {
		transport.Error(w, r, err)
		return
	}

	p, err := h.svc.Create(r.Context(), in)
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.Success(w, http.StatusCreated, "Product created successfully", map[string]any{"product": p})
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in product.UpdateProductInput
	if err := transport.Decode(w, r, &in); err != nil {
		transport.Error(w, r, err)
		return
	}

	p, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.Success(w, http.StatusOK, "Product updated successfully", map[string]any{"product": p})
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.Success(w, http.StatusOK, "Product deleted successfully", nil)
}
