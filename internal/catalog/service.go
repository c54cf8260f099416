package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/petalcrumb/pos-engine/internal/common"
)

// ErrProductInactive is returned when a product exists but is no longer sold.
var ErrProductInactive = errors.New("product not available")

// Store abstracts catalog persistence so the service can be tested without
// Postgres.
type Store interface {
	ListCategories(ctx context.Context) ([]Category, error)
	CountProducts(ctx context.Context, params ListParams) (int64, error)
	ListProducts(ctx context.Context, params ListParams) ([]ProductSummary, error)
	GetBySlug(ctx context.Context, slug string) (Product, error)
	GetByID(ctx context.Context, id string) (Product, error)
}

// Service orchestrates catalog queries and caching.
type Service struct {
	store        Store
	cache        *Cache
	defaultPage  int
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store        Store
	Cache        *Cache
	DefaultPage  int
	DefaultLimit int
	MaxLimit     int
}

// ListParams captures filters for product listing.
type ListParams struct {
	Query    string
	Category string
	Page     int
	Limit    int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog: store is required")
	}
	defaultPage := cfg.DefaultPage
	if defaultPage < 1 {
		defaultPage = 1
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 50
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 200
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		store:        cfg.Store,
		cache:        cfg.Cache,
		defaultPage:  defaultPage,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// ParseListParams normalises raw query values into strongly typed filters.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{
		Page:  s.defaultPage,
		Limit: s.defaultLimit,
	}
	params.Query = strings.TrimSpace(values.Get("q"))
	params.Category = strings.TrimSpace(values.Get("category"))

	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, badRequest("page", "page must be a positive integer", err)
		}
		params.Page = page
	}
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return params, badRequest("limit", "limit must be a positive integer", err)
		}
		if limit > s.maxLimit {
			limit = s.maxLimit
		}
		params.Limit = limit
	}
	return params, nil
}

// ListCategories returns sale screen categories in display order.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	key := categoriesCacheKey()
	var cached []Category
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	rows, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if rows == nil {
		rows = []Category{}
	}
	_ = s.cache.SetJSON(ctx, key, rows)
	return rows, nil
}

// ListProducts returns a filtered product list with pagination metadata.
// Only the unfiltered first page per category is cached; searches always hit
// Postgres.
func (s *Service) ListProducts(ctx context.Context, params ListParams) (ProductListResult, error) {
	key, cacheable := s.listKey(params)
	if cacheable {
		var cached cachedList
		if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
			return ProductListResult{Items: cached.Items, Total: cached.Total, Page: params.Page, Limit: params.Limit}, nil
		}
	}

	total, err := s.store.CountProducts(ctx, params)
	if err != nil {
		return ProductListResult{}, err
	}
	items, err := s.store.ListProducts(ctx, params)
	if err != nil {
		return ProductListResult{}, err
	}
	if items == nil {
		items = []ProductSummary{}
	}
	result := ProductListResult{Items: items, Total: total, Page: params.Page, Limit: params.Limit}
	if cacheable {
		_ = s.cache.SetJSON(ctx, key, cachedList{Items: items, Total: total})
	}
	return result, nil
}

// GetProduct returns the sellable product for a slug, price spec included.
func (s *Service) GetProduct(ctx context.Context, slug string) (Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Product{}, badRequest("slug", "slug is required", nil)
	}
	key := productCacheKey("slug", slug)
	var cached Product
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return s.publicView(cached)
	}
	product, err := s.store.GetBySlug(ctx, slug)
	if errors.Is(err, ErrProductNotFound) {
		return Product{}, notFound(err)
	}
	if err != nil {
		return Product{}, err
	}
	_ = s.cache.SetJSON(ctx, key, product)
	return s.publicView(product)
}

// GetProductByID returns a product for checkout use. Callers are expected to
// map the sentinel errors onto their own validation failures.
func (s *Service) GetProductByID(ctx context.Context, id string) (Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Product{}, ErrProductNotFound
	}
	key := productCacheKey("id", id)
	var cached Product
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		if !cached.Active {
			return Product{}, ErrProductInactive
		}
		return cached, nil
	}
	product, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	_ = s.cache.SetJSON(ctx, key, product)
	if !product.Active {
		return Product{}, ErrProductInactive
	}
	return product, nil
}

func (s *Service) publicView(p Product) (Product, error) {
	if !p.Active {
		return Product{}, notFound(ErrProductInactive)
	}
	return p, nil
}

type cachedList struct {
	Items []ProductSummary `json:"items"`
	Total int64            `json:"total"`
}

func (s *Service) listKey(params ListParams) (string, bool) {
	if params.Query != "" {
		return "", false
	}
	if params.Page != s.defaultPage || params.Limit != s.defaultLimit {
		return "", false
	}
	return listCacheKey(params.Category), true
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details: map[string]any{
			"field": field,
		},
	}
}

func notFound(err error) *common.AppError {
	return &common.AppError{
		Code:       "NOT_FOUND",
		Message:    "product not found",
		HTTPStatus: http.StatusNotFound,
		Err:        err,
	}
}
