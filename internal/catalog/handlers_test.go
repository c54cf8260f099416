package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/petalcrumb/pos-engine/internal/catalog"
	"github.com/petalcrumb/pos-engine/internal/pricing"
)

type productsResponse struct {
	Data       []catalog.ProductSummary `json:"data"`
	Pagination struct {
		Page       int `json:"page"`
		PerPage    int `json:"per_page"`
		TotalItems int `json:"total_items"`
	} `json:"pagination"`
}

type productDetailResponse struct {
	Data catalog.Product `json:"data"`
}

type categoriesResponse struct {
	Data []catalog.Category `json:"data"`
}

func TestCatalogHandlers(t *testing.T) {
	store := newFakeStore()
	svc, err := catalog.NewService(catalog.ServiceConfig{
		Store:        store,
		DefaultPage:  1,
		DefaultLimit: 50,
		MaxLimit:     200,
	})
	require.NoError(t, err)

	handler := catalog.NewHandler(svc)

	t.Run("categories", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/categories", nil)
		rec := httptest.NewRecorder()
		handler.Categories(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp categoriesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 2)
		require.Equal(t, "cakes", resp.Data[0].Slug)
	})

	t.Run("products list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/products?limit=1", nil)
		rec := httptest.NewRecorder()
		handler.Products(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "2", rec.Header().Get("X-Total-Count"))

		var resp productsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1)
		require.Equal(t, "Celebration Cake", resp.Data[0].Name)
		require.Equal(t, 1, resp.Pagination.Page)
		require.Equal(t, 1, resp.Pagination.PerPage)
		require.Equal(t, 2, resp.Pagination.TotalItems)
	})

	t.Run("product detail carries price spec", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ProductDetail(rec, detailRequest("celebration-cake"))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp productDetailResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "Celebration Cake", resp.Data.Name)
		require.Equal(t, 120.0, resp.Data.Spec.BasePrice)
		require.Len(t, resp.Data.Spec.Options, 1)
		require.Len(t, resp.Data.Spec.AddonGroups, 1)
		require.Equal(t, "topper", resp.Data.Spec.AddonGroups[0].ID)
	})

	t.Run("unknown slug yields 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ProductDetail(rec, detailRequest("missing"))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("inactive product is hidden", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ProductDetail(rec, detailRequest("retired-cake"))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid page rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/products?page=zero", nil)
		rec := httptest.NewRecorder()
		handler.Products(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServiceCachesDefaultList(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := newFakeStore()
	svc, err := catalog.NewService(catalog.ServiceConfig{
		Store:        store,
		Cache:        catalog.NewCache(client, time.Minute),
		DefaultPage:  1,
		DefaultLimit: 50,
		MaxLimit:     200,
	})
	require.NoError(t, err)

	ctx := context.Background()
	params, err := svc.ParseListParams(nil)
	require.NoError(t, err)

	first, err := svc.ListProducts(ctx, params)
	require.NoError(t, err)
	second, err := svc.ListProducts(ctx, params)
	require.NoError(t, err)
	require.Equal(t, first.Items, second.Items)
	require.Equal(t, 1, store.listCalls)

	// Searches bypass the cache.
	params.Query = "cake"
	_, err = svc.ListProducts(ctx, params)
	require.NoError(t, err)
	require.Equal(t, 2, store.listCalls)
}

func TestGetProductByIDSentinels(t *testing.T) {
	store := newFakeStore()
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: store})
	require.NoError(t, err)

	ctx := context.Background()
	product, err := svc.GetProductByID(ctx, "prod-cake")
	require.NoError(t, err)
	require.Equal(t, "celebration-cake", product.Slug)

	_, err = svc.GetProductByID(ctx, "prod-retired")
	require.ErrorIs(t, err, catalog.ErrProductInactive)

	_, err = svc.GetProductByID(ctx, "nope")
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func detailRequest(slug string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/products/"+slug, nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("slug", slug)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

type fakeStore struct {
	categories []catalog.Category
	products   map[string]catalog.Product
	listCalls  int
}

func newFakeStore() *fakeStore {
	cake := catalog.Product{
		ID:       "prod-cake",
		Slug:     "celebration-cake",
		Name:     "Celebration Cake",
		Category: "cakes",
		Active:   true,
		Spec: pricing.PriceSpec{
			BasePrice: 120,
			Options: []pricing.Option{
				{ID: "size", Name: "Size", Values: []pricing.OptionValue{
					{ID: "small", Name: "Small"},
					{ID: "large", Name: "Large", Adjustment: 40},
				}},
			},
			AddonGroups: []pricing.AddonGroup{
				{ID: "topper", Name: "Topper", MaxSelections: 2, Options: []pricing.AddonOption{
					{ID: "candles", Name: "Candles", Price: 5},
				}},
			},
		},
	}
	bouquet := catalog.Product{
		ID:       "prod-bouquet",
		Slug:     "rose-bouquet",
		Name:     "Rose Bouquet",
		Category: "flowers",
		Active:   true,
		Spec:     pricing.PriceSpec{BasePrice: 80},
	}
	retired := catalog.Product{
		ID:       "prod-retired",
		Slug:     "retired-cake",
		Name:     "Retired Cake",
		Category: "cakes",
		Active:   false,
		Spec:     pricing.PriceSpec{BasePrice: 60},
	}
	return &fakeStore{
		categories: []catalog.Category{{Slug: "cakes", Name: "Cakes"}, {Slug: "flowers", Name: "Flowers"}},
		products: map[string]catalog.Product{
			cake.Slug:    cake,
			bouquet.Slug: bouquet,
			retired.Slug: retired,
		},
	}
}

func (f *fakeStore) ListCategories(context.Context) ([]catalog.Category, error) {
	return f.categories, nil
}

func (f *fakeStore) CountProducts(_ context.Context, params catalog.ListParams) (int64, error) {
	var total int64
	for _, p := range f.products {
		if f.matches(p, params) {
			total++
		}
	}
	return total, nil
}

func (f *fakeStore) ListProducts(_ context.Context, params catalog.ListParams) ([]catalog.ProductSummary, error) {
	f.listCalls++
	var out []catalog.ProductSummary
	for _, slug := range []string{"celebration-cake", "rose-bouquet"} {
		p := f.products[slug]
		if !f.matches(p, params) {
			continue
		}
		out = append(out, catalog.ProductSummary{
			ID:        p.ID,
			Slug:      p.Slug,
			Name:      p.Name,
			Category:  p.Category,
			BasePrice: p.Spec.BasePrice,
		})
	}
	if len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (f *fakeStore) matches(p catalog.Product, params catalog.ListParams) bool {
	if !p.Active {
		return false
	}
	if params.Category != "" && p.Category != params.Category {
		return false
	}
	return true
}

func (f *fakeStore) GetBySlug(_ context.Context, slug string) (catalog.Product, error) {
	p, ok := f.products[slug]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (catalog.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return catalog.Product{}, catalog.ErrProductNotFound
}
