package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront/app/domain"
	"storefront/app/handler/api/response"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProductUsecase struct {
	products  map[int64]domain.Product
	updateErr error
	updated   []domain.ProductRequest
}

func (f *fakeProductUsecase) GetAll(ctx context.Context) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProductUsecase) GetByID(ctx context.Context, id int64) (domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeProductUsecase) Create(ctx context.Context, req domain.ProductRequest) (domain.Product, error) {
	p := req.ToProduct()
	p.ID = int64(len(f.products) + 1)
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeProductUsecase) Update(ctx context.Context, id int64, req domain.ProductRequest) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.products[id]; !ok {
		return domain.ErrNotFound
	}
	f.updated = append(f.updated, req)
	return nil
}

func (f *fakeProductUsecase) Delete(ctx context.Context, id int64) error {
	if _, ok := f.products[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.products, id)
	return nil
}

func newCatalogApp(uc *fakeProductUsecase) *fiber.App {
	app := fiber.New()
	SetupCatalogRouter(app, NewProductHandler(uc, validator.New()))
	return app
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, body io.Reader) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}

func TestProductUpdate(t *testing.T) {
	existing := map[int64]domain.Product{7: {ID: 7, Name: "mug", Price: decimal.NewFromInt(10)}}

	tests := []struct {
		name      string
		target    string
		body      string
		updateErr error
		want      int
	}{
		{name: "ok", target: "/products/7", body: `{"name":"mug","price":"9.99"}`, want: fiber.StatusNoContent},
		{name: "unknown product", target: "/products/8", body: `{"name":"mug","price":"9.99"}`, want: fiber.StatusNotFound},
		{name: "bad id", target: "/products/abc", body: `{"name":"mug","price":"9.99"}`, want: fiber.StatusBadRequest},
		{name: "missing name", target: "/products/7", body: `{"price":"9.99"}`, want: fiber.StatusBadRequest},
		{name: "missing price", target: "/products/7", body: `{"name":"mug"}`, want: fiber.StatusBadRequest},
		{name: "null price", target: "/products/7", body: `{"name":"mug","price":null}`, want: fiber.StatusBadRequest},
		{name: "zero price", target: "/products/7", body: `{"name":"mug","price":"0"}`, want: fiber.StatusNoContent},
		{name: "broken body", target: "/products/7", body: `{"name":`, want: fiber.StatusBadRequest},
		{
			name:      "broker unavailable",
			target:    "/products/7",
			body:      `{"name":"mug","price":"9.99"}`,
			updateErr: fmt.Errorf("%w: nats: timeout", domain.ErrPublish),
			want:      fiber.StatusServiceUnavailable,
		},
		{
			name:      "negative price",
			target:    "/products/7",
			body:      `{"name":"mug","price":"-1"}`,
			updateErr: fmt.Errorf("%w: price must not be negative", domain.ErrInvalidRequest),
			want:      fiber.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &fakeProductUsecase{products: existing, updateErr: tt.updateErr}
			app := newCatalogApp(uc)

			resp, err := app.Test(jsonRequest(fiber.MethodPut, tt.target, tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestProductUpdatePassesDecodedPrice(t *testing.T) {
	uc := &fakeProductUsecase{products: map[int64]domain.Product{7: {ID: 7, Name: "mug"}}}
	app := newCatalogApp(uc)

	resp, err := app.Test(jsonRequest(fiber.MethodPut, "/products/7", `{"name":"mug","description":"blue","price":"9.99"}`))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	require.Len(t, uc.updated, 1)
	assert.Equal(t, "blue", uc.updated[0].Description)
	assert.True(t, uc.updated[0].Price.Equal(decimal.RequireFromString("9.99")))
}

func TestProductCreateAndGet(t *testing.T) {
	uc := &fakeProductUsecase{products: map[int64]domain.Product{}}
	app := newCatalogApp(uc)

	resp, err := app.Test(jsonRequest(fiber.MethodPost, "/products", `{"name":"mug","price":"12.50"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.True(t, decode(t, resp.Body).Success)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/products/1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/products/2", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.False(t, decode(t, resp.Body).Success)
}

func TestProductDelete(t *testing.T) {
	uc := &fakeProductUsecase{products: map[int64]domain.Product{3: {ID: 3, Name: "mug"}}}
	app := newCatalogApp(uc)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodDelete, "/products/3", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodDelete, "/products/3", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
