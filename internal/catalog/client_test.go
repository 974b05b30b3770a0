package catalog

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productsJSON = `[
  {"id": 1, "name": "Laptop", "brand": "Acme", "category": "Electronics", "price": "999.99",
   "stockQuantity": "5", "productAvailable": true, "releaseDate": "2024-03-01",
   "imageName": "front.png", "imageType": "image/png", "imageData": "aGVsbG8="},
  {"id": 2, "name": "Mug", "category": "Kitchen", "price": 7.5, "stockQuantity": 0},
  {"id": 3, "name": "Broken", "price": "abc", "stockQuantity": 1},
  {"id": 4, "name": "Phone", "category": "Electronics", "price": "10", "stockQuantity": 2}
]`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, Timeout: time.Second, FailureThreshold: 2, OpenTimeout: time.Minute}, discardLogger())
}

func TestListProducts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, productsJSON)
	})

	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 3, "undecodable product is skipped")

	laptop := products[0]
	assert.Equal(t, int64(1), laptop.ID)
	assert.Equal(t, "999.99", laptop.Price.String())
	assert.Equal(t, 5, laptop.StockQuantity)
	assert.True(t, laptop.Available)
	require.NotNil(t, laptop.ReleaseDate)
	assert.Equal(t, 2024, laptop.ReleaseDate.Year())
	require.Len(t, laptop.Images, 1)
	assert.Equal(t, []byte("hello"), laptop.Images[0].Data)
	assert.Equal(t, "image/png", laptop.Images[0].MimeType)

	mug := products[1]
	assert.Equal(t, "7.5", mug.Price.String())
	assert.False(t, mug.Available)
	assert.Empty(t, mug.Images)
}

func TestGetProduct(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/4" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `{"id": 4, "name": "Phone", "price": "10", "stockQuantity": "2"}`)
	})

	p, err := client.GetProduct(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "Phone", p.Name)
	assert.Equal(t, 2, p.StockQuantity)

	_, err = client.GetProduct(context.Background(), 99)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCategories(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, productsJSON)
	})

	categories, err := client.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Electronics", "Kitchen"}, categories)
}

func TestBreakerOpensOnFailures(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	ctx := context.Background()

	for range 2 {
		_, err := client.ListProducts(ctx)
		assert.ErrorIs(t, err, ErrUnavailable)
	}
	_, err := client.ListProducts(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), calls.Load(), "open breaker fails fast")
}

func TestNotFoundDoesNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	})

	for range 4 {
		_, err := client.GetProduct(context.Background(), 1)
		assert.ErrorIs(t, err, ErrProductNotFound)
	}
	assert.Equal(t, int32(4), calls.Load())
}
