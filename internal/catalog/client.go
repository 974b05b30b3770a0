// Package catalog reads products from the remote product service. Every call
// goes through a circuit breaker; while it is open calls fail fast with
// ErrUnavailable.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/storefront/internal/domain"
)

var (
	ErrProductNotFound = errors.New("catalog: product not found")
	ErrUnavailable     = errors.New("catalog: service unavailable")
)

type Config struct {
	BaseURL string
	Timeout time.Duration
	// FailureThreshold consecutive failures open the breaker for OpenTimeout.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	return c
}

type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	log     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	cfg = cfg.withDefaults()
	log := logger.With("component", "catalog")

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
		SetHeader("Accept", "application/json")

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "catalog",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// a missing product is an answer, not a failure
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrProductNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{http: httpClient, breaker: breaker, log: log}
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		resp, err := c.http.R().SetContext(ctx).Get(path)
		if err != nil {
			return nil, fmt.Errorf("GET %s: %w", path, err)
		}
		if resp.StatusCode() == http.StatusNotFound {
			return nil, ErrProductNotFound
		}
		if resp.IsError() {
			return nil, fmt.Errorf("GET %s: status %d", path, resp.StatusCode())
		}
		return resp.Body(), nil
	})
	switch {
	case err == nil:
		return body, nil
	case errors.Is(err, ErrProductNotFound):
		return nil, err
	default:
		c.log.WarnContext(ctx, "catalog request failed", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

// ListProducts returns every product the catalog lists. Records that cannot be
// decoded are skipped.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	body, err := c.get(ctx, "/products")
	if err != nil {
		return nil, err
	}
	var wire []wireProduct
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}

	products := make([]domain.Product, 0, len(wire))
	for _, w := range wire {
		p, err := c.convert(ctx, w)
		if err != nil {
			c.log.WarnContext(ctx, "skipping undecodable product", "error", err)
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	body, err := c.get(ctx, "/products/"+strconv.FormatInt(id, 10))
	if err != nil {
		return domain.Product{}, err
	}
	var w wireProduct
	if err := json.Unmarshal(body, &w); err != nil {
		return domain.Product{}, fmt.Errorf("decode product %d: %w", id, err)
	}
	return c.convert(ctx, w)
}

// Categories returns the distinct non-empty categories in the order the
// catalog first lists them.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	products, err := c.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	categories := []string{}
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	return categories, nil
}

func (c *Client) convert(ctx context.Context, w wireProduct) (domain.Product, error) {
	p, badImages, err := w.toDomain()
	if err != nil {
		return domain.Product{}, err
	}
	for _, bad := range badImages {
		c.log.WarnContext(ctx, "dropping undecodable image", "product_id", p.ID, "error", bad)
	}
	return p, nil
}
