package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

var ErrProductNotFound = errors.New("product not found")

const (
	DefaultBaseURL  = "https://dummyjson.com"
	DefaultLimit    = 194
	DefaultCacheTTL = 5 * time.Minute
)

type productList struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

// Client reads the product catalog. The full listing is cached for the
// configured TTL and concurrent fetches of the same resource share one
// request.
type Client struct {
	baseURL    string
	limit      int
	ttl        time.Duration
	httpClient *http.Client
	logger     zerolog.Logger
	sfg        singleflight.Group

	mu       sync.RWMutex
	products []Product
	cachedAt time.Time
}

func NewClient(baseURL string, limit int, ttl time.Duration, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		limit:      limit,
		ttl:        ttl,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With().Str("component", "Catalog").Logger(),
	}
}

// Products returns the whole catalog.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	c.mu.RLock()
	if c.products != nil && c.ttl > 0 && time.Since(c.cachedAt) < c.ttl {
		products := c.products
		c.mu.RUnlock()
		return products, nil
	}
	c.mu.RUnlock()

	v, shared, err := c.do(ctx, "products", func(ctx context.Context) (interface{}, error) {
		var list productList
		url := fmt.Sprintf("%s/products?limit=%d", c.baseURL, c.limit)
		if err := c.getJSON(ctx, url, &list); err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.products = list.Products
		c.cachedAt = time.Now()
		c.mu.Unlock()
		c.logger.Debug().Int("count", len(list.Products)).Msg("catalog refreshed")
		return list.Products, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	if shared {
		c.logger.Debug().Msg("shared catalog fetch")
	}
	return v.([]Product), nil
}

// Product returns one product by id.
func (c *Client) Product(ctx context.Context, id int) (*Product, error) {
	key := "product:" + strconv.Itoa(id)
	v, _, err := c.do(ctx, key, func(ctx context.Context) (interface{}, error) {
		var p Product
		if err := c.getJSON(ctx, fmt.Sprintf("%s/products/%d", c.baseURL, id), &p); err != nil {
			return nil, err
		}
		return &p, nil
	})
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to fetch product %d: %w", id, err)
	}
	p := *v.(*Product)
	return &p, nil
}

// do runs fn once per key for all concurrent callers. The fetch does not
// inherit the first caller's cancellation; each caller stops waiting when
// its own ctx ends and the fetch is bounded by the HTTP client timeout.
func (c *Client) do(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, bool, error) {
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.sfg.DoChan(key, func() (interface{}, error) {
		return fn(fetchCtx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrProductNotFound
	}
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("catalog returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
