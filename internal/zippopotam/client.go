// Package zippopotam resolves US ZIP codes to coordinates via the free
// Zippopotam.us API.
package zippopotam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rayparkerhenry/intertalent/internal/zipcache"
)

const (
	defaultBaseURL = "https://api.zippopotam.us"
	defaultDelay   = 100 * time.Millisecond
	defaultTimeout = 5 * time.Second
)

// Client looks up coordinates for US ZIP codes.
type Client interface {
	// Lookup resolves a ZIP code to a coordinate. A nil coordinate with a
	// nil error means the code is not resolvable: invalid input, unknown
	// code, or a failed request. The error is non-nil only when the context
	// ends before a request could complete.
	Lookup(ctx context.Context, zip string) (*zipcache.Coordinate, error)
}

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *client) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.httpClient = hc }
}

// WithDelay sets the fixed pause between API calls. Zero or negative
// disables the pause.
func WithDelay(d time.Duration) Option {
	return func(c *client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

type client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Client with the given options.
func NewClient(opts ...Option) Client {
	c := &client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(defaultDelay), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// lookupResponse is the JSON body returned by Zippopotam.us. Latitude and
// longitude arrive as numeric strings.
type lookupResponse struct {
	Places []place `json:"places"`
}

type place struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

func (c *client) Lookup(ctx context.Context, zip string) (*zipcache.Coordinate, error) {
	// Only 5-digit US ZIP codes are ever sent to the API.
	zip5, ok := zipcache.NormalizeUS(zip)
	if !ok {
		return nil, nil
	}

	// Fixed spacing between calls; the API is free and unauthenticated.
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "zippopotam: rate limit wait")
	}

	coord, err := c.fetch(ctx, zip5)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrapf(err, "zippopotam: lookup %s", zip5)
		}
		// One attempt per code; failures become negative cache entries
		// upstream.
		zap.L().Warn("zippopotam: lookup failed",
			zap.String("zip", zip5), zap.Error(err))
		return nil, nil
	}
	return coord, nil
}

// fetch issues the single GET for a normalized ZIP code. An unknown code
// (non-200 status or empty place list) returns (nil, nil); errors are
// reserved for transport and parse failures.
func (c *client) fetch(ctx context.Context, zip5 string) (*zipcache.Coordinate, error) {
	reqURL := fmt.Sprintf("%s/us/%s", c.baseURL, zip5)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "zippopotam: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "zippopotam: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		zap.L().Debug("zippopotam: no match",
			zap.String("zip", zip5), zap.Int("status", resp.StatusCode))
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "zippopotam: read body")
	}

	var lr lookupResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, eris.Wrap(err, "zippopotam: parse response")
	}
	if len(lr.Places) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(lr.Places[0].Latitude, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "zippopotam: parse latitude for %s", zip5)
	}
	lng, err := strconv.ParseFloat(lr.Places[0].Longitude, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "zippopotam: parse longitude for %s", zip5)
	}

	return &zipcache.Coordinate{Lat: lat, Lng: lng}, nil
}
