// Package geodata looks up population density from the external raster service.
package geodata

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/railtycoon/server/internal/economy"
	"github.com/railtycoon/server/pkg/core"
)

// DefaultDensity (people/km²) is used whenever a lookup fails or the point
// is outside the raster.
const DefaultDensity = economy.DefaultDensity

// Source resolves the population density at a coordinate.
type Source interface {
	Density(ctx context.Context, at core.LatLng) (float64, error)
}

// Fixed returns the same density everywhere.
type Fixed float64

func (f Fixed) Density(context.Context, core.LatLng) (float64, error) {
	return float64(f), nil
}

// Client handles communication with the density service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type densityResponse struct {
	Density *float64 `json:"density"`
}

// New creates a new density client. A zero timeout means 5 seconds.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Healthcheck checks if the density service is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthcheck", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// Density fetches the density at the coordinate, rounded and floored at 1.
// A 404 means the point is outside the raster and yields DefaultDensity.
func (c *Client) Density(ctx context.Context, at core.LatLng) (float64, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(at.Lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(at.Lng, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/density?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("density request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return DefaultDensity, nil
	default:
		return 0, fmt.Errorf("density returned status %d", resp.StatusCode)
	}

	var body densityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decoding density response: %w", err)
	}
	if body.Density == nil || math.IsNaN(*body.Density) {
		return DefaultDensity, nil
	}
	return math.Max(1, math.Round(*body.Density)), nil
}

// OrDefault queries src and falls back to DefaultDensity on error. The
// error is still returned so callers can log it.
func OrDefault(ctx context.Context, src Source, at core.LatLng) (float64, error) {
	d, err := src.Density(ctx, at)
	if err != nil {
		return DefaultDensity, err
	}
	return d, nil
}
