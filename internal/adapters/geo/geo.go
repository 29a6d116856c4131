package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sitex/tgtemplates/internal/domain"
)

// Client acquires a current-location fix from an HTTP locator endpoint
// returning {"lat": .., "lon": ..}. One bounded request per call, no retry:
// a missed fix is deliberately best-effort.
type Client struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *Client) Current(ctx context.Context) (domain.Fix, error) {
	if c.url == "" {
		return domain.Fix{}, fmt.Errorf("no locator endpoint configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return domain.Fix{}, fmt.Errorf("new request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Fix{}, fmt.Errorf("locator request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.Fix{}, fmt.Errorf("locator status %d: %s", resp.StatusCode, string(body))
	}

	var fix domain.Fix
	if err := json.NewDecoder(resp.Body).Decode(&fix); err != nil {
		return domain.Fix{}, fmt.Errorf("decode fix: %w", err)
	}

	c.logger.Debug("location fix acquired", "lat", fix.Lat, "lon", fix.Lon)
	return fix, nil
}
