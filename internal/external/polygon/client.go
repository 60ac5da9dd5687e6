package polygon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/optionflow/pkg/config"
	"github.com/wonny/optionflow/pkg/httputil"
	"github.com/wonny/optionflow/pkg/logger"
)

// ErrBadStatus marks a page whose response body status was not "OK".
// The whole fetch aborts on it; pages already collected are discarded.
var ErrBadStatus = errors.New("polygon: non-OK response status")

// Client handles communication with the Polygon.io REST API.
// The caller wires in an httputil client with retry disabled: a failed
// page fails the run and recovery is by re-invocation.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string
	maxPages   int
	pacer      *rate.Limiter
}

// NewClient creates a new Polygon client.
func NewClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Client {
	pageDelay := cfg.Ingest.PageDelay
	if pageDelay <= 0 {
		pageDelay = 250 * time.Millisecond
	}

	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    cfg.Polygon.BaseURL,
		apiKey:     cfg.Polygon.APIKey,
		maxPages:   cfg.Ingest.MaxPages,
		pacer:      rate.NewLimiter(rate.Every(pageDelay), 1),
	}
}

// getJSON issues an authenticated GET and decodes the body into dest.
func (c *Client) getJSON(ctx context.Context, url string, dest interface{}) error {
	resp, err := c.httpClient.GetWithHeaders(ctx, url, map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d: %w", resp.StatusCode, ErrBadStatus)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
