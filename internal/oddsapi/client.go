package oddsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourusername/edgecard/internal/config"
	"github.com/yourusername/edgecard/internal/metrics"
)

const apiVersion = "v4"

// QuotaState tracks the provider's request-budget headers
type QuotaState struct {
	RequestsRemaining int
	RequestsUsed      int
}

// Client fetches upcoming odds from the provider. It never writes to the
// store; normalization and count reporting happen here, persistence in the
// ingest pipeline.
type Client struct {
	baseURL string
	apiKey  string
	regions string

	http    *retryablehttp.Client
	limiter *rate.Limiter
	logger  *logrus.Logger

	mu    sync.RWMutex
	quota QuotaState
}

// NewClient creates an odds provider client with retry and rate limiting
func NewClient(cfg config.OddsAPIConfig, logger *logrus.Logger) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.CheckRetry = retryPolicy()
	retryClient.Logger = nil

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		regions: cfg.Regions,
		http:    retryClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), 1),
		logger:  logger,
		quota:   QuotaState{RequestsRemaining: -1},
	}
}

// FetchUpcoming retrieves and normalizes upcoming games for a sport. The
// returned result always carries RawCount (pre-normalization game count) so
// the caller can apply its contract guard. Provider failures come back as
// an empty result with Errors populated, alongside the error itself.
func (c *Client) FetchUpcoming(ctx context.Context, sport config.SportConfig, hoursAhead int) (*FetchResult, error) {
	endpoint := fmt.Sprintf("%s/%s/sports/%s/odds", c.baseURL, apiVersion, sport.ProviderKey)

	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("regions", c.regions)
	params.Set("markets", strings.Join(sport.Markets, ","))
	params.Set("oddsFormat", "american")
	params.Set("dateFormat", "iso")
	params.Set("commenceTimeFrom", time.Now().UTC().Format("2006-01-02T15:04:05Z"))
	params.Set("commenceTimeTo", time.Now().UTC().Add(time.Duration(hoursAhead)*time.Hour).Format("2006-01-02T15:04:05Z"))

	body, err := c.get(ctx, endpoint+"?"+params.Encode())
	if err != nil {
		return &FetchResult{Errors: []string{err.Error()}}, fmt.Errorf("fetch odds for %s: %w", sport.Key, err)
	}

	var rawEvents []json.RawMessage
	if err := json.Unmarshal(body, &rawEvents); err != nil {
		parseErr := fmt.Errorf("parse odds response for %s: %w", sport.Key, err)
		return &FetchResult{Errors: []string{parseErr.Error()}}, parseErr
	}

	return Normalize(sport.Key, rawEvents, time.Now().UTC()), nil
}

// Quota returns the last-seen provider request budget
func (c *Client) Quota() QuotaState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.quota
}

func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	c.updateQuota(resp.Header)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return body, nil
}

func (c *Client) updateQuota(headers http.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if remaining := headers.Get("x-requests-remaining"); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			c.quota.RequestsRemaining = val
			metrics.SetProviderQuota(float64(val))
			if val < 50 {
				c.logger.WithField("requests_remaining", val).Warn("Odds provider quota running low")
			}
		}
	}
	if used := headers.Get("x-requests-used"); used != "" {
		if val, err := strconv.Atoi(used); err == nil {
			c.quota.RequestsUsed = val
		}
	}
}

// retryPolicy retries network errors, 429 and 5xx. Other 4xx responses are
// terminal since the request itself is wrong.
func retryPolicy() retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, nil
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return true, nil
		}
		return false, nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
