package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sharpline/sharpline-go/internal/config"
	"github.com/sharpline/sharpline-go/internal/logging"
	"github.com/sharpline/sharpline-go/internal/utils"
)

const (
	defaultOddsAPIBaseURL = "https://api.the-odds-api.com"
	defaultOddsAPITimeout = 30 * time.Second

	// Remaining-quota level below which every call logs a warning.
	lowQuotaThreshold = 50
)

// TheOddsAPIClient fetches odds and scores from the-odds-api.com.
type TheOddsAPIClient struct {
	HTTPClient *http.Client
	baseURL    string
	apiKey     string
	timeout    time.Duration
	logger     *logging.StandardLogger
	remaining  atomic.Int64
}

// NewTheOddsAPIClient creates a new odds feed client.
//
// Parameters:
//
//	cfg: Provider configuration.
//	logger: Logger instance.
//
// Returns:
//
//	*TheOddsAPIClient: Initialized client.
func NewTheOddsAPIClient(cfg *config.ProvidersConfig, logger *logging.StandardLogger) *TheOddsAPIClient {
	timeout := defaultOddsAPITimeout
	if cfg.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Timeout); err == nil && d > 0 {
			timeout = d
		}
	}

	baseURL := cfg.OddsAPIBaseURL
	if baseURL == "" {
		baseURL = defaultOddsAPIBaseURL
	}

	client := &TheOddsAPIClient{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  cfg.OddsAPIKey,
		timeout: timeout,
		logger:  logger,
	}
	client.remaining.Store(-1)
	return client
}

// Name returns the provider identifier used in errors and alerts.
func (c *TheOddsAPIClient) Name() string {
	return "the-odds-api"
}

// FetchOdds retrieves the raw odds payloads for every listed game of a sport.
//
// Parameters:
//
//	ctx: Context.
//	opts: Sport key plus optional region, market and bookmaker filters.
//
// Returns:
//
//	[]RawGameOdds: Raw per-game payloads.
//	error: ProviderRateLimitedError on quota exhaustion,
//	ProviderUnavailableError on outage or transport failure.
func (c *TheOddsAPIClient) FetchOdds(ctx context.Context, opts FetchOptions) ([]RawGameOdds, error) {
	if opts.SportKey == "" {
		return nil, utils.NewValidationError("sport key is required")
	}

	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("oddsFormat", "american")
	if len(opts.Regions) > 0 {
		params.Set("regions", strings.Join(opts.Regions, ","))
	}
	if len(opts.Markets) > 0 {
		params.Set("markets", strings.Join(opts.Markets, ","))
	}
	if len(opts.Bookmakers) > 0 {
		params.Set("bookmakers", strings.Join(opts.Bookmakers, ","))
	}

	path := fmt.Sprintf("/v4/sports/%s/odds", url.PathEscape(opts.SportKey))
	var games []RawGameOdds
	if err := c.makeRequest(ctx, opts.SportKey, path, params, &games); err != nil {
		return nil, err
	}
	return games, nil
}

// FetchScores retrieves final and in-progress scores for a sport. Games
// completed within daysFrom days are included alongside upcoming ones.
//
// Parameters:
//
//	ctx: Context.
//	sportKey: Sport key.
//	daysFrom: How many days back to include completed games (1 to 3).
//
// Returns:
//
//	[]RawGameScore: Raw score payloads.
//	error: Error if retrieval fails.
func (c *TheOddsAPIClient) FetchScores(ctx context.Context, sportKey string, daysFrom int) ([]RawGameScore, error) {
	if sportKey == "" {
		return nil, utils.NewValidationError("sport key is required")
	}

	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	if daysFrom > 0 {
		params.Set("daysFrom", strconv.Itoa(daysFrom))
	}

	path := fmt.Sprintf("/v4/sports/%s/scores", url.PathEscape(sportKey))
	var scores []RawGameScore
	if err := c.makeRequest(ctx, sportKey, path, params, &scores); err != nil {
		return nil, err
	}
	return scores, nil
}

// ListSports retrieves the sports the feed currently serves.
//
// Parameters:
//
//	ctx: Context.
//
// Returns:
//
//	[]SportInfo: Available sports.
//	error: Error if retrieval fails.
func (c *TheOddsAPIClient) ListSports(ctx context.Context) ([]SportInfo, error) {
	params := url.Values{}
	params.Set("apiKey", c.apiKey)

	var sports []SportInfo
	if err := c.makeRequest(ctx, "", "/v4/sports", params, &sports); err != nil {
		return nil, err
	}
	return sports, nil
}

// RemainingRequests returns the quota left on the API key as reported by
// the last response, or -1 before the first call.
func (c *TheOddsAPIClient) RemainingRequests() int64 {
	return c.remaining.Load()
}

// BaseURL returns the base URL of the odds feed.
func (c *TheOddsAPIClient) BaseURL() string {
	return c.baseURL
}

// makeRequest is a helper method to make HTTP requests to the odds feed
func (c *TheOddsAPIClient) makeRequest(ctx context.Context, sportKey, path string, params url.Values, result interface{}) error {
	requestURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Sharpline-Go/1.0")

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.logger.LogProviderCall(c.Name(), sportKey, 0, time.Since(start).Milliseconds())
		return utils.NewProviderUnavailableError(c.Name(), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	c.logger.LogProviderCall(c.Name(), sportKey, resp.StatusCode, time.Since(start).Milliseconds())
	c.trackQuota(resp.Header)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return utils.NewProviderRateLimitedError(c.Name(), parseRetryAfter(resp.Header))
	case resp.StatusCode >= 500:
		return utils.NewProviderUnavailableError(c.Name(),
			fmt.Errorf("odds feed error (%d): %s", resp.StatusCode, apiErrorMessage(respBody)))
	case resp.StatusCode >= 400:
		return fmt.Errorf("odds feed error (%d): %s", resp.StatusCode, apiErrorMessage(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

// trackQuota records the remaining request quota from response headers
func (c *TheOddsAPIClient) trackQuota(header http.Header) {
	raw := header.Get("X-Requests-Remaining")
	if raw == "" {
		return
	}
	remaining, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return
	}
	c.remaining.Store(int64(remaining))
	if remaining <= lowQuotaThreshold {
		c.logger.WithComponent("odds_provider").Warn("Odds feed quota running low",
			"requests_remaining", int64(remaining))
	}
}

// parseRetryAfter reads the Retry-After header as whole seconds
func parseRetryAfter(header http.Header) time.Duration {
	raw := header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// apiErrorMessage extracts the feed's error message from a response body
func apiErrorMessage(body []byte) string {
	var errorResp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Message != "" {
		return errorResp.Message
	}
	return strings.TrimSpace(string(body))
}
