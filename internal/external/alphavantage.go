package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Abhay-hack/Asset-Pulse/pkg/config"
	"github.com/sirupsen/logrus"
)

// rateLimitMarkers are the substrings (matched case-insensitively) that
// Alpha Vantage embeds in an HTTP 200 body when it throttles or rejects a
// request instead of returning a distinct status code.
var rateLimitMarkers = []string{
	"our standard api rate limit",
	"higher api call volume",
	"thank you for using alpha vantage",
	"premium plan",
	"invalid api key",
	"rate limit",
}

// AlphaVantageClient is the primary equity quote client. It is keyed and
// subject to a small daily quota tracked by the caller.
type AlphaVantageClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logrus.Entry
}

// alphaVantageQuote represents a GLOBAL_QUOTE response
type alphaVantageQuote struct {
	GlobalQuote struct {
		Symbol string `json:"01. symbol"`
		Price  string `json:"05. price"`
	} `json:"Global Quote"`
	Note        string `json:"Note"`
	Information string `json:"Information"`
	ErrMessage  string `json:"Error Message"`
}

// NewAlphaVantageClient creates a new Alpha Vantage client
func NewAlphaVantageClient(cfg *config.ProvidersConfig, logger *logrus.Logger) *AlphaVantageClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &AlphaVantageClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: cfg.AlphaVantageURL,
		apiKey:  cfg.AlphaVantageKey,
		logger:  logger.WithField("component", "alpha-vantage"),
	}
}

// Quote fetches the current quote for a symbol. A throttled or key-rejected
// request yields ErrRateLimited; a missing or non-positive price yields
// ErrUnavailable.
func (c *AlphaVantageClient) Quote(ctx context.Context, symbol string) (float64, error) {
	endpoint := fmt.Sprintf("%s?function=GLOBAL_QUOTE&symbol=%s&apikey=%s",
		c.baseURL, url.QueryEscape(symbol), c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return 0, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("API returned status %d: %w", resp.StatusCode, ErrUnavailable)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}

	if isRateLimitBody(body) {
		c.logger.WithField("symbol", symbol).Warn("Alpha Vantage throttled the request")
		return 0, ErrRateLimited
	}

	var quote alphaVantageQuote
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&quote); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	price, err := strconv.ParseFloat(quote.GlobalQuote.Price, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("no usable price for %s: %w", symbol, ErrUnavailable)
	}

	c.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"price":  price,
	}).Debug("Fetched quote from Alpha Vantage")

	return price, nil
}

// isRateLimitBody classifies a 200 response body as a throttling signal by
// scanning for the documented marker substrings.
func isRateLimitBody(body []byte) bool {
	lower := strings.ToLower(string(body))
	for _, marker := range rateLimitMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
