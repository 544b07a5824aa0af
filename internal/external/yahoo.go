package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Abhay-hack/Asset-Pulse/pkg/config"
	"github.com/sirupsen/logrus"
)

// Browser-like User-Agent to avoid bot detection on the unkeyed endpoint.
const yahooUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// YahooClient is the secondary (unkeyed) equity quote client, used only when
// the primary provider is exhausted or rate-limited.
type YahooClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *logrus.Entry
}

// yahooChartResponse represents the Yahoo Finance Chart API response
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// NewYahooClient creates a new Yahoo Finance client
func NewYahooClient(cfg *config.ProvidersConfig, logger *logrus.Logger) *YahooClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &YahooClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: cfg.YahooURL,
		logger:  logger.WithField("component", "yahoo"),
	}
}

// Quote fetches the regular market price for a symbol from the chart API.
func (c *YahooClient) Quote(ctx context.Context, symbol string) (float64, error) {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("API returned status %d: %w", resp.StatusCode, ErrUnavailable)
	}

	var data yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	if data.Chart.Error != nil {
		return 0, fmt.Errorf("chart API error %s: %w", data.Chart.Error.Code, ErrUnavailable)
	}
	if len(data.Chart.Result) == 0 {
		return 0, fmt.Errorf("empty chart result for %s: %w", symbol, ErrUnavailable)
	}

	price := data.Chart.Result[0].Meta.RegularMarketPrice
	if price <= 0 {
		return 0, fmt.Errorf("no usable price for %s: %w", symbol, ErrUnavailable)
	}

	c.logger.WithFields(logrus.Fields{
		"symbol":   symbol,
		"price":    price,
		"currency": data.Chart.Result[0].Meta.Currency,
	}).Debug("Fetched quote from Yahoo Finance")

	return price, nil
}
