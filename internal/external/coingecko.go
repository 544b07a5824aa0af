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

// CoinGeckoClient fetches crypto spot prices from the CoinGecko API
type CoinGeckoClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logrus.Entry
}

// NewCoinGeckoClient creates a new CoinGecko client
func NewCoinGeckoClient(cfg *config.ProvidersConfig, logger *logrus.Logger) *CoinGeckoClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &CoinGeckoClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: cfg.CoinGeckoURL,
		apiKey:  cfg.CoinGeckoKey,
		logger:  logger.WithField("component", "coingecko"),
	}
}

// SpotPriceUSD fetches the current USD spot price for a coin id.
func (c *CoinGeckoClient) SpotPriceUSD(ctx context.Context, coinID string) (float64, error) {
	if coinID == "" {
		return 0, ErrUnavailable
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd",
		c.baseURL, url.QueryEscape(coinID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("API returned status %d: %w", resp.StatusCode, ErrUnavailable)
	}

	// Response shape: {"bitcoin": {"usd": 64000.12}}
	var data map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	price, ok := data[coinID]["usd"]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("no usd price for %s: %w", coinID, ErrUnavailable)
	}

	c.logger.WithFields(logrus.Fields{
		"coin_id": coinID,
		"usd":     price,
	}).Debug("Fetched spot price from CoinGecko")

	return price, nil
}
