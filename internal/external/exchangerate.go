package external

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Abhay-hack/Asset-Pulse/pkg/config"
	"github.com/sirupsen/logrus"
)

// ExchangeRateClient fetches the USD to INR conversion rate. Conversion must
// never abort a price fetch, so every failure degrades to the configured
// fallback rate instead of an error.
type ExchangeRateClient struct {
	httpClient   *http.Client
	baseURL      string
	fallbackRate float64
	logger       *logrus.Entry
}

// exchangeRateResponse represents the open.er-api.com response
type exchangeRateResponse struct {
	Result string             `json:"result"`
	Rates  map[string]float64 `json:"rates"`
}

// NewExchangeRateClient creates a new exchange rate client
func NewExchangeRateClient(cfg *config.ProvidersConfig, fallbackRate float64, logger *logrus.Logger) *ExchangeRateClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	return &ExchangeRateClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:      cfg.ExchangeRateURL,
		fallbackRate: fallbackRate,
		logger:       logger.WithField("component", "exchange-rate"),
	}
}

// USDToINR returns the current USD->INR rate, or the fallback rate when the
// upstream call fails in any way.
func (c *ExchangeRateClient) USDToINR(ctx context.Context) float64 {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return c.fallback(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fallback(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WithField("status", resp.StatusCode).Warn("Exchange rate API error, using fallback rate")
		return c.fallbackRate
	}

	var data exchangeRateResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return c.fallback(err)
	}

	rate, ok := data.Rates["INR"]
	if !ok || rate <= 0 {
		c.logger.Warn("Exchange rate response missing INR, using fallback rate")
		return c.fallbackRate
	}

	return rate
}

func (c *ExchangeRateClient) fallback(err error) float64 {
	c.logger.WithError(err).Warn("Exchange rate fetch failed, using fallback rate")
	return c.fallbackRate
}
