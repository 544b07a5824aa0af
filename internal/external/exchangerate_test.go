package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Abhay-hack/Asset-Pulse/pkg/config"
	"github.com/stretchr/testify/assert"
)

func newExchangeRate(url string) *ExchangeRateClient {
	return NewExchangeRateClient(&config.ProvidersConfig{
		ExchangeRateURL: url,
		RequestTimeout:  2 * time.Second,
	}, 83.5, quietLogger())
}

func TestUSDToINR(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result": "success", "rates": {"INR": 84.12, "EUR": 0.92}}`))
	}))
	defer srv.Close()

	assert.Equal(t, 84.12, newExchangeRate(srv.URL).USDToINR(context.Background()))
}

func TestUSDToINRFallbackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	assert.Equal(t, 83.5, newExchangeRate(srv.URL).USDToINR(context.Background()))
}

func TestUSDToINRFallbackOnMissingRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result": "success", "rates": {"EUR": 0.92}}`))
	}))
	defer srv.Close()

	assert.Equal(t, 83.5, newExchangeRate(srv.URL).USDToINR(context.Background()))
}

func TestUSDToINRFallbackOnBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	assert.Equal(t, 83.5, newExchangeRate(srv.URL).USDToINR(context.Background()))
}

func TestUSDToINRFallbackOnUnreachableHost(t *testing.T) {
	// Closed server: the dial fails immediately.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	assert.Equal(t, 83.5, newExchangeRate(srv.URL).USDToINR(context.Background()))
}
