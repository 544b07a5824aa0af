package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Abhay-hack/Asset-Pulse/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newAlphaVantage(url string) *AlphaVantageClient {
	return NewAlphaVantageClient(&config.ProvidersConfig{
		AlphaVantageKey: "demo",
		AlphaVantageURL: url,
		RequestTimeout:  2 * time.Second,
	}, quietLogger())
}

func TestAlphaVantageQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "demo", r.URL.Query().Get("apikey"))

		w.Write([]byte(`{"Global Quote": {"01. symbol": "AAPL", "05. price": "189.4300"}}`))
	}))
	defer srv.Close()

	price, err := newAlphaVantage(srv.URL).Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 189.43, price)
}

func TestAlphaVantageRateLimitedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newAlphaVantage(srv.URL).Quote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestAlphaVantageRateLimitedBody(t *testing.T) {
	// The free tier reports throttling inside an HTTP 200 body.
	bodies := []string{
		`{"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`,
		`{"Information": "Thank you for using Alpha Vantage! Please consider our premium plans for higher API call volume."}`,
		`{"Error Message": "Invalid API key."}`,
	}

	for _, body := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))

		_, err := newAlphaVantage(srv.URL).Quote(context.Background(), "AAPL")
		assert.ErrorIs(t, err, ErrRateLimited, body)
		srv.Close()
	}
}

func TestAlphaVantageEmptyQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Global Quote": {}}`))
	}))
	defer srv.Close()

	_, err := newAlphaVantage(srv.URL).Quote(context.Background(), "ZZZZ")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestAlphaVantageServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newAlphaVantage(srv.URL).Quote(context.Background(), "AAPL")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrRateLimited)
}

func TestIsRateLimitBodyCaseInsensitive(t *testing.T) {
	assert.True(t, isRateLimitBody([]byte("OUR STANDARD API RATE LIMIT IS 25 REQUESTS")))
	assert.False(t, isRateLimitBody([]byte(`{"Global Quote": {"05. price": "10"}}`)))
}
