package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Abhay-hack/Asset-Pulse/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newYahoo(url string) *YahooClient {
	return NewYahooClient(&config.ProvidersConfig{
		YahooURL:       url,
		RequestTimeout: 2 * time.Second,
	}, quietLogger())
}

func TestYahooQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/RELIANCE.NS", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("User-Agent"), "Mozilla/5.0"))

		w.Write([]byte(`{"chart": {"result": [{"meta": {"currency": "INR", "symbol": "RELIANCE.NS", "regularMarketPrice": 2954.75}}], "error": null}}`))
	}))
	defer srv.Close()

	price, err := newYahoo(srv.URL).Quote(context.Background(), "RELIANCE.NS")
	require.NoError(t, err)
	assert.Equal(t, 2954.75, price)
}

func TestYahooChartError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found"}}}`))
	}))
	defer srv.Close()

	_, err := newYahoo(srv.URL).Quote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestYahooEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart": {"result": [], "error": null}}`))
	}))
	defer srv.Close()

	_, err := newYahoo(srv.URL).Quote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestYahooZeroPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart": {"result": [{"meta": {"regularMarketPrice": 0}}], "error": null}}`))
	}))
	defer srv.Close()

	_, err := newYahoo(srv.URL).Quote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestYahooServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newYahoo(srv.URL).Quote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrUnavailable)
}
