package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Abhay-hack/Asset-Pulse/internal/database"
	"github.com/Abhay-hack/Asset-Pulse/pkg/config"
	"github.com/Abhay-hack/Asset-Pulse/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	assets    []*models.Asset
	insertErr error
	healthErr error
}

func (f *fakeStore) ListAssets(context.Context) ([]*models.Asset, error) {
	return f.assets, nil
}

func (f *fakeStore) ListFavorites(context.Context) ([]*models.Asset, error) {
	var favorites []*models.Asset
	for _, a := range f.assets {
		if a.IsFavorite {
			favorites = append(favorites, a)
		}
	}
	return favorites, nil
}

func (f *fakeStore) InsertAsset(_ context.Context, name, symbol string, price float64, isFavorite bool) (*models.Asset, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	asset := &models.Asset{
		ID:         int64(len(f.assets) + 1),
		Name:       name,
		Symbol:     strings.ToUpper(symbol),
		Price:      price,
		IsFavorite: isFavorite,
		CreatedAt:  time.Now(),
	}
	f.assets = append(f.assets, asset)
	return asset, nil
}

func (f *fakeStore) ToggleFavorite(_ context.Context, id int64) (*models.Asset, error) {
	for _, a := range f.assets {
		if a.ID == id {
			a.IsFavorite = !a.IsFavorite
			return a, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeStore) Health(context.Context) error {
	return f.healthErr
}

type fakeRefresher struct {
	prices     map[string]float64
	forced     []bool
	batchSizes []int
}

func (f *fakeRefresher) PriceBatch(_ context.Context, assets []*models.Asset, force bool) (map[string]float64, error) {
	f.forced = append(f.forced, force)
	f.batchSizes = append(f.batchSizes, len(assets))

	prices := make(map[string]float64)
	for _, a := range assets {
		if p, ok := f.prices[a.Symbol]; ok {
			prices[a.Symbol] = p
		} else {
			prices[a.Symbol] = a.Price
		}
	}
	return prices, nil
}

func newTestServer(store *fakeStore, refresher *fakeRefresher) *Server {
	cfg := &config.Config{}
	cfg.Security.CORSEnabled = false

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return NewServer(cfg, log, store, refresher)
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestRootBanner(t *testing.T) {
	s := newTestServer(&fakeStore{}, &fakeRefresher{})

	rec := doRequest(t, s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["message"], "running")
}

func TestHealthOK(t *testing.T) {
	s := newTestServer(&fakeStore{}, &fakeRefresher{})

	rec := doRequest(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "connected", body["db"])
}

func TestHealthDatabaseDown(t *testing.T) {
	s := newTestServer(&fakeStore{healthErr: context.DeadlineExceeded}, &fakeRefresher{})

	rec := doRequest(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "error", body["status"])
}

func TestListAssetsEmpty(t *testing.T) {
	s := newTestServer(&fakeStore{}, &fakeRefresher{})

	rec := doRequest(t, s, http.MethodGet, "/assets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestListAssetsOverlaysPrices(t *testing.T) {
	store := &fakeStore{assets: []*models.Asset{
		{ID: 1, Name: "Apple", Symbol: "AAPL", Price: 100},
	}}
	refresher := &fakeRefresher{prices: map[string]float64{"AAPL": 16000}}
	s := newTestServer(store, refresher)

	rec := doRequest(t, s, http.MethodGet, "/assets", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var assets []*models.Asset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assets))
	require.Len(t, assets, 1)
	assert.Equal(t, 16000.0, assets[0].Price)

	// Without ?refresh the batch must not force upstream calls.
	require.Equal(t, []bool{false}, refresher.forced)
}

func TestListAssetsRefreshQueryForcesBatch(t *testing.T) {
	store := &fakeStore{assets: []*models.Asset{
		{ID: 1, Name: "Apple", Symbol: "AAPL", Price: 100},
	}}
	refresher := &fakeRefresher{}
	s := newTestServer(store, refresher)

	rec := doRequest(t, s, http.MethodGet, "/assets?refresh=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []bool{true}, refresher.forced)
}

func TestCreateAsset(t *testing.T) {
	s := newTestServer(&fakeStore{}, &fakeRefresher{})

	rec := doRequest(t, s, http.MethodPost, "/assets", `{"name": "Bitcoin", "symbol": "btc", "price": 4800000}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var asset models.Asset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &asset))
	assert.Equal(t, "BTC", asset.Symbol)
	assert.Equal(t, 4800000.0, asset.Price)
}

func TestCreateAssetValidation(t *testing.T) {
	s := newTestServer(&fakeStore{}, &fakeRefresher{})

	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"symbol": "BTC", "price": 100}`},
		{"missing symbol", `{"name": "Bitcoin", "price": 100}`},
		{"whitespace symbol", `{"name": "Bitcoin", "symbol": "  ", "price": 100}`},
		{"zero price", `{"name": "Bitcoin", "symbol": "BTC", "price": 0}`},
		{"negative price", `{"name": "Bitcoin", "symbol": "BTC", "price": -5}`},
		{"malformed json", `{`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/assets", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateAssetConflict(t *testing.T) {
	s := newTestServer(&fakeStore{insertErr: database.ErrConflict}, &fakeRefresher{})

	rec := doRequest(t, s, http.MethodPost, "/assets", `{"name": "Bitcoin", "symbol": "BTC", "price": 100}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "BTC")
}

func TestToggleFavorite(t *testing.T) {
	store := &fakeStore{assets: []*models.Asset{
		{ID: 1, Name: "Apple", Symbol: "AAPL", Price: 100},
	}}
	s := newTestServer(store, &fakeRefresher{})

	rec := doRequest(t, s, http.MethodPatch, "/assets/1/favorite", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var asset models.Asset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &asset))
	assert.True(t, asset.IsFavorite)

	// A second toggle flips it back.
	rec = doRequest(t, s, http.MethodPatch, "/assets/1/favorite", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &asset))
	assert.False(t, asset.IsFavorite)
}

func TestToggleFavoriteNotFound(t *testing.T) {
	s := newTestServer(&fakeStore{}, &fakeRefresher{})

	rec := doRequest(t, s, http.MethodPatch, "/assets/99/favorite", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToggleFavoriteBadID(t *testing.T) {
	s := newTestServer(&fakeStore{}, &fakeRefresher{})

	rec := doRequest(t, s, http.MethodPatch, "/assets/abc/favorite", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFavoritesEndToEnd(t *testing.T) {
	s := newTestServer(&fakeStore{}, &fakeRefresher{})

	rec := doRequest(t, s, http.MethodPost, "/assets", `{"name": "Bitcoin", "symbol": "BTC", "price": 100}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/favorites", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = doRequest(t, s, http.MethodPatch, "/assets/1/favorite", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/favorites", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var favorites []*models.Asset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &favorites))
	require.Len(t, favorites, 1)
	assert.Equal(t, "BTC", favorites[0].Symbol)
	assert.True(t, favorites[0].IsFavorite)
}

func TestListFavorites(t *testing.T) {
	store := &fakeStore{assets: []*models.Asset{
		{ID: 1, Name: "Apple", Symbol: "AAPL", Price: 100, IsFavorite: true},
		{ID: 2, Name: "Bitcoin", Symbol: "BTC", Price: 200},
	}}
	refresher := &fakeRefresher{}
	s := newTestServer(store, refresher)

	rec := doRequest(t, s, http.MethodGet, "/favorites", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var assets []*models.Asset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assets))
	require.Len(t, assets, 1)
	assert.Equal(t, "AAPL", assets[0].Symbol)

	// Favorites share the pricing path with the full listing.
	require.Equal(t, []int{1}, refresher.batchSizes)
}
