package services

import (
	"context"
	"errors"
	"time"

	"github.com/Abhay-hack/Asset-Pulse/internal/cache"
	"github.com/Abhay-hack/Asset-Pulse/internal/external"
	"github.com/Abhay-hack/Asset-Pulse/pkg/models"
	"github.com/sirupsen/logrus"
)

// CryptoSource fetches crypto spot prices in USD.
type CryptoSource interface {
	SpotPriceUSD(ctx context.Context, coinID string) (float64, error)
}

// EquitySource fetches equity quotes in the symbol's native currency.
type EquitySource interface {
	Quote(ctx context.Context, symbol string) (float64, error)
}

// RateSource provides the USD->INR conversion rate. It never fails; on
// upstream trouble it degrades to a fixed fallback rate.
type RateSource interface {
	USDToINR(ctx context.Context) float64
}

// PriceStore persists refreshed prices.
type PriceStore interface {
	UpdatePriceBySymbol(ctx context.Context, symbol string, price float64) error
}

// Publisher emits price-update events after a successful refresh.
type Publisher interface {
	PublishPriceUpdate(ctx context.Context, update models.PriceUpdate) error
}

const (
	sourceCoinGecko    = "coingecko"
	sourceAlphaVantage = "alpha_vantage"
	sourceYahoo        = "yahoo"
)

// Refresher prices batches of assets. For each symbol it decides whether to
// call upstream (force flag, cache freshness, rate budget), picks a provider
// by asset class, retries rate-limited primary calls with exponential
// backoff, falls back to the secondary equity provider once, converts
// USD-quoted prices to INR, and writes successful results back to the store
// and the cache.
type Refresher struct {
	classifier *AssetClassifier
	budget     *RateBudget
	cache      cache.PriceCache
	pacer      *Pacer

	crypto   CryptoSource
	primary  EquitySource
	fallback EquitySource
	fx       RateSource

	store     PriceStore
	publisher Publisher // optional

	maxAttempts int
	backoffBase time.Duration
	sleep       func(ctx context.Context, d time.Duration) error

	logger *logrus.Entry
}

// RefresherOptions bundles the orchestrator's dependencies.
type RefresherOptions struct {
	Classifier *AssetClassifier
	Budget     *RateBudget
	Cache      cache.PriceCache
	Pacer      *Pacer

	Crypto   CryptoSource
	Primary  EquitySource
	Fallback EquitySource
	FX       RateSource

	Store     PriceStore
	Publisher Publisher

	MaxAttempts int
	BackoffBase time.Duration
}

// NewRefresher creates a refresh orchestrator.
func NewRefresher(opts RefresherOptions, logger *logrus.Logger) *Refresher {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoffBase := opts.BackoffBase
	if backoffBase <= 0 {
		backoffBase = time.Minute
	}

	return &Refresher{
		classifier:  opts.Classifier,
		budget:      opts.Budget,
		cache:       opts.Cache,
		pacer:       opts.Pacer,
		crypto:      opts.Crypto,
		primary:     opts.Primary,
		fallback:    opts.Fallback,
		fx:          opts.FX,
		store:       opts.Store,
		publisher:   opts.Publisher,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		sleep:       sleepCtx,
		logger:      logger.WithField("component", "refresher"),
	}
}

// SetSleepFunc overrides the backoff sleep, used by tests.
func (r *Refresher) SetSleepFunc(sleep func(ctx context.Context, d time.Duration) error) {
	r.sleep = sleep
}

// PriceBatch resolves a price for every asset in the batch. The returned map
// always holds a value for each processed symbol: the freshly fetched price,
// the cached price, or the stored price, in that order of preference. When
// the context is cancelled mid-batch the partial result is returned along
// with the context error; prices already persisted stand.
func (r *Refresher) PriceBatch(ctx context.Context, assets []*models.Asset, force bool) (map[string]float64, error) {
	prices := make(map[string]float64, len(assets))

	for _, asset := range assets {
		if err := ctx.Err(); err != nil {
			return prices, err
		}
		prices[asset.Symbol] = r.priceOne(ctx, asset, force)
	}

	return prices, nil
}

func (r *Refresher) priceOne(ctx context.Context, asset *models.Asset, force bool) float64 {
	log := r.logger.WithField("symbol", asset.Symbol)

	if !force {
		return r.fallbackPrice(ctx, asset)
	}

	if price, age, ok := r.cache.Get(ctx, asset.Symbol); ok {
		log.WithFields(logrus.Fields{"price": price, "age": age}).Debug("Cache hit, skipping upstream")
		return price
	}

	cls := r.classifier.Classify(asset.Symbol)

	if cls.Class == models.AssetClassEquity && !r.budget.Allow() {
		log.Warn("Rate budget exhausted, using stored price")
		return r.fallbackPrice(ctx, asset)
	}

	price, source, err := r.fetch(ctx, cls)
	if err != nil {
		log.WithError(err).Warn("Price fetch failed, using stored price")
		return r.fallbackPrice(ctx, asset)
	}

	r.cache.Put(ctx, asset.Symbol, price)

	if err := r.store.UpdatePriceBySymbol(ctx, asset.Symbol, price); err != nil {
		log.WithError(err).Error("Failed to persist refreshed price")
	}

	r.publish(ctx, asset.Symbol, price, source)

	log.WithFields(logrus.Fields{"price": price, "source": source}).Info("Price refreshed")
	return price
}

// fetch performs the upstream call(s) for a classified symbol and returns
// the price in INR.
func (r *Refresher) fetch(ctx context.Context, cls models.Classification) (float64, string, error) {
	if cls.Class == models.AssetClassCrypto {
		usd, err := r.crypto.SpotPriceUSD(ctx, cls.CoinID)
		if err != nil {
			return 0, "", err
		}
		return usd * r.fx.USDToINR(ctx), sourceCoinGecko, nil
	}

	return r.fetchEquity(ctx, cls)
}

func (r *Refresher) fetchEquity(ctx context.Context, cls models.Classification) (float64, string, error) {
	// Inter-symbol pacing applies to primary-provider calls only.
	if err := r.pacer.Wait(ctx); err != nil {
		return 0, "", err
	}

	price, err := r.fetchPrimary(ctx, cls.RequestSymbol)
	source := sourceAlphaVantage
	if err != nil {
		if ctx.Err() != nil {
			return 0, "", ctx.Err()
		}

		r.logger.WithField("symbol", cls.Symbol).WithError(err).Info("Primary provider exhausted, trying fallback")

		price, err = r.fetchFallback(ctx, cls.RequestSymbol)
		if err != nil {
			return 0, "", err
		}
		source = sourceYahoo
	}

	if !cls.QuoteINR {
		price *= r.fx.USDToINR(ctx)
	}

	return price, source, nil
}

// fetchPrimary calls the primary equity provider with bounded retries. Only
// a rate-limit signal triggers backoff and retry; any other failure is
// terminal here and moves the caller to the fallback provider. One unit of
// rate budget is consumed per symbol-fetch once a request has reached the
// provider, regardless of the response.
func (r *Refresher) fetchPrimary(ctx context.Context, symbol string) (float64, error) {
	recorded := false

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		price, err := r.primary.Quote(ctx, symbol)

		if !recorded {
			r.budget.Record()
			recorded = true
		}

		if err == nil {
			return price, nil
		}
		if !errors.Is(err, external.ErrRateLimited) {
			return 0, err
		}
		if attempt == r.maxAttempts-1 {
			return 0, err
		}

		delay := r.backoffBase * (1 << attempt)
		r.logger.WithFields(logrus.Fields{
			"symbol":  symbol,
			"attempt": attempt + 1,
			"delay":   delay,
		}).Warn("Primary provider rate limited, backing off")

		if err := r.sleep(ctx, delay); err != nil {
			return 0, err
		}
	}

	return 0, external.ErrRateLimited
}

// fetchFallback performs the single secondary-provider attempt. The lookup
// runs in its own goroutine so a blocking call cannot stall the batch past
// context cancellation.
func (r *Refresher) fetchFallback(ctx context.Context, symbol string) (float64, error) {
	type result struct {
		price float64
		err   error
	}

	ch := make(chan result, 1)
	go func() {
		price, err := r.fallback.Quote(ctx, symbol)
		ch <- result{price: price, err: err}
	}()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		return res.price, res.err
	}
}

// fallbackPrice returns the cached value when present (stale included), else
// the stored price. An existing asset therefore always resolves to a value.
func (r *Refresher) fallbackPrice(ctx context.Context, asset *models.Asset) float64 {
	if price, ok := r.cache.GetAny(ctx, asset.Symbol); ok {
		return price
	}
	return asset.Price
}

func (r *Refresher) publish(ctx context.Context, symbol string, price float64, source string) {
	if r.publisher == nil {
		return
	}

	update := models.PriceUpdate{
		Symbol:    symbol,
		Price:     price,
		Currency:  "INR",
		Source:    source,
		Timestamp: time.Now(),
	}

	if err := r.publisher.PublishPriceUpdate(ctx, update); err != nil {
		r.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to publish price update")
	}
}
