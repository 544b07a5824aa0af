package models

import (
	"time"
)

// AssetClass represents the type of financial asset
type AssetClass string

const (
	AssetClassCrypto AssetClass = "crypto"
	AssetClassEquity AssetClass = "equity"
)

// Asset represents a tracked financial instrument with its latest price.
// Prices are stored in INR.
type Asset struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	IsFavorite bool      `json:"is_favorite"`
	CreatedAt  time.Time `json:"created_at"`
}

// Classification is the resolved asset class of a symbol together with
// everything the provider clients need to request a quote for it.
type Classification struct {
	Symbol string     `json:"symbol"`
	Class  AssetClass `json:"class"`

	// CoinID is the provider coin identifier, set for crypto only.
	CoinID string `json:"coin_id,omitempty"`

	// RequestSymbol is the ticker as sent to the equity quote endpoint,
	// including any exchange suffix (e.g. RELIANCE.NS).
	RequestSymbol string `json:"request_symbol,omitempty"`

	// Market is the resolved exchange/market code for equities.
	Market string `json:"market,omitempty"`

	// QuoteINR marks symbols whose upstream quote is already INR-denominated
	// and must not be converted.
	QuoteINR bool `json:"quote_inr,omitempty"`
}

// PriceUpdate is the event published after a successful refresh.
type PriceUpdate struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}
