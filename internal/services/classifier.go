package services

import (
	"regexp"
	"strings"

	"github.com/Abhay-hack/Asset-Pulse/pkg/models"
)

// Market codes used for classified equities.
const (
	MarketUS  = "US"
	MarketNSE = "NSE"
)

// nseSuffix is appended to NSE tickers for the quote request.
const nseSuffix = ".NS"

var alphabeticTicker = regexp.MustCompile(`^[A-Z]{1,5}$`)

// AssetClassifier resolves a raw symbol into a Classification through an
// explicitly ordered rule chain over injectable lookup tables. The chain is
// total: every symbol resolves to crypto or some equity variant.
type AssetClassifier struct {
	cryptoIDs  map[string]string
	usEquities map[string]bool
	nseEquities map[string]bool
}

type classifierRule func(symbol string) (models.Classification, bool)

// NewAssetClassifier creates a classifier seeded with the built-in symbol
// tables.
func NewAssetClassifier() *AssetClassifier {
	return &AssetClassifier{
		cryptoIDs:   defaultCryptoIDs(),
		usEquities:  defaultUSEquities(),
		nseEquities: defaultNSEEquities(),
	}
}

// WithCrypto adds or overrides a crypto symbol mapping. It doubles as the
// per-symbol override hook for ambiguous tickers.
func (ac *AssetClassifier) WithCrypto(symbol, coinID string) *AssetClassifier {
	ac.cryptoIDs[strings.ToUpper(symbol)] = coinID
	return ac
}

// WithEquity adds or overrides an equity symbol for a market.
func (ac *AssetClassifier) WithEquity(symbol, market string) *AssetClassifier {
	symbol = strings.ToUpper(symbol)
	switch market {
	case MarketNSE:
		ac.nseEquities[symbol] = true
	default:
		ac.usEquities[symbol] = true
	}
	return ac
}

// Classify resolves the asset class of a symbol. The rules run in order:
// crypto table, known US equities, known NSE equities, bounded alphabetic
// pattern (US guess), and finally an NSE-suffixed regional guess.
func (ac *AssetClassifier) Classify(symbol string) models.Classification {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	rules := []classifierRule{
		ac.matchCrypto,
		ac.matchKnownUS,
		ac.matchKnownNSE,
		ac.matchAlphabeticUS,
	}

	for _, rule := range rules {
		if cls, ok := rule(symbol); ok {
			return cls
		}
	}

	// Last resort: assume a regional listing and append the NSE suffix.
	return models.Classification{
		Symbol:        symbol,
		Class:         models.AssetClassEquity,
		RequestSymbol: symbol + nseSuffix,
		Market:        MarketNSE,
		QuoteINR:      true,
	}
}

func (ac *AssetClassifier) matchCrypto(symbol string) (models.Classification, bool) {
	coinID, ok := ac.cryptoIDs[symbol]
	if !ok {
		return models.Classification{}, false
	}
	return models.Classification{
		Symbol: symbol,
		Class:  models.AssetClassCrypto,
		CoinID: coinID,
	}, true
}

func (ac *AssetClassifier) matchKnownUS(symbol string) (models.Classification, bool) {
	if !ac.usEquities[symbol] {
		return models.Classification{}, false
	}
	return models.Classification{
		Symbol:        symbol,
		Class:         models.AssetClassEquity,
		RequestSymbol: symbol,
		Market:        MarketUS,
	}, true
}

func (ac *AssetClassifier) matchKnownNSE(symbol string) (models.Classification, bool) {
	base := strings.TrimSuffix(symbol, nseSuffix)
	if !ac.nseEquities[base] {
		return models.Classification{}, false
	}
	return models.Classification{
		Symbol:        symbol,
		Class:         models.AssetClassEquity,
		RequestSymbol: base + nseSuffix,
		Market:        MarketNSE,
		QuoteINR:      true,
	}, true
}

func (ac *AssetClassifier) matchAlphabeticUS(symbol string) (models.Classification, bool) {
	if !alphabeticTicker.MatchString(symbol) {
		return models.Classification{}, false
	}
	return models.Classification{
		Symbol:        symbol,
		Class:         models.AssetClassEquity,
		RequestSymbol: symbol,
		Market:        MarketUS,
	}, true
}

// defaultCryptoIDs maps tickers to CoinGecko coin identifiers.
func defaultCryptoIDs() map[string]string {
	return map[string]string{
		"BTC":   "bitcoin",
		"ETH":   "ethereum",
		"BNB":   "binancecoin",
		"XRP":   "ripple",
		"ADA":   "cardano",
		"DOGE":  "dogecoin",
		"SOL":   "solana",
		"DOT":   "polkadot",
		"MATIC": "matic-network",
		"SHIB":  "shiba-inu",
		"AVAX":  "avalanche-2",
		"LINK":  "chainlink",
		"ATOM":  "cosmos",
		"LTC":   "litecoin",
		"UNI":   "uniswap",
		"XLM":   "stellar",
	}
}

func defaultUSEquities() map[string]bool {
	symbols := []string{
		"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA",
		"META", "NVDA", "JPM", "V", "JNJ",
		"WMT", "PG", "DIS", "MA", "NFLX",
	}
	set := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		set[s] = true
	}
	return set
}

func defaultNSEEquities() map[string]bool {
	symbols := []string{
		"RELIANCE", "TCS", "INFY", "HDFCBANK", "ICICIBANK",
		"SBIN", "WIPRO", "ITC", "BHARTIARTL", "TATAMOTORS",
	}
	set := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		set[s] = true
	}
	return set
}
