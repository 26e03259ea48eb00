package pricefeed

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// Source resolves a live price for an instrument. Used when an intent
// requests a market entry without carrying an absolute entry price.
type Source interface {
	LastPrice(symbol string) (decimal.Decimal, error)
}

// BinanceSource reads last-trade prices from the Binance public ticker via
// goex. It only understands crypto instruments quoted in the configured
// quote currency; forex and metal intents must carry their own entry.
type BinanceSource struct {
	exchange goex.API
	quote    string
}

func NewBinanceSource(config Config) *BinanceSource {
	apiConfig := &goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   binance.GLOBAL_API_BASE_URL,
	}

	return &BinanceSource{
		exchange: binance.NewWithConfig(apiConfig),
		quote:    config.DefaultQuote,
	}
}

// LastPrice fetches the current last price for a crypto symbol such as
// BTCUSDT or ETHUSDT.
func (s *BinanceSource) LastPrice(symbol string) (decimal.Decimal, error) {
	base, ok := s.splitSymbol(symbol)
	if !ok {
		return decimal.Zero, fmt.Errorf("no live price source for %s", symbol)
	}

	pair := goex.NewCurrencyPair(
		goex.Currency{Symbol: base},
		goex.Currency{Symbol: s.quote},
	)

	ticker, err := s.exchange.GetTicker(pair)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"component": "BinanceSource",
			"symbol":    symbol,
		}).WithError(err).Error("Failed to fetch ticker")

		return decimal.Zero, fmt.Errorf("ticker for %s: %w", symbol, err)
	}

	return decimal.NewFromFloat(ticker.Last), nil
}

func (s *BinanceSource) splitSymbol(symbol string) (string, bool) {
	if !strings.HasSuffix(symbol, s.quote) {
		return "", false
	}
	base := strings.TrimSuffix(symbol, s.quote)
	if base == "" {
		return "", false
	}
	return base, true
}
