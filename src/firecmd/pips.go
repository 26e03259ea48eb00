package firecmd

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	pipStandard = decimal.RequireFromString("0.0001")
	pipJPY      = decimal.RequireFromString("0.01")
	pipGold     = decimal.RequireFromString("0.1")
	pipSilver   = decimal.RequireFromString("0.01")
	pipCrypto   = decimal.RequireFromString("1")

	pipValueDefault = decimal.RequireFromString("10")
	pipValueSilver  = decimal.RequireFromString("50")
)

// PipSize returns the price increment of one pip for the instrument.
// Standard pairs quote to 4 decimals, JPY crosses to 2, metals and crypto
// are instrument-specific.
func PipSize(symbol string) decimal.Decimal {
	switch symbol {
	case "XAUUSD":
		return pipGold
	case "XAGUSD":
		return pipSilver
	}
	if strings.HasSuffix(symbol, "JPY") {
		return pipJPY
	}
	if strings.HasSuffix(symbol, "USDT") || strings.HasSuffix(symbol, "BTC") {
		return pipCrypto
	}
	return pipStandard
}

// PipValuePerLot returns the quote-currency value of one pip for one
// standard lot.
func PipValuePerLot(symbol string) decimal.Decimal {
	if symbol == "XAGUSD" {
		return pipValueSilver
	}
	return pipValueDefault
}

// PipsToPrice converts a pip distance to a price distance.
func PipsToPrice(symbol string, pips decimal.Decimal) decimal.Decimal {
	return pips.Mul(PipSize(symbol))
}

// PriceToPips converts a price distance to a pip distance.
func PriceToPips(symbol string, distance decimal.Decimal) decimal.Decimal {
	return distance.Div(PipSize(symbol))
}
