package firecmd

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPipSize(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"EURUSD", "0.0001"},
		{"GBPUSD", "0.0001"},
		{"USDJPY", "0.01"},
		{"EURJPY", "0.01"},
		{"XAUUSD", "0.1"},
		{"XAGUSD", "0.01"},
		{"BTCUSDT", "1"},
		{"ETHBTC", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			got := PipSize(tt.symbol)
			want := decimal.RequireFromString(tt.want)
			if !got.Equal(want) {
				t.Fatalf("pip size mismatch. got=%s want=%s", got.String(), want.String())
			}
		})
	}
}

func TestPipValuePerLot(t *testing.T) {
	if got := PipValuePerLot("EURUSD"); !got.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("expected $10/pip for EURUSD, got %s", got.String())
	}
	if got := PipValuePerLot("XAGUSD"); !got.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("expected $50/pip for XAGUSD, got %s", got.String())
	}
}

func TestPipRoundTrip(t *testing.T) {
	// pips -> price -> pips must be stable across instrument classes.
	symbols := []string{"EURUSD", "USDJPY", "XAUUSD", "XAGUSD"}
	distances := []string{"1", "20", "37.5", "500"}

	for _, symbol := range symbols {
		for _, d := range distances {
			pips := decimal.RequireFromString(d)
			back := PriceToPips(symbol, PipsToPrice(symbol, pips))
			if !back.Equal(pips) {
				t.Fatalf("round trip unstable for %s %s pips. got=%s", symbol, d, back.String())
			}
		}
	}
}

func TestPriceToPips(t *testing.T) {
	// 0.0020 on a 4-decimal pair is 20 pips.
	got := PriceToPips("EURUSD", decimal.RequireFromString("0.0020"))
	if !got.Equal(decimal.RequireFromString("20")) {
		t.Fatalf("expected 20 pips, got %s", got.String())
	}

	// 0.50 on a JPY cross is 50 pips.
	got = PriceToPips("USDJPY", decimal.RequireFromString("0.50"))
	if !got.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("expected 50 pips, got %s", got.String())
	}
}
