package intent

import (
	"testing"

	"github.com/shopspring/decimal"

	"firecontrol/src/model"
)

func validIntent() *TradeIntent {
	return &TradeIntent{
		MissionID: " m-1 ",
		UserID:    7,
		Symbol:    " eurusd ",
		Direction: " BUY ",
	}
}

func TestNormalizeCleansFields(t *testing.T) {
	ti := validIntent()

	if err := ti.Normalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ti.MissionID != "m-1" {
		t.Fatalf("mission id not trimmed: %q", ti.MissionID)
	}
	if ti.Symbol != "EURUSD" {
		t.Fatalf("symbol not uppercased: %q", ti.Symbol)
	}
	if ti.Direction != DirectionBuy {
		t.Fatalf("direction not lowercased: %q", ti.Direction)
	}
	if ti.Mode != model.LeaseModeManual {
		t.Fatalf("empty mode must default to manual, got %q", ti.Mode)
	}
}

func TestNormalizeRejectsBadIntents(t *testing.T) {
	negative := decimal.RequireFromString("-1")

	tests := []struct {
		name   string
		mutate func(*TradeIntent)
	}{
		{"missing mission id", func(ti *TradeIntent) { ti.MissionID = " " }},
		{"missing user id", func(ti *TradeIntent) { ti.UserID = 0 }},
		{"missing symbol", func(ti *TradeIntent) { ti.Symbol = "" }},
		{"bad direction", func(ti *TradeIntent) { ti.Direction = "sideways" }},
		{"bad mode", func(ti *TradeIntent) { ti.Mode = "robot" }},
		{"negative entry", func(ti *TradeIntent) { ti.Entry = &negative }},
		{"negative stop pips", func(ti *TradeIntent) { ti.StopPips = &negative }},
		{"negative lots", func(ti *TradeIntent) { ti.Lots = &negative }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ti := validIntent()
			tt.mutate(ti)
			if err := ti.Normalize(); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestOpposite(t *testing.T) {
	if Opposite(DirectionBuy) != DirectionSell {
		t.Fatal("opposite of buy must be sell")
	}
	if Opposite(DirectionSell) != DirectionBuy {
		t.Fatal("opposite of sell must be buy")
	}
}
