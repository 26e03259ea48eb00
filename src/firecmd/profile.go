package firecmd

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ExitStage closes a percentage of the position once price has moved the
// trigger distance in the trade's favor.
type ExitStage struct {
	TriggerPips  decimal.Decimal `json:"trigger_pips"`
	ClosePercent decimal.Decimal `json:"close_percent"`
}

// StagedExitProfile is a deterministic schedule of partial closes, a
// breakeven move and a trailing stop. When attached to a command the
// target sits far beyond these stages, so the profile is the effective
// exit.
type StagedExitProfile struct {
	Stages          []ExitStage     `json:"stages"`
	MoveToBreakeven bool            `json:"move_to_breakeven"`
	BreakevenPips   decimal.Decimal `json:"breakeven_pips"`
	TrailPips       decimal.Decimal `json:"trail_pips"`
}

func stage(trigger, closePct string) ExitStage {
	return ExitStage{
		TriggerPips:  decimal.RequireFromString(trigger),
		ClosePercent: decimal.RequireFromString(closePct),
	}
}

// ProfileFor returns the staged-exit schedule for an instrument class.
// Metals run wider triggers than currency pairs; JPY crosses sit in
// between. The schedules are fixed so repeated builds for the same mission
// stay identical.
func ProfileFor(symbol string) StagedExitProfile {
	switch {
	case symbol == "XAUUSD" || symbol == "XAGUSD":
		return StagedExitProfile{
			Stages: []ExitStage{
				stage("30", "40"),
				stage("60", "30"),
				stage("100", "20"),
			},
			MoveToBreakeven: true,
			BreakevenPips:   decimal.RequireFromString("30"),
			TrailPips:       decimal.RequireFromString("25"),
		}
	case strings.HasSuffix(symbol, "JPY"):
		return StagedExitProfile{
			Stages: []ExitStage{
				stage("25", "50"),
				stage("50", "25"),
			},
			MoveToBreakeven: true,
			BreakevenPips:   decimal.RequireFromString("25"),
			TrailPips:       decimal.RequireFromString("20"),
		}
	default:
		return StagedExitProfile{
			Stages: []ExitStage{
				stage("20", "50"),
				stage("40", "25"),
				stage("70", "15"),
			},
			MoveToBreakeven: true,
			BreakevenPips:   decimal.RequireFromString("20"),
			TrailPips:       decimal.RequireFromString("15"),
		}
	}
}
