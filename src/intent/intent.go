package intent

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"firecontrol/src/model"
)

const (
	DirectionBuy  = "buy"
	DirectionSell = "sell"
)

// TradeIntent is a proposed trade produced by the upstream signal subsystem.
// Levels may arrive as absolute prices or as pip distances; Normalize is the
// single place where the payload is validated, after which the intent is
// treated as immutable.
type TradeIntent struct {
	MissionID string `json:"mission_id"`
	UserID    uint   `json:"user_id"`
	Symbol    string `json:"symbol"`
	Direction string `json:"direction"`
	Mode      string `json:"mode"`

	Entry  *decimal.Decimal `json:"entry,omitempty"`
	Stop   *decimal.Decimal `json:"stop,omitempty"`
	Target *decimal.Decimal `json:"target,omitempty"`

	StopPips   *decimal.Decimal `json:"stop_pips,omitempty"`
	TargetPips *decimal.Decimal `json:"target_pips,omitempty"`

	RiskReward *decimal.Decimal `json:"risk_reward,omitempty"`
	Lots       *decimal.Decimal `json:"lots,omitempty"`

	StagedExits bool `json:"staged_exits"`
}

// Normalize cleans up and validates an intent as it enters the system.
// Everything downstream relies on this having run exactly once.
func (ti *TradeIntent) Normalize() error {
	ti.MissionID = strings.TrimSpace(ti.MissionID)
	ti.Symbol = strings.ToUpper(strings.TrimSpace(ti.Symbol))
	ti.Direction = strings.ToLower(strings.TrimSpace(ti.Direction))
	ti.Mode = strings.ToLower(strings.TrimSpace(ti.Mode))

	if ti.MissionID == "" {
		return fmt.Errorf("intent missing mission_id")
	}
	if ti.UserID == 0 {
		return fmt.Errorf("intent missing user_id")
	}
	if ti.Symbol == "" {
		return fmt.Errorf("intent missing symbol")
	}
	if ti.Direction != DirectionBuy && ti.Direction != DirectionSell {
		return fmt.Errorf("intent direction %q is not buy or sell", ti.Direction)
	}

	if ti.Mode == "" {
		ti.Mode = model.LeaseModeManual
	}
	if ti.Mode != model.LeaseModeManual && ti.Mode != model.LeaseModeAuto {
		return fmt.Errorf("intent mode %q is not manual or auto", ti.Mode)
	}

	for name, v := range map[string]*decimal.Decimal{
		"entry":  ti.Entry,
		"stop":   ti.Stop,
		"target": ti.Target,
	} {
		if v != nil && v.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("intent %s must be positive, got %s", name, v.String())
		}
	}

	for name, v := range map[string]*decimal.Decimal{
		"stop_pips":   ti.StopPips,
		"target_pips": ti.TargetPips,
		"risk_reward": ti.RiskReward,
		"lots":        ti.Lots,
	} {
		if v != nil && v.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("intent %s must be positive, got %s", name, v.String())
		}
	}

	return nil
}

// Opposite returns the opposing direction.
func Opposite(direction string) string {
	if direction == DirectionBuy {
		return DirectionSell
	}
	return DirectionBuy
}
