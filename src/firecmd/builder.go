package firecmd

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"firecontrol/src/intent"
)

// ErrUnresolvedEntry means no entry price could be determined: the intent
// carried no absolute entry and no live price was available. Unlike
// missing stop/target levels this is not recoverable by fallback.
var ErrUnresolvedEntry = errors.New("no entry price resolvable for intent")

// FireCommand is the sized, leveled command handed to the dispatch queue.
// FireID equals the mission id, so repeated builds for one mission produce
// the same dispatch identity. Corrections lists every fallback the builder
// applied; a non-empty list means the command is safe but was not built
// exactly as requested.
type FireCommand struct {
	FireID    string `json:"fire_id"`
	AgentID   string `json:"agent_id"`
	UserID    uint   `json:"user_id"`
	Symbol    string `json:"symbol"`
	Direction string `json:"direction"`

	Entry  decimal.Decimal `json:"entry"`
	Stop   decimal.Decimal `json:"stop"`
	Target decimal.Decimal `json:"target"`
	Lots   decimal.Decimal `json:"lots"`

	RiskReward decimal.Decimal `json:"risk_reward"`

	Profile *StagedExitProfile `json:"profile,omitempty"`

	Corrections []string `json:"corrections,omitempty"`
}

// Builder converts trade intents into validated fire commands.
type Builder struct {
	minRR         decimal.Decimal
	minLot        decimal.Decimal
	maxLot        decimal.Decimal
	lotStep       decimal.Decimal
	fallbackStop  decimal.Decimal
	fallbackTgt   decimal.Decimal
	stagedFarPips decimal.Decimal
}

func NewBuilder(config Config) *Builder {
	return &Builder{
		minRR:         decimal.NewFromFloat(config.MinRiskReward),
		minLot:        decimal.NewFromFloat(config.MinLot),
		maxLot:        decimal.NewFromFloat(config.MaxLot),
		lotStep:       decimal.NewFromFloat(config.LotStep),
		fallbackStop:  decimal.NewFromFloat(config.FallbackStopPips),
		fallbackTgt:   decimal.NewFromFloat(config.FallbackTargetPips),
		stagedFarPips: decimal.NewFromFloat(config.StagedFarTargetPips),
	}
}

// Build derives safe, consistent trade parameters from an intent.
//
// Recoverable problems (missing stop/target, levels on the wrong side of
// the entry) are corrected to conservative fallbacks, logged at warn and
// recorded on the returned command's Corrections, never dropped silently.
// Only an unresolvable entry price fails the build.
func (b *Builder) Build(
	ti *intent.TradeIntent,
	agentID string,
	balance decimal.Decimal,
	riskFraction decimal.Decimal,
	livePrice *decimal.Decimal,
) (*FireCommand, error) {

	entry, err := resolveEntry(ti, livePrice)
	if err != nil {
		return nil, err
	}

	cmd := &FireCommand{
		FireID:    ti.MissionID,
		AgentID:   agentID,
		UserID:    ti.UserID,
		Symbol:    ti.Symbol,
		Direction: ti.Direction,
		Entry:     entry,
	}

	b.resolveLevels(ti, cmd)

	// Directional sanity: a command whose levels sit on the wrong side of
	// the entry must never reach the agent. Reset to fallback distances.
	if !levelsSane(cmd) {
		cmd.correct("levels failed directional sanity (entry=%s stop=%s target=%s), reset to fallback %s/%s pips",
			cmd.Entry, cmd.Stop, cmd.Target, b.fallbackStop, b.fallbackTgt)
		b.placeStop(cmd, b.fallbackStop)
		b.placeTarget(cmd, b.fallbackTgt)
	}

	stopPips := PriceToPips(ti.Symbol, cmd.Entry.Sub(cmd.Stop).Abs())
	targetPips := PriceToPips(ti.Symbol, cmd.Target.Sub(cmd.Entry).Abs())

	// Enforce the reward:risk floor by extending the target only; the
	// stop distance is never shrunk to fix a shortfall.
	if rr := targetPips.Div(stopPips); rr.LessThan(b.minRR) {
		extended := stopPips.Mul(b.minRR)
		cmd.correct("target extended from %s to %s pips to restore %s reward:risk",
			targetPips, extended, b.minRR)
		targetPips = extended
		b.placeTarget(cmd, targetPips)
	}

	cmd.RiskReward = targetPips.Div(stopPips)

	// A non-positive balance or risk fraction cannot size a position; the
	// minimum lot is dispatched but never silently.
	if balance.IsPositive() && riskFraction.IsPositive() {
		cmd.Lots = b.positionSize(ti.Symbol, balance, riskFraction, stopPips)
	} else {
		cmd.correct("non-positive balance %s or risk fraction %s, sized at minimum lot %s",
			balance, riskFraction, b.minLot)
		cmd.Lots = b.minLot
	}

	if ti.StagedExits {
		profile := ProfileFor(ti.Symbol)
		cmd.Profile = &profile
		// Stages become the effective exit; the target only backstops them.
		b.placeTarget(cmd, b.stagedFarPips)
	}

	for _, c := range cmd.Corrections {
		logger.WithFields(map[string]interface{}{
			"component":  "FireCommandBuilder",
			"mission_id": ti.MissionID,
			"symbol":     ti.Symbol,
		}).Warn(c)
	}

	return cmd, nil
}

func resolveEntry(ti *intent.TradeIntent, livePrice *decimal.Decimal) (decimal.Decimal, error) {
	if ti.Entry != nil {
		return *ti.Entry, nil
	}
	if livePrice != nil && livePrice.IsPositive() {
		return *livePrice, nil
	}
	return decimal.Zero, fmt.Errorf("%w: mission %s on %s", ErrUnresolvedEntry, ti.MissionID, ti.Symbol)
}

// resolveLevels fills in absolute stop and target: intent-provided levels
// win, pip distances are placed around the entry, anything still missing
// falls back conservatively.
func (b *Builder) resolveLevels(ti *intent.TradeIntent, cmd *FireCommand) {
	switch {
	case ti.Stop != nil:
		cmd.Stop = *ti.Stop
	case ti.StopPips != nil:
		b.placeStop(cmd, *ti.StopPips)
	default:
		cmd.correct("stop level unresolved, using fallback %s pips", b.fallbackStop)
		b.placeStop(cmd, b.fallbackStop)
	}

	switch {
	case ti.Target != nil:
		cmd.Target = *ti.Target
	case ti.TargetPips != nil:
		b.placeTarget(cmd, *ti.TargetPips)
	case ti.RiskReward != nil:
		stopPips := PriceToPips(ti.Symbol, cmd.Entry.Sub(cmd.Stop).Abs())
		b.placeTarget(cmd, stopPips.Mul(*ti.RiskReward))
	default:
		cmd.correct("target level unresolved, using fallback %s pips", b.fallbackTgt)
		b.placeTarget(cmd, b.fallbackTgt)
	}
}

// placeStop puts the stop the given pip distance on the losing side of the
// entry.
func (b *Builder) placeStop(cmd *FireCommand, pips decimal.Decimal) {
	dist := PipsToPrice(cmd.Symbol, pips)
	if cmd.Direction == intent.DirectionBuy {
		cmd.Stop = cmd.Entry.Sub(dist)
		return
	}
	cmd.Stop = cmd.Entry.Add(dist)
}

// placeTarget puts the target the given pip distance on the winning side
// of the entry.
func (b *Builder) placeTarget(cmd *FireCommand, pips decimal.Decimal) {
	dist := PipsToPrice(cmd.Symbol, pips)
	if cmd.Direction == intent.DirectionBuy {
		cmd.Target = cmd.Entry.Add(dist)
		return
	}
	cmd.Target = cmd.Entry.Sub(dist)
}

// levelsSane checks buy: stop < entry < target, sell: target < entry < stop.
func levelsSane(cmd *FireCommand) bool {
	if cmd.Direction == intent.DirectionBuy {
		return cmd.Stop.LessThan(cmd.Entry) && cmd.Entry.LessThan(cmd.Target)
	}
	return cmd.Target.LessThan(cmd.Entry) && cmd.Entry.LessThan(cmd.Stop)
}

// positionSize computes lot = (balance * risk_fraction) / (stop_pips *
// pip_value_per_lot), clamped to the lot bounds and rounded down to the
// broker's lot granularity.
func (b *Builder) positionSize(symbol string, balance, riskFraction, stopPips decimal.Decimal) decimal.Decimal {
	riskAmount := balance.Mul(riskFraction)
	perLotRisk := stopPips.Mul(PipValuePerLot(symbol))
	if perLotRisk.LessThanOrEqual(decimal.Zero) {
		return b.minLot
	}

	lots := riskAmount.Div(perLotRisk)
	lots = lots.Div(b.lotStep).Floor().Mul(b.lotStep)

	if lots.LessThan(b.minLot) {
		return b.minLot
	}
	if lots.GreaterThan(b.maxLot) {
		return b.maxLot
	}
	return lots
}

func (cmd *FireCommand) correct(format string, args ...interface{}) {
	cmd.Corrections = append(cmd.Corrections, fmt.Sprintf(format, args...))
}
