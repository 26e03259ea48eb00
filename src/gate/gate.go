package gate

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"firecontrol/src/repository"
)

// Gate policies for opposite-direction intents. Block is the only
// production-grade default; the other two are advisory extensions.
const (
	PolicyBlock             = "block"
	PolicyReduceOnly        = "reduce_only"
	PolicyAutoCloseOpposite = "auto_close_opposite"
)

// Verdict actions.
const (
	ActionOpen   = "OPEN"
	ActionReduce = "REDUCE"
	ActionFlip   = "FLIP"
	ActionBlock  = "BLOCK"
)

// Verdict is the gate's pure decision for a proposed trade. Callers act on
// it; the gate itself has no side effects.
type Verdict struct {
	Action       string          `json:"action"`
	Rationale    string          `json:"rationale"`
	NetLots      decimal.Decimal `json:"net_lots"`
	NetDirection string          `json:"net_direction,omitempty"`
}

// ExposureSource provides the authoritative net position for a user on a
// symbol.
type ExposureSource interface {
	NetExposure(ctx context.Context, userID uint, symbol string) (repository.Exposure, error)
}

// Gate classifies a proposed trade against the user's current exposure.
// Decisions for the same symbol serialize on a per-symbol lock so two
// concurrent requests cannot both act on the same stale snapshot.
type Gate struct {
	policy string
	source ExposureSource
	cache  *exposureCache
	locks  *lockTable
}

func New(source ExposureSource, config Config) *Gate {
	policy := config.Policy
	switch policy {
	case PolicyBlock, PolicyReduceOnly, PolicyAutoCloseOpposite:
	default:
		logger.WithField("policy", policy).Warn("Unknown gate policy, falling back to block")
		policy = PolicyBlock
	}

	return &Gate{
		policy: policy,
		source: source,
		cache:  newExposureCache(config.CacheTTL),
		locks:  newLockTable(),
	}
}

// Decide classifies the proposed trade as OPEN, REDUCE, FLIP or BLOCK.
// The symbol lock is held only for the exposure read and the decision,
// never across lease or dispatch steps.
func (g *Gate) Decide(
	ctx context.Context,
	userID uint,
	symbol string,
	direction string,
	lots decimal.Decimal,
) (Verdict, error) {

	lock := g.locks.lockFor(symbol)
	lock.Lock()
	defer lock.Unlock()

	exposure, ok := g.cache.get(userID, symbol)
	if !ok {
		fresh, err := g.source.NetExposure(ctx, userID, symbol)
		if err != nil {
			return Verdict{}, fmt.Errorf("exposure refresh for %s: %w", symbol, err)
		}
		g.cache.put(userID, symbol, fresh)
		exposure = fresh
	}

	verdict := g.classify(exposure, direction, lots)

	logger.WithFields(map[string]interface{}{
		"component": "Gate",
		"user_id":   userID,
		"symbol":    symbol,
		"direction": direction,
		"action":    verdict.Action,
		"net_lots":  verdict.NetLots.String(),
	}).Debug("Gate decision")

	return verdict, nil
}

// Invalidate drops the cached snapshot for a (user, symbol) pair. Callers
// that just changed exposure use this so the next decision re-reads the
// store.
func (g *Gate) Invalidate(userID uint, symbol string) {
	g.cache.invalidate(userID, symbol)
}

func (g *Gate) classify(exposure repository.Exposure, direction string, lots decimal.Decimal) Verdict {
	if exposure.Flat() || exposure.Direction == direction {
		return Verdict{
			Action:       ActionOpen,
			Rationale:    "no opposing exposure",
			NetLots:      exposure.NetLots,
			NetDirection: exposure.Direction,
		}
	}

	// Exposure opposes the requested direction.
	switch g.policy {
	case PolicyReduceOnly:
		if lots.IsPositive() && lots.LessThanOrEqual(exposure.NetLots) {
			return Verdict{
				Action:       ActionReduce,
				Rationale:    fmt.Sprintf("reduces %s %s exposure of %s lots", exposure.Direction, exposure.Symbol, exposure.NetLots),
				NetLots:      exposure.NetLots,
				NetDirection: exposure.Direction,
			}
		}
		return Verdict{
			Action:       ActionBlock,
			Rationale:    fmt.Sprintf("requested %s lots exceed reducible %s exposure of %s lots", lots, exposure.Direction, exposure.NetLots),
			NetLots:      exposure.NetLots,
			NetDirection: exposure.Direction,
		}

	case PolicyAutoCloseOpposite:
		return Verdict{
			Action:       ActionFlip,
			Rationale:    fmt.Sprintf("opposite %s exposure of %s lots must be closed first", exposure.Direction, exposure.NetLots),
			NetLots:      exposure.NetLots,
			NetDirection: exposure.Direction,
		}

	default:
		return Verdict{
			Action:       ActionBlock,
			Rationale:    fmt.Sprintf("anti-hedging: net %s exposure of %s lots on %s", exposure.Direction, exposure.NetLots, exposure.Symbol),
			NetLots:      exposure.NetLots,
			NetDirection: exposure.Direction,
		}
	}
}
