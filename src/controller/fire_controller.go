package controller

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"firecontrol/src/dispatch"
	"firecontrol/src/firecmd"
	"firecontrol/src/gate"
	"firecontrol/src/intent"
	"firecontrol/src/model"
	"firecontrol/src/slots"
)

// UserSource resolves the owning account for an intent.
type UserSource interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// BalanceSource provides the latest reported balance for an agent.
// Returns (nil, nil) when the agent has never pushed a snapshot.
type BalanceSource interface {
	LatestBalance(ctx context.Context, agentID string) (*float64, error)
}

// MirrorSink records how a mission's lease ended.
type MirrorSink interface {
	Mark(ctx context.Context, missionID string, userID uint, ticket uint, marker string, detail string) error
}

// ExceptionSink persists audit rows for failures worth keeping.
type ExceptionSink interface {
	Record(ctx context.Context, module, method, level, message string, userID uint, missionID string)
}

// FireController drives an intent through the full admission pipeline:
// gate verdict, slot lease, command build, dispatch. The lease is the only
// state acquired along the way, so every failure after occupy runs a
// compensating release before the error surfaces.
type FireController struct {
	users      UserSource
	balances   BalanceSource
	mirrors    MirrorSink
	exceptions ExceptionSink

	gate       *gate.Gate
	slots      *slots.Manager
	builder    *firecmd.Builder
	dispatcher dispatch.Dispatcher
	prices     PriceSource

	defaultRiskFraction decimal.Decimal
}

// PriceSource provides a live price when the intent carries no entry.
type PriceSource interface {
	LastPrice(symbol string) (decimal.Decimal, error)
}

func NewFireController(
	users UserSource,
	balances BalanceSource,
	mirrors MirrorSink,
	exceptions ExceptionSink,
	g *gate.Gate,
	manager *slots.Manager,
	builder *firecmd.Builder,
	dispatcher dispatch.Dispatcher,
	prices PriceSource,
	defaultRiskFraction float64,
) *FireController {

	return &FireController{
		users:               users,
		balances:            balances,
		mirrors:             mirrors,
		exceptions:          exceptions,
		gate:                g,
		slots:               manager,
		builder:             builder,
		dispatcher:          dispatcher,
		prices:              prices,
		defaultRiskFraction: decimal.NewFromFloat(defaultRiskFraction),
	}
}

// Fire runs the admission pipeline for one normalized intent. On success
// the built command has been handed to the dispatch queue and the lease is
// held until the mission closes or the sweep reclaims it.
func (c *FireController) Fire(ctx context.Context, ti *intent.TradeIntent) (*firecmd.FireCommand, error) {
	user, err := c.users.FindByID(ctx, ti.UserID)
	if err != nil {
		return nil, fmt.Errorf("user lookup for intent %s: %w", ti.MissionID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d not found for intent %s", ti.UserID, ti.MissionID)
	}

	requested := decimal.Zero
	if ti.Lots != nil {
		requested = *ti.Lots
	}

	verdict, err := c.gate.Decide(ctx, ti.UserID, ti.Symbol, ti.Direction, requested)
	if err != nil {
		return nil, err
	}

	switch verdict.Action {
	case gate.ActionOpen, gate.ActionReduce:
		// admitted
	default:
		// FLIP surfaces as a block too: closing the opposite exposure is
		// the caller's move, this controller never closes positions.
		return nil, &DirectionBlockedError{
			UserID:    ti.UserID,
			Symbol:    ti.Symbol,
			Direction: ti.Direction,
			Action:    verdict.Action,
			Rationale: verdict.Rationale,
		}
	}

	lots := 0.0
	if ti.Lots != nil {
		lots, _ = ti.Lots.Float64()
	}

	ok, err := c.slots.Occupy(ctx, ti.UserID, ti.MissionID, ti.Symbol, ti.Mode, user.Tier, lots)
	if err != nil {
		return nil, fmt.Errorf("slot occupy for intent %s: %w", ti.MissionID, err)
	}
	if !ok {
		return nil, &AdmissionRejectedError{
			UserID:    ti.UserID,
			MissionID: ti.MissionID,
			Mode:      ti.Mode,
			Tier:      user.Tier,
		}
	}

	// buildCommand already types its failures: bad levels come back as
	// InvalidLevelsError, a never-reported balance as MissingBalanceError,
	// and store read failures stay plain infrastructure errors.
	cmd, err := c.buildCommand(ctx, ti, user)
	if err != nil {
		c.compensate(ctx, ti, "buildCommand", err)
		return nil, err
	}

	if err := c.dispatcher.Enqueue(ctx, cmd); err != nil {
		released := c.compensate(ctx, ti, "Enqueue", err)
		return nil, &DispatchFailureError{MissionID: ti.MissionID, LeaseReleased: released, Err: err}
	}

	// Exposure changed, so the next gate decision must re-read the store.
	c.gate.Invalidate(ti.UserID, ti.Symbol)

	logger.WithFields(map[string]interface{}{
		"component":  "FireController",
		"mission_id": ti.MissionID,
		"user_id":    ti.UserID,
		"symbol":     ti.Symbol,
		"direction":  ti.Direction,
		"lots":       cmd.Lots.String(),
		"action":     verdict.Action,
	}).Info("Fire command dispatched")

	return cmd, nil
}

func (c *FireController) buildCommand(
	ctx context.Context,
	ti *intent.TradeIntent,
	user *model.User,
) (*firecmd.FireCommand, error) {

	balanceValue, err := c.balances.LatestBalance(ctx, user.AgentID)
	if err != nil {
		return nil, fmt.Errorf("balance lookup for agent %s: %w", user.AgentID, err)
	}
	if balanceValue == nil {
		return nil, &MissingBalanceError{UserID: ti.UserID, AgentID: user.AgentID, MissionID: ti.MissionID}
	}
	balance := decimal.NewFromFloat(*balanceValue)

	riskFraction := c.defaultRiskFraction
	if user.RiskFraction > 0 {
		riskFraction = decimal.NewFromFloat(user.RiskFraction)
	}

	var livePrice *decimal.Decimal
	if ti.Entry == nil && c.prices != nil {
		price, err := c.prices.LastPrice(ti.Symbol)
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"component": "FireController",
				"symbol":    ti.Symbol,
			}).WithError(err).Warn("Live price unavailable")
		} else {
			livePrice = &price
		}
	}

	cmd, err := c.builder.Build(ti, user.AgentID, balance, riskFraction, livePrice)
	if err != nil {
		return nil, &InvalidLevelsError{MissionID: ti.MissionID, Symbol: ti.Symbol, Err: err}
	}
	return cmd, nil
}

// compensate releases the lease acquired earlier in the pipeline and
// records the failure. Returns whether the release actually closed a lease.
func (c *FireController) compensate(ctx context.Context, ti *intent.TradeIntent, method string, cause error) bool {
	c.exceptions.Record(ctx, "FireController", method, "error", cause.Error(), ti.UserID, ti.MissionID)

	released, err := c.slots.Release(ctx, ti.UserID, ti.MissionID)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"component":  "FireController",
			"mission_id": ti.MissionID,
			"user_id":    ti.UserID,
		}).WithError(err).Error("Compensating lease release failed, slot leaked until sweep")
		return false
	}
	return released
}

// ReleaseOnClose frees the mission's slot after the caller reports the
// position closed. Idempotent; a second call is a no-op.
func (c *FireController) ReleaseOnClose(ctx context.Context, userID uint, missionID string) (bool, error) {
	released, err := c.slots.Release(ctx, userID, missionID)
	if err != nil {
		return false, err
	}
	if released {
		if err := c.mirrors.Mark(ctx, missionID, userID, 0, model.MirrorClosedByCaller, "released by close report"); err != nil {
			logger.WithField("mission_id", missionID).WithError(err).Warn("Mirror update failed on close")
		}
	}
	return released, nil
}

// ForceRelease is the operator escape hatch for a stuck lease.
func (c *FireController) ForceRelease(ctx context.Context, userID uint, missionID string, operator string) (bool, error) {
	released, err := c.slots.Release(ctx, userID, missionID)
	if err != nil {
		return false, err
	}
	if released {
		detail := fmt.Sprintf("force released by operator %s", operator)
		if err := c.mirrors.Mark(ctx, missionID, userID, 0, model.MirrorForceReleasedOperator, detail); err != nil {
			logger.WithField("mission_id", missionID).WithError(err).Warn("Mirror update failed on force release")
		}

		logger.WithFields(map[string]interface{}{
			"component":  "FireController",
			"mission_id": missionID,
			"user_id":    userID,
			"operator":   operator,
		}).Warn("Lease force released")
	}
	return released, nil
}
