package reconciler

import (
	"context"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"

	"firecontrol/src/externalmodel"
	"firecontrol/src/model"
)

// ReconciliationAmbiguousError means the sweep could not decide a lease's
// fate this cycle. The lease stays open and is revisited on the next tick.
type ReconciliationAmbiguousError struct {
	MissionID string
	Reason    string
}

func (e *ReconciliationAmbiguousError) Error() string {
	return fmt.Sprintf("reconciliation ambiguous for mission %s: %s", e.MissionID, e.Reason)
}

// LeaseSource lists open leases for the sweep.
type LeaseSource interface {
	OpenLeases(ctx context.Context) ([]model.SlotLease, error)
}

// Releaser frees a lease. Idempotent: (false, nil) when already closed.
type Releaser interface {
	Release(ctx context.Context, userID uint, missionID string) (bool, error)
}

// StatusSource reads the agent's reporting channel.
type StatusSource interface {
	FindByMission(ctx context.Context, missionID string) (*externalmodel.ExecutionStatusRecord, error)
	BalanceDelta(ctx context.Context, agentID string) (float64, error)
}

// MirrorSink records the terminal marker for a reclaimed lease.
type MirrorSink interface {
	Mark(ctx context.Context, missionID string, userID uint, ticket uint, marker string, detail string) error
}

// AgentResolver maps a lease's owning user to its execution agent, needed
// only for the balance heuristic.
type AgentResolver interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// Service is the slot-reconciliation sweep. The agent does not reliably
// push close events, so this loop is the only thing standing between a
// finished trade and a permanently leaked slot.
type Service struct {
	leases   LeaseSource
	releaser Releaser
	statuses StatusSource
	mirrors  MirrorSink
	agents   AgentResolver
	config   Config

	now func() time.Time
}

func NewService(
	leases LeaseSource,
	releaser Releaser,
	statuses StatusSource,
	mirrors MirrorSink,
	agents AgentResolver,
	config Config,
) *Service {

	return &Service{
		leases:   leases,
		releaser: releaser,
		statuses: statuses,
		mirrors:  mirrors,
		agents:   agents,
		config:   config,
		now:      time.Now,
	}
}

// StartLoop runs sweeps on the configured interval until the context is
// cancelled. A failed sweep is logged and retried on the next tick; the
// loop itself only exits with the context.
func (s *Service) StartLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	logger.WithFields(map[string]interface{}{
		"component": "Reconciler",
		"interval":  s.config.SweepInterval.String(),
		"budget":    s.config.RunBudget.String(),
	}).Info("Reconciliation loop started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Reconciliation loop stopped")
			return nil

		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				logger.WithError(err).Error("Reconciliation sweep failed")
			}
		}
	}
}

// Sweep walks all open leases oldest-first, applying the reclaim heuristics
// to each. The per-run budget bounds the walk; leases not reached this run
// are picked up on the next tick.
func (s *Service) Sweep(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, s.config.RunBudget)
	defer cancel()

	deadline := s.now().Add(s.config.RunBudget)

	leases, err := s.leases.OpenLeases(runCtx)
	if err != nil {
		return fmt.Errorf("listing open leases: %w", err)
	}

	reclaimed := 0
	visited := 0

	for i := range leases {
		if s.now().After(deadline) {
			logger.WithFields(map[string]interface{}{
				"component": "Reconciler",
				"visited":   visited,
				"remaining": len(leases) - visited,
			}).Warn("Sweep budget exhausted, deferring remainder to next tick")
			break
		}

		visited++

		done, err := s.reconcileLease(runCtx, &leases[i])
		if err != nil {
			// Ambiguity is expected; anything else is worth an error line.
			if _, ok := err.(*ReconciliationAmbiguousError); ok {
				logger.WithField("mission_id", leases[i].MissionID).Debug(err.Error())
			} else {
				logger.WithFields(map[string]interface{}{
					"component":  "Reconciler",
					"mission_id": leases[i].MissionID,
					"user_id":    leases[i].UserID,
				}).WithError(err).Error("Failed to reconcile lease")
			}
			continue
		}
		if done {
			reclaimed++
		}
	}

	logger.WithFields(map[string]interface{}{
		"component": "Reconciler",
		"open":      len(leases),
		"visited":   visited,
		"reclaimed": reclaimed,
	}).Info("Sweep finished")

	return nil
}

// reconcileLease applies the ordered heuristics to one lease. Returns true
// when the lease was reclaimed.
func (s *Service) reconcileLease(ctx context.Context, lease *model.SlotLease) (bool, error) {
	record, err := s.statuses.FindByMission(ctx, lease.MissionID)
	if err != nil {
		return false, &ReconciliationAmbiguousError{
			MissionID: lease.MissionID,
			Reason:    fmt.Sprintf("status read failed: %v", err),
		}
	}

	age := s.now().Sub(lease.OpenedAt)

	// Orphan: the agent never acknowledged the command. The grace period
	// covers the normal ack latency after dispatch.
	if record == nil {
		if age < s.config.OrphanGrace {
			return false, nil
		}
		return s.reclaim(ctx, lease, 0, model.MirrorReclaimedOrphan,
			fmt.Sprintf("no execution status after %s", age.Truncate(time.Second)))
	}

	if externalmodel.IsTerminal(record.Status) {
		return s.reclaim(ctx, lease, record.Ticket, model.MirrorReclaimedTerminal,
			fmt.Sprintf("agent reported %s", record.Status))
	}

	// Filled but stale: the agent does not push close events, so a fill
	// that stopped updating is assumed closed externally.
	if record.Status == externalmodel.StatusFilled {
		lastSeen := record.CreatedAt
		if record.UpdatedAt != nil {
			lastSeen = *record.UpdatedAt
		}
		if s.now().Sub(lastSeen) > s.config.FilledStaleAge {
			return s.reclaim(ctx, lease, record.Ticket, model.MirrorReclaimedStaleFill,
				fmt.Sprintf("filled status silent since %s", lastSeen.UTC().Format(time.RFC3339)))
		}
	}

	// Safety valve: nothing lives longer than the hard ceiling.
	if age > s.config.MaxLeaseAge {
		return s.reclaim(ctx, lease, record.Ticket, model.MirrorReclaimedExpired,
			fmt.Sprintf("lease age %s exceeds ceiling", age.Truncate(time.Second)))
	}

	// Advisory only: a large unexplained balance move flags the lease for
	// operator review but never auto-reclaims.
	if s.config.BalanceDeltaThreshold > 0 {
		s.flagBalanceDelta(ctx, lease, record.Ticket)
	}

	return false, nil
}

func (s *Service) reclaim(ctx context.Context, lease *model.SlotLease, ticket uint, marker, detail string) (bool, error) {
	released, err := s.releaser.Release(ctx, lease.UserID, lease.MissionID)
	if err != nil {
		return false, fmt.Errorf("release for mission %s: %w", lease.MissionID, err)
	}
	if !released {
		// Explicit close won the race. Nothing left to do.
		return false, nil
	}

	if err := s.mirrors.Mark(ctx, lease.MissionID, lease.UserID, ticket, marker, detail); err != nil {
		logger.WithFields(map[string]interface{}{
			"component":  "Reconciler",
			"mission_id": lease.MissionID,
			"marker":     marker,
		}).WithError(err).Warn("Lease reclaimed but mirror update failed")
	}

	logger.WithFields(map[string]interface{}{
		"component":  "Reconciler",
		"mission_id": lease.MissionID,
		"user_id":    lease.UserID,
		"marker":     marker,
		"detail":     detail,
	}).Info("Lease reclaimed")

	return true, nil
}

func (s *Service) flagBalanceDelta(ctx context.Context, lease *model.SlotLease, ticket uint) {
	user, err := s.agents.FindByID(ctx, lease.UserID)
	if err != nil || user == nil || user.AgentID == "" {
		return
	}

	delta, err := s.statuses.BalanceDelta(ctx, user.AgentID)
	if err != nil {
		return
	}

	if delta >= -s.config.BalanceDeltaThreshold && delta <= s.config.BalanceDeltaThreshold {
		return
	}

	detail := fmt.Sprintf("balance moved %.2f on agent %s, review lease", delta, user.AgentID)
	if err := s.mirrors.Mark(ctx, lease.MissionID, lease.UserID, ticket, model.MirrorAdvisoryBalanceDelta, detail); err != nil {
		logger.WithField("mission_id", lease.MissionID).WithError(err).Warn("Advisory mirror update failed")
	}

	logger.WithFields(map[string]interface{}{
		"component":  "Reconciler",
		"mission_id": lease.MissionID,
		"agent_id":   user.AgentID,
		"delta":      delta,
	}).Warn("Unexplained balance delta, lease flagged for operator review")
}
