package slots

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"

	"firecontrol/src/model"
)

// LeaseStore is the transactional persistence the manager runs on. The
// atomicity guarantees (occupy and release as single transactions) live in
// the store; the manager adds tier semantics on top.
type LeaseStore interface {
	GetState(ctx context.Context, userID uint, mode string) (*model.UserSlotState, error)
	EnsureState(ctx context.Context, userID uint, mode string, tier string, maxSlots int) (*model.UserSlotState, error)
	StatesForUser(ctx context.Context, userID uint) ([]model.UserSlotState, error)
	Occupy(ctx context.Context, lease *model.SlotLease, tier string, maxSlots int) (bool, error)
	Release(ctx context.Context, userID uint, missionID string) (bool, error)
	OpenLeasesForUser(ctx context.Context, userID uint) ([]model.SlotLease, error)
}

// Manager is the slot-lease manager: tier-scoped capacity pools per user
// with atomic occupy and release. Capacity exhaustion is reported to the
// caller immediately and never queued or retried here.
type Manager struct {
	store  LeaseStore
	config Config
}

func NewManager(store LeaseStore, config Config) *Manager {
	return &Manager{store: store, config: config}
}

// GetState returns the user's counters for a mode, lazily initializing
// them to the tier default on first access.
func (m *Manager) GetState(
	ctx context.Context,
	userID uint,
	mode string,
	tier string,
) (*model.UserSlotState, error) {

	maxSlots := m.config.Capacity(tier).ForMode(mode)
	return m.store.EnsureState(ctx, userID, mode, tier, maxSlots)
}

// CheckAvailable is a pure read comparing slots in use against the
// tier-derived maximum. A user with no counter row has full availability
// whenever the tier allows any slots at all.
func (m *Manager) CheckAvailable(
	ctx context.Context,
	userID uint,
	mode string,
	tier string,
) (bool, error) {

	state, err := m.store.GetState(ctx, userID, mode)
	if err != nil {
		return false, err
	}

	if state == nil {
		return m.config.Capacity(tier).ForMode(mode) > 0, nil
	}
	return state.SlotsInUse < state.MaxSlots, nil
}

// Occupy reserves one slot for the mission. Returns (false, nil) when
// capacity is exhausted or the mission already holds a lease.
func (m *Manager) Occupy(
	ctx context.Context,
	userID uint,
	missionID string,
	symbol string,
	mode string,
	tier string,
	lots float64,
) (bool, error) {

	lease := &model.SlotLease{
		UserID:    userID,
		MissionID: missionID,
		Mode:      mode,
		Symbol:    symbol,
		Lots:      lots,
		State:     model.LeaseStateOpen,
		OpenedAt:  time.Now().UTC(),
	}

	maxSlots := m.config.Capacity(tier).ForMode(mode)

	ok, err := m.store.Occupy(ctx, lease, tier, maxSlots)
	if err != nil {
		return false, err
	}
	if !ok {
		logger.WithFields(map[string]interface{}{
			"component":  "SlotManager",
			"user_id":    userID,
			"mission_id": missionID,
			"mode":       mode,
			"tier":       tier,
		}).Info("Slot occupy rejected")
	}
	return ok, nil
}

// Release closes the lease for a mission. Idempotent: a second release is
// a no-op returning (false, nil).
func (m *Manager) Release(
	ctx context.Context,
	userID uint,
	missionID string,
) (bool, error) {

	return m.store.Release(ctx, userID, missionID)
}

// LeaseState is the operator inspection view for one user.
type LeaseState struct {
	States     []model.UserSlotState `json:"states"`
	OpenLeases []model.SlotLease     `json:"open_leases"`
}

// GetLeaseState assembles the operator view: counters per mode plus the
// open leases backing them.
func (m *Manager) GetLeaseState(ctx context.Context, userID uint) (LeaseState, error) {
	states, err := m.store.StatesForUser(ctx, userID)
	if err != nil {
		return LeaseState{}, err
	}

	leases, err := m.store.OpenLeasesForUser(ctx, userID)
	if err != nil {
		return LeaseState{}, err
	}

	return LeaseState{States: states, OpenLeases: leases}, nil
}
