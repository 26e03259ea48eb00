package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"firecontrol/src/database"
	"firecontrol/src/model"
)

var (
	errSlotsExhausted = errors.New("slots exhausted")
	errDuplicateLease = errors.New("lease already exists for mission")
	errLeaseNotOpen   = errors.New("lease not open")
)

// LeaseRepository handles read/write operations for slot leases and the
// per-user slot counters. Occupy and Release are the only mutation paths and
// both run as single transactions, so the counter can never drift from the
// lease rows.
type LeaseRepository struct {
	db *gorm.DB
}

// NewLeaseRepository creates a new repository instance using the main
// read/write database.
func NewLeaseRepository() *LeaseRepository {
	logger.WithField("component", "LeaseRepository").
		Info("Creating new LeaseRepository with MainDB")

	return &LeaseRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *LeaseRepository) WithDB(db *gorm.DB) *LeaseRepository {
	return &LeaseRepository{db: db}
}

// ---------------------------------------------------
// Slot state methods
// ---------------------------------------------------

// GetState fetches the slot counters for a user and mode.
// Returns (nil, nil) if the user has no state row yet.
func (r *LeaseRepository) GetState(
	ctx context.Context,
	userID uint,
	mode string,
) (*model.UserSlotState, error) {

	var state model.UserSlotState

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND mode = ?", userID, mode).
		First(&state).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":    "LeaseRepository",
			"op":      "GetState",
			"user_id": userID,
			"mode":    mode,
		}).WithError(err).Error("Failed to fetch slot state")

		return nil, err
	}

	return &state, nil
}

// EnsureState lazily creates the slot counters for a user and mode from the
// given tier default and returns the current row.
func (r *LeaseRepository) EnsureState(
	ctx context.Context,
	userID uint,
	mode string,
	tier string,
	maxSlots int,
) (*model.UserSlotState, error) {

	state := model.UserSlotState{
		UserID:   userID,
		Mode:     mode,
		Tier:     tier,
		MaxSlots: maxSlots,
	}

	err := r.db.WithContext(ctx).
		Where(model.UserSlotState{UserID: userID, Mode: mode}).
		FirstOrCreate(&state).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "LeaseRepository",
			"op":      "EnsureState",
			"user_id": userID,
			"mode":    mode,
			"tier":    tier,
		}).WithError(err).Error("Failed to ensure slot state")

		return nil, err
	}

	return &state, nil
}

// StatesForUser returns all counter rows for the user, for operator
// inspection.
func (r *LeaseRepository) StatesForUser(
	ctx context.Context,
	userID uint,
) ([]model.UserSlotState, error) {

	var states []model.UserSlotState

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("mode ASC").
		Find(&states).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "LeaseRepository",
			"op":      "StatesForUser",
			"user_id": userID,
		}).WithError(err).Error("Failed to fetch slot states")

		return nil, err
	}

	return states, nil
}

// ---------------------------------------------------
// Lease methods
// ---------------------------------------------------

// FindLease fetches the lease for a (user, mission) pair regardless of state.
// Returns (nil, nil) if no lease exists.
func (r *LeaseRepository) FindLease(
	ctx context.Context,
	userID uint,
	missionID string,
) (*model.SlotLease, error) {

	var lease model.SlotLease

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND mission_id = ?", userID, missionID).
		First(&lease).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":       "LeaseRepository",
			"op":         "FindLease",
			"user_id":    userID,
			"mission_id": missionID,
		}).WithError(err).Error("Failed to fetch lease")

		return nil, err
	}

	return &lease, nil
}

// OpenLeases returns every lease currently in the open state, oldest first,
// for the reconciliation sweep.
func (r *LeaseRepository) OpenLeases(ctx context.Context) ([]model.SlotLease, error) {

	var leases []model.SlotLease

	err := r.db.WithContext(ctx).
		Where("state = ?", model.LeaseStateOpen).
		Order("opened_at ASC").
		Find(&leases).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "LeaseRepository",
			"op":   "OpenLeases",
		}).WithError(err).Error("Failed to fetch open leases")

		return nil, err
	}

	return leases, nil
}

// OpenLeasesForUser returns the user's open leases, oldest first.
func (r *LeaseRepository) OpenLeasesForUser(
	ctx context.Context,
	userID uint,
) ([]model.SlotLease, error) {

	var leases []model.SlotLease

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND state = ?", userID, model.LeaseStateOpen).
		Order("opened_at ASC").
		Find(&leases).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "LeaseRepository",
			"op":      "OpenLeasesForUser",
			"user_id": userID,
		}).WithError(err).Error("Failed to fetch open leases for user")

		return nil, err
	}

	return leases, nil
}

// ---------------------------------------------------
// Transactional occupy / release
// ---------------------------------------------------

// Occupy atomically verifies availability, inserts the lease row and
// increments the counter. The counter row is locked for the duration of the
// transaction, so two concurrent calls for the same user serialize and only
// as many as max_slots can ever succeed. Returns (false, nil) when capacity
// is exhausted or the mission already holds a lease; no partial state is
// left behind in either case.
func (r *LeaseRepository) Occupy(
	ctx context.Context,
	lease *model.SlotLease,
	tier string,
	maxSlots int,
) (bool, error) {

	logger.WithFields(map[string]interface{}{
		"repo":       "LeaseRepository",
		"op":         "Occupy",
		"user_id":    lease.UserID,
		"mission_id": lease.MissionID,
		"mode":       lease.Mode,
		"symbol":     lease.Symbol,
	}).Debug("Attempting to occupy a slot")

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var state model.UserSlotState

		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND mode = ?", lease.UserID, lease.Mode).
			First(&state).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			state = model.UserSlotState{
				UserID:   lease.UserID,
				Mode:     lease.Mode,
				Tier:     tier,
				MaxSlots: maxSlots,
			}
			if err := tx.Create(&state).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if state.SlotsInUse >= state.MaxSlots {
			return errSlotsExhausted
		}

		var existing model.SlotLease
		err = tx.
			Where("user_id = ? AND mission_id = ?", lease.UserID, lease.MissionID).
			First(&existing).Error
		if err == nil {
			return errDuplicateLease
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		lease.State = model.LeaseStateOpen
		if lease.OpenedAt.IsZero() {
			lease.OpenedAt = time.Now().UTC()
		}

		if err := tx.Create(lease).Error; err != nil {
			return err
		}

		state.SlotsInUse++
		return tx.Model(&model.UserSlotState{}).
			Where("id = ?", state.ID).
			Update("slots_in_use", state.SlotsInUse).Error
	})

	if errors.Is(err, errSlotsExhausted) || errors.Is(err, errDuplicateLease) {
		logger.WithFields(map[string]interface{}{
			"repo":       "LeaseRepository",
			"op":         "Occupy",
			"user_id":    lease.UserID,
			"mission_id": lease.MissionID,
			"reason":     err.Error(),
		}).Info("Occupy rejected")

		return false, nil
	}
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "LeaseRepository",
			"op":         "Occupy",
			"user_id":    lease.UserID,
			"mission_id": lease.MissionID,
		}).WithError(err).Error("Occupy transaction failed")

		return false, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":       "LeaseRepository",
		"op":         "Occupy",
		"user_id":    lease.UserID,
		"mission_id": lease.MissionID,
		"lease_id":   lease.ID,
	}).Info("Slot occupied")

	return true, nil
}

// Release atomically marks the lease closed and decrements the counter,
// clamped at zero. Idempotent: releasing a missing or already-closed lease
// returns (false, nil).
func (r *LeaseRepository) Release(
	ctx context.Context,
	userID uint,
	missionID string,
) (bool, error) {

	logger.WithFields(map[string]interface{}{
		"repo":       "LeaseRepository",
		"op":         "Release",
		"user_id":    userID,
		"mission_id": missionID,
	}).Debug("Attempting to release a slot")

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lease model.SlotLease

		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND mission_id = ?", userID, missionID).
			First(&lease).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errLeaseNotOpen
		}
		if err != nil {
			return err
		}
		if lease.State != model.LeaseStateOpen {
			return errLeaseNotOpen
		}

		now := time.Now().UTC()
		if err := tx.Model(&model.SlotLease{}).
			Where("id = ?", lease.ID).
			Updates(map[string]interface{}{
				"state":     model.LeaseStateClosed,
				"closed_at": &now,
			}).Error; err != nil {
			return err
		}

		var state model.UserSlotState
		err = tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND mode = ?", userID, lease.Mode).
			First(&state).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Counter row missing is unexpected but not worth rolling the
			// lease close back over; the lease itself is the source of truth.
			logger.WithFields(map[string]interface{}{
				"repo":       "LeaseRepository",
				"op":         "Release",
				"user_id":    userID,
				"mission_id": missionID,
			}).Warn("Lease closed but no counter row existed for the user")

			return nil
		}
		if err != nil {
			return err
		}

		if state.SlotsInUse > 0 {
			state.SlotsInUse--
		}

		return tx.Model(&model.UserSlotState{}).
			Where("id = ?", state.ID).
			Update("slots_in_use", state.SlotsInUse).Error
	})

	if errors.Is(err, errLeaseNotOpen) {
		logger.WithFields(map[string]interface{}{
			"repo":       "LeaseRepository",
			"op":         "Release",
			"user_id":    userID,
			"mission_id": missionID,
		}).Info("Release was a no-op, lease missing or already closed")

		return false, nil
	}
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "LeaseRepository",
			"op":         "Release",
			"user_id":    userID,
			"mission_id": missionID,
		}).WithError(err).Error("Release transaction failed")

		return false, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":       "LeaseRepository",
		"op":         "Release",
		"user_id":    userID,
		"mission_id": missionID,
	}).Info("Slot released")

	return true, nil
}
