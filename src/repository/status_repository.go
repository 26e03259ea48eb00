package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"firecontrol/src/database"
	"firecontrol/src/externalmodel"
)

// StatusRepository reads the execution agent's reporting tables. It never
// writes them; terminal markers on our side go to the execution mirror.
type StatusRepository struct {
	db *gorm.DB
}

// NewStatusRepository creates a repository instance over ReadOnlyDB.
func NewStatusRepository() *StatusRepository {
	logger.WithField("component", "StatusRepository").
		Info("Creating new StatusRepository with ReadOnlyDB")

	return &StatusRepository{
		db: database.ReadOnlyDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests.
func (r *StatusRepository) WithDB(db *gorm.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

// FindByMission fetches the newest status record the agent reported for a
// mission. Returns (nil, nil) if the agent never reported one.
func (r *StatusRepository) FindByMission(
	ctx context.Context,
	missionID string,
) (*externalmodel.ExecutionStatusRecord, error) {

	var record externalmodel.ExecutionStatusRecord

	err := r.db.WithContext(ctx).
		Where("mission_id = ?", missionID).
		Order("id DESC").
		First(&record).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":       "StatusRepository",
			"op":         "FindByMission",
			"mission_id": missionID,
		}).WithError(err).Error("Failed to fetch execution status")

		return nil, err
	}

	return &record, nil
}

// LatestBalance returns the agent's most recent reported balance.
// Returns (nil, nil) when the agent has never pushed a snapshot, so
// callers can tell an unknown balance apart from a genuine zero.
func (r *StatusRepository) LatestBalance(
	ctx context.Context,
	agentID string,
) (*float64, error) {

	var snapshot externalmodel.AgentBalanceSnapshot

	err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("id DESC").
		First(&snapshot).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":     "StatusRepository",
			"op":       "LatestBalance",
			"agent_id": agentID,
		}).WithError(err).Error("Failed to fetch latest balance snapshot")

		return nil, err
	}

	return &snapshot.Balance, nil
}

// BalanceDelta returns the difference between the agent's two most recent
// balance snapshots. Zero when fewer than two snapshots exist.
func (r *StatusRepository) BalanceDelta(
	ctx context.Context,
	agentID string,
) (float64, error) {

	var snapshots []externalmodel.AgentBalanceSnapshot

	err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("id DESC").
		Limit(2).
		Find(&snapshots).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "StatusRepository",
			"op":       "BalanceDelta",
			"agent_id": agentID,
		}).WithError(err).Error("Failed to fetch balance snapshots")

		return 0, err
	}

	if len(snapshots) < 2 {
		return 0, nil
	}

	return snapshots[0].Balance - snapshots[1].Balance, nil
}
