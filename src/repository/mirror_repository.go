package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"firecontrol/src/database"
	"firecontrol/src/model"
)

// MirrorRepository maintains the local execution mirror: one audit row per
// mission recording how its lease ended.
type MirrorRepository struct {
	db *gorm.DB
}

// NewMirrorRepository creates a repository instance using the main
// read/write database.
func NewMirrorRepository() *MirrorRepository {
	logger.WithField("component", "MirrorRepository").
		Info("Creating new MirrorRepository with MainDB")

	return &MirrorRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests.
func (r *MirrorRepository) WithDB(db *gorm.DB) *MirrorRepository {
	return &MirrorRepository{db: db}
}

// Mark upserts the mirror row for a mission with the given marker. A later
// marker overwrites an earlier one; the timestamps keep the history visible.
func (r *MirrorRepository) Mark(
	ctx context.Context,
	missionID string,
	userID uint,
	ticket uint,
	marker string,
	detail string,
) error {

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var mirror model.ExecutionMirror

		err := tx.
			Where("mission_id = ?", missionID).
			First(&mirror).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			mirror = model.ExecutionMirror{
				MissionID: missionID,
				UserID:    userID,
				Ticket:    ticket,
				Marker:    marker,
				Detail:    detail,
			}
			return tx.Create(&mirror).Error
		}
		if err != nil {
			return err
		}

		return tx.Model(&model.ExecutionMirror{}).
			Where("id = ?", mirror.ID).
			Updates(map[string]interface{}{
				"marker": marker,
				"detail": detail,
				"ticket": ticket,
			}).Error
	})

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "MirrorRepository",
			"op":         "Mark",
			"mission_id": missionID,
			"marker":     marker,
		}).WithError(err).Error("Failed to upsert execution mirror")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":       "MirrorRepository",
		"op":         "Mark",
		"mission_id": missionID,
		"marker":     marker,
	}).Info("Execution mirror updated")

	return nil
}

// FindByMission fetches the mirror row for a mission.
// Returns (nil, nil) if no row exists.
func (r *MirrorRepository) FindByMission(
	ctx context.Context,
	missionID string,
) (*model.ExecutionMirror, error) {

	var mirror model.ExecutionMirror

	err := r.db.WithContext(ctx).
		Where("mission_id = ?", missionID).
		First(&mirror).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":       "MirrorRepository",
			"op":         "FindByMission",
			"mission_id": missionID,
		}).WithError(err).Error("Failed to fetch execution mirror")

		return nil, err
	}

	return &mirror, nil
}
