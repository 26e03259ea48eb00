package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"firecontrol/src/database"
	"firecontrol/src/model"
)

// ExceptionRepository persists system-level failures for auditing.
type ExceptionRepository struct {
	db *gorm.DB
}

// NewExceptionRepository creates a repository instance using the main
// read/write database.
func NewExceptionRepository() *ExceptionRepository {
	logger.WithField("component", "ExceptionRepository").
		Info("Creating new ExceptionRepository with MainDB")

	return &ExceptionRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests.
func (r *ExceptionRepository) WithDB(db *gorm.DB) *ExceptionRepository {
	return &ExceptionRepository{db: db}
}

// Record inserts an exception row. Persistence failures are logged and
// swallowed; an audit write must never take down the request path.
func (r *ExceptionRepository) Record(
	ctx context.Context,
	module string,
	method string,
	level string,
	message string,
	userID uint,
	missionID string,
) {

	exc := model.Exception{
		Service:   "firecontrol",
		Module:    module,
		Method:    method,
		Level:     level,
		Message:   message,
		UserID:    userID,
		MissionID: missionID,
	}

	if err := r.db.WithContext(ctx).Create(&exc).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "ExceptionRepository",
			"op":     "Record",
			"module": module,
			"method": method,
		}).WithError(err).Error("Failed to persist exception")
	}
}
