package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"firecontrol/src/database"
	"firecontrol/src/model"
)

// UserRepository handles read operations for user accounts.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a repository instance using the main
// read/write database.
func NewUserRepository() *UserRepository {
	logger.WithField("component", "UserRepository").
		Info("Creating new UserRepository with MainDB")

	return &UserRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests.
func (r *UserRepository) WithDB(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID fetches a user by primary ID.
// Returns (nil, nil) if the user is not found.
func (r *UserRepository) FindByID(
	ctx context.Context,
	id uint,
) (*model.User, error) {

	var user model.User

	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithFields(map[string]interface{}{
				"repo": "UserRepository",
				"op":   "FindByID",
				"id":   id,
			}).Info("User not found")

			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "UserRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch user by ID")

		return nil, err
	}

	return &user, nil
}

// FindByUsername fetches a user by username.
// Returns (nil, nil) if the user is not found.
func (r *UserRepository) FindByUsername(
	ctx context.Context,
	username string,
) (*model.User, error) {

	var user model.User

	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		First(&user).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":     "UserRepository",
			"op":       "FindByUsername",
			"username": username,
		}).WithError(err).Error("Failed to fetch user by username")

		return nil, err
	}

	return &user, nil
}
