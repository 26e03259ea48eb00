package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"firecontrol/src/externalmodel"
)

// ReadOnlyDB is the read-only database connection used to poll the execution
// agent's reporting tables. The database user for this connection should have
// SELECT-only permissions.
var ReadOnlyDB *gorm.DB

// InitReadOnlyDB initializes the read-only database connection.
// It does not run any migrations and should only be used for reading data.
func InitReadOnlyDB() error {
	config := GetConfig()
	db, err := gorm.Open(postgres.Open(config.DatabaseURLReadOnly),
		&gorm.Config{
			PrepareStmt:    true,
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.LogLevel(config.GormLogLevel)),
		},
	)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from ReadOnlyDB: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping ReadOnlyDB: %w", err)
	}

	// Verify the reporting table is really reachable before anything
	// starts depending on it.
	var count int64
	if err1 := db.
		Model(&externalmodel.ExecutionStatusRecord{}).
		Count(&count).Error; err1 != nil {

		return fmt.Errorf("failed to access agent_execution_status: %w", err1)
	}

	logrus.WithFields(map[string]interface{}{"count": count}).Info("[ReadOnlyDB] agent_execution_status reachable")

	ReadOnlyDB = db

	return nil
}
