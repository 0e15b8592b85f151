// Package db opens the gorm connection and runs schema migration,
// grounded on internal/db/database.go's connection-option choices.
package db

import (
	"fmt"

	"github.com/AccountantBot/AccountantBot-Backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens a gorm connection. driver selects "postgres" (the
// production default) or "sqlite" (in-memory, for hermetic tests).
func Connect(driver, dsn string) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		PrepareStmt:                              true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	}

	var dialector gorm.Dialector
	switch driver {
	case "", "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	database, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	logrus.WithField("driver", driver).Info("database connected")
	return database, nil
}

// AutoMigrate creates or updates every table this service owns.
func AutoMigrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.Split{},
		&models.SplitParticipant{},
		&models.SplitSignature{},
		&models.SupportedToken{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	logrus.Info("database schema migrated")
	return nil
}
