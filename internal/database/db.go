package database

import (
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nour-az/portfolio-cms/internal/models"
)

var ErrNoDSN = errors.New("database: neither DATABASE_URL nor SQLITE_PATH is set")

// Connect opens Postgres when dsn is set, otherwise the sqlite file at
// sqlitePath, and migrates the key-value table.
func Connect(dsn, sqlitePath string, log *zap.SugaredLogger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch {
	case dsn != "":
		dialector = postgres.Open(dsn)
	case sqlitePath != "":
		dialector = sqlite.Open(sqlitePath)
	default:
		return nil, ErrNoDSN
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Infow("database connection established", "dialect", dialector.Name())

	log.Info("running migrations")
	if err := db.AutoMigrate(&models.KVEntry{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
