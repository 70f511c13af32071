package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"cardscan/models"
)

// openDB connects to postgres and, when autoMigrate is set, brings the schema
// up to date. Migration failures are logged and ignored so a read-only role
// can still load the catalog.
func openDB(dsn string, autoMigrate bool) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DB_DSN is not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if autoMigrate {
		if err := models.Migrate(db); err != nil {
			log.Warn().Err(err).Msg("migration warning")
		}
	}
	return db, nil
}
