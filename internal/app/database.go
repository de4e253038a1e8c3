package app

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/iamtommetcalfe/encom-smart-home/config"
)

// getDatabase opens the configured database. Postgres serves real
// deployments; sqlite keeps single-user setups and tests free of an
// external server.
func getDatabase(cfg config.DBConfig, workdir string) *gorm.DB {
	logLevel := logger.Error
	if cfg.Debug {
		logLevel = logger.Info
	}
	gormConfig := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Type {
	case "sqlite":
		dbfile := filepath.Join(workdir, "data", fmt.Sprintf("%s.db", cfg.Name))
		db, err = gorm.Open(sqlite.Open(dbfile), gormConfig)
	default:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Passwd, cfg.Name)
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
	}
	if err != nil {
		zap.S().Panicf("failed to connect %s database: %v", cfg.Type, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		zap.S().Panicf("failed to access database pool: %v", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db
}
