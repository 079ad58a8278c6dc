package database

import (
	"fmt"
	"time"

	"PruneBot/config"
	"PruneBot/logger"
	"PruneBot/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var (
	DB *gorm.DB
)

func Connect() error {
	logger.Log.Info("Connecting to database...")
	cfg := config.Get()

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s%s",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBVar)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	DB = db

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(DB); err != nil {
		return err
	}

	go monitorDatabaseHealth()

	return nil
}

// Migrate creates or updates the persistent tables. Split out so tests can
// run it against their own gorm instance.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.ActivityRecord{}, &models.GuildSettings{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database models: %w", err)
	}
	return nil
}

func monitorDatabaseHealth() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		sqlDB, err := DB.DB()
		if err != nil {
			logger.Log.WithError(err).Error("Failed to get database instance for health check")
			continue
		}

		if err := sqlDB.Ping(); err != nil {
			logger.Log.WithError(err).Error("Database health check failed")
			continue
		}

		stats := sqlDB.Stats()
		logger.Log.Debugf("DB Stats - Open connections: %d, In use: %d, Idle: %d",
			stats.OpenConnections, stats.InUse, stats.Idle)
	}
}

func GetDB() *gorm.DB {
	return DB
}
