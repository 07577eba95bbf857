// internal/database/connection.go
package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nguyenquyen/evdata-backend/internal/config"
	"github.com/nguyenquyen/evdata-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.Errorf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.Errorf("Error closing database connection: %v", err)
	} else {
		logrus.Info("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.DataCategory{},
		&models.Dataset{},
		&models.DatasetAccess{},
		&models.DatasetRating{},
		&models.Transaction{},
		&models.Refund{},
		&models.ProviderRevenue{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// Dataset indexes
		"CREATE INDEX IF NOT EXISTS idx_datasets_provider ON datasets(provider_id)",
		"CREATE INDEX IF NOT EXISTS idx_datasets_category_status ON datasets(category_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_datasets_status_created ON datasets(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_datasets_pricing_model ON datasets(pricing_model)",

		// Access indexes. At most one active grant per (user, dataset).
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_dataset_accesses_active ON dataset_accesses(user_id, dataset_id) WHERE status = 'ACTIVE' AND deleted_at IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_dataset_accesses_token ON dataset_accesses(api_access_token)",
		"CREATE INDEX IF NOT EXISTS idx_dataset_accesses_expiry ON dataset_accesses(status, expires_at)",

		// Transaction indexes
		"CREATE INDEX IF NOT EXISTS idx_transactions_consumer_created ON transactions(consumer_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_provider_status ON transactions(provider_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_status_completed ON transactions(status, completed_at)",

		// Refund indexes
		"CREATE INDEX IF NOT EXISTS idx_refunds_status_created ON refunds(status, created_at DESC)",

		// Full-text search index
		"CREATE INDEX IF NOT EXISTS idx_datasets_search ON datasets USING GIN(to_tsvector('english', name || ' ' || description))",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			logrus.Warnf("Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// SeedCategories inserts the default data categories when the table is empty.
func SeedCategories(db *gorm.DB) error {
	var count int64
	db.Model(&models.DataCategory{}).Count(&count)
	if count > 0 {
		return nil
	}

	logrus.Info("Seeding default data categories...")

	categories := []models.DataCategory{
		{Name: "Charging Sessions", Code: "CHARGING", Description: "Charging session records from stations and home chargers", IconName: "bolt", Active: true},
		{Name: "Driving Behavior", Code: "DRIVING", Description: "Trip, speed, and energy consumption telemetry", IconName: "road", Active: true},
		{Name: "Battery Health", Code: "BATTERY", Description: "State of health, degradation, and thermal data", IconName: "battery", Active: true},
		{Name: "Route & Navigation", Code: "ROUTE", Description: "Route choices, traffic, and range planning data", IconName: "map", Active: true},
		{Name: "Energy Pricing", Code: "PRICING", Description: "Tariffs and charging cost data by region", IconName: "currency", Active: true},
	}

	for _, category := range categories {
		if err := db.Create(&category).Error; err != nil {
			return fmt.Errorf("failed to seed category %s: %w", category.Code, err)
		}
	}

	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
