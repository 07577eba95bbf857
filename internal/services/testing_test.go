// internal/services/testing_test.go
package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nguyenquyen/evdata-backend/internal/config"
	"github.com/nguyenquyen/evdata-backend/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.DataCategory{},
		&models.Dataset{},
		&models.DatasetAccess{},
		&models.DatasetRating{},
		&models.Transaction{},
		&models.Refund{},
		&models.ProviderRevenue{},
	)
	require.NoError(t, err)

	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Payment: config.PaymentConfig{
			CommissionRate: 0.15,
			RevenueShare:   0.85,
		},
		Services: config.ServicesConfig{
			RequestTimeout: 2,
		},
	}
}

var (
	testProvider = models.Principal{UserID: 1, Email: "provider@example.com", FullName: "Pacific Grid Data", Role: models.UserRoleProvider}
	testConsumer = models.Principal{UserID: 2, Email: "consumer@example.com", FullName: "Fleet Analytics Co", Role: models.UserRoleConsumer}
	testAdmin    = models.Principal{UserID: 3, Email: "admin@example.com", FullName: "Platform Admin", Role: models.UserRoleAdmin}
)

func seedCategory(t *testing.T, db *gorm.DB) models.DataCategory {
	t.Helper()

	category := models.DataCategory{Name: "Charging Sessions", Code: "CHARGING", Active: true}
	require.NoError(t, db.Create(&category).Error)
	return category
}

func seedPublishedDataset(t *testing.T, db *gorm.DB, svc *DatasetService, code string, price string) *models.Dataset {
	t.Helper()

	category := models.DataCategory{Name: "Category " + code, Code: "CAT_" + code, Active: true}
	require.NoError(t, db.Create(&category).Error)

	priceDec, err := decimal.NewFromString(price)
	require.NoError(t, err)

	dataset, err := svc.CreateDataset(testProvider, &CreateDatasetRequest{
		Code:         code,
		Name:         "Dataset " + code,
		Description:  "Charging session telemetry for testing",
		CategoryID:   category.ID,
		DataType:     "CHARGING_SESSION",
		Format:       "CSV",
		PricingModel: "PAY_PER_DOWNLOAD",
		Price:        priceDec,
		UsageRights:  "COMMERCIAL",
		FileURL:      "https://files.example.com/" + code + ".csv",
	})
	require.NoError(t, err)

	dataset, err = svc.PublishDataset(testProvider, dataset.ID)
	require.NoError(t, err)

	return dataset
}
