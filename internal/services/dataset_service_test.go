// internal/services/dataset_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/nguyenquyen/evdata-backend/internal/models"
	"github.com/nguyenquyen/evdata-backend/internal/utils"
)

type DatasetServiceTestSuite struct {
	suite.Suite
	db  *gorm.DB
	svc *DatasetService
}

func (suite *DatasetServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.svc = NewDatasetService(suite.db)
}

func (suite *DatasetServiceTestSuite) TestGetOwnedDatasetEnforcesOwnership() {
	dataset := seedPublishedDataset(suite.T(), suite.db, suite.svc, "OWNED_DS", "10.00")

	// Non-owners are rejected before any side effect can run on the dataset
	_, err := suite.svc.GetOwnedDataset(testConsumer, dataset.ID)
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "access denied")

	owned, err := suite.svc.GetOwnedDataset(testProvider, dataset.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), dataset.ID, owned.ID)

	_, err = suite.svc.GetOwnedDataset(testAdmin, dataset.ID)
	require.NoError(suite.T(), err)
}

func (suite *DatasetServiceTestSuite) TestCreateDatasetRejectsDuplicateCode() {
	category := seedCategory(suite.T(), suite.db)

	req := &CreateDatasetRequest{
		Code:         "CHG_SESSIONS_SF",
		Name:         "SF Charging Sessions",
		Description:  "Charging session records from San Francisco",
		CategoryID:   category.ID,
		DataType:     "CHARGING_SESSION",
		Format:       "CSV",
		PricingModel: "PAY_PER_DOWNLOAD",
		Price:        decimal.NewFromInt(50),
	}

	first, err := suite.svc.CreateDataset(testProvider, req)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.DatasetStatusDraft, first.Status)

	dup := *req
	dup.Name = "A Different Name Entirely"
	_, err = suite.svc.CreateDataset(testProvider, &dup)
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "already exists")

	dup = *req
	dup.Code = "CHG_SESSIONS_LA"
	_, err = suite.svc.CreateDataset(testProvider, &dup)
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "already exists")

	// The original row is untouched
	var count int64
	suite.db.Model(&models.Dataset{}).Count(&count)
	assert.Equal(suite.T(), int64(1), count)
}

func (suite *DatasetServiceTestSuite) TestCreateDatasetRequiresProviderRole() {
	category := seedCategory(suite.T(), suite.db)

	_, err := suite.svc.CreateDataset(testConsumer, &CreateDatasetRequest{
		Code:         "CHG_SESSIONS_NY",
		Name:         "NY Charging Sessions",
		Description:  "Charging session records from New York",
		CategoryID:   category.ID,
		DataType:     "CHARGING_SESSION",
		Format:       "CSV",
		PricingModel: "FREE",
	})
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "access denied")
}

func (suite *DatasetServiceTestSuite) TestAPIBasedDatasetGetsAPIKey() {
	category := seedCategory(suite.T(), suite.db)

	dataset, err := suite.svc.CreateDataset(testProvider, &CreateDatasetRequest{
		Code:         "CHG_LIVE_API",
		Name:         "Live Charging Feed",
		Description:  "Real-time charging station availability feed",
		CategoryID:   category.ID,
		DataType:     "CHARGING_SESSION",
		Format:       "JSON",
		PricingModel: "API_BASED",
		Price:        decimal.NewFromInt(200),
		APIEndpoint:  "https://api.example.com/v1/charging",
	})
	require.NoError(suite.T(), err)
	assert.Contains(suite.T(), dataset.APIKey, "evdata_")
}

func (suite *DatasetServiceTestSuite) TestPublishLifecycle() {
	dataset := seedPublishedDataset(suite.T(), suite.db, suite.svc, "PUB_LIFECYCLE", "10.00")
	require.NotNil(suite.T(), dataset.PublishedAt)
	firstPublishedAt := *dataset.PublishedAt

	// Re-publishing is a no-op and keeps the original timestamp
	time.Sleep(5 * time.Millisecond)
	again, err := suite.svc.PublishDataset(testProvider, dataset.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.DatasetStatusPublished, again.Status)
	require.NotNil(suite.T(), again.PublishedAt)
	assert.True(suite.T(), firstPublishedAt.Equal(*again.PublishedAt))

	archived, err := suite.svc.ArchiveDataset(testProvider, dataset.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.DatasetStatusArchived, archived.Status)

	// Archived datasets cannot be re-published
	_, err = suite.svc.PublishDataset(testProvider, dataset.ID)
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "invalid state")

	// And cannot be archived twice
	_, err = suite.svc.ArchiveDataset(testProvider, dataset.ID)
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "invalid state")
}

func (suite *DatasetServiceTestSuite) TestPublishRequiresOwnership() {
	dataset := seedPublishedDataset(suite.T(), suite.db, suite.svc, "PUB_OWNER", "10.00")

	_, err := suite.svc.ArchiveDataset(testConsumer, dataset.ID)
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "access denied")

	// Admins may act on any dataset
	_, err = suite.svc.ArchiveDataset(testAdmin, dataset.ID)
	require.NoError(suite.T(), err)
}

func (suite *DatasetServiceTestSuite) TestSearchReturnsOnlyPublished() {
	category := seedCategory(suite.T(), suite.db)

	seedPublishedDataset(suite.T(), suite.db, suite.svc, "SEARCH_A", "10.00")
	seedPublishedDataset(suite.T(), suite.db, suite.svc, "SEARCH_B", "25.00")

	draft, err := suite.svc.CreateDataset(testProvider, &CreateDatasetRequest{
		Code:         "SEARCH_DRAFT",
		Name:         "Unreleased Battery Logs",
		Description:  "Battery degradation logs pending review",
		CategoryID:   category.ID,
		DataType:     "BATTERY",
		Format:       "CSV",
		PricingModel: "FREE",
	})
	require.NoError(suite.T(), err)

	views, total, err := suite.svc.SearchDatasets(DatasetSearchParams{
		PaginationParams: utils.PaginationParams{Size: 20, SortBy: "created_at", SortDirection: "desc"},
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(2), total)
	require.Len(suite.T(), views, 2)
	for _, view := range views {
		assert.NotEqual(suite.T(), draft.ID, view.ID)
		assert.Equal(suite.T(), models.DatasetStatusPublished, view.Status)
		// Search results never expose file locations
		assert.Empty(suite.T(), view.FileURL)
		assert.False(suite.T(), view.HasAccess)
	}
}

func (suite *DatasetServiceTestSuite) TestSearchPriceFacets() {
	seedPublishedDataset(suite.T(), suite.db, suite.svc, "PRICE_LOW", "5.00")
	seedPublishedDataset(suite.T(), suite.db, suite.svc, "PRICE_MID", "50.00")
	seedPublishedDataset(suite.T(), suite.db, suite.svc, "PRICE_HIGH", "500.00")

	min := decimal.NewFromInt(10)
	max := decimal.NewFromInt(100)
	views, total, err := suite.svc.SearchDatasets(DatasetSearchParams{
		PaginationParams: utils.PaginationParams{Size: 20, SortBy: "price", SortDirection: "asc"},
		PriceMin:         &min,
		PriceMax:         &max,
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), total)
	require.Len(suite.T(), views, 1)
	assert.Equal(suite.T(), "PRICE_MID", views[0].Code)
}

func (suite *DatasetServiceTestSuite) TestGetDatasetRedaction() {
	dataset := seedPublishedDataset(suite.T(), suite.db, suite.svc, "REDACT", "10.00")

	// Anonymous callers see the listing without file locations
	view, err := suite.svc.GetDatasetByID(nil, dataset.ID)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), view.HasAccess)
	assert.Empty(suite.T(), view.FileURL)

	// The owner sees everything
	view, err = suite.svc.GetDatasetByID(&testProvider, dataset.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), view.HasAccess)
	assert.NotEmpty(suite.T(), view.FileURL)

	// A consumer with an active grant sees file locations too
	require.NoError(suite.T(), suite.db.Create(&models.DatasetAccess{
		DatasetID:  dataset.ID,
		UserID:     testConsumer.UserID,
		UserEmail:  testConsumer.Email,
		UserName:   testConsumer.FullName,
		AccessType: models.AccessTypeDownload,
		Status:     models.AccessStatusActive,
	}).Error)

	view, err = suite.svc.GetDatasetByID(&testConsumer, dataset.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), view.HasAccess)
	assert.NotEmpty(suite.T(), view.FileURL)
}

func (suite *DatasetServiceTestSuite) TestUpdateDatasetRenameChecksUniqueness() {
	seedPublishedDataset(suite.T(), suite.db, suite.svc, "RENAME_A", "10.00")
	b := seedPublishedDataset(suite.T(), suite.db, suite.svc, "RENAME_B", "10.00")

	_, err := suite.svc.UpdateDataset(testProvider, b.ID, &UpdateDatasetRequest{Code: "RENAME_A"})
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "already exists")

	updated, err := suite.svc.UpdateDataset(testProvider, b.ID, &UpdateDatasetRequest{Code: "RENAME_C"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "RENAME_C", updated.Code)
}

func (suite *DatasetServiceTestSuite) TestSuspendRequiresAdmin() {
	dataset := seedPublishedDataset(suite.T(), suite.db, suite.svc, "SUSPEND", "10.00")

	_, err := suite.svc.SuspendDataset(testProvider, dataset.ID)
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "access denied")

	suspended, err := suite.svc.SuspendDataset(testAdmin, dataset.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.DatasetStatusSuspended, suspended.Status)
}

func TestDatasetServiceSuite(t *testing.T) {
	suite.Run(t, new(DatasetServiceTestSuite))
}
