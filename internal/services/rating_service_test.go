// internal/services/rating_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/nguyenquyen/evdata-backend/internal/models"
	"github.com/nguyenquyen/evdata-backend/internal/utils"
)

type RatingServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	datasets *DatasetService
	svc      *RatingService
	dataset  *models.Dataset
}

func (suite *RatingServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.datasets = NewDatasetService(suite.db)
	suite.svc = NewRatingService(suite.db)
	suite.dataset = seedPublishedDataset(suite.T(), suite.db, suite.datasets, "RATING_DS", "15.00")
}

func (suite *RatingServiceTestSuite) grantAccessFor(principal models.Principal) {
	require.NoError(suite.T(), suite.db.Create(&models.DatasetAccess{
		DatasetID:  suite.dataset.ID,
		UserID:     principal.UserID,
		UserEmail:  principal.Email,
		UserName:   principal.FullName,
		AccessType: models.AccessTypeDownload,
		Status:     models.AccessStatusActive,
	}).Error)
}

func (suite *RatingServiceTestSuite) datasetAggregate() (float64, int64) {
	dataset, err := suite.datasets.GetDataset(suite.dataset.ID)
	require.NoError(suite.T(), err)
	return dataset.Rating, dataset.RatingCount
}

func (suite *RatingServiceTestSuite) TestRatingRequiresPriorAccess() {
	_, err := suite.svc.SubmitRating(testConsumer, &SubmitRatingRequest{
		DatasetID: suite.dataset.ID,
		Rating:    5,
	})
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "access denied")
}

func (suite *RatingServiceTestSuite) TestSubmitUpdatesAggregate() {
	suite.grantAccessFor(testConsumer)

	rating, err := suite.svc.SubmitRating(testConsumer, &SubmitRatingRequest{
		DatasetID: suite.dataset.ID,
		Rating:    4,
		Comment:   "Good coverage of peak hours",
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 4, rating.Rating)

	avg, count := suite.datasetAggregate()
	assert.Equal(suite.T(), 4.0, avg)
	assert.Equal(suite.T(), int64(1), count)

	// A second reviewer shifts the mean
	other := models.Principal{UserID: 42, Email: "second@example.com", FullName: "Second Reviewer", Role: models.UserRoleConsumer}
	suite.grantAccessFor(other)

	_, err = suite.svc.SubmitRating(other, &SubmitRatingRequest{
		DatasetID: suite.dataset.ID,
		Rating:    2,
	})
	require.NoError(suite.T(), err)

	avg, count = suite.datasetAggregate()
	assert.Equal(suite.T(), 3.0, avg)
	assert.Equal(suite.T(), int64(2), count)
}

func (suite *RatingServiceTestSuite) TestResubmitReplacesExistingRating() {
	suite.grantAccessFor(testConsumer)

	_, err := suite.svc.SubmitRating(testConsumer, &SubmitRatingRequest{
		DatasetID: suite.dataset.ID,
		Rating:    1,
		Comment:   "Missing columns",
	})
	require.NoError(suite.T(), err)

	updated, err := suite.svc.SubmitRating(testConsumer, &SubmitRatingRequest{
		DatasetID: suite.dataset.ID,
		Rating:    5,
		Comment:   "Fixed after the provider re-uploaded",
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 5, updated.Rating)

	// One row per (dataset, user), not two
	var count int64
	suite.db.Model(&models.DatasetRating{}).
		Where("dataset_id = ? AND user_id = ?", suite.dataset.ID, testConsumer.UserID).
		Count(&count)
	assert.Equal(suite.T(), int64(1), count)

	avg, total := suite.datasetAggregate()
	assert.Equal(suite.T(), 5.0, avg)
	assert.Equal(suite.T(), int64(1), total)
}

func (suite *RatingServiceTestSuite) TestDeleteRatingRecomputes() {
	suite.grantAccessFor(testConsumer)
	other := models.Principal{UserID: 42, Email: "second@example.com", FullName: "Second Reviewer", Role: models.UserRoleConsumer}
	suite.grantAccessFor(other)

	first, err := suite.svc.SubmitRating(testConsumer, &SubmitRatingRequest{DatasetID: suite.dataset.ID, Rating: 5})
	require.NoError(suite.T(), err)
	_, err = suite.svc.SubmitRating(other, &SubmitRatingRequest{DatasetID: suite.dataset.ID, Rating: 1})
	require.NoError(suite.T(), err)

	// Only the author or an admin may delete
	err = suite.svc.DeleteRating(other, first.ID)
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "access denied")

	require.NoError(suite.T(), suite.svc.DeleteRating(testConsumer, first.ID))

	avg, count := suite.datasetAggregate()
	assert.Equal(suite.T(), 1.0, avg)
	assert.Equal(suite.T(), int64(1), count)
}

func (suite *RatingServiceTestSuite) TestAdminCanDeleteAnyRating() {
	suite.grantAccessFor(testConsumer)

	rating, err := suite.svc.SubmitRating(testConsumer, &SubmitRatingRequest{DatasetID: suite.dataset.ID, Rating: 3})
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.svc.DeleteRating(testAdmin, rating.ID))

	avg, count := suite.datasetAggregate()
	assert.Equal(suite.T(), 0.0, avg)
	assert.Equal(suite.T(), int64(0), count)
}

func (suite *RatingServiceTestSuite) TestListRatings() {
	suite.grantAccessFor(testConsumer)
	_, err := suite.svc.SubmitRating(testConsumer, &SubmitRatingRequest{DatasetID: suite.dataset.ID, Rating: 4})
	require.NoError(suite.T(), err)

	ratings, total, err := suite.svc.ListRatings(suite.dataset.ID, utils.PaginationParams{Size: 20, SortBy: "created_at", SortDirection: "desc"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), total)
	require.Len(suite.T(), ratings, 1)
	assert.Equal(suite.T(), testConsumer.UserID, ratings[0].UserID)
}

func (suite *RatingServiceTestSuite) TestListMyRatings() {
	suite.grantAccessFor(testConsumer)
	other := models.Principal{UserID: 42, Email: "second@example.com", FullName: "Second Reviewer", Role: models.UserRoleConsumer}
	suite.grantAccessFor(other)

	_, err := suite.svc.SubmitRating(testConsumer, &SubmitRatingRequest{DatasetID: suite.dataset.ID, Rating: 4})
	require.NoError(suite.T(), err)
	_, err = suite.svc.SubmitRating(other, &SubmitRatingRequest{DatasetID: suite.dataset.ID, Rating: 2})
	require.NoError(suite.T(), err)

	ratings, total, err := suite.svc.ListMyRatings(testConsumer, utils.PaginationParams{Size: 20, SortBy: "created_at", SortDirection: "desc"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), total)
	require.Len(suite.T(), ratings, 1)
	assert.Equal(suite.T(), testConsumer.UserID, ratings[0].UserID)
}

func TestRatingServiceSuite(t *testing.T) {
	suite.Run(t, new(RatingServiceTestSuite))
}
