// internal/services/revenue_service_test.go
package services

import (
	"fmt"
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

type RevenueServiceTestSuite struct {
	suite.Suite
	db  *gorm.DB
	svc *RevenueService
	seq int
}

func (suite *RevenueServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.svc = NewRevenueService(suite.db)
	suite.seq = 0
}

func (suite *RevenueServiceTestSuite) seedTransaction(providerID, datasetID int64, amount string, status models.TransactionStatus, createdAt time.Time) {
	suite.seq++
	amountDec, err := decimal.NewFromString(amount)
	require.NoError(suite.T(), err)
	fee, revenue := SplitAmount(amountDec, 0.15, 0.85)

	require.NoError(suite.T(), suite.db.Create(&models.Transaction{
		BaseModel:       models.BaseModel{CreatedAt: createdAt, UpdatedAt: createdAt},
		TransactionID:   fmt.Sprintf("EVT_REVENUETEST%07d", suite.seq),
		DatasetID:       datasetID,
		DatasetName:     fmt.Sprintf("Dataset %d", datasetID),
		ProviderID:      providerID,
		ProviderName:    fmt.Sprintf("Provider %d", providerID),
		ConsumerID:      testConsumer.UserID,
		ConsumerName:    testConsumer.FullName,
		ConsumerEmail:   testConsumer.Email,
		TransactionType: models.TransactionTypePurchase,
		Amount:          amountDec,
		PlatformFee:     fee,
		ProviderRevenue: revenue,
		Currency:        "USD",
		PaymentMethod:   "CREDIT_CARD",
		Status:          status,
	}).Error)
}

func (suite *RevenueServiceTestSuite) TestCalculateMonthlyRevenue() {
	july := time.Date(2026, time.July, 10, 12, 0, 0, 0, time.UTC)

	// Provider 1: two completed purchases across two datasets, one failed
	suite.seedTransaction(1, 10, "100.00", models.TransactionStatusCompleted, july)
	suite.seedTransaction(1, 10, "100.00", models.TransactionStatusCompleted, july.Add(24*time.Hour))
	suite.seedTransaction(1, 11, "50.00", models.TransactionStatusCompleted, july.Add(48*time.Hour))
	suite.seedTransaction(1, 10, "100.00", models.TransactionStatusFailed, july)

	// Provider 2: one completed purchase
	suite.seedTransaction(2, 20, "200.00", models.TransactionStatusCompleted, july)

	// Outside the period
	suite.seedTransaction(1, 10, "100.00", models.TransactionStatusCompleted, july.AddDate(0, 1, 0))

	results, err := suite.svc.CalculateMonthlyRevenue(2026, 7)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), results, 2)

	byProvider := make(map[int64]models.ProviderRevenue)
	for _, r := range results {
		byProvider[r.ProviderID] = r
	}

	p1 := byProvider[1]
	assert.Equal(suite.T(), "250.00", p1.TotalRevenue.StringFixed(2))
	assert.Equal(suite.T(), "37.50", p1.PlatformFee.StringFixed(2))
	assert.Equal(suite.T(), "212.50", p1.NetRevenue.StringFixed(2))
	assert.Equal(suite.T(), 3, p1.TotalTransactions)
	assert.Equal(suite.T(), 2, p1.TotalDatasets)
	assert.Equal(suite.T(), models.PayoutStatusPending, p1.PaymentStatus)

	p2 := byProvider[2]
	assert.Equal(suite.T(), "200.00", p2.TotalRevenue.StringFixed(2))
	assert.Equal(suite.T(), 1, p2.TotalTransactions)
	assert.Equal(suite.T(), 1, p2.TotalDatasets)
}

func (suite *RevenueServiceTestSuite) TestRecomputeIsIdempotent() {
	july := time.Date(2026, time.July, 5, 0, 0, 0, 0, time.UTC)
	suite.seedTransaction(1, 10, "100.00", models.TransactionStatusCompleted, july)

	first, err := suite.svc.CalculateMonthlyRevenue(2026, 7)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), first, 1)

	// A late transaction lands, then the period is recomputed
	suite.seedTransaction(1, 10, "60.00", models.TransactionStatusCompleted, july.Add(time.Hour))

	second, err := suite.svc.CalculateMonthlyRevenue(2026, 7)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), second, 1)
	assert.Equal(suite.T(), "160.00", second[0].TotalRevenue.StringFixed(2))
	assert.Equal(suite.T(), 2, second[0].TotalTransactions)

	// Still one row for the period, updated in place
	var count int64
	suite.db.Model(&models.ProviderRevenue{}).
		Where("provider_id = ? AND year = ? AND month = ?", 1, 2026, 7).
		Count(&count)
	assert.Equal(suite.T(), int64(1), count)
	assert.Equal(suite.T(), first[0].ID, second[0].ID)
}

func (suite *RevenueServiceTestSuite) TestInvalidMonthRejected() {
	_, err := suite.svc.CalculateMonthlyRevenue(2026, 13)
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "month must be between 1 and 12")

	_, err = suite.svc.CalculateMonthlyRevenue(2026, 0)
	require.Error(suite.T(), err)
}

func (suite *RevenueServiceTestSuite) TestEmptyPeriodProducesNoRows() {
	results, err := suite.svc.CalculateMonthlyRevenue(2026, 2)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), results)
}

func (suite *RevenueServiceTestSuite) TestListMyRevenue() {
	july := time.Date(2026, time.July, 5, 0, 0, 0, 0, time.UTC)
	suite.seedTransaction(testProvider.UserID, 10, "100.00", models.TransactionStatusCompleted, july)
	suite.seedTransaction(99, 20, "100.00", models.TransactionStatusCompleted, july)

	_, err := suite.svc.CalculateMonthlyRevenue(2026, 7)
	require.NoError(suite.T(), err)

	rows, total, err := suite.svc.ListMyRevenue(testProvider, utils.PaginationParams{Size: 20, SortBy: "created_at", SortDirection: "desc"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), total)
	require.Len(suite.T(), rows, 1)
	assert.Equal(suite.T(), testProvider.UserID, rows[0].ProviderID)
}

func (suite *RevenueServiceTestSuite) TestListAllRevenueAdminOnly() {
	_, _, err := suite.svc.ListAllRevenue(testProvider, 0, 0, utils.PaginationParams{Size: 20})
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "access denied")

	july := time.Date(2026, time.July, 5, 0, 0, 0, 0, time.UTC)
	august := time.Date(2026, time.August, 5, 0, 0, 0, 0, time.UTC)
	suite.seedTransaction(1, 10, "100.00", models.TransactionStatusCompleted, july)
	suite.seedTransaction(1, 10, "100.00", models.TransactionStatusCompleted, august)

	_, err = suite.svc.CalculateMonthlyRevenue(2026, 7)
	require.NoError(suite.T(), err)
	_, err = suite.svc.CalculateMonthlyRevenue(2026, 8)
	require.NoError(suite.T(), err)

	_, total, err := suite.svc.ListAllRevenue(testAdmin, 0, 0, utils.PaginationParams{Size: 20, SortBy: "created_at", SortDirection: "desc"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(2), total)

	_, total, err = suite.svc.ListAllRevenue(testAdmin, 2026, 8, utils.PaginationParams{Size: 20, SortBy: "created_at", SortDirection: "desc"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), total)
}

func (suite *RevenueServiceTestSuite) TestMarkAsPaid() {
	july := time.Date(2026, time.July, 5, 0, 0, 0, 0, time.UTC)
	suite.seedTransaction(1, 10, "100.00", models.TransactionStatusCompleted, july)

	rows, err := suite.svc.CalculateMonthlyRevenue(2026, 7)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), rows, 1)

	_, err = suite.svc.MarkAsPaid(testProvider, rows[0].ID, "WIRE-2026-07-001")
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "access denied")

	paid, err := suite.svc.MarkAsPaid(testAdmin, rows[0].ID, "WIRE-2026-07-001")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.PayoutStatusPaid, paid.PaymentStatus)
	assert.Equal(suite.T(), "WIRE-2026-07-001", paid.PaymentReference)
	require.NotNil(suite.T(), paid.PaidAt)

	// Marking again is a no-op and keeps the original reference
	again, err := suite.svc.MarkAsPaid(testAdmin, rows[0].ID, "WIRE-DIFFERENT")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "WIRE-2026-07-001", again.PaymentReference)
}

func (suite *RevenueServiceTestSuite) TestGetRevenueByMonth() {
	july := time.Date(2026, time.July, 5, 0, 0, 0, 0, time.UTC)
	suite.seedTransaction(testProvider.UserID, 10, "100.00", models.TransactionStatusCompleted, july)

	_, err := suite.svc.CalculateMonthlyRevenue(2026, 7)
	require.NoError(suite.T(), err)

	revenue, err := suite.svc.GetRevenueByMonth(testProvider, 2026, 7)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "100.00", revenue.TotalRevenue.StringFixed(2))

	_, err = suite.svc.GetRevenueByMonth(testProvider, 2026, 6)
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "not found")

	_, err = suite.svc.GetRevenueByMonth(testProvider, 2026, 13)
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "month must be between 1 and 12")
}

func (suite *RevenueServiceTestSuite) TestGetTotalEarnings() {
	july := time.Date(2026, time.July, 5, 0, 0, 0, 0, time.UTC)
	august := time.Date(2026, time.August, 5, 0, 0, 0, 0, time.UTC)
	suite.seedTransaction(testProvider.UserID, 10, "100.00", models.TransactionStatusCompleted, july)
	suite.seedTransaction(testProvider.UserID, 10, "200.00", models.TransactionStatusCompleted, august)

	julyRows, err := suite.svc.CalculateMonthlyRevenue(2026, 7)
	require.NoError(suite.T(), err)
	_, err = suite.svc.CalculateMonthlyRevenue(2026, 8)
	require.NoError(suite.T(), err)

	// Nothing paid out yet
	total, err := suite.svc.GetTotalEarnings(testProvider)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "0.00", total.StringFixed(2))

	// Only paid periods count
	_, err = suite.svc.MarkAsPaid(testAdmin, julyRows[0].ID, "WIRE-2026-07-001")
	require.NoError(suite.T(), err)

	total, err = suite.svc.GetTotalEarnings(testProvider)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "85.00", total.StringFixed(2))
}

func (suite *RevenueServiceTestSuite) TestGetPaymentStats() {
	_, err := suite.svc.GetPaymentStats(testProvider)
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "access denied")

	july := time.Date(2026, time.July, 5, 0, 0, 0, 0, time.UTC)
	suite.seedTransaction(1, 10, "100.00", models.TransactionStatusCompleted, july)
	suite.seedTransaction(1, 10, "50.00", models.TransactionStatusCompleted, july)
	suite.seedTransaction(1, 10, "75.00", models.TransactionStatusFailed, july)
	suite.seedTransaction(2, 20, "25.00", models.TransactionStatusPending, july)

	stats, err := suite.svc.GetPaymentStats(testAdmin)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(4), stats.TotalTransactions)
	assert.Equal(suite.T(), int64(2), stats.CompletedTransactions)
	assert.Equal(suite.T(), int64(1), stats.PendingTransactions)
	assert.Equal(suite.T(), int64(1), stats.FailedTransactions)
	assert.Equal(suite.T(), "150.00", stats.TotalRevenue.StringFixed(2))
	assert.Equal(suite.T(), "22.50", stats.PlatformFees.StringFixed(2))
	assert.Equal(suite.T(), "127.50", stats.ProviderRevenues.StringFixed(2))
	assert.Equal(suite.T(), int64(2), stats.TransactionsByType["PURCHASE"])
	assert.Equal(suite.T(), int64(0), stats.TotalRefunds)
	assert.Equal(suite.T(), "0.00", stats.TotalRefundAmount.StringFixed(2))
}

func TestRevenueServiceSuite(t *testing.T) {
	suite.Run(t, new(RevenueServiceTestSuite))
}
