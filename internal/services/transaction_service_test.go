// internal/services/transaction_service_test.go
package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/nguyenquyen/evdata-backend/internal/models"
)

// failingGateway declines every charge and refund.
type failingGateway struct{}

func (g *failingGateway) ProcessPayment(ctx context.Context, transaction *models.Transaction) (string, error) {
	return "", errors.New("card declined")
}

func (g *failingGateway) ProcessRefund(ctx context.Context, refund *models.Refund, transaction *models.Transaction) (string, error) {
	return "", errors.New("refund declined")
}

func TestSplitAmount(t *testing.T) {
	cases := []struct {
		name            string
		amount          string
		platformFee     string
		providerRevenue string
	}{
		{"round amount", "100.00", "15.00", "85.00"},
		{"half split", "50.00", "7.50", "42.50"},
		{"odd cents", "33.35", "5.00", "28.35"},
		{"rounds half up on both sides", "0.10", "0.02", "0.09"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			amount, err := decimal.NewFromString(tc.amount)
			require.NoError(t, err)

			fee, revenue := SplitAmount(amount, 0.15, 0.85)
			assert.Equal(t, tc.platformFee, fee.StringFixed(2))
			assert.Equal(t, tc.providerRevenue, revenue.StringFixed(2))
		})
	}
}

type TransactionServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	datasets *DatasetService
	access   *AccessService
	svc      *TransactionService
	dataset  *models.Dataset
}

func (suite *TransactionServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.datasets = NewDatasetService(suite.db)
	suite.access = NewAccessService(suite.db, suite.datasets)

	cfg := newTestConfig()
	gateway := &SimulatedGateway{Delay: time.Millisecond}
	suite.svc = NewTransactionService(suite.db, cfg,
		NewLocalCatalogClient(suite.datasets), NewLocalAccessClient(suite.access), gateway)

	suite.dataset = seedPublishedDataset(suite.T(), suite.db, suite.datasets, "TX_DS", "100.00")
}

func (suite *TransactionServiceTestSuite) TestPurchaseCompletesAndGrantsAccess() {
	transaction, err := suite.svc.CreateTransaction(context.Background(), testConsumer, &CreateTransactionRequest{
		DatasetID:       suite.dataset.ID,
		TransactionType: "PURCHASE",
		PaymentMethod:   "CREDIT_CARD",
	})
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), models.TransactionStatusCompleted, transaction.Status)
	assert.Contains(suite.T(), transaction.TransactionID, "EVT_")
	assert.Contains(suite.T(), transaction.PaymentGatewayID, "sim_pay_")
	require.NotNil(suite.T(), transaction.CompletedAt)

	assert.Equal(suite.T(), "100.00", transaction.Amount.StringFixed(2))
	assert.Equal(suite.T(), "15.00", transaction.PlatformFee.StringFixed(2))
	assert.Equal(suite.T(), "85.00", transaction.ProviderRevenue.StringFixed(2))

	// The access grant lands asynchronously after the payment completes
	require.Eventually(suite.T(), func() bool {
		var count int64
		suite.db.Model(&models.DatasetAccess{}).
			Where("user_id = ? AND dataset_id = ? AND transaction_id = ?",
				testConsumer.UserID, suite.dataset.ID, transaction.TransactionID).
			Count(&count)
		return count == 1
	}, 2*time.Second, 10*time.Millisecond)

	var grant models.DatasetAccess
	require.NoError(suite.T(), suite.db.
		Where("transaction_id = ?", transaction.TransactionID).First(&grant).Error)
	assert.Equal(suite.T(), models.AccessTypeDownload, grant.AccessType)
	assert.Equal(suite.T(), "100.00", grant.PricePaid.StringFixed(2))
	assert.True(suite.T(), grant.IsActive(time.Now()))

	// The grant bumps the purchase counter exactly once
	require.Eventually(suite.T(), func() bool {
		dataset, err := suite.datasets.GetDataset(suite.dataset.ID)
		return err == nil && dataset.PurchaseCount == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The consumer now sees the full dataset record
	view, err := suite.datasets.GetDatasetByID(&testConsumer, suite.dataset.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), view.HasAccess)
	assert.NotEmpty(suite.T(), view.FileURL)
}

func (suite *TransactionServiceTestSuite) TestSubscriptionSetsPeriodAndExpiry() {
	days := 30
	transaction, err := suite.svc.CreateTransaction(context.Background(), testConsumer, &CreateTransactionRequest{
		DatasetID:        suite.dataset.ID,
		TransactionType:  "SUBSCRIPTION",
		PaymentMethod:    "CREDIT_CARD",
		SubscriptionDays: &days,
	})
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), models.TransactionStatusCompleted, transaction.Status)
	require.NotNil(suite.T(), transaction.SubscriptionStartDate)
	require.NotNil(suite.T(), transaction.SubscriptionEndDate)
	assert.WithinDuration(suite.T(),
		transaction.SubscriptionStartDate.AddDate(0, 0, days),
		*transaction.SubscriptionEndDate, time.Second)

	require.Eventually(suite.T(), func() bool {
		var count int64
		suite.db.Model(&models.DatasetAccess{}).
			Where("transaction_id = ?", transaction.TransactionID).Count(&count)
		return count == 1
	}, 2*time.Second, 10*time.Millisecond)

	var grant models.DatasetAccess
	require.NoError(suite.T(), suite.db.
		Where("transaction_id = ?", transaction.TransactionID).First(&grant).Error)
	assert.Equal(suite.T(), models.AccessTypeSubscription, grant.AccessType)
	require.NotNil(suite.T(), grant.ExpiresAt)
	assert.WithinDuration(suite.T(), time.Now().AddDate(0, 0, days), *grant.ExpiresAt, time.Minute)
}

func (suite *TransactionServiceTestSuite) TestSubscriptionRequiresDays() {
	_, err := suite.svc.CreateTransaction(context.Background(), testConsumer, &CreateTransactionRequest{
		DatasetID:       suite.dataset.ID,
		TransactionType: "SUBSCRIPTION",
		PaymentMethod:   "CREDIT_CARD",
	})
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "subscription_days is required")
}

func (suite *TransactionServiceTestSuite) TestAPIAccessRequiresCallLimit() {
	_, err := suite.svc.CreateTransaction(context.Background(), testConsumer, &CreateTransactionRequest{
		DatasetID:       suite.dataset.ID,
		TransactionType: "API_ACCESS",
		PaymentMethod:   "CREDIT_CARD",
	})
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "api_calls_limit is required")
}

func (suite *TransactionServiceTestSuite) TestSelfPurchaseRejected() {
	_, err := suite.svc.CreateTransaction(context.Background(), testProvider, &CreateTransactionRequest{
		DatasetID:       suite.dataset.ID,
		TransactionType: "PURCHASE",
		PaymentMethod:   "CREDIT_CARD",
	})
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "access denied")
}

func (suite *TransactionServiceTestSuite) TestUnpublishedDatasetRejected() {
	category := seedCategory(suite.T(), suite.db)
	draft, err := suite.datasets.CreateDataset(testProvider, &CreateDatasetRequest{
		Code:         "TX_DRAFT",
		Name:         "Draft Pricing Data",
		Description:  "Charging price history pending review",
		CategoryID:   category.ID,
		DataType:     "PRICING",
		Format:       "CSV",
		PricingModel: "PAY_PER_DOWNLOAD",
		Price:        decimal.NewFromInt(10),
	})
	require.NoError(suite.T(), err)

	_, err = suite.svc.CreateTransaction(context.Background(), testConsumer, &CreateTransactionRequest{
		DatasetID:       draft.ID,
		TransactionType: "PURCHASE",
		PaymentMethod:   "CREDIT_CARD",
	})
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "not published")
}

func (suite *TransactionServiceTestSuite) TestPaymentFailureMarksTransactionFailed() {
	svc := NewTransactionService(suite.db, newTestConfig(),
		NewLocalCatalogClient(suite.datasets), NewLocalAccessClient(suite.access), &failingGateway{})

	transaction, err := svc.CreateTransaction(context.Background(), testConsumer, &CreateTransactionRequest{
		DatasetID:       suite.dataset.ID,
		TransactionType: "PURCHASE",
		PaymentMethod:   "CREDIT_CARD",
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.TransactionStatusFailed, transaction.Status)
	assert.Nil(suite.T(), transaction.CompletedAt)

	// Failed payments never grant access
	var count int64
	suite.db.Model(&models.DatasetAccess{}).
		Where("user_id = ? AND dataset_id = ?", testConsumer.UserID, suite.dataset.ID).
		Count(&count)
	assert.Equal(suite.T(), int64(0), count)
}

func (suite *TransactionServiceTestSuite) TestGetTransactionPartyCheck() {
	transaction, err := suite.svc.CreateTransaction(context.Background(), testConsumer, &CreateTransactionRequest{
		DatasetID:       suite.dataset.ID,
		TransactionType: "PURCHASE",
		PaymentMethod:   "CREDIT_CARD",
	})
	require.NoError(suite.T(), err)

	// Consumer, provider, and admin may read it
	for _, principal := range []models.Principal{testConsumer, testProvider, testAdmin} {
		got, err := suite.svc.GetTransaction(principal, transaction.ID)
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), transaction.TransactionID, got.TransactionID)
	}

	byRef, err := suite.svc.GetTransactionByReference(testConsumer, transaction.TransactionID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), transaction.ID, byRef.ID)

	stranger := models.Principal{UserID: 77, Email: "x@example.com", FullName: "Stranger", Role: models.UserRoleConsumer}
	_, err = suite.svc.GetTransaction(stranger, transaction.ID)
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "access denied")
}

func (suite *TransactionServiceTestSuite) TestCancelPendingOnly() {
	pending := &models.Transaction{
		TransactionID:   "EVT_TESTPENDING00000001",
		DatasetID:       suite.dataset.ID,
		DatasetName:     suite.dataset.Name,
		ProviderID:      testProvider.UserID,
		ProviderName:    testProvider.FullName,
		ConsumerID:      testConsumer.UserID,
		ConsumerName:    testConsumer.FullName,
		ConsumerEmail:   testConsumer.Email,
		TransactionType: models.TransactionTypePurchase,
		Amount:          decimal.NewFromInt(100),
		PlatformFee:     decimal.NewFromInt(15),
		ProviderRevenue: decimal.NewFromInt(85),
		Currency:        "USD",
		PaymentMethod:   "CREDIT_CARD",
		Status:          models.TransactionStatusPending,
	}
	require.NoError(suite.T(), suite.db.Create(pending).Error)

	// Only the consumer may cancel
	_, err := suite.svc.CancelTransaction(testProvider, pending.ID)
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "access denied")

	cancelled, err := suite.svc.CancelTransaction(testConsumer, pending.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.TransactionStatusCancelled, cancelled.Status)

	// A cancelled transaction cannot be cancelled again
	_, err = suite.svc.CancelTransaction(testConsumer, pending.ID)
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "invalid state")
}

func TestTransactionServiceSuite(t *testing.T) {
	suite.Run(t, new(TransactionServiceTestSuite))
}
