// internal/services/transaction_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/nguyenquyen/evdata-backend/internal/config"
	"github.com/nguyenquyen/evdata-backend/internal/models"
	"github.com/nguyenquyen/evdata-backend/internal/utils"
)

var centsFactor = decimal.NewFromInt(100)

type TransactionService struct {
	db      *gorm.DB
	config  *config.Config
	catalog CatalogClient
	access  AccessClient
	gateway PaymentGateway
}

type CreateTransactionRequest struct {
	DatasetID        int64  `json:"dataset_id" validate:"required"`
	TransactionType  string `json:"transaction_type" validate:"required,transaction_type"`
	PaymentMethod    string `json:"payment_method" validate:"required"`
	SubscriptionDays *int   `json:"subscription_days,omitempty" validate:"omitempty,min=1"`
	APICallsLimit    *int   `json:"api_calls_limit,omitempty" validate:"omitempty,min=1"`
	Notes            string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

func NewTransactionService(db *gorm.DB, cfg *config.Config, catalog CatalogClient, access AccessClient, gateway PaymentGateway) *TransactionService {
	return &TransactionService{
		db:      db,
		config:  cfg,
		catalog: catalog,
		access:  access,
		gateway: gateway,
	}
}

// SplitAmount computes the platform fee and provider revenue for an amount.
// Both sides are rounded half-up to 2 decimal places independently; when the
// configured rates do not sum to 1 the remainder stays with the platform.
func SplitAmount(amount decimal.Decimal, commissionRate, revenueShare float64) (platformFee, providerRevenue decimal.Decimal) {
	platformFee = amount.Mul(decimal.NewFromFloat(commissionRate)).Round(2)
	providerRevenue = amount.Mul(decimal.NewFromFloat(revenueShare)).Round(2)
	return platformFee, providerRevenue
}

// CreateTransaction resolves the dataset through the catalog, computes the
// fee split, charges the consumer, and on success grants access as a detached
// best-effort side effect. A catalog or payment failure before persistence
// aborts the transaction; a payment failure after persistence marks it FAILED.
func (s *TransactionService) CreateTransaction(ctx context.Context, principal models.Principal, req *CreateTransactionRequest) (*models.Transaction, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, time.Duration(s.config.Services.RequestTimeout)*time.Second)
	defer cancel()

	info, err := s.catalog.GetDatasetInfo(lookupCtx, req.DatasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dataset: %w", err)
	}

	if info.Status != models.DatasetStatusPublished {
		return nil, errors.New("dataset is not published")
	}

	if info.ProviderID == principal.UserID {
		return nil, errors.New("access denied: providers cannot purchase their own datasets")
	}

	transactionType := models.TransactionType(req.TransactionType)
	if transactionType == models.TransactionTypeSubscription && req.SubscriptionDays == nil {
		return nil, errors.New("validation failed: subscription_days is required for subscription transactions")
	}
	if transactionType == models.TransactionTypeAPIAccess && req.APICallsLimit == nil {
		return nil, errors.New("validation failed: api_calls_limit is required for API access transactions")
	}

	transactionID, err := utils.GenerateTransactionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate transaction id: %w", err)
	}

	amount := info.Price
	platformFee, providerRevenue := SplitAmount(amount, s.config.Payment.CommissionRate, s.config.Payment.RevenueShare)

	transaction := &models.Transaction{
		TransactionID:   transactionID,
		DatasetID:       info.ID,
		DatasetName:     info.Name,
		ProviderID:      info.ProviderID,
		ProviderName:    info.ProviderName,
		ConsumerID:      principal.UserID,
		ConsumerName:    principal.FullName,
		ConsumerEmail:   principal.Email,
		TransactionType: transactionType,
		Amount:          amount,
		PlatformFee:     platformFee,
		ProviderRevenue: providerRevenue,
		Currency:        info.Currency,
		PaymentMethod:   req.PaymentMethod,
		Status:          models.TransactionStatusPending,
		Notes:           req.Notes,
		APICallsLimit:   req.APICallsLimit,
	}

	if transactionType == models.TransactionTypeSubscription {
		start := time.Now()
		end := start.AddDate(0, 0, *req.SubscriptionDays)
		transaction.SubscriptionStartDate = &start
		transaction.SubscriptionEndDate = &end
		transaction.SubscriptionDays = req.SubscriptionDays
	}

	if err := s.db.Create(transaction).Error; err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	gatewayID, payErr := s.gateway.ProcessPayment(ctx, transaction)
	if payErr != nil {
		logrus.WithError(payErr).WithField("transaction_id", transaction.TransactionID).Error("Payment failed")
		if err := s.db.Model(transaction).Update("status", models.TransactionStatusFailed).Error; err != nil {
			logrus.WithError(err).Error("Failed to mark transaction as failed")
		}
		transaction.Status = models.TransactionStatusFailed
		return transaction, nil
	}

	now := time.Now()
	if err := s.db.Model(transaction).Updates(map[string]interface{}{
		"status":             models.TransactionStatusCompleted,
		"completed_at":       now,
		"payment_gateway_id": gatewayID,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to complete transaction: %w", err)
	}
	transaction.Status = models.TransactionStatusCompleted
	transaction.CompletedAt = &now
	transaction.PaymentGatewayID = gatewayID

	// Access grant is advisory; its failure never rolls back the transaction
	go s.grantAccessForTransaction(*transaction)

	return transaction, nil
}

// grantAccessForTransaction runs detached from the request with its own
// timeout. Failures are logged and swallowed.
func (s *TransactionService) grantAccessForTransaction(transaction models.Transaction) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.config.Services.RequestTimeout)*time.Second)
	defer cancel()

	cmd := GrantAccessCommand{
		DatasetID:        transaction.DatasetID,
		UserID:           transaction.ConsumerID,
		UserEmail:        transaction.ConsumerEmail,
		UserName:         transaction.ConsumerName,
		AccessType:       models.AccessTypeForTransaction(transaction.TransactionType),
		PricePaid:        transaction.Amount,
		TransactionID:    transaction.TransactionID,
		SubscriptionDays: transaction.SubscriptionDays,
		APICallsLimit:    transaction.APICallsLimit,
	}

	// The grant itself bumps the dataset's purchase counter.
	if _, err := s.access.GrantAccess(ctx, cmd); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"transaction_id": transaction.TransactionID,
			"dataset_id":     transaction.DatasetID,
			"consumer_id":    transaction.ConsumerID,
		}).Error("Failed to grant access for completed transaction")
	}
}

func (s *TransactionService) GetTransaction(principal models.Principal, transactionID int64) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.First(&transaction, transactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("transaction not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if transaction.ConsumerID != principal.UserID && transaction.ProviderID != principal.UserID && !principal.IsAdmin() {
		return nil, errors.New("access denied: not a party to this transaction")
	}

	return &transaction, nil
}

func (s *TransactionService) GetTransactionByReference(principal models.Principal, reference string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("transaction_id = ?", reference).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("transaction not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if transaction.ConsumerID != principal.UserID && transaction.ProviderID != principal.UserID && !principal.IsAdmin() {
		return nil, errors.New("access denied: not a party to this transaction")
	}

	return &transaction, nil
}

func (s *TransactionService) ListMyTransactions(principal models.Principal, params utils.PaginationParams) ([]models.Transaction, int64, error) {
	return s.listTransactions(s.db.Model(&models.Transaction{}).Where("consumer_id = ?", principal.UserID), params)
}

func (s *TransactionService) ListProviderTransactions(principal models.Principal, params utils.PaginationParams) ([]models.Transaction, int64, error) {
	return s.listTransactions(s.db.Model(&models.Transaction{}).Where("provider_id = ?", principal.UserID), params)
}

func (s *TransactionService) listTransactions(query *gorm.DB, params utils.PaginationParams) ([]models.Transaction, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	var transactions []models.Transaction
	query = utils.ApplySort(query, params, []string{"created_at", "amount", "completed_at"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&transactions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	return transactions, total, nil
}

// CancelTransaction cancels a transaction that is still pending. Only the
// consumer may cancel.
func (s *TransactionService) CancelTransaction(principal models.Principal, transactionID int64) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.First(&transaction, transactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("transaction not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if transaction.ConsumerID != principal.UserID {
		return nil, errors.New("access denied: only the consumer can cancel a transaction")
	}

	if transaction.Status != models.TransactionStatusPending {
		return nil, fmt.Errorf("invalid state: cannot cancel transaction in status %s", transaction.Status)
	}

	if err := s.db.Model(&transaction).Update("status", models.TransactionStatusCancelled).Error; err != nil {
		return nil, fmt.Errorf("failed to cancel transaction: %w", err)
	}
	transaction.Status = models.TransactionStatusCancelled

	return &transaction, nil
}
