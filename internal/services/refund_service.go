// internal/services/refund_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/nguyenquyen/evdata-backend/internal/database"
	"github.com/nguyenquyen/evdata-backend/internal/models"
	"github.com/nguyenquyen/evdata-backend/internal/utils"
)

type RefundService struct {
	db      *gorm.DB
	gateway PaymentGateway
	timeout time.Duration
}

type CreateRefundRequest struct {
	TransactionID int64           `json:"transaction_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	Reason        string          `json:"reason" validate:"required,refund_reason"`
	Description   string          `json:"description,omitempty" validate:"omitempty,max=2000"`
}

type RejectRefundRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

func NewRefundService(db *gorm.DB, gateway PaymentGateway, timeout time.Duration) *RefundService {
	return &RefundService{db: db, gateway: gateway, timeout: timeout}
}

// CreateRefund files a refund request against a completed transaction. The
// requested amount plus any refunds already pending or paid out for the same
// transaction may not exceed the transaction amount.
func (s *RefundService) CreateRefund(principal models.Principal, req *CreateRefundRequest) (*models.Refund, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("validation failed: refund amount must be positive")
	}

	var transaction models.Transaction
	if err := s.db.First(&transaction, req.TransactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("transaction not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if transaction.ConsumerID != principal.UserID && transaction.ProviderID != principal.UserID {
		return nil, errors.New("access denied: not a party to this transaction")
	}

	if transaction.Status != models.TransactionStatusCompleted {
		return nil, errors.New("transaction is not eligible for refund")
	}

	if req.Amount.GreaterThan(transaction.Amount) {
		return nil, errors.New("refund amount exceeds transaction amount")
	}

	var refunded decimal.NullDecimal
	if err := s.db.Model(&models.Refund{}).
		Where("transaction_id = ? AND status IN ?", transaction.ID,
			[]models.RefundStatus{models.RefundStatusPending, models.RefundStatusApproved, models.RefundStatusCompleted}).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&refunded).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if refunded.Decimal.Add(req.Amount).GreaterThan(transaction.Amount) {
		return nil, errors.New("refund amount exceeds the refundable balance")
	}

	refundID, err := utils.GenerateRefundID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refund id: %w", err)
	}

	refund := &models.Refund{
		RefundID:        refundID,
		TransactionID:   transaction.ID,
		Amount:          req.Amount,
		Currency:        transaction.Currency,
		Reason:          models.RefundReason(req.Reason),
		Description:     req.Description,
		Status:          models.RefundStatusPending,
		RequestedBy:     principal.UserID,
		RequestedByName: principal.FullName,
	}

	if err := s.db.Create(refund).Error; err != nil {
		return nil, fmt.Errorf("failed to create refund: %w", err)
	}

	return refund, nil
}

// ApproveRefund moves a pending refund to APPROVED, processes it through the
// gateway, and on success completes the refund and flips the transaction to
// REFUNDED in one transaction. A gateway failure leaves the refund APPROVED
// for a later retry.
func (s *RefundService) ApproveRefund(principal models.Principal, refundID int64) (*models.Refund, error) {
	if !principal.IsAdmin() {
		return nil, errors.New("access denied: admin role required")
	}

	var refund models.Refund
	if err := s.db.Preload("Transaction").First(&refund, refundID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("refund not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if refund.Status != models.RefundStatusPending {
		return nil, fmt.Errorf("invalid state: cannot approve refund in status %s", refund.Status)
	}

	now := time.Now()
	if err := s.db.Model(&refund).Updates(map[string]interface{}{
		"status":           models.RefundStatusApproved,
		"approved_by":      principal.UserID,
		"approved_by_name": principal.FullName,
		"approved_at":      now,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to approve refund: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	gatewayRefundID, err := s.gateway.ProcessRefund(ctx, &refund, &refund.Transaction)
	if err != nil {
		logrus.WithError(err).WithField("refund_id", refund.RefundID).Error("Refund processing failed; refund stays approved")
		return s.reload(refundID)
	}

	completedAt := time.Now()
	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Model(&models.Refund{}).Where("id = ?", refund.ID).
			Updates(map[string]interface{}{
				"status":                    models.RefundStatusCompleted,
				"completed_at":              completedAt,
				"payment_gateway_refund_id": gatewayRefundID,
			}).Error; err != nil {
			return fmt.Errorf("failed to complete refund: %w", err)
		}

		if err := tx.Model(&models.Transaction{}).Where("id = ?", refund.TransactionID).
			Update("status", models.TransactionStatusRefunded).Error; err != nil {
			return fmt.Errorf("failed to mark transaction refunded: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.reload(refundID)
}

// RejectRefund marks a pending refund REJECTED and appends the admin's reason
// to the description. The transaction is untouched.
func (s *RefundService) RejectRefund(principal models.Principal, refundID int64, req *RejectRefundRequest) (*models.Refund, error) {
	if !principal.IsAdmin() {
		return nil, errors.New("access denied: admin role required")
	}

	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var refund models.Refund
	if err := s.db.First(&refund, refundID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("refund not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if refund.Status != models.RefundStatusPending {
		return nil, fmt.Errorf("invalid state: cannot reject refund in status %s", refund.Status)
	}

	description := refund.Description
	if description != "" {
		description += "\n"
	}
	description += "Rejection reason: " + req.Reason

	if err := s.db.Model(&refund).Updates(map[string]interface{}{
		"status":      models.RefundStatusRejected,
		"description": description,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to reject refund: %w", err)
	}

	return s.reload(refundID)
}

func (s *RefundService) GetRefund(principal models.Principal, refundID int64) (*models.Refund, error) {
	var refund models.Refund
	if err := s.db.Preload("Transaction").First(&refund, refundID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("refund not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if refund.RequestedBy != principal.UserID &&
		refund.Transaction.ProviderID != principal.UserID &&
		refund.Transaction.ConsumerID != principal.UserID &&
		!principal.IsAdmin() {
		return nil, errors.New("access denied: not a party to this refund")
	}

	return &refund, nil
}

func (s *RefundService) ListMyRefunds(principal models.Principal, params utils.PaginationParams) ([]models.Refund, int64, error) {
	return s.listRefunds(s.db.Model(&models.Refund{}).Where("requested_by = ?", principal.UserID), params)
}

// ListPendingRefunds is the admin review queue.
func (s *RefundService) ListPendingRefunds(principal models.Principal, params utils.PaginationParams) ([]models.Refund, int64, error) {
	if !principal.IsAdmin() {
		return nil, 0, errors.New("access denied: admin role required")
	}
	return s.listRefunds(s.db.Model(&models.Refund{}).Where("status = ?", models.RefundStatusPending), params)
}

func (s *RefundService) listRefunds(query *gorm.DB, params utils.PaginationParams) ([]models.Refund, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count refunds: %w", err)
	}

	var refunds []models.Refund
	query = utils.ApplySort(query, params, []string{"created_at", "amount"})
	query = utils.ApplyPagination(query, params)
	if err := query.Preload("Transaction").Find(&refunds).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch refunds: %w", err)
	}

	return refunds, total, nil
}

func (s *RefundService) reload(refundID int64) (*models.Refund, error) {
	var refund models.Refund
	if err := s.db.Preload("Transaction").First(&refund, refundID).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &refund, nil
}
