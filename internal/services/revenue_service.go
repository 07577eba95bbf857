// internal/services/revenue_service.go
package services

import (
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

type RevenueService struct {
	db *gorm.DB
}

func NewRevenueService(db *gorm.DB) *RevenueService {
	return &RevenueService{db: db}
}

type providerRollup struct {
	ProviderID        int64
	ProviderName      string
	TotalRevenue      decimal.Decimal
	PlatformFee       decimal.Decimal
	NetRevenue        decimal.Decimal
	TotalTransactions int
	Datasets          map[int64]struct{}
}

// CalculateMonthlyRevenue rolls up the period's completed transactions into
// one ProviderRevenue row per provider. Re-running for the same period
// overwrites prior totals; transactions are never modified.
func (s *RevenueService) CalculateMonthlyRevenue(year, month int) ([]models.ProviderRevenue, error) {
	if month < 1 || month > 12 {
		return nil, errors.New("validation failed: month must be between 1 and 12")
	}

	periodStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)

	var transactions []models.Transaction
	if err := s.db.
		Where("status = ? AND created_at >= ? AND created_at < ?", models.TransactionStatusCompleted, periodStart, periodEnd).
		Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	rollups := make(map[int64]*providerRollup)
	for _, transaction := range transactions {
		r, ok := rollups[transaction.ProviderID]
		if !ok {
			r = &providerRollup{
				ProviderID:   transaction.ProviderID,
				ProviderName: transaction.ProviderName,
				Datasets:     make(map[int64]struct{}),
			}
			rollups[transaction.ProviderID] = r
		}
		r.TotalRevenue = r.TotalRevenue.Add(transaction.Amount)
		r.PlatformFee = r.PlatformFee.Add(transaction.PlatformFee)
		r.NetRevenue = r.NetRevenue.Add(transaction.ProviderRevenue)
		r.TotalTransactions++
		r.Datasets[transaction.DatasetID] = struct{}{}
	}

	results := make([]models.ProviderRevenue, 0, len(rollups))

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		for _, r := range rollups {
			var revenue models.ProviderRevenue
			err := tx.Where("provider_id = ? AND year = ? AND month = ?", r.ProviderID, year, month).
				First(&revenue).Error

			switch {
			case err == nil:
				if err := tx.Model(&revenue).Updates(map[string]interface{}{
					"provider_name":      r.ProviderName,
					"total_revenue":      r.TotalRevenue,
					"platform_fee":       r.PlatformFee,
					"net_revenue":        r.NetRevenue,
					"total_transactions": r.TotalTransactions,
					"total_datasets":     len(r.Datasets),
				}).Error; err != nil {
					return fmt.Errorf("failed to update revenue row: %w", err)
				}
				revenue.ProviderName = r.ProviderName
				revenue.TotalRevenue = r.TotalRevenue
				revenue.PlatformFee = r.PlatformFee
				revenue.NetRevenue = r.NetRevenue
				revenue.TotalTransactions = r.TotalTransactions
				revenue.TotalDatasets = len(r.Datasets)
			case errors.Is(err, gorm.ErrRecordNotFound):
				revenue = models.ProviderRevenue{
					ProviderID:        r.ProviderID,
					ProviderName:      r.ProviderName,
					Year:              year,
					Month:             month,
					TotalRevenue:      r.TotalRevenue,
					PlatformFee:       r.PlatformFee,
					NetRevenue:        r.NetRevenue,
					TotalTransactions: r.TotalTransactions,
					TotalDatasets:     len(r.Datasets),
					PaymentStatus:     models.PayoutStatusPending,
				}
				if err := tx.Create(&revenue).Error; err != nil {
					return fmt.Errorf("failed to create revenue row: %w", err)
				}
			default:
				return fmt.Errorf("database error: %w", err)
			}

			results = append(results, revenue)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"year":      year,
		"month":     month,
		"providers": len(results),
	}).Info("Monthly revenue rollup completed")

	return results, nil
}

// RunMonthlyRollup recomputes the previous calendar month. Wired to the
// scheduler in main.
func (s *RevenueService) RunMonthlyRollup(now time.Time) {
	previous := now.AddDate(0, -1, 0)
	if _, err := s.CalculateMonthlyRevenue(previous.Year(), int(previous.Month())); err != nil {
		logrus.WithError(err).Error("Scheduled monthly revenue rollup failed")
	}
}

func (s *RevenueService) ListMyRevenue(principal models.Principal, params utils.PaginationParams) ([]models.ProviderRevenue, int64, error) {
	return s.listRevenue(s.db.Model(&models.ProviderRevenue{}).Where("provider_id = ?", principal.UserID), params)
}

func (s *RevenueService) ListAllRevenue(principal models.Principal, year, month int, params utils.PaginationParams) ([]models.ProviderRevenue, int64, error) {
	if !principal.IsAdmin() {
		return nil, 0, errors.New("access denied: admin role required")
	}

	query := s.db.Model(&models.ProviderRevenue{})
	if year > 0 {
		query = query.Where("year = ?", year)
	}
	if month > 0 {
		query = query.Where("month = ?", month)
	}

	return s.listRevenue(query, params)
}

func (s *RevenueService) listRevenue(query *gorm.DB, params utils.PaginationParams) ([]models.ProviderRevenue, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count revenue rows: %w", err)
	}

	var revenues []models.ProviderRevenue
	query = utils.ApplySort(query, params, []string{"created_at", "year", "month", "total_revenue", "net_revenue"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&revenues).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch revenue rows: %w", err)
	}

	return revenues, total, nil
}

type PaymentStats struct {
	TotalTransactions     int64            `json:"total_transactions"`
	CompletedTransactions int64            `json:"completed_transactions"`
	PendingTransactions   int64            `json:"pending_transactions"`
	FailedTransactions    int64            `json:"failed_transactions"`
	TotalRevenue          decimal.Decimal  `json:"total_revenue"`
	PlatformFees          decimal.Decimal  `json:"platform_fees"`
	ProviderRevenues      decimal.Decimal  `json:"provider_revenues"`
	TotalRefunds          int64            `json:"total_refunds"`
	TotalRefundAmount     decimal.Decimal  `json:"total_refund_amount"`
	TransactionsByType    map[string]int64 `json:"transactions_by_type"`
	GeneratedAt           time.Time        `json:"generated_at"`
}

// GetPaymentStats aggregates platform-wide transaction and refund totals.
func (s *RevenueService) GetPaymentStats(principal models.Principal) (*PaymentStats, error) {
	if !principal.IsAdmin() {
		return nil, errors.New("access denied: admin role required")
	}

	stats := &PaymentStats{
		TransactionsByType: make(map[string]int64),
		GeneratedAt:        time.Now(),
	}

	if err := s.db.Model(&models.Transaction{}).Count(&stats.TotalTransactions).Error; err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var byStatus []statusCount
	if err := s.db.Model(&models.Transaction{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("failed to count transactions by status: %w", err)
	}
	for _, row := range byStatus {
		switch models.TransactionStatus(row.Status) {
		case models.TransactionStatusCompleted:
			stats.CompletedTransactions = row.Count
		case models.TransactionStatusPending:
			stats.PendingTransactions = row.Count
		case models.TransactionStatusFailed:
			stats.FailedTransactions = row.Count
		}
	}

	var sums struct {
		Revenue decimal.Decimal
		Fees    decimal.Decimal
		Net     decimal.Decimal
	}
	if err := s.db.Model(&models.Transaction{}).
		Where("status = ?", models.TransactionStatusCompleted).
		Select("COALESCE(SUM(amount), 0) as revenue, COALESCE(SUM(platform_fee), 0) as fees, COALESCE(SUM(provider_revenue), 0) as net").
		Scan(&sums).Error; err != nil {
		return nil, fmt.Errorf("failed to sum transaction totals: %w", err)
	}
	stats.TotalRevenue = sums.Revenue
	stats.PlatformFees = sums.Fees
	stats.ProviderRevenues = sums.Net

	type typeCount struct {
		TransactionType string
		Count           int64
	}
	var byType []typeCount
	if err := s.db.Model(&models.Transaction{}).
		Where("status = ?", models.TransactionStatusCompleted).
		Select("transaction_type, COUNT(*) as count").
		Group("transaction_type").
		Scan(&byType).Error; err != nil {
		return nil, fmt.Errorf("failed to count transactions by type: %w", err)
	}
	for _, row := range byType {
		stats.TransactionsByType[row.TransactionType] = row.Count
	}

	if err := s.db.Model(&models.Refund{}).Count(&stats.TotalRefunds).Error; err != nil {
		return nil, fmt.Errorf("failed to count refunds: %w", err)
	}

	var refunded struct {
		Total decimal.Decimal
	}
	if err := s.db.Model(&models.Refund{}).
		Where("status = ?", models.RefundStatusCompleted).
		Select("COALESCE(SUM(amount), 0) as total").
		Scan(&refunded).Error; err != nil {
		return nil, fmt.Errorf("failed to sum refunds: %w", err)
	}
	stats.TotalRefundAmount = refunded.Total

	return stats, nil
}

// GetRevenueByMonth returns the caller's rollup for one period.
func (s *RevenueService) GetRevenueByMonth(principal models.Principal, year, month int) (*models.ProviderRevenue, error) {
	if month < 1 || month > 12 {
		return nil, errors.New("validation failed: month must be between 1 and 12")
	}

	var revenue models.ProviderRevenue
	err := s.db.Where("provider_id = ? AND year = ? AND month = ?", principal.UserID, year, month).
		First(&revenue).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("revenue record not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &revenue, nil
}

// GetTotalEarnings sums the caller's paid-out net revenue across all periods.
func (s *RevenueService) GetTotalEarnings(principal models.Principal) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := s.db.Model(&models.ProviderRevenue{}).
		Where("provider_id = ? AND payment_status = ?", principal.UserID, models.PayoutStatusPaid).
		Select("COALESCE(SUM(net_revenue), 0) as total").
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum earnings: %w", err)
	}

	return row.Total, nil
}

// MarkAsPaid records a payout against a revenue row.
func (s *RevenueService) MarkAsPaid(principal models.Principal, revenueID int64, paymentReference string) (*models.ProviderRevenue, error) {
	if !principal.IsAdmin() {
		return nil, errors.New("access denied: admin role required")
	}

	var revenue models.ProviderRevenue
	if err := s.db.First(&revenue, revenueID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("revenue record not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if revenue.PaymentStatus == models.PayoutStatusPaid {
		return &revenue, nil
	}

	now := time.Now()
	if err := s.db.Model(&revenue).Updates(map[string]interface{}{
		"payment_status":    models.PayoutStatusPaid,
		"paid_at":           now,
		"payment_reference": paymentReference,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to mark revenue as paid: %w", err)
	}

	return &revenue, nil
}
