// internal/models/revenue.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProviderRevenue is the monthly rollup of completed transactions for one
// provider. One row per (provider, year, month); recomputing a period
// overwrites the totals.
type ProviderRevenue struct {
	BaseModel
	ProviderID    int64  `json:"provider_id" gorm:"not null;uniqueIndex:idx_provider_revenues_period,priority:1"`
	ProviderName  string `json:"provider_name" gorm:"size:200;not null"`
	ProviderEmail string `json:"provider_email" gorm:"size:100"`

	Year  int `json:"year" gorm:"not null;uniqueIndex:idx_provider_revenues_period,priority:2"`
	Month int `json:"month" gorm:"not null;uniqueIndex:idx_provider_revenues_period,priority:3"`

	TotalRevenue decimal.Decimal `json:"total_revenue" gorm:"type:decimal(12,2);not null"`
	PlatformFee  decimal.Decimal `json:"platform_fee" gorm:"type:decimal(12,2);not null"`
	NetRevenue   decimal.Decimal `json:"net_revenue" gorm:"type:decimal(12,2);not null"`

	TotalTransactions int `json:"total_transactions" gorm:"not null"`
	TotalDatasets     int `json:"total_datasets" gorm:"not null"`

	PaymentStatus    PayoutStatus `json:"payment_status" gorm:"type:varchar(20);default:'PENDING'"`
	PaidAt           *time.Time   `json:"paid_at"`
	PaymentReference string       `json:"payment_reference,omitempty" gorm:"size:100"`
}
