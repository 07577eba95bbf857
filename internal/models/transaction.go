// internal/models/transaction.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	BaseModel
	TransactionID string `json:"transaction_id" gorm:"uniqueIndex;size:100;not null"`

	DatasetID   int64  `json:"dataset_id" gorm:"not null;index"`
	DatasetName string `json:"dataset_name" gorm:"size:200;not null"`

	ProviderID   int64  `json:"provider_id" gorm:"not null;index"`
	ProviderName string `json:"provider_name" gorm:"size:200;not null"`

	ConsumerID    int64  `json:"consumer_id" gorm:"not null;index"`
	ConsumerName  string `json:"consumer_name" gorm:"size:200;not null"`
	ConsumerEmail string `json:"consumer_email" gorm:"size:100;not null"`

	TransactionType TransactionType `json:"transaction_type" gorm:"type:varchar(20);not null;index"`

	// amount = platformFee + providerRevenue only when the configured rates
	// sum to 1; any remainder is retained by the platform.
	Amount          decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	PlatformFee     decimal.Decimal `json:"platform_fee" gorm:"type:decimal(10,2);not null"`
	ProviderRevenue decimal.Decimal `json:"provider_revenue" gorm:"type:decimal(10,2);not null"`
	Currency        string          `json:"currency" gorm:"size:10;default:'USD'"`

	PaymentMethod    string            `json:"payment_method" gorm:"size:50;not null"`
	Status           TransactionStatus `json:"status" gorm:"type:varchar(20);default:'PENDING';index"`
	PaymentGatewayID string            `json:"payment_gateway_id,omitempty" gorm:"size:200"`

	SubscriptionStartDate *time.Time `json:"subscription_start_date"`
	SubscriptionEndDate   *time.Time `json:"subscription_end_date"`
	SubscriptionDays      *int       `json:"subscription_days"`
	APICallsLimit         *int       `json:"api_calls_limit"`

	Notes       string     `json:"notes,omitempty" gorm:"type:text"`
	CompletedAt *time.Time `json:"completed_at"`
}
