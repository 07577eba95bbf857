// internal/models/refund.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Refund struct {
	BaseModel
	RefundID      string `json:"refund_id" gorm:"uniqueIndex;size:100;not null"`
	TransactionID int64  `json:"transaction_id" gorm:"not null;index"`

	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	Currency    string          `json:"currency" gorm:"size:10;default:'USD'"`
	Reason      RefundReason    `json:"reason" gorm:"type:varchar(30);not null"`
	Description string          `json:"description" gorm:"type:text"`
	Status      RefundStatus    `json:"status" gorm:"type:varchar(20);default:'PENDING';index"`

	RequestedBy     int64  `json:"requested_by" gorm:"not null;index"`
	RequestedByName string `json:"requested_by_name" gorm:"size:200"`

	ApprovedBy     *int64     `json:"approved_by"`
	ApprovedByName string     `json:"approved_by_name,omitempty" gorm:"size:200"`
	ApprovedAt     *time.Time `json:"approved_at"`

	PaymentGatewayRefundID string     `json:"payment_gateway_refund_id,omitempty" gorm:"size:200"`
	CompletedAt            *time.Time `json:"completed_at"`

	// Relationships
	Transaction Transaction `json:"transaction,omitempty" gorm:"foreignKey:TransactionID;references:ID"`
}
