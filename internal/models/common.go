// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return nil
		}
	}

	return json.Unmarshal(bytes, j)
}

// Principal is the verified identity attached to every authenticated request.
// The identity service issues it; this backend trusts the claims verbatim and
// passes the value explicitly into each service operation.
type Principal struct {
	UserID   int64    `json:"user_id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == UserRoleAdmin
}

func (p Principal) IsProvider() bool {
	return p.Role == UserRoleProvider
}

func (p Principal) IsConsumer() bool {
	return p.Role == UserRoleConsumer
}

// Enums
type UserRole string

const (
	UserRoleAdmin    UserRole = "ADMIN"
	UserRoleProvider UserRole = "DATA_PROVIDER"
	UserRoleConsumer UserRole = "DATA_CONSUMER"
)

type DatasetStatus string

const (
	DatasetStatusDraft     DatasetStatus = "DRAFT"
	DatasetStatusPublished DatasetStatus = "PUBLISHED"
	DatasetStatusArchived  DatasetStatus = "ARCHIVED"
	DatasetStatusSuspended DatasetStatus = "SUSPENDED"
)

type PricingModel string

const (
	PricingModelFree           PricingModel = "FREE"
	PricingModelPayPerDownload PricingModel = "PAY_PER_DOWNLOAD"
	PricingModelSubscription   PricingModel = "SUBSCRIPTION"
	PricingModelAPIBased       PricingModel = "API_BASED"
)

type AccessType string

const (
	AccessTypeDownload     AccessType = "DOWNLOAD"
	AccessTypeAPI          AccessType = "API"
	AccessTypeSubscription AccessType = "SUBSCRIPTION"
	AccessTypeView         AccessType = "VIEW"
)

type AccessStatus string

const (
	AccessStatusActive  AccessStatus = "ACTIVE"
	AccessStatusExpired AccessStatus = "EXPIRED"
	AccessStatusRevoked AccessStatus = "REVOKED"
)

type TransactionType string

const (
	TransactionTypePurchase     TransactionType = "PURCHASE"
	TransactionTypeSubscription TransactionType = "SUBSCRIPTION"
	TransactionTypeAPIAccess    TransactionType = "API_ACCESS"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusRefunded  TransactionStatus = "REFUNDED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "PENDING"
	RefundStatusApproved  RefundStatus = "APPROVED"
	RefundStatusCompleted RefundStatus = "COMPLETED"
	RefundStatusRejected  RefundStatus = "REJECTED"
)

type RefundReason string

const (
	RefundReasonDuplicate      RefundReason = "DUPLICATE"
	RefundReasonDataQuality    RefundReason = "DATA_QUALITY"
	RefundReasonNotAsDescribed RefundReason = "NOT_AS_DESCRIBED"
	RefundReasonServiceIssue   RefundReason = "SERVICE_ISSUE"
	RefundReasonOther          RefundReason = "OTHER"
)

type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "PENDING"
	PayoutStatusProcessing PayoutStatus = "PROCESSING"
	PayoutStatusPaid       PayoutStatus = "PAID"
)

// AccessTypeForTransaction maps a monetized transaction type onto the access
// type the ledger grants once payment completes.
func AccessTypeForTransaction(t TransactionType) AccessType {
	switch t {
	case TransactionTypeSubscription:
		return AccessTypeSubscription
	case TransactionTypeAPIAccess:
		return AccessTypeAPI
	default:
		return AccessTypeDownload
	}
}
