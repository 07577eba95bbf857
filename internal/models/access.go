// internal/models/access.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DatasetAccess struct {
	BaseModel
	DatasetID int64  `json:"dataset_id" gorm:"not null;index:idx_dataset_accesses_user_dataset,priority:2"`
	UserID    int64  `json:"user_id" gorm:"not null;index:idx_dataset_accesses_user_dataset,priority:1"`
	UserEmail string `json:"user_email" gorm:"size:100;not null"`
	UserName  string `json:"user_name" gorm:"size:100;not null"`

	AccessType AccessType   `json:"access_type" gorm:"type:varchar(20);not null"`
	Status     AccessStatus `json:"status" gorm:"type:varchar(20);default:'ACTIVE';index"`
	ExpiresAt  *time.Time   `json:"expires_at"`

	PricePaid     decimal.Decimal `json:"price_paid" gorm:"type:decimal(10,2);not null"`
	TransactionID string          `json:"transaction_id,omitempty" gorm:"size:100;index"`

	// Issued only for API-type access.
	APIAccessToken string `json:"api_access_token,omitempty" gorm:"size:500"`
	APICallsLimit  int    `json:"api_calls_limit" gorm:"default:0"`
	APICallsUsed   int    `json:"api_calls_used" gorm:"default:0"`

	DownloadCount  int        `json:"download_count" gorm:"default:0"`
	LastAccessedAt *time.Time `json:"last_accessed_at"`

	// Relationships
	Dataset Dataset `json:"dataset,omitempty" gorm:"foreignKey:DatasetID"`
}

// IsActive reports whether the grant is usable at the given instant.
func (a DatasetAccess) IsActive(now time.Time) bool {
	if a.Status != AccessStatusActive {
		return false
	}
	return a.ExpiresAt == nil || a.ExpiresAt.After(now)
}
