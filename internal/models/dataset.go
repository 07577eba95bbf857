// internal/models/dataset.go
package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type DataCategory struct {
	BaseModel
	Name        string `json:"name" gorm:"uniqueIndex;size:100;not null"`
	Code        string `json:"code" gorm:"uniqueIndex;size:50;not null"`
	Description string `json:"description" gorm:"type:text"`
	IconName    string `json:"icon_name" gorm:"size:50"`
	Active      bool   `json:"active" gorm:"default:true"`
}

type Dataset struct {
	BaseModel
	Code         string          `json:"code" gorm:"uniqueIndex;size:100;not null"`
	Name         string          `json:"name" gorm:"uniqueIndex;size:200;not null"`
	Description  string          `json:"description" gorm:"type:text"`
	CategoryID   int64           `json:"category_id" gorm:"not null;index"`
	ProviderID   int64           `json:"provider_id" gorm:"not null;index"`
	ProviderName string          `json:"provider_name" gorm:"size:200;not null"`
	DataType     string          `json:"data_type" gorm:"size:50;not null;index"`
	Format       string          `json:"format" gorm:"size:50;not null"`
	Status       DatasetStatus   `json:"status" gorm:"type:varchar(20);default:'DRAFT';index"`
	PricingModel PricingModel    `json:"pricing_model" gorm:"type:varchar(30);not null;index"`
	Price        decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Currency     string          `json:"currency" gorm:"size:10;default:'USD'"`
	UsageRights  string          `json:"usage_rights" gorm:"size:50;not null"`
	Region       string          `json:"region" gorm:"size:100"`
	Country      string          `json:"country" gorm:"size:100"`
	City         string          `json:"city" gorm:"size:100"`

	DataStartDate *time.Time `json:"data_start_date"`
	DataEndDate   *time.Time `json:"data_end_date"`

	// Delivery locations; redacted in responses unless the caller has access.
	FileURL     string `json:"file_url,omitempty" gorm:"size:500"`
	FileKey     string `json:"-" gorm:"size:500"`
	FileSize    int64  `json:"file_size"`
	RecordCount int64  `json:"record_count"`
	APIEndpoint string `json:"api_endpoint,omitempty" gorm:"size:500"`
	APIKey      string `json:"-" gorm:"size:100"`

	Tags             pq.StringArray `json:"tags" gorm:"type:text[]"`
	SampleData       string         `json:"sample_data" gorm:"type:text"`
	SchemaDefinition JSONB          `json:"schema_definition" gorm:"type:jsonb"`

	DownloadCount int64   `json:"download_count" gorm:"default:0"`
	ViewCount     int64   `json:"view_count" gorm:"default:0"`
	PurchaseCount int64   `json:"purchase_count" gorm:"default:0"`
	Rating        float64 `json:"rating" gorm:"default:0"`
	RatingCount   int64   `json:"rating_count" gorm:"default:0"`

	Anonymized    bool `json:"anonymized" gorm:"default:true"`
	GDPRCompliant bool `json:"gdpr_compliant" gorm:"default:true"`

	PublishedAt *time.Time `json:"published_at"`

	// Relationships
	Category DataCategory    `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Accesses []DatasetAccess `json:"accesses,omitempty" gorm:"foreignKey:DatasetID"`
	Ratings  []DatasetRating `json:"ratings,omitempty" gorm:"foreignKey:DatasetID"`
}

// DatasetView is the caller-shaped projection of a dataset. FileURL and
// APIEndpoint are populated only when HasAccess is true.
type DatasetView struct {
	Dataset
	HasAccess bool `json:"has_access"`
}

// Shape redacts delivery fields for callers without an active access grant.
// Owners and admins always see the full record.
func (d Dataset) Shape(hasAccess bool) DatasetView {
	view := DatasetView{Dataset: d, HasAccess: hasAccess}
	if !hasAccess {
		view.FileURL = ""
		view.APIEndpoint = ""
	}
	return view
}
