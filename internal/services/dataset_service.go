// internal/services/dataset_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/nguyenquyen/evdata-backend/internal/models"
	"github.com/nguyenquyen/evdata-backend/internal/utils"
)

type DatasetService struct {
	db *gorm.DB
}

type CreateDatasetRequest struct {
	Code             string                 `json:"code" validate:"required,min=3,max=50"`
	Name             string                 `json:"name" validate:"required,min=3,max=200"`
	Description      string                 `json:"description" validate:"required,min=10"`
	CategoryID       int64                  `json:"category_id" validate:"required"`
	DataType         string                 `json:"data_type" validate:"required"`
	Format           string                 `json:"format" validate:"required"`
	PricingModel     string                 `json:"pricing_model" validate:"required,pricing_model"`
	Price            decimal.Decimal        `json:"price"`
	Currency         string                 `json:"currency,omitempty"`
	UsageRights      string                 `json:"usage_rights,omitempty"`
	Region           string                 `json:"region,omitempty"`
	Country          string                 `json:"country,omitempty"`
	City             string                 `json:"city,omitempty"`
	DataStartDate    *time.Time             `json:"data_start_date,omitempty"`
	DataEndDate      *time.Time             `json:"data_end_date,omitempty"`
	FileURL          string                 `json:"file_url,omitempty"`
	FileSize         int64                  `json:"file_size,omitempty"`
	RecordCount      int64                  `json:"record_count,omitempty"`
	APIEndpoint      string                 `json:"api_endpoint,omitempty"`
	Tags             []string               `json:"tags,omitempty"`
	SampleData       string                 `json:"sample_data,omitempty"`
	SchemaDefinition map[string]interface{} `json:"schema_definition,omitempty"`
	Anonymized       bool                   `json:"anonymized"`
	GDPRCompliant    bool                   `json:"gdpr_compliant"`
}

type UpdateDatasetRequest struct {
	Code             string                 `json:"code,omitempty" validate:"omitempty,min=3,max=50"`
	Name             string                 `json:"name,omitempty" validate:"omitempty,min=3,max=200"`
	Description      string                 `json:"description,omitempty" validate:"omitempty,min=10"`
	CategoryID       *int64                 `json:"category_id,omitempty"`
	DataType         string                 `json:"data_type,omitempty"`
	Format           string                 `json:"format,omitempty"`
	PricingModel     string                 `json:"pricing_model,omitempty" validate:"omitempty,pricing_model"`
	Price            *decimal.Decimal       `json:"price,omitempty"`
	Currency         string                 `json:"currency,omitempty"`
	UsageRights      string                 `json:"usage_rights,omitempty"`
	Region           string                 `json:"region,omitempty"`
	Country          string                 `json:"country,omitempty"`
	City             string                 `json:"city,omitempty"`
	DataStartDate    *time.Time             `json:"data_start_date,omitempty"`
	DataEndDate      *time.Time             `json:"data_end_date,omitempty"`
	FileURL          string                 `json:"file_url,omitempty"`
	FileSize         *int64                 `json:"file_size,omitempty"`
	RecordCount      *int64                 `json:"record_count,omitempty"`
	APIEndpoint      string                 `json:"api_endpoint,omitempty"`
	Tags             []string               `json:"tags,omitempty"`
	SampleData       string                 `json:"sample_data,omitempty"`
	SchemaDefinition map[string]interface{} `json:"schema_definition,omitempty"`
	Anonymized       *bool                  `json:"anonymized,omitempty"`
	GDPRCompliant    *bool                  `json:"gdpr_compliant,omitempty"`
}

type DatasetSearchParams struct {
	utils.PaginationParams
	Keyword      string           `json:"keyword,omitempty"`
	CategoryID   *int64           `json:"category_id,omitempty"`
	DataType     string           `json:"data_type,omitempty"`
	Format       string           `json:"format,omitempty"`
	PricingModel string           `json:"pricing_model,omitempty"`
	Region       string           `json:"region,omitempty"`
	Country      string           `json:"country,omitempty"`
	UsageRights  string           `json:"usage_rights,omitempty"`
	PriceMin     *decimal.Decimal `json:"price_min,omitempty"`
	PriceMax     *decimal.Decimal `json:"price_max,omitempty"`
}

// HasFacets reports whether any structured filter is present. Keyword search
// and facet search are mutually exclusive; facets win when both are supplied.
func (p DatasetSearchParams) HasFacets() bool {
	return p.CategoryID != nil || p.DataType != "" || p.Format != "" ||
		p.PricingModel != "" || p.Region != "" || p.Country != "" ||
		p.UsageRights != "" || p.PriceMin != nil || p.PriceMax != nil
}

type DatasetStats struct {
	DatasetID     int64           `json:"dataset_id"`
	DownloadCount int64           `json:"download_count"`
	ViewCount     int64           `json:"view_count"`
	PurchaseCount int64           `json:"purchase_count"`
	Rating        float64         `json:"rating"`
	RatingCount   int64           `json:"rating_count"`
	ActiveAccess  int64           `json:"active_access"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

var datasetSortFields = []string{"created_at", "updated_at", "name", "price", "rating", "download_count", "view_count", "purchase_count", "published_at"}

func NewDatasetService(db *gorm.DB) *DatasetService {
	return &DatasetService{db: db}
}

func (s *DatasetService) CreateDataset(principal models.Principal, req *CreateDatasetRequest) (*models.Dataset, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if !principal.IsProvider() && !principal.IsAdmin() {
		return nil, errors.New("access denied: only data providers can create datasets")
	}

	var category models.DataCategory
	if err := s.db.First(&category, req.CategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("category not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	var count int64
	if err := s.db.Model(&models.Dataset{}).
		Where("code = ? OR name = ?", req.Code, req.Name).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if count > 0 {
		return nil, errors.New("dataset code or name already exists")
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	dataset := &models.Dataset{
		Code:             req.Code,
		Name:             req.Name,
		Description:      req.Description,
		CategoryID:       req.CategoryID,
		ProviderID:       principal.UserID,
		ProviderName:     principal.FullName,
		DataType:         req.DataType,
		Format:           req.Format,
		Status:           models.DatasetStatusDraft,
		PricingModel:     models.PricingModel(req.PricingModel),
		Price:            req.Price,
		Currency:         currency,
		UsageRights:      req.UsageRights,
		Region:           req.Region,
		Country:          req.Country,
		City:             req.City,
		DataStartDate:    req.DataStartDate,
		DataEndDate:      req.DataEndDate,
		FileURL:          req.FileURL,
		FileSize:         req.FileSize,
		RecordCount:      req.RecordCount,
		APIEndpoint:      req.APIEndpoint,
		Tags:             pq.StringArray(req.Tags),
		SampleData:       req.SampleData,
		SchemaDefinition: models.JSONB(req.SchemaDefinition),
		Anonymized:       req.Anonymized,
		GDPRCompliant:    req.GDPRCompliant,
	}

	if dataset.PricingModel == models.PricingModelAPIBased && dataset.APIKey == "" {
		dataset.APIKey = utils.GenerateAPIKey()
	}

	if err := s.db.Create(dataset).Error; err != nil {
		return nil, fmt.Errorf("failed to create dataset: %w", err)
	}

	return dataset, nil
}

// GetDataset fetches a dataset without any shaping or side effects. Used by
// internal flows that need the raw row.
func (s *DatasetService) GetDataset(datasetID int64) (*models.Dataset, error) {
	var dataset models.Dataset
	if err := s.db.Preload("Category").First(&dataset, datasetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("dataset not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &dataset, nil
}

// GetDatasetByID resolves a dataset for an external caller: location fields
// are redacted unless the caller holds active access or owns the dataset, and
// the view counter is bumped off the request path.
func (s *DatasetService) GetDatasetByID(principal *models.Principal, datasetID int64) (*models.DatasetView, error) {
	dataset, err := s.GetDataset(datasetID)
	if err != nil {
		return nil, err
	}

	hasAccess := false
	if principal != nil {
		hasAccess = s.callerHasAccess(*principal, dataset)
	}

	go s.bumpViewCount(datasetID)

	view := dataset.Shape(hasAccess)
	return &view, nil
}

func (s *DatasetService) callerHasAccess(principal models.Principal, dataset *models.Dataset) bool {
	if principal.IsAdmin() || principal.UserID == dataset.ProviderID {
		return true
	}

	var count int64
	s.db.Model(&models.DatasetAccess{}).
		Where("user_id = ? AND dataset_id = ? AND status = ?", principal.UserID, dataset.ID, models.AccessStatusActive).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Count(&count)
	return count > 0
}

func (s *DatasetService) bumpViewCount(datasetID int64) {
	if err := s.db.Model(&models.Dataset{}).Where("id = ?", datasetID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error; err != nil {
		logrus.WithError(err).WithField("dataset_id", datasetID).Warn("Failed to bump dataset view count")
	}
}

func (s *DatasetService) UpdateDataset(principal models.Principal, datasetID int64, req *UpdateDatasetRequest) (*models.Dataset, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	dataset, err := s.getOwnedDataset(principal, datasetID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if req.Code != "" && req.Code != dataset.Code {
		var count int64
		if err := s.db.Model(&models.Dataset{}).
			Where("code = ? AND id != ?", req.Code, datasetID).
			Count(&count).Error; err != nil {
			return nil, fmt.Errorf("database error: %w", err)
		}
		if count > 0 {
			return nil, errors.New("dataset code or name already exists")
		}
		updates["code"] = req.Code
	}

	if req.Name != "" && req.Name != dataset.Name {
		var count int64
		if err := s.db.Model(&models.Dataset{}).
			Where("name = ? AND id != ?", req.Name, datasetID).
			Count(&count).Error; err != nil {
			return nil, fmt.Errorf("database error: %w", err)
		}
		if count > 0 {
			return nil, errors.New("dataset code or name already exists")
		}
		updates["name"] = req.Name
	}

	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.CategoryID != nil {
		var category models.DataCategory
		if err := s.db.First(&category, *req.CategoryID).Error; err != nil {
			return nil, errors.New("category not found")
		}
		updates["category_id"] = *req.CategoryID
	}
	if req.DataType != "" {
		updates["data_type"] = req.DataType
	}
	if req.Format != "" {
		updates["format"] = req.Format
	}
	if req.PricingModel != "" {
		updates["pricing_model"] = req.PricingModel
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Currency != "" {
		updates["currency"] = req.Currency
	}
	if req.UsageRights != "" {
		updates["usage_rights"] = req.UsageRights
	}
	if req.Region != "" {
		updates["region"] = req.Region
	}
	if req.Country != "" {
		updates["country"] = req.Country
	}
	if req.City != "" {
		updates["city"] = req.City
	}
	if req.DataStartDate != nil {
		updates["data_start_date"] = req.DataStartDate
	}
	if req.DataEndDate != nil {
		updates["data_end_date"] = req.DataEndDate
	}
	if req.FileURL != "" {
		updates["file_url"] = req.FileURL
	}
	if req.FileSize != nil {
		updates["file_size"] = *req.FileSize
	}
	if req.RecordCount != nil {
		updates["record_count"] = *req.RecordCount
	}
	if req.APIEndpoint != "" {
		updates["api_endpoint"] = req.APIEndpoint
	}
	if req.Tags != nil {
		updates["tags"] = pq.StringArray(req.Tags)
	}
	if req.SampleData != "" {
		updates["sample_data"] = req.SampleData
	}
	if req.SchemaDefinition != nil {
		updates["schema_definition"] = models.JSONB(req.SchemaDefinition)
	}
	if req.Anonymized != nil {
		updates["anonymized"] = *req.Anonymized
	}
	if req.GDPRCompliant != nil {
		updates["gdpr_compliant"] = *req.GDPRCompliant
	}

	if len(updates) > 0 {
		if err := s.db.Model(dataset).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update dataset: %w", err)
		}
	}

	return s.GetDataset(datasetID)
}

// PublishDataset moves a dataset to PUBLISHED. Re-publishing an already
// published dataset is a no-op and never overwrites the original publish
// timestamp.
func (s *DatasetService) PublishDataset(principal models.Principal, datasetID int64) (*models.Dataset, error) {
	dataset, err := s.getOwnedDataset(principal, datasetID)
	if err != nil {
		return nil, err
	}

	if dataset.Status == models.DatasetStatusPublished {
		return dataset, nil
	}

	if dataset.Status != models.DatasetStatusDraft {
		return nil, fmt.Errorf("invalid state: cannot publish dataset in status %s", dataset.Status)
	}

	now := time.Now()
	updates := map[string]interface{}{"status": models.DatasetStatusPublished}
	if dataset.PublishedAt == nil {
		updates["published_at"] = now
	}

	if err := s.db.Model(dataset).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to publish dataset: %w", err)
	}

	return s.GetDataset(datasetID)
}

func (s *DatasetService) ArchiveDataset(principal models.Principal, datasetID int64) (*models.Dataset, error) {
	dataset, err := s.getOwnedDataset(principal, datasetID)
	if err != nil {
		return nil, err
	}

	if dataset.Status != models.DatasetStatusPublished {
		return nil, fmt.Errorf("invalid state: cannot archive dataset in status %s", dataset.Status)
	}

	if err := s.db.Model(dataset).Update("status", models.DatasetStatusArchived).Error; err != nil {
		return nil, fmt.Errorf("failed to archive dataset: %w", err)
	}

	return s.GetDataset(datasetID)
}

// SuspendDataset is an admin moderation action.
func (s *DatasetService) SuspendDataset(principal models.Principal, datasetID int64) (*models.Dataset, error) {
	if !principal.IsAdmin() {
		return nil, errors.New("access denied: admin role required")
	}

	dataset, err := s.GetDataset(datasetID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(dataset).Update("status", models.DatasetStatusSuspended).Error; err != nil {
		return nil, fmt.Errorf("failed to suspend dataset: %w", err)
	}

	return s.GetDataset(datasetID)
}

func (s *DatasetService) DeleteDataset(principal models.Principal, datasetID int64) error {
	dataset, err := s.getOwnedDataset(principal, datasetID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(dataset).Error; err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}

	return nil
}

func (s *DatasetService) ListMyDatasets(principal models.Principal, params utils.PaginationParams) ([]models.Dataset, int64, error) {
	query := s.db.Model(&models.Dataset{}).Where("provider_id = ?", principal.UserID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count datasets: %w", err)
	}

	var datasets []models.Dataset
	query = utils.ApplySort(query, params, datasetSortFields)
	query = utils.ApplyPagination(query, params)
	if err := query.Preload("Category").Find(&datasets).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch datasets: %w", err)
	}

	return datasets, total, nil
}

// SearchDatasets runs either a keyword search or a facet search over
// published datasets, never both in one query.
func (s *DatasetService) SearchDatasets(params DatasetSearchParams) ([]models.DatasetView, int64, error) {
	query := s.db.Model(&models.Dataset{}).Where("status = ?", models.DatasetStatusPublished)

	if params.HasFacets() {
		if params.CategoryID != nil {
			query = query.Where("category_id = ?", *params.CategoryID)
		}
		if params.DataType != "" {
			query = query.Where("data_type = ?", params.DataType)
		}
		if params.Format != "" {
			query = query.Where("format = ?", params.Format)
		}
		if params.PricingModel != "" {
			query = query.Where("pricing_model = ?", params.PricingModel)
		}
		if params.Region != "" {
			query = query.Where("region = ?", params.Region)
		}
		if params.Country != "" {
			query = query.Where("country = ?", params.Country)
		}
		if params.UsageRights != "" {
			query = query.Where("usage_rights = ?", params.UsageRights)
		}
		if params.PriceMin != nil {
			query = query.Where("price >= ?", *params.PriceMin)
		}
		if params.PriceMax != nil {
			query = query.Where("price <= ?", *params.PriceMax)
		}
	} else if params.Keyword != "" {
		keyword := "%" + params.Keyword + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ? OR data_type ILIKE ?", keyword, keyword, keyword)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count datasets: %w", err)
	}

	var datasets []models.Dataset
	query = utils.ApplySort(query, params.PaginationParams, datasetSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)
	if err := query.Preload("Category").Find(&datasets).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch datasets: %w", err)
	}

	// Search results never expose location fields
	views := make([]models.DatasetView, len(datasets))
	for i, dataset := range datasets {
		views[i] = dataset.Shape(false)
	}

	return views, total, nil
}

func (s *DatasetService) ListCategories() ([]models.DataCategory, error) {
	var categories []models.DataCategory
	if err := s.db.Where("active = ?", true).Order("name asc").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	return categories, nil
}

func (s *DatasetService) GetDatasetStats(principal models.Principal, datasetID int64) (*DatasetStats, error) {
	dataset, err := s.getOwnedDataset(principal, datasetID)
	if err != nil {
		return nil, err
	}

	var activeAccess int64
	s.db.Model(&models.DatasetAccess{}).
		Where("dataset_id = ? AND status = ?", datasetID, models.AccessStatusActive).
		Count(&activeAccess)

	var totalRevenue decimal.NullDecimal
	s.db.Model(&models.Transaction{}).
		Where("dataset_id = ? AND status = ?", datasetID, models.TransactionStatusCompleted).
		Select("COALESCE(SUM(provider_revenue), 0)").
		Scan(&totalRevenue)

	return &DatasetStats{
		DatasetID:     dataset.ID,
		DownloadCount: dataset.DownloadCount,
		ViewCount:     dataset.ViewCount,
		PurchaseCount: dataset.PurchaseCount,
		Rating:        dataset.Rating,
		RatingCount:   dataset.RatingCount,
		ActiveAccess:  activeAccess,
		TotalRevenue:  totalRevenue.Decimal,
	}, nil
}

// GetOwnedDataset resolves a dataset the caller owns or administers. Handlers
// use it to enforce ownership before side effects like file uploads.
func (s *DatasetService) GetOwnedDataset(principal models.Principal, datasetID int64) (*models.Dataset, error) {
	return s.getOwnedDataset(principal, datasetID)
}

// AttachFile records an uploaded file's location on the dataset.
func (s *DatasetService) AttachFile(principal models.Principal, datasetID int64, url, key string, size int64) (*models.Dataset, error) {
	dataset, err := s.getOwnedDataset(principal, datasetID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(dataset).Updates(map[string]interface{}{
		"file_url":  url,
		"file_key":  key,
		"file_size": size,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to attach file: %w", err)
	}

	return s.GetDataset(datasetID)
}

// ResolveDownload returns the dataset when the caller holds active access or
// owns it; used to issue download URLs.
func (s *DatasetService) ResolveDownload(principal models.Principal, datasetID int64) (*models.Dataset, error) {
	dataset, err := s.GetDataset(datasetID)
	if err != nil {
		return nil, err
	}

	if !s.callerHasAccess(principal, dataset) {
		return nil, errors.New("access denied: no active access to this dataset")
	}

	return dataset, nil
}

func (s *DatasetService) IncrementPurchaseCount(datasetID int64) error {
	return s.db.Model(&models.Dataset{}).Where("id = ?", datasetID).
		UpdateColumn("purchase_count", gorm.Expr("purchase_count + 1")).Error
}

func (s *DatasetService) IncrementDownloadCount(datasetID int64) error {
	return s.db.Model(&models.Dataset{}).Where("id = ?", datasetID).
		UpdateColumn("download_count", gorm.Expr("download_count + 1")).Error
}

func (s *DatasetService) getOwnedDataset(principal models.Principal, datasetID int64) (*models.Dataset, error) {
	dataset, err := s.GetDataset(datasetID)
	if err != nil {
		return nil, err
	}

	if dataset.ProviderID != principal.UserID && !principal.IsAdmin() {
		return nil, errors.New("access denied: not the dataset owner")
	}

	return dataset, nil
}
