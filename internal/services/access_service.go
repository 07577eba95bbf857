// internal/services/access_service.go
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/nguyenquyen/evdata-backend/internal/database"
	"github.com/nguyenquyen/evdata-backend/internal/models"
	"github.com/nguyenquyen/evdata-backend/internal/utils"
)

type AccessService struct {
	db       *gorm.DB
	datasets *DatasetService
}

type GrantAccessRequest struct {
	DatasetID     int64            `json:"dataset_id" validate:"required"`
	AccessType    string           `json:"access_type" validate:"required,oneof=DOWNLOAD API SUBSCRIPTION VIEW"`
	DurationDays  *int             `json:"duration_days,omitempty" validate:"omitempty,min=1"`
	ExpiresAt     *time.Time       `json:"expires_at,omitempty"`
	PricePaid     decimal.Decimal  `json:"price_paid"`
	TransactionID string           `json:"transaction_id,omitempty"`
	APICallsLimit *int             `json:"api_calls_limit,omitempty" validate:"omitempty,min=1"`
}

type RecordAPICallRequest struct {
	DatasetID int64  `json:"dataset_id" validate:"required"`
	Token     string `json:"token" validate:"required"`
}

func NewAccessService(db *gorm.DB, datasets *DatasetService) *AccessService {
	return &AccessService{db: db, datasets: datasets}
}

// GrantAccess issues an access grant for a published dataset. At most one
// active unexpired grant may exist per (user, dataset); the check runs inside
// a transaction and a partial unique index backstops concurrent grants.
func (s *AccessService) GrantAccess(userID int64, userEmail, userName string, req *GrantAccessRequest) (*models.DatasetAccess, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	dataset, err := s.datasets.GetDataset(req.DatasetID)
	if err != nil {
		return nil, err
	}

	if dataset.Status != models.DatasetStatusPublished {
		return nil, errors.New("dataset is not published")
	}

	expiresAt := req.ExpiresAt
	if expiresAt == nil && req.DurationDays != nil {
		t := time.Now().AddDate(0, 0, *req.DurationDays)
		expiresAt = &t
	}

	access := &models.DatasetAccess{
		DatasetID:     req.DatasetID,
		UserID:        userID,
		UserEmail:     userEmail,
		UserName:      userName,
		AccessType:    models.AccessType(req.AccessType),
		Status:        models.AccessStatusActive,
		ExpiresAt:     expiresAt,
		PricePaid:     req.PricePaid,
		TransactionID: req.TransactionID,
	}

	if access.AccessType == models.AccessTypeAPI {
		access.APIAccessToken = utils.GenerateAccessToken()
		if req.APICallsLimit != nil {
			access.APICallsLimit = *req.APICallsLimit
		}
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		// Expiry is derived, not swept in the background. Flip stale ACTIVE
		// rows here so the single-active-grant index only covers usable grants
		// and a re-grant after expiry is not blocked.
		if err := tx.Model(&models.DatasetAccess{}).
			Where("user_id = ? AND dataset_id = ? AND status = ?", userID, req.DatasetID, models.AccessStatusActive).
			Where("expires_at IS NOT NULL AND expires_at <= ?", time.Now()).
			Update("status", models.AccessStatusExpired).Error; err != nil {
			return fmt.Errorf("database error: %w", err)
		}

		var count int64
		if err := tx.Model(&models.DatasetAccess{}).
			Where("user_id = ? AND dataset_id = ? AND status = ?", userID, req.DatasetID, models.AccessStatusActive).
			Count(&count).Error; err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		if count > 0 {
			return errors.New("user already has active access to this dataset")
		}

		if err := tx.Create(access).Error; err != nil {
			if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "UNIQUE constraint") {
				return errors.New("user already has active access to this dataset")
			}
			return fmt.Errorf("failed to create access grant: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.datasets.IncrementPurchaseCount(req.DatasetID); err != nil {
		logrus.WithError(err).WithField("dataset_id", req.DatasetID).Warn("Failed to bump purchase count")
	}

	return access, nil
}

func (s *AccessService) GetAccess(principal models.Principal, accessID int64) (*models.DatasetAccess, error) {
	var access models.DatasetAccess
	if err := s.db.Preload("Dataset").First(&access, accessID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("access grant not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if access.UserID != principal.UserID && access.Dataset.ProviderID != principal.UserID && !principal.IsAdmin() {
		return nil, errors.New("access denied: not a party to this access grant")
	}

	return &access, nil
}

func (s *AccessService) ListMyAccess(principal models.Principal, params utils.PaginationParams) ([]models.DatasetAccess, int64, error) {
	query := s.db.Model(&models.DatasetAccess{}).Where("user_id = ?", principal.UserID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count access grants: %w", err)
	}

	var grants []models.DatasetAccess
	query = utils.ApplySort(query, params, []string{"created_at", "expires_at", "last_accessed_at"})
	query = utils.ApplyPagination(query, params)
	if err := query.Preload("Dataset").Find(&grants).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch access grants: %w", err)
	}

	return grants, total, nil
}

// RecordDownload requires an active grant and bumps both the grant's and the
// dataset's download counters.
func (s *AccessService) RecordDownload(principal models.Principal, accessID int64) (*models.DatasetAccess, error) {
	var access models.DatasetAccess
	if err := s.db.First(&access, accessID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("access grant not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if access.UserID != principal.UserID {
		return nil, errors.New("access denied: not the grant holder")
	}

	if !access.IsActive(time.Now()) {
		return nil, errors.New("access has expired or is not active")
	}

	now := time.Now()
	if err := s.db.Model(&access).Updates(map[string]interface{}{
		"download_count":   gorm.Expr("download_count + 1"),
		"last_accessed_at": now,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to record download: %w", err)
	}

	if err := s.datasets.IncrementDownloadCount(access.DatasetID); err != nil {
		logrus.WithError(err).WithField("dataset_id", access.DatasetID).Warn("Failed to bump dataset download count")
	}

	return s.reload(accessID)
}

// RecordAPICall meters one API call against the grant identified by
// (token, dataset) among the caller's own grants. The quota check and the
// increment run as one conditional update so concurrent calls can never push
// usage past the limit.
func (s *AccessService) RecordAPICall(principal models.Principal, req *RecordAPICallRequest) (*models.DatasetAccess, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var access models.DatasetAccess
	err := s.db.Where("user_id = ? AND dataset_id = ? AND api_access_token = ?",
		principal.UserID, req.DatasetID, req.Token).First(&access).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("invalid API access token")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !access.IsActive(time.Now()) {
		return nil, errors.New("access has expired or is not active")
	}

	now := time.Now()
	result := s.db.Model(&models.DatasetAccess{}).
		Where("id = ? AND api_calls_used < api_calls_limit", access.ID).
		Updates(map[string]interface{}{
			"api_calls_used":   gorm.Expr("api_calls_used + 1"),
			"last_accessed_at": now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to record API call: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, errors.New("API call limit exceeded")
	}

	return s.reload(access.ID)
}

// RevokeAccess may be called by the grant holder, the dataset's provider, or
// an admin. The grant is kept with status REVOKED; nothing is refunded.
func (s *AccessService) RevokeAccess(principal models.Principal, accessID int64) (*models.DatasetAccess, error) {
	access, err := s.GetAccess(principal, accessID)
	if err != nil {
		return nil, err
	}

	if access.Status == models.AccessStatusRevoked {
		return access, nil
	}

	if err := s.db.Model(access).Update("status", models.AccessStatusRevoked).Error; err != nil {
		return nil, fmt.Errorf("failed to revoke access: %w", err)
	}

	return s.reload(accessID)
}

func (s *AccessService) reload(accessID int64) (*models.DatasetAccess, error) {
	var access models.DatasetAccess
	if err := s.db.First(&access, accessID).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &access, nil
}
