// internal/services/rating_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/nguyenquyen/evdata-backend/internal/database"
	"github.com/nguyenquyen/evdata-backend/internal/models"
	"github.com/nguyenquyen/evdata-backend/internal/utils"
)

type RatingService struct {
	db *gorm.DB
}

type SubmitRatingRequest struct {
	DatasetID int64  `json:"dataset_id" validate:"required"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

func NewRatingService(db *gorm.DB) *RatingService {
	return &RatingService{db: db}
}

// SubmitRating creates or updates the caller's rating for a dataset and
// recomputes the dataset's mean and count in the same transaction. Rating
// requires a prior access grant of any status.
func (s *RatingService) SubmitRating(principal models.Principal, req *SubmitRatingRequest) (*models.DatasetRating, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var dataset models.Dataset
	if err := s.db.First(&dataset, req.DatasetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("dataset not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	var accessCount int64
	if err := s.db.Model(&models.DatasetAccess{}).
		Where("user_id = ? AND dataset_id = ?", principal.UserID, req.DatasetID).
		Count(&accessCount).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if accessCount == 0 {
		return nil, errors.New("access denied: rating requires prior access to the dataset")
	}

	var rating models.DatasetRating

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		err := tx.Where("dataset_id = ? AND user_id = ?", req.DatasetID, principal.UserID).
			First(&rating).Error
		switch {
		case err == nil:
			rating.Rating = req.Rating
			rating.Comment = req.Comment
			rating.UpdatedAt = time.Now()
			if err := tx.Save(&rating).Error; err != nil {
				return fmt.Errorf("failed to update rating: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			rating = models.DatasetRating{
				DatasetID: req.DatasetID,
				UserID:    principal.UserID,
				UserEmail: principal.Email,
				UserName:  principal.FullName,
				Rating:    req.Rating,
				Comment:   req.Comment,
			}
			if err := tx.Create(&rating).Error; err != nil {
				return fmt.Errorf("failed to create rating: %w", err)
			}
		default:
			return fmt.Errorf("database error: %w", err)
		}

		return s.recomputeDatasetRating(tx, req.DatasetID)
	})
	if err != nil {
		return nil, err
	}

	return &rating, nil
}

func (s *RatingService) DeleteRating(principal models.Principal, ratingID int64) error {
	var rating models.DatasetRating
	if err := s.db.First(&rating, ratingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("rating not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	if rating.UserID != principal.UserID && !principal.IsAdmin() {
		return errors.New("access denied: not the rating author")
	}

	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Unscoped().Delete(&rating).Error; err != nil {
			return fmt.Errorf("failed to delete rating: %w", err)
		}
		return s.recomputeDatasetRating(tx, rating.DatasetID)
	})
}

func (s *RatingService) ListRatings(datasetID int64, params utils.PaginationParams) ([]models.DatasetRating, int64, error) {
	query := s.db.Model(&models.DatasetRating{}).Where("dataset_id = ?", datasetID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count ratings: %w", err)
	}

	var ratings []models.DatasetRating
	query = utils.ApplySort(query, params, []string{"created_at", "rating"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&ratings).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch ratings: %w", err)
	}

	return ratings, total, nil
}

func (s *RatingService) ListMyRatings(principal models.Principal, params utils.PaginationParams) ([]models.DatasetRating, int64, error) {
	query := s.db.Model(&models.DatasetRating{}).Where("user_id = ?", principal.UserID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count ratings: %w", err)
	}

	var ratings []models.DatasetRating
	query = utils.ApplySort(query, params, []string{"created_at", "rating"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&ratings).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch ratings: %w", err)
	}

	return ratings, total, nil
}

func (s *RatingService) recomputeDatasetRating(tx *gorm.DB, datasetID int64) error {
	type aggregate struct {
		Avg   float64
		Count int64
	}

	var agg aggregate
	if err := tx.Model(&models.DatasetRating{}).
		Where("dataset_id = ?", datasetID).
		Select("COALESCE(AVG(rating), 0) as avg, COUNT(*) as count").
		Scan(&agg).Error; err != nil {
		return fmt.Errorf("failed to aggregate ratings: %w", err)
	}

	if err := tx.Model(&models.Dataset{}).Where("id = ?", datasetID).
		Updates(map[string]interface{}{
			"rating":       agg.Avg,
			"rating_count": agg.Count,
		}).Error; err != nil {
		return fmt.Errorf("failed to update dataset rating: %w", err)
	}

	return nil
}
