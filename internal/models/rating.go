// internal/models/rating.go
package models

type DatasetRating struct {
	BaseModel
	DatasetID int64  `json:"dataset_id" gorm:"not null;uniqueIndex:idx_dataset_ratings_dataset_user,priority:1"`
	UserID    int64  `json:"user_id" gorm:"not null;uniqueIndex:idx_dataset_ratings_dataset_user,priority:2"`
	UserEmail string `json:"user_email" gorm:"size:100;not null"`
	UserName  string `json:"user_name" gorm:"size:100;not null"`
	Rating    int    `json:"rating" gorm:"not null"`
	Comment   string `json:"comment" gorm:"type:text"`

	// Relationships
	Dataset Dataset `json:"dataset,omitempty" gorm:"foreignKey:DatasetID"`
}
