// internal/utils/pagination.go
package utils

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PaginationParams struct {
	Page          int    `json:"page"`
	Size          int    `json:"size"`
	SortBy        string `json:"sort_by"`
	SortDirection string `json:"sort_direction"`
	Search        string `json:"search"`
	Category      string `json:"category"`
}

type PaginationResult struct {
	Page       int         `json:"page"`
	Size       int         `json:"size"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"total_pages"`
	Data       interface{} `json:"data"`
}

// GetPaginationParams reads paging query parameters. Pages are zero-based.
func GetPaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	sortBy := c.DefaultQuery("sortBy", "created_at")
	sortDirection := c.DefaultQuery("sortDirection", "desc")
	search := c.Query("search")
	category := c.Query("category")

	// Validate and set defaults
	if page < 0 {
		page = 0
	}
	if size < 1 || size > 100 {
		size = 20
	}
	if sortDirection != "asc" && sortDirection != "desc" {
		sortDirection = "desc"
	}

	return PaginationParams{
		Page:          page,
		Size:          size,
		SortBy:        sortBy,
		SortDirection: sortDirection,
		Search:        search,
		Category:      category,
	}
}

func ApplyPagination(db *gorm.DB, params PaginationParams) *gorm.DB {
	offset := params.Page * params.Size
	return db.Offset(offset).Limit(params.Size)
}

func ApplySort(db *gorm.DB, params PaginationParams, allowedSortFields []string) *gorm.DB {
	// Validate sort field
	sortField := params.SortBy
	validSort := false
	for _, field := range allowedSortFields {
		if field == sortField {
			validSort = true
			break
		}
	}

	if !validSort {
		sortField = "created_at"
	}

	return db.Order(sortField + " " + params.SortDirection)
}

func CreatePaginationResult(data interface{}, total int64, params PaginationParams) PaginationResult {
	totalPages := int(math.Ceil(float64(total) / float64(params.Size)))

	return PaginationResult{
		Page:       params.Page,
		Size:       params.Size,
		Total:      total,
		TotalPages: totalPages,
		Data:       data,
	}
}

func SetPaginationHeaders(c *gin.Context, result PaginationResult) {
	c.Header("X-Total-Count", strconv.FormatInt(result.Total, 10))
	c.Header("X-Page", strconv.Itoa(result.Page))
	c.Header("X-Per-Page", strconv.Itoa(result.Size))
	c.Header("X-Total-Pages", strconv.Itoa(result.TotalPages))
}
