// internal/handlers/dataset.go
package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/nguyenquyen/evdata-backend/internal/i18n"
	"github.com/nguyenquyen/evdata-backend/internal/models"
	"github.com/nguyenquyen/evdata-backend/internal/services"
	"github.com/nguyenquyen/evdata-backend/internal/utils"
)

type DatasetHandler struct {
	datasetService *services.DatasetService
	storageService *services.StorageService
}

func NewDatasetHandler(datasetService *services.DatasetService, storageService *services.StorageService) *DatasetHandler {
	return &DatasetHandler{
		datasetService: datasetService,
		storageService: storageService,
	}
}

// GET /datasets
func (h *DatasetHandler) SearchDatasets(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	searchParams := services.DatasetSearchParams{
		PaginationParams: params,
		Keyword:          c.Query("keyword"),
		DataType:         c.Query("data_type"),
		Format:           c.Query("format"),
		PricingModel:     c.Query("pricing_model"),
		Region:           c.Query("region"),
		Country:          c.Query("country"),
		UsageRights:      c.Query("usage_rights"),
	}

	if categoryIDStr := c.Query("category_id"); categoryIDStr != "" {
		if categoryID, err := strconv.ParseInt(categoryIDStr, 10, 64); err == nil {
			searchParams.CategoryID = &categoryID
		}
	}

	if priceMinStr := c.Query("price_min"); priceMinStr != "" {
		if priceMin, err := decimal.NewFromString(priceMinStr); err == nil {
			searchParams.PriceMin = &priceMin
		}
	}

	if priceMaxStr := c.Query("price_max"); priceMaxStr != "" {
		if priceMax, err := decimal.NewFromString(priceMaxStr); err == nil {
			searchParams.PriceMax = &priceMax
		}
	}

	datasets, total, err := h.datasetService.SearchDatasets(searchParams)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(datasets, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /datasets/:id
func (h *DatasetHandler) GetDataset(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var principalPtr *models.Principal
	if principal, exists := utils.GetPrincipalFromContext(c); exists {
		principalPtr = &principal
	}

	dataset, err := h.datasetService.GetDatasetByID(principalPtr, id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "dataset")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"dataset": dataset,
	})
}

// POST /datasets
func (h *DatasetHandler) CreateDataset(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreateDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	dataset, err := h.datasetService.CreateDataset(principal, &req)
	if err != nil {
		h.respondDatasetError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDatasetCreated),
		"dataset": dataset,
	})
}

// PUT /datasets/:id
func (h *DatasetHandler) UpdateDataset(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.UpdateDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	dataset, err := h.datasetService.UpdateDataset(principal, id, &req)
	if err != nil {
		h.respondDatasetError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDatasetUpdated),
		"dataset": dataset,
	})
}

// POST /datasets/:id/publish
func (h *DatasetHandler) PublishDataset(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	dataset, err := h.datasetService.PublishDataset(principal, id)
	if err != nil {
		h.respondDatasetError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDatasetPublished),
		"dataset": dataset,
	})
}

// POST /datasets/:id/archive
func (h *DatasetHandler) ArchiveDataset(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	dataset, err := h.datasetService.ArchiveDataset(principal, id)
	if err != nil {
		h.respondDatasetError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDatasetArchived),
		"dataset": dataset,
	})
}

// DELETE /datasets/:id
func (h *DatasetHandler) DeleteDataset(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	if err := h.datasetService.DeleteDataset(principal, id); err != nil {
		h.respondDatasetError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDatasetDeleted),
	})
}

// GET /datasets/mine
func (h *DatasetHandler) ListMyDatasets(c *gin.Context) {
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	datasets, total, err := h.datasetService.ListMyDatasets(principal, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(datasets, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /datasets/:id/stats
func (h *DatasetHandler) GetDatasetStats(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	stats, err := h.datasetService.GetDatasetStats(principal, id)
	if err != nil {
		h.respondDatasetError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"stats": stats,
	})
}

// GET /categories
func (h *DatasetHandler) ListCategories(c *gin.Context) {
	categories, err := h.datasetService.ListCategories()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"categories": categories,
	})
}

// POST /datasets/:id/files
func (h *DatasetHandler) UploadDatasetFile(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	// Ownership is settled before anything lands in storage
	dataset, err := h.datasetService.GetOwnedDataset(principal, id)
	if err != nil {
		h.respondDatasetError(c, err)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "file is required", nil)
		return
	}
	defer file.Close()

	result, err := h.storageService.UploadDatasetFile(file, header, dataset.Code)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	updated, err := h.datasetService.AttachFile(principal, id, result.URL, result.Key, result.Size)
	if err != nil {
		h.respondDatasetError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"dataset": updated,
		"file":    result,
	})
}

// GET /datasets/:id/download-url
func (h *DatasetHandler) GetDownloadURL(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	dataset, err := h.datasetService.ResolveDownload(principal, id)
	if err != nil {
		h.respondDatasetError(c, err)
		return
	}

	if dataset.FileKey == "" {
		utils.NotFoundResponse(c, "dataset")
		return
	}

	url, err := h.storageService.GeneratePresignedURL(dataset.FileKey)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"download_url": url,
	})
}

func (h *DatasetHandler) respondDatasetError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)
	msg := err.Error()
	switch {
	case strings.Contains(msg, "category not found"):
		utils.NotFoundResponse(c, "category")
	case strings.Contains(msg, "not found"):
		utils.NotFoundResponse(c, "dataset")
	case strings.Contains(msg, "access denied"):
		utils.ForbiddenResponse(c, "")
	case strings.Contains(msg, "already exists"):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyDatasetCodeExists))
	case strings.Contains(msg, "invalid state"):
		utils.UnprocessableResponse(c, msg)
	case strings.Contains(msg, "validation failed"):
		utils.BadRequestResponse(c, msg, nil)
	default:
		utils.InternalErrorResponse(c, msg)
	}
}
