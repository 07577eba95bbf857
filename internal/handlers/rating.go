// internal/handlers/rating.go
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nguyenquyen/evdata-backend/internal/i18n"
	"github.com/nguyenquyen/evdata-backend/internal/services"
	"github.com/nguyenquyen/evdata-backend/internal/utils"
)

type RatingHandler struct {
	ratingService *services.RatingService
}

func NewRatingHandler(ratingService *services.RatingService) *RatingHandler {
	return &RatingHandler{ratingService: ratingService}
}

// POST /ratings
func (h *RatingHandler) SubmitRating(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.SubmitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	rating, err := h.ratingService.SubmitRating(principal, &req)
	if err != nil {
		h.respondRatingError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyRatingSubmitted),
		"rating":  rating,
	})
}

// GET /datasets/:id/ratings
func (h *RatingHandler) ListRatings(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	ratings, total, err := h.ratingService.ListRatings(id, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(ratings, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /ratings
func (h *RatingHandler) ListMyRatings(c *gin.Context) {
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	ratings, total, err := h.ratingService.ListMyRatings(principal, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(ratings, total, params)
	utils.PaginatedResponse(c, result)
}

// DELETE /ratings/:id
func (h *RatingHandler) DeleteRating(c *gin.Context) {
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

	if err := h.ratingService.DeleteRating(principal, id); err != nil {
		h.respondRatingError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyRatingDeleted),
	})
}

func (h *RatingHandler) respondRatingError(c *gin.Context, err error) {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "dataset not found"):
		utils.NotFoundResponse(c, "dataset")
	case strings.Contains(msg, "not found"):
		utils.NotFoundResponse(c, "rating")
	case strings.Contains(msg, "access denied"):
		utils.ForbiddenResponse(c, "")
	case strings.Contains(msg, "validation failed"):
		utils.BadRequestResponse(c, msg, nil)
	default:
		utils.InternalErrorResponse(c, msg)
	}
}
