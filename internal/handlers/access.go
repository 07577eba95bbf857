// internal/handlers/access.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nguyenquyen/evdata-backend/internal/i18n"
	"github.com/nguyenquyen/evdata-backend/internal/services"
	"github.com/nguyenquyen/evdata-backend/internal/utils"
)

type AccessHandler struct {
	accessService *services.AccessService
}

func NewAccessHandler(accessService *services.AccessService) *AccessHandler {
	return &AccessHandler{accessService: accessService}
}

// POST /access/grants
func (h *AccessHandler) GrantAccess(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.GrantAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	// Self-service grants carry no transaction reference
	req.TransactionID = ""

	access, err := h.accessService.GrantAccess(principal.UserID, principal.Email, principal.FullName, &req)
	if err != nil {
		h.respondAccessError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAccessGranted),
		"access":  access,
	})
}

// GET /access/grants
func (h *AccessHandler) ListMyAccess(c *gin.Context) {
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	grants, total, err := h.accessService.ListMyAccess(principal, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(grants, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /access/grants/:id
func (h *AccessHandler) GetAccess(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	access, err := h.accessService.GetAccess(principal, id)
	if err != nil {
		h.respondAccessError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"access": access,
	})
}

// POST /access/grants/:id/downloads
func (h *AccessHandler) RecordDownload(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	access, err := h.accessService.RecordDownload(principal, id)
	if err != nil {
		h.respondAccessError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"access": access,
	})
}

// POST /access/api-calls
func (h *AccessHandler) RecordAPICall(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.RecordAPICallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	access, err := h.accessService.RecordAPICall(principal, &req)
	if err != nil {
		h.respondAccessError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"access": access,
	})
}

// DELETE /access/grants/:id
func (h *AccessHandler) RevokeAccess(c *gin.Context) {
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

	access, err := h.accessService.RevokeAccess(principal, id)
	if err != nil {
		h.respondAccessError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAccessRevoked),
		"access":  access,
	})
}

func (h *AccessHandler) respondAccessError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)
	msg := err.Error()
	switch {
	case strings.Contains(msg, "dataset not found"):
		utils.NotFoundResponse(c, "dataset")
	case strings.Contains(msg, "not found"):
		utils.NotFoundResponse(c, "access")
	case strings.Contains(msg, "not published"):
		utils.UnprocessableResponse(c, i18n.T(lang, i18n.KeyDatasetNotPublished))
	case strings.Contains(msg, "already has active access"):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyAccessAlreadyActive))
	case strings.Contains(msg, "limit exceeded"):
		utils.ErrorResponse(c, http.StatusTooManyRequests, "QUOTA_EXCEEDED", i18n.T(lang, i18n.KeyAccessQuotaExceeded), nil)
	case strings.Contains(msg, "invalid API access token"):
		utils.BadRequestResponse(c, msg, nil)
	case strings.Contains(msg, "expired"):
		utils.UnprocessableResponse(c, i18n.T(lang, i18n.KeyAccessExpired))
	case strings.Contains(msg, "access denied"):
		utils.ForbiddenResponse(c, "")
	case strings.Contains(msg, "validation failed"):
		utils.BadRequestResponse(c, msg, nil)
	default:
		utils.InternalErrorResponse(c, msg)
	}
}
