// internal/handlers/internal.go
package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nguyenquyen/evdata-backend/internal/services"
	"github.com/nguyenquyen/evdata-backend/internal/utils"
)

// InternalHandler serves the service-to-service endpoints consumed by the
// HTTP catalog and access clients in split deployments.
type InternalHandler struct {
	datasetService *services.DatasetService
	accessService  *services.AccessService
}

func NewInternalHandler(datasetService *services.DatasetService, accessService *services.AccessService) *InternalHandler {
	return &InternalHandler{
		datasetService: datasetService,
		accessService:  accessService,
	}
}

// GET /internal/datasets/:id
func (h *InternalHandler) GetDatasetInfo(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	dataset, err := h.datasetService.GetDataset(id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			utils.NotFoundResponse(c, "dataset")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, services.DatasetInfo{
		ID:           dataset.ID,
		Code:         dataset.Code,
		Name:         dataset.Name,
		ProviderID:   dataset.ProviderID,
		ProviderName: dataset.ProviderName,
		Status:       dataset.Status,
		PricingModel: dataset.PricingModel,
		Price:        dataset.Price,
		Currency:     dataset.Currency,
	})
}

// POST /internal/access/grants
func (h *InternalHandler) GrantAccess(c *gin.Context) {
	var cmd services.GrantAccessCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		utils.BadRequestResponse(c, "Invalid grant payload", err.Error())
		return
	}

	var expiresAt *time.Time
	if cmd.SubscriptionDays != nil {
		t := time.Now().AddDate(0, 0, *cmd.SubscriptionDays)
		expiresAt = &t
	}

	access, err := h.accessService.GrantAccess(cmd.UserID, cmd.UserEmail, cmd.UserName, &services.GrantAccessRequest{
		DatasetID:     cmd.DatasetID,
		AccessType:    string(cmd.AccessType),
		ExpiresAt:     expiresAt,
		PricePaid:     cmd.PricePaid,
		TransactionID: cmd.TransactionID,
		APICallsLimit: cmd.APICallsLimit,
	})
	if err != nil {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "not found"):
			utils.NotFoundResponse(c, "dataset")
		case strings.Contains(msg, "already has active access"):
			utils.ConflictResponse(c, msg)
		case strings.Contains(msg, "not published"):
			utils.UnprocessableResponse(c, msg)
		default:
			utils.InternalErrorResponse(c, msg)
		}
		return
	}

	utils.SuccessResponse(c, access)
}
