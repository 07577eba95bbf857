// internal/handlers/common.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nguyenquyen/evdata-backend/internal/utils"
)

func parseIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		utils.BadRequestResponse(c, "Invalid id", nil)
		return 0, false
	}
	return id, true
}
