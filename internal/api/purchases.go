package api

import (
	"net/http"

	"rank-api/internal/models"
	"rank-api/internal/response"
	"rank-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

const purchaseListLimit = 100

// ListPurchases returns the newest purchase records, or every record of one
// order when order_id is given.
func (h *Handler) ListPurchases(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		purchases []models.Purchase
		err       error
	)
	if orderID := c.Query("order_id"); orderID != "" {
		purchases, err = h.purchases.FindByOrder(ctx, orderID)
	} else {
		purchases, err = h.purchases.ListRecent(ctx, purchaseListLimit)
	}
	if err != nil {
		logging.Errorf("Failed to list purchases: %v", err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	if purchases == nil {
		purchases = []models.Purchase{}
	}
	c.JSON(http.StatusOK, purchases)
}
