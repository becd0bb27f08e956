package api

import (
	"errors"
	"net/http"

	"rank-api/internal/models"
	"rank-api/internal/response"
	"rank-api/internal/services"
	"rank-api/pkg/logging"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// ShopifyHmacHeader carries the base64 HMAC-SHA256 of the raw body.
const ShopifyHmacHeader = "X-Shopify-Hmac-Sha256"

// maxOrderIDLength matches the order_id column.
const maxOrderIDLength = 64

// OrderPaid handles the orders/paid webhook
func (h *Handler) OrderPaid(c *gin.Context) {
	if c.Request.ContentLength > h.maxBody {
		response.ErrorJSON(c, http.StatusRequestEntityTooLarge, "Payload too large")
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)

	// The signature covers the exact bytes, read them before any decoding
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logging.Warnf("Rejected order webhook from %s: body over %d bytes", c.ClientIP(), tooLarge.Limit)
			response.ErrorJSON(c, http.StatusRequestEntityTooLarge, "Payload too large")
			return
		}
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.verifier.Verify(body, c.GetHeader(ShopifyHmacHeader)); err != nil {
		logging.Warnf("Rejected order webhook from %s: %v", c.ClientIP(), err)
		response.ErrorJSON(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var order models.ShopifyOrder
	if err := binding.JSON.BindBody(body, &order); err != nil {
		logging.Warnf("Invalid order payload: %v", err)
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid order payload")
		return
	}
	orderID := order.ID.String()
	if orderID == "" {
		response.ErrorJSON(c, http.StatusBadRequest, "Order id is required")
		return
	}
	if len(orderID) > maxOrderIDLength {
		response.ErrorJSON(c, http.StatusBadRequest, "Order id is too long")
		return
	}

	ctx := c.Request.Context()

	release, err := h.lock.Acquire(ctx, orderID)
	if errors.Is(err, services.ErrOrderInFlight) {
		logging.Infof("Order %s is already being processed", orderID)
		response.StatusJSON(c, http.StatusOK, response.StatusAlreadyProcessed)
		return
	}
	if err != nil {
		logging.Errorf("Failed to lock order %s: %v", orderID, err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer release()

	exists, err := h.ledger.Exists(ctx, orderID)
	if err != nil {
		logging.Errorf("Failed to check order %s: %v", orderID, err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	if exists {
		logging.Infof("Order %s already processed", orderID)
		response.StatusJSON(c, http.StatusOK, response.StatusAlreadyProcessed)
		return
	}

	result, err := h.processor.Process(ctx, &order)
	if err != nil {
		logging.Errorf("Failed to process order %s: %v", orderID, err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	logging.Infow("Order accepted",
		"order_id", orderID,
		"recorded", result.Recorded,
		"skipped", result.Skipped,
	)
	response.StatusJSON(c, http.StatusOK, response.StatusSuccess)
}
