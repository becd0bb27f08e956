package response

import (
	"github.com/gin-gonic/gin"
)

// ErrorBody is the error shape returned by every endpoint.
type ErrorBody struct {
	Error string `json:"error"`
}

// StatusBody acknowledges a webhook delivery.
type StatusBody struct {
	Status string `json:"status"`
}

const (
	StatusSuccess          = "success"
	StatusAlreadyProcessed = "already_processed"
)

// Error returns an error response
func Error(message string) ErrorBody {
	return ErrorBody{Error: message}
}

// Status returns a webhook acknowledgement
func Status(status string) StatusBody {
	return StatusBody{Status: status}
}

// ErrorJSON sends an error JSON response
func ErrorJSON(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Error(message))
}

// AbortErrorJSON sends an error JSON response and stops the handler chain
func AbortErrorJSON(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, Error(message))
}

// StatusJSON acknowledges with 200 and the given status
func StatusJSON(c *gin.Context, statusCode int, status string) {
	c.JSON(statusCode, Status(status))
}
