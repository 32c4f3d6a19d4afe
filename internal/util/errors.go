package util

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"profitradar/internal/store"
)

// SafeErrorResponse returns a JSON error response, logging details but only exposing safe info to users
func SafeErrorResponse(c *gin.Context, statusCode int, userMessage string, err error) {
	if err != nil {
		log.Printf("[ERROR] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	response := gin.H{
		"success": false,
		"message": userMessage,
	}

	// Only include detailed error outside release mode
	if os.Getenv("GIN_MODE") != "release" && err != nil {
		response["error"] = err.Error()
	}

	c.AbortWithStatusJSON(statusCode, response)
}

// StoreErrorResponse maps persistence errors onto HTTP statuses
func StoreErrorResponse(c *gin.Context, notFoundMessage string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		SafeErrorResponse(c, http.StatusNotFound, notFoundMessage, nil)
	case errors.Is(err, context.DeadlineExceeded):
		SafeErrorResponse(c, http.StatusGatewayTimeout, "Storage timed out", err)
	default:
		SafeErrorResponse(c, http.StatusInternalServerError, "Storage error", err)
	}
}
