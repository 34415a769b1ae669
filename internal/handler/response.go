// Package handler provides the HTTP API surface of the pipeline.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidsage/video-intelligence-go/internal/apperr"
)

// respondError maps a pipeline error to its HTTP status and a structured
// body. Unknown errors surface as 500 without leaking internals.
func respondError(c *gin.Context, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		body := gin.H{"code": ae.Code, "message": ae.Message}
		if len(ae.Context) > 0 {
			body["context"] = ae.Context
		}
		c.JSON(apperr.HTTPStatus(ae.Code), gin.H{"error": body})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{"code": "internal_error", "message": "internal server error"},
	})
}
