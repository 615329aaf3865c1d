package handlers

import (
	"net/http"

	"venue_control/internal/service"

	"github.com/gin-gonic/gin"
)

const statusOK = "ok"

// bindJSONOrBadRequest tries to bind the request body into dst and writes a 400 JSON on failure.
// Returns false if the request was already handled (aborted), true otherwise.
func (h *Handler) bindJSONOrBadRequest(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if h.log != nil {
			h.log.Infow("bad_request_body", "path", c.FullPath(), "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// renderError answers with the status and client message carried by err.
// Server-side failures are logged with logKey.
func (h *Handler) renderError(c *gin.Context, logKey string, err error, kv ...any) {
	status, msg := service.StatusOf(err)
	if h.log != nil {
		fields := append([]any{"status", status, "err", err}, kv...)
		if status >= http.StatusInternalServerError {
			h.log.Errorw(logKey, fields...)
		} else {
			h.log.Infow(logKey, fields...)
		}
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}
