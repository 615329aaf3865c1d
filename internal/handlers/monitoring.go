package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type monitoringVenueRequest struct {
	Venue   string   `json:"venue" example:"Lab"`
	Sensors []string `json:"sensors,omitempty"`
}

// @Summary      Create a monitoring venue with sensors set to "0"
// @Tags         monitoring
// @Accept       json
// @Produce      json
// @Param        body  body      monitoringVenueRequest  true  "Venue and sensor names"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Router       /auth/add_monitoring_venue [post]
// @Security     BearerAuth
func (h *Handler) addMonitoringVenue(c *gin.Context) {
	var req monitoringVenueRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	out, err := h.services.AddMonitoringVenue(c.Request.Context(), userID(c), req.Venue, req.Sensors)
	if err != nil {
		h.renderError(c, "add_monitoring_venue_failed", err, "uid", userID(c))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Monitoring venue created", "monitoring": out})
}

// @Summary      Sensor readings of every monitoring venue
// @Tags         monitoring
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /auth/get_monitoring_data [get]
// @Security     BearerAuth
func (h *Handler) getMonitoringData(c *gin.Context) {
	out, err := h.services.MonitoringData(c.Request.Context(), userID(c))
	if err != nil {
		h.renderError(c, "get_monitoring_data_failed", err, "uid", userID(c))
		return
	}
	c.JSON(http.StatusOK, gin.H{"monitoring": out})
}

// @Summary      Delete a monitoring venue
// @Tags         monitoring
// @Accept       json
// @Produce      json
// @Param        body  body      monitoringVenueRequest  true  "Venue"
// @Success      200   {object}  map[string]string
// @Router       /auth/delete_monitoring_venue [delete]
// @Security     BearerAuth
func (h *Handler) deleteMonitoringVenue(c *gin.Context) {
	var req monitoringVenueRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	if err := h.services.DeleteMonitoringVenue(c.Request.Context(), userID(c), req.Venue); err != nil {
		h.renderError(c, "delete_monitoring_venue_failed", err, "uid", userID(c))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Monitoring venue deleted"})
}
