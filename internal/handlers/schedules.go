package handlers

import (
	"net/http"

	"venue_control/internal/service"

	"github.com/gin-gonic/gin"
)

// SetScheduleRequest is the set_schedule payload. Time must be written the
// way the scheduler renders the clock, e.g. "09:00 AM".
type SetScheduleRequest struct {
	Venue  string `json:"venue" example:"Hall"`
	Device string `json:"device" example:"Fan"`
	Time   string `json:"time" example:"09:00 AM"`
	Action string `json:"action" example:"on"`
}

type scheduleStatusRequest struct {
	Venue  string `json:"venue"`
	Device string `json:"device"`
	Status string `json:"status" example:"disable"`
}

// @Summary      Create or replace the schedule of a device
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        body  body      SetScheduleRequest  true  "Schedule"
// @Success      200   {object}  service.ScheduleView
// @Failure      400   {object}  map[string]string
// @Router       /auth/set_schedule [post]
// @Security     BearerAuth
func (h *Handler) setSchedule(c *gin.Context) {
	var req SetScheduleRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	view, err := h.services.SetSchedule(c.Request.Context(), userID(c), service.ScheduleInput{
		Venue:  req.Venue,
		Device: req.Device,
		Time:   req.Time,
		Action: req.Action,
	})
	if err != nil {
		h.renderError(c, "set_schedule_failed", err, "uid", userID(c))
		return
	}
	c.JSON(http.StatusOK, view)
}

// @Summary      List schedules by venue and device
// @Tags         schedules
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /auth/get_schedules [get]
// @Security     BearerAuth
func (h *Handler) getSchedules(c *gin.Context) {
	all, err := h.services.ListSchedules(c.Request.Context(), userID(c))
	if err != nil {
		h.renderError(c, "get_schedules_failed", err, "uid", userID(c))
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": all})
}

// @Summary      Delete the schedule of a device
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        body  body      scheduleStatusRequest  true  "Venue and device"
// @Success      200   {object}  map[string]string
// @Router       /auth/delete_schedule [delete]
// @Security     BearerAuth
func (h *Handler) deleteSchedule(c *gin.Context) {
	var req scheduleStatusRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	if err := h.services.DeleteSchedule(c.Request.Context(), userID(c), req.Venue, req.Device); err != nil {
		h.renderError(c, "delete_schedule_failed", err, "uid", userID(c))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Schedule deleted"})
}

// @Summary      Enable or disable a schedule
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        body  body      scheduleStatusRequest  true  "enable or disable"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Router       /auth/update_schedule_status [post]
// @Security     BearerAuth
func (h *Handler) updateScheduleStatus(c *gin.Context) {
	var req scheduleStatusRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	if err := h.services.UpdateScheduleStatus(c.Request.Context(), userID(c), req.Venue, req.Device, req.Status); err != nil {
		h.renderError(c, "update_schedule_status_failed", err, "uid", userID(c))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Schedule status updated",
		"venue":   req.Venue,
		"device":  req.Device,
		"status":  req.Status,
	})
}
