package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type fcmTokenRequest struct {
	Token string `json:"token"`
}

type venueRequest struct {
	Venue string `json:"venue" example:"Hall"`
}

type deviceRequest struct {
	Venue  string `json:"venue" example:"Hall"`
	Device string `json:"device" example:"Fan"`
	// Initial state for add_device: on, off or 1-5. Defaults to off.
	State string `json:"state,omitempty" example:"off"`
	// New state for device_state: on, off or 1-5.
	Value string `json:"value,omitempty" example:"3"`
}

// @Summary      Current user profile
// @Tags         devices
// @Produce      json
// @Success      200  {object}  models.Profile
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /auth/profile [get]
// @Security     BearerAuth
func (h *Handler) profile(c *gin.Context) {
	p, err := h.services.Profile(c.Request.Context(), userID(c))
	if err != nil {
		h.renderError(c, "profile_failed", err, "uid", userID(c))
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary      Register the push token of the calling device
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        body  body      fcmTokenRequest  true  "FCM token"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Router       /auth/save_fcm_token [post]
// @Security     BearerAuth
func (h *Handler) saveFCMToken(c *gin.Context) {
	var req fcmTokenRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	if err := h.services.SaveFCMToken(c.Request.Context(), userID(c), req.Token); err != nil {
		h.renderError(c, "save_fcm_token_failed", err, "uid", userID(c))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "FCM token stored"})
}

// @Summary      Add a venue
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        body  body      venueRequest  true  "Venue"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Router       /auth/add_venue [post]
// @Security     BearerAuth
func (h *Handler) addVenue(c *gin.Context) {
	var req venueRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	venue, err := h.services.AddVenue(c.Request.Context(), userID(c), req.Venue)
	if err != nil {
		h.renderError(c, "add_venue_failed", err, "uid", userID(c))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Venue added", "venue": venue})
}

// @Summary      Add a device to a venue
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        body  body      deviceRequest  true  "Venue, device and initial state"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /auth/add_device [post]
// @Security     BearerAuth
func (h *Handler) addDevice(c *gin.Context) {
	var req deviceRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	if req.State == "" {
		req.State = "off"
	}
	device, err := h.services.AddDevice(c.Request.Context(), userID(c), req.Venue, req.Device, req.State)
	if err != nil {
		h.renderError(c, "add_device_failed", err, "uid", userID(c))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Device added", "device": device})
}

// @Summary      Set a device state
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        body  body      deviceRequest  true  "Venue, device and value"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Router       /auth/device_state [post]
// @Security     BearerAuth
func (h *Handler) deviceState(c *gin.Context) {
	var req deviceRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	value, err := h.services.UpdateDeviceState(c.Request.Context(), userID(c), req.Venue, req.Device, req.Value)
	if err != nil {
		h.renderError(c, "device_state_failed", err, "uid", userID(c))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Updated", "value": value})
}

// @Summary      Delete a venue with its devices
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        body  body      venueRequest  true  "Venue"
// @Success      200   {object}  map[string]string
// @Router       /auth/delete_venue [delete]
// @Security     BearerAuth
func (h *Handler) deleteVenue(c *gin.Context) {
	var req venueRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	venue, err := h.services.DeleteVenue(c.Request.Context(), userID(c), req.Venue)
	if err != nil {
		h.renderError(c, "delete_venue_failed", err, "uid", userID(c))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Venue deleted", "venue": venue})
}

// @Summary      Delete a device
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        body  body      deviceRequest  true  "Venue and device"
// @Success      200   {object}  map[string]string
// @Router       /auth/delete_device [delete]
// @Security     BearerAuth
func (h *Handler) deleteDevice(c *gin.Context) {
	var req deviceRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	device, err := h.services.DeleteDevice(c.Request.Context(), userID(c), req.Venue, req.Device)
	if err != nil {
		h.renderError(c, "delete_device_failed", err, "uid", userID(c))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Device deleted", "device": device})
}
