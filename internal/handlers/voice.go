package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type voiceKeyRequest struct {
	APIKey string `json:"apiKey"`
}

type voiceCommandRequest struct {
	Text string `json:"text" example:"switch off the hall fan"`
}

// @Summary      Store the caller's Gemini API key
// @Tags         voice
// @Accept       json
// @Produce      json
// @Param        body  body      voiceKeyRequest  true  "API key"
// @Success      200   {object}  map[string]string
// @Router       /auth/set_voice_key [post]
// @Security     BearerAuth
func (h *Handler) setVoiceKey(c *gin.Context) {
	var req voiceKeyRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	if err := h.services.SetVoiceKey(c.Request.Context(), userID(c), req.APIKey); err != nil {
		h.renderError(c, "set_voice_key_failed", err, "uid", userID(c))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Key saved securely"})
}

// @Summary      Whether a Gemini API key is stored
// @Tags         voice
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Router       /auth/voice_key_exists [get]
// @Security     BearerAuth
func (h *Handler) voiceKeyExists(c *gin.Context) {
	exists, err := h.services.VoiceKeyExists(c.Request.Context(), userID(c))
	if err != nil {
		h.renderError(c, "voice_key_exists_failed", err, "uid", userID(c))
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

// @Summary      Apply a natural-language device command
// @Tags         voice
// @Accept       json
// @Produce      json
// @Param        body  body      voiceCommandRequest  true  "Command text"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /auth/voice_command [post]
// @Security     BearerAuth
func (h *Handler) voiceCommand(c *gin.Context) {
	var req voiceCommandRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	cmd, err := h.services.VoiceCommand(c.Request.Context(), userID(c), req.Text)
	if err != nil {
		h.renderError(c, "voice_command_failed", err, "uid", userID(c))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Action applied",
		"venue":   cmd.Venue,
		"device":  cmd.Device,
		"value":   cmd.Value,
	})
}
