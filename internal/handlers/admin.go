package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Single, shared credentials payload for admin sign-in.
type adminCredentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type accessTokenRequest struct {
	// Empty means generate one.
	Token string `json:"token"`
}

// @Summary      Admin sign-in
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body  body      adminCredentials  true  "Credentials"
// @Success      200   {object}  map[string]string  "token"
// @Failure      401   {object}  map[string]string
// @Router       /admin/sign-in [post]
func (h *Handler) adminSignIn(c *gin.Context) {
	var input adminCredentials
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	token, err := h.services.SignIn(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		if h.log != nil {
			h.log.Infow("admin_sign_in_failed", "username", input.Username, "err", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// @Summary      List license access tokens
// @Tags         admin
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /admin/tokens [get]
// @Security     BearerAuth
func (h *Handler) listAccessTokens(c *gin.Context) {
	tokens, err := h.services.ListAccessTokens(c.Request.Context())
	if err != nil {
		h.renderError(c, "list_access_tokens_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// @Summary      Add a license access token
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body  body      accessTokenRequest  false  "Token; generated when empty"
// @Success      201   {object}  models.AccessToken
// @Failure      401   {object}  map[string]string
// @Router       /admin/tokens [post]
// @Security     BearerAuth
func (h *Handler) addAccessToken(c *gin.Context) {
	var req accessTokenRequest
	if c.Request.ContentLength != 0 {
		if ok := h.bindJSONOrBadRequest(c, &req); !ok {
			return
		}
	}
	tok, err := h.services.AddAccessToken(c.Request.Context(), req.Token)
	if err != nil {
		h.renderError(c, "add_access_token_failed", err)
		return
	}
	c.JSON(http.StatusCreated, tok)
}

// @Summary      Revoke a license access token
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body  body      accessTokenRequest  true  "Token"
// @Success      200   {object}  map[string]bool
// @Failure      404   {object}  map[string]string
// @Router       /admin/tokens [delete]
// @Security     BearerAuth
func (h *Handler) deleteAccessToken(c *gin.Context) {
	var req accessTokenRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	deleted, err := h.services.DeleteAccessToken(c.Request.Context(), req.Token)
	if err != nil {
		h.renderError(c, "delete_access_token_failed", err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "token not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
