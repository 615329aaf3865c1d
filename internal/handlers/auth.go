package handlers

import (
	"net/http"

	"venue_control/internal/service"

	"github.com/gin-gonic/gin"
)

type signUpRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	Name        string `json:"name"`
	AccessToken string `json:"accessToken" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// @Summary      Sign up with a license access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signUpRequest  true  "Account and license token"
// @Success      200   {object}  map[string]string  "uid"
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /auth/signup [post]
func (h *Handler) signUp(c *gin.Context) {
	var input signUpRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	uid, err := h.services.SignUp(c.Request.Context(), service.SignUpInput{
		Email:       input.Email,
		Password:    input.Password,
		Name:        input.Name,
		AccessToken: input.AccessToken,
	})
	if err != nil {
		h.renderError(c, "auth_sign_up_failed", err, "email", input.Email)
		return
	}

	c.JSON(http.StatusOK, gin.H{"uid": uid})
}

// @Summary      Log in with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /auth/login [post]
func (h *Handler) login(c *gin.Context) {
	var input loginRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	out, err := h.services.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		h.renderError(c, "auth_login_failed", err, "email", input.Email)
		return
	}

	c.JSON(http.StatusOK, out)
}

// @Summary      Exchange a refresh token for a new ID token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  service.RefreshResult
// @Failure      400   {object}  map[string]string
// @Router       /auth/refresh [post]
func (h *Handler) refresh(c *gin.Context) {
	var input refreshRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	out, err := h.services.Refresh(c.Request.Context(), input.RefreshToken)
	if err != nil {
		h.renderError(c, "auth_refresh_failed", err)
		return
	}

	c.JSON(http.StatusOK, out)
}
