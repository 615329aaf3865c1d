package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ctxUID     = "uid"
	ctxAdminID = "adminId"

	errNoLicense = "Access Denied: No License Token"
)

// requireAuth resolves the bearer ID token to a uid and admits only users
// whose profile carries verifiedAccess.
func (h *Handler) requireAuth(c *gin.Context) {
	ctx := c.Request.Context()
	uid, err := h.services.VerifyToken(ctx, c.GetHeader("Authorization"))
	if err != nil {
		h.renderError(c, "auth_verify_failed", err)
		return
	}

	profile, err := h.services.Profile(ctx, uid)
	if err != nil {
		h.renderError(c, "auth_profile_failed", err, "uid", uid)
		return
	}
	if !profile.VerifiedAccess {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errNoLicense})
		return
	}

	c.Set(ctxUID, uid)
	c.Next()
}

func userID(c *gin.Context) string { return c.GetString(ctxUID) }

func (h *Handler) adminMiddleware(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "missing Authorization header",
		})
		return
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid Authorization header format",
		})
		return
	}

	adminID, err := h.services.ParseToken(parts[1])
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return
	}

	c.Set(ctxAdminID, adminID)
	c.Next()
}
