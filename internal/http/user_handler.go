package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"authsvc/internal/service"
)

// UserHandler expone los endpoints /user; todos requieren sesion.
type UserHandler struct {
	logger       *zap.Logger
	auth         *service.AuthService
	cookieSecure bool
}

func NewUserHandler(logger *zap.Logger, auth *service.AuthService, cookieSecure bool) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{
		logger:       logger,
		auth:         auth,
		cookieSecure: cookieSecure,
	}
}

// Me maneja GET /user/me.
func (h *UserHandler) Me(c *gin.Context) {
	claims, ok := GetSessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	user, err := h.auth.GetProfile(c.Request.Context(), claims.UserID)
	if err != nil {
		writeServiceError(c, h.logger, "get profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateProfile maneja PATCH /user/profile. Si cambia el email se reemite el cookie.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	claims, ok := GetSessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	var req struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, h.logger, "update profile", err)
		return
	}

	res, err := h.auth.UpdateProfile(c.Request.Context(), claims.UserID, service.ProfileUpdate{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		writeServiceError(c, h.logger, "update profile", err)
		return
	}
	if res.Token != "" {
		setSessionCookie(c, res.Token, h.cookieSecure)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": res.User})
}

// ChangePassword maneja POST /user/change-password.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	claims, ok := GetSessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, h.logger, "change password", err)
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(c, h.logger, "change password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// DeleteAccount maneja DELETE /user y borra el cookie de sesion.
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	claims, ok := GetSessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	if err := h.auth.DeleteAccount(c.Request.Context(), claims.UserID); err != nil {
		writeServiceError(c, h.logger, "delete account", err)
		return
	}
	clearSessionCookie(c, h.cookieSecure)
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}
