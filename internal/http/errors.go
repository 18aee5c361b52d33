package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"authsvc/internal/service"
)

const (
	suggestionConflict    = "Try logging in instead, or use a different email address."
	suggestionCredentials = `Double-check your credentials or use "Forgot password" to reset.`
)

// writeServiceError traduce los errores del servicio a respuestas cortas que no filtran detalle.
func writeServiceError(c *gin.Context, logger *zap.Logger, op string, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": verr.Errors})
	case errors.Is(err, service.ErrEmailInUse):
		c.JSON(http.StatusConflict, gin.H{"error": "Email already in use"})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "User already exists", "suggestion": suggestionConflict})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password", "suggestion": suggestionCredentials})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, service.ErrTokenInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired token"})
	case errors.Is(err, service.ErrIncorrectPassword):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Current password is incorrect"})
	case errors.Is(err, service.ErrAlreadyVerified):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is already verified"})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, service.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please try again later"})
	case errors.Is(err, service.ErrEmailSendFailure):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to send verification email"})
	default:
		logger.Error(op+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func writeBadRequest(c *gin.Context, logger *zap.Logger, op string, err error) {
	logger.Warn("invalid "+op+" request", zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}
