package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"authsvc/internal/service"
)

// AuthHandler expone los endpoints /auth.
type AuthHandler struct {
	logger       *zap.Logger
	auth         *service.AuthService
	cookieSecure bool
}

// NewAuthHandler crea un AuthHandler; cookieSecure controla el flag Secure del cookie de sesion.
func NewAuthHandler(logger *zap.Logger, auth *service.AuthService, cookieSecure bool) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		logger:       logger,
		auth:         auth,
		cookieSecure: cookieSecure,
	}
}

// Register maneja POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string  `json:"email"`
		Password string  `json:"password"`
		Name     *string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, h.logger, "register", err)
		return
	}

	res, err := h.auth.Register(c.Request.Context(), service.RegistrationInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		writeServiceError(c, h.logger, "register", err)
		return
	}

	setSessionCookie(c, res.Token, h.cookieSecure)
	c.JSON(http.StatusCreated, gin.H{"message": "Registration successful", "user": res.User})
}

// Login maneja POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, h.logger, "login", err)
		return
	}

	res, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(c, h.logger, "login", err)
		return
	}

	setSessionCookie(c, res.Token, h.cookieSecure)
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "user": res.User})
}

// Logout maneja POST /auth/logout. Solo borra el cookie: el token sigue valido hasta expirar.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.auth.Logout(c.Request.Context())
	clearSessionCookie(c, h.cookieSecure)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// VerifyEmail maneja POST /auth/verify-email.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, h.logger, "verify email", err)
		return
	}

	outcome, err := h.auth.VerifyEmail(c.Request.Context(), req.Token)
	if err != nil {
		writeServiceError(c, h.logger, "verify email", err)
		return
	}
	if outcome == service.VerifyOutcomeAlreadyVerified {
		c.JSON(http.StatusOK, gin.H{"message": "Email already verified"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully!"})
}

// ResendVerification maneja POST /auth/resend-verification (requiere sesion).
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	claims, ok := GetSessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	if err := h.auth.ResendVerification(c.Request.Context(), claims.UserID); err != nil {
		writeServiceError(c, h.logger, "resend verification", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Verification email sent successfully"})
}

// ForgotPassword maneja POST /auth/forgot-password. La respuesta no revela si la cuenta existe.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, h.logger, "forgot password", err)
		return
	}
	if err := h.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		writeServiceError(c, h.logger, "forgot password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If an account exists, a password reset email has been sent"})
}

// ResetPassword maneja POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, h.logger, "reset password", err)
		return
	}
	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		writeServiceError(c, h.logger, "reset password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}
