package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"authsvc/internal/domain"
)

const (
	sessionCookieName = "token"
	sessionClaimsKey  = "session_claims"
)

// SessionAuthenticator resuelve un token de sesion a sus claims.
type SessionAuthenticator interface {
	Authenticate(token string) (domain.SessionClaims, error)
}

// SessionAuthMiddleware exige una sesion valida, leida del cookie o de un header Bearer.
func SessionAuthMiddleware(auth SessionAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session auth not configured"})
			c.Abort()
			return
		}

		token := sessionToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		claims, err := auth.Authenticate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		c.Set(sessionClaimsKey, claims)
		c.Next()
	}
}

// GetSessionClaims obtiene las claims que dejo el middleware.
func GetSessionClaims(c *gin.Context) (domain.SessionClaims, bool) {
	val, ok := c.Get(sessionClaimsKey)
	if !ok {
		return domain.SessionClaims{}, false
	}
	claims, ok := val.(domain.SessionClaims)
	return claims, ok
}

// sessionToken prefiere el cookie; el header sirve a clientes que no son navegador.
func sessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(sessionCookieName); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > len("Bearer ") && strings.EqualFold(header[:len("Bearer ")], "bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return ""
}

func setSessionCookie(c *gin.Context, token string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, token, int(domain.SessionTTL.Seconds()), "/", "", secure, true)
}

func clearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, "", -1, "/", "", secure, true)
}
