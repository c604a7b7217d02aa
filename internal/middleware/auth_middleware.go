// internal/middleware/auth_middleware.go
package middleware

import (
	"net/http"
	"strings"

	"paysandbox-service/internal/pkg/jwt"
	"paysandbox-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ctxWorkspaceID = "workspace_id"
	ctxSubject     = "subject"
	ctxRoles       = "roles"
	ctxMode        = "mode"
)

// TokenVerifier checks workspace access tokens issued by the dashboard.
type TokenVerifier interface {
	VerifyWorkspaceToken(token string) (*jwt.Claims, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
	logger   *zap.Logger
}

func NewAuthMiddleware(verifier TokenVerifier, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger,
	}
}

// Auth validates the bearer token and binds the request to its workspace.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c, "missing authorization token")
			return
		}

		if m.verifier == nil {
			response.Unauthorized(c, "token verification is not configured")
			return
		}

		claims, err := m.verifier.VerifyWorkspaceToken(token)
		if err != nil {
			m.logger.Debug("workspace token rejected",
				zap.String("ip", c.ClientIP()),
				zap.Error(err))
			response.Error(c, http.StatusUnauthorized, "invalid or expired token", err)
			return
		}

		c.Set(ctxWorkspaceID, claims.WorkspaceID)
		c.Set(ctxSubject, claims.Subject)
		c.Set(ctxRoles, claims.Roles)
		c.Set(ctxMode, claims.Mode)

		c.Next()
	}
}

// RequireRole must be used after Auth.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, role := range roles {
			if HasRole(c, role) {
				c.Next()
				return
			}
		}
		response.Error(c, http.StatusForbidden, "insufficient permissions", nil, map[string]interface{}{
			"required_roles": roles,
		})
	}
}

// extractToken extracts Bearer token from Authorization header
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	// Browsers cannot set headers on websocket upgrades
	return c.Query("token")
}
