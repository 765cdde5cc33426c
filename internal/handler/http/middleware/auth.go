package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/service"
)

const (
	// SessionCookieName is the cookie carrying the server-side session id.
	SessionCookieName = "portfolio_session"

	ContextUserKey    = "auth_user"
	ContextUserIDKey  = "auth_user_id"
	ContextSessionKey = "auth_session"
	ContextClaimsKey  = "auth_claims"
)

// HybridAuth authenticates the request from whatever credentials it carries:
// a session cookie, a bearer token, or both. Every presented credential must
// verify, and both must belong to the same user.
func HybridAuth(authService *service.AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sessionID *uuid.UUID
		if raw, err := c.Cookie(SessionCookieName); err == nil && raw != "" {
			sid, err := uuid.Parse(raw)
			if err != nil {
				abortUnauthorized(c, "invalid session cookie")
				return
			}
			sessionID = &sid
		}

		accessToken := bearerToken(c)

		identity, err := authService.ValidateHybridAuth(c.Request.Context(), sessionID, accessToken)
		if err != nil {
			logger.Debug("Hybrid auth rejected", zap.Error(err), zap.String("path", c.Request.URL.Path))
			abortUnauthorized(c, "authentication required")
			return
		}

		c.Set(ContextUserKey, identity.User)
		c.Set(ContextUserIDKey, identity.User.ID)
		if identity.Session != nil {
			c.Set(ContextSessionKey, identity.Session)
		}
		if identity.Claims != nil {
			c.Set(ContextClaimsKey, identity.Claims)
		}
		c.Next()
	}
}

// RequirePermission gates a route on the caller holding a permission.
func RequirePermission(authz *service.AuthorizationService, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			abortUnauthorized(c, "authentication required")
			return
		}
		held, err := authz.ResolvePermissions(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"errors":  []gin.H{{"code": "internal_error", "message": "internal server error"}},
			})
			return
		}
		for _, p := range held {
			if p == permission {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"errors":  []gin.H{{"code": "forbidden", "message": "missing permission: " + permission}},
		})
	}
}

// UserID extracts the authenticated user id set by HybridAuth.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// User extracts the authenticated user set by HybridAuth.
func User(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// SessionID extracts the authenticated session id, when the request carried
// a session credential.
func SessionID(c *gin.Context) *uuid.UUID {
	v, ok := c.Get(ContextSessionKey)
	if !ok {
		return nil
	}
	session, ok := v.(*models.Session)
	if !ok {
		return nil
	}
	id := session.ID
	return &id
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"errors":  []gin.H{{"code": "unauthorized", "message": message}},
	})
}
