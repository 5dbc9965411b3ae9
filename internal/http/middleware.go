package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chartcloud/internal/domain"
	"chartcloud/internal/metrics"
	"chartcloud/internal/service"
)

const identityKey = "auth_identity"

// AuthMiddleware extrae el bearer token, lo valida contra el secreto de access
// y después contra el de refresh, y deja la identidad resultante en el
// contexto. Así una misma puerta sirve rutas de access y de refresh.
func AuthMiddleware(tokens *service.TokenService, collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "No token provided!"})
			c.Abort()
			return
		}

		claims, err := tokens.Decode(token)
		if err != nil {
			if collector != nil {
				collector.RecordAuthFailure()
			}
			message := "Invalid token"
			if errors.Is(err, service.ErrTokenExpired) {
				message = "Token expired"
			}
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": message})
			c.Abort()
			return
		}

		ident := service.Identity{
			Username:   claims.Subject,
			UserID:     claims.UserID,
			Role:       claims.Role,
			TokenClass: claims.TokenType,
			Token:      token,
		}
		if claims.ExpiresAt != nil {
			ident.ExpiresAt = claims.ExpiresAt.Time
		}
		c.Set(identityKey, ident)
		c.Next()
	}
}

// AdminMiddleware valida exclusivamente credenciales de access y exige rol
// admin.
func AdminMiddleware(tokens *service.TokenService, collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "No token provided!"})
			c.Abort()
			return
		}

		claims, err := tokens.VerifyAccess(token)
		if err != nil {
			if collector != nil {
				collector.RecordAuthFailure()
			}
			message := "Invalid token"
			if errors.Is(err, service.ErrTokenExpired) {
				message = "Token expired"
			}
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": message})
			c.Abort()
			return
		}

		if claims.Role != domain.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Access denied. Admins only."})
			c.Abort()
			return
		}

		ident := service.Identity{
			Username:   claims.Subject,
			UserID:     claims.UserID,
			Role:       claims.Role,
			TokenClass: claims.TokenType,
			Token:      token,
		}
		if claims.ExpiresAt != nil {
			ident.ExpiresAt = claims.ExpiresAt.Time
		}
		c.Set(identityKey, ident)
		c.Next()
	}
}

// GetIdentity obtiene la identidad dejada por la puerta de acceso.
func GetIdentity(c *gin.Context) (service.Identity, bool) {
	val, ok := c.Get(identityKey)
	if !ok {
		return service.Identity{}, false
	}
	ident, ok := val.(service.Identity)
	return ident, ok
}

func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[len("Bearer "):])
	if token == "" {
		return "", false
	}
	return token, true
}
