package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"booking-api/internal/domain"
	"booking-api/internal/service"
)

const authClaimsKey = "auth_claims"

// Authenticate valida el access token y guarda los claims en el contexto.
func Authenticate(logger *zap.Logger, gate *service.AuthGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if gate == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
			c.Abort()
			return
		}
		claims, err := gate.RequireAuthenticated(c.GetHeader("Authorization"))
		if err != nil {
			writeError(c, logger, "authenticate", err)
			c.Abort()
			return
		}
		c.Set(authClaimsKey, claims)
		c.Next()
	}
}

// RequireRole corre después de Authenticate.
func RequireRole(logger *zap.Logger, gate *service.AuthGate, roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetAuthClaims(c)
		if !ok {
			writeError(c, logger, "authorize", service.ErrNoToken)
			c.Abort()
			return
		}
		if err := gate.RequireRole(claims, roles...); err != nil {
			writeError(c, logger, "authorize", err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireOwnerOrAdmin compara el subject con el parámetro de ruta indicado.
func RequireOwnerOrAdmin(logger *zap.Logger, gate *service.AuthGate, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetAuthClaims(c)
		if !ok {
			writeError(c, logger, "authorize", service.ErrNoToken)
			c.Abort()
			return
		}
		if err := gate.RequireOwnerOrAdmin(claims, c.Param(param)); err != nil {
			writeError(c, logger, "authorize", err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetAuthClaims obtiene claims de JWT desde el contexto.
func GetAuthClaims(c *gin.Context) (service.Claims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return service.Claims{}, false
	}
	claims, ok := val.(service.Claims)
	return claims, ok
}
