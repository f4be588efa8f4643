package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"booking-api/internal/domain"
	"booking-api/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(logger *zap.Logger, gate *service.AuthGate, accountH *AccountHandler) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/register", accountH.Register)
	r.POST("/login", accountH.Login)
	r.POST("/refresh-token", accountH.RefreshToken)
	r.POST("/logout", accountH.Logout)
	r.GET("/verify-email/:token", accountH.VerifyEmail)
	r.POST("/resend-verification", accountH.ResendVerification)
	r.POST("/forgot-password", accountH.ForgotPassword)
	r.POST("/reset-password/:token", accountH.ResetPassword)

	authed := r.Group("", Authenticate(logger, gate))
	authed.GET("/profile", accountH.Profile)

	users := authed.Group("/users")
	users.GET("", RequireRole(logger, gate, domain.RoleAdmin), accountH.ListAccounts)
	users.GET("/:id", RequireOwnerOrAdmin(logger, gate, "id"), accountH.GetAccount)
	users.PUT("/:id", RequireOwnerOrAdmin(logger, gate, "id"), accountH.UpdateAccount)
	users.PUT("/:id/password", accountH.ChangePassword)
	users.DELETE("/:id", RequireRole(logger, gate, domain.RoleAdmin), accountH.DeleteAccount)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		// Se registra la ruta de plantilla, nunca los tokens de la URL.
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
