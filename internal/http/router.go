package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chartcloud/internal/metrics"
	"chartcloud/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	tokens *service.TokenService,
	collector *metrics.Collector,
	scrape http.Handler,
	authH *AuthHandler,
	fileH *FileHandler,
	chartH *ChartHandler,
	userH *UserHandler,
	adminH *AdminHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, métricas y recovery.
	r.Use(zapLoggerMiddleware(logger), metricsMiddleware(collector), gin.Recovery())

	authGate := AuthMiddleware(tokens, collector)
	adminGate := AdminMiddleware(tokens, collector)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Server is running"})
	})
	if scrape != nil {
		r.GET("/metrics", gin.WrapH(scrape))
	}

	auth := r.Group("/auth")
	auth.POST("/signup", authH.Signup)
	auth.POST("/login", authH.Login)
	auth.PATCH("/send-verification-code", authGate, authH.SendVerificationCode)
	auth.PATCH("/verify-verification-code", authGate, authH.VerifyVerificationCode)
	auth.POST("/refresh", authGate, authH.Refresh)
	auth.POST("/logout", authGate, authH.Logout)
	auth.GET("/login/github", authH.GithubLogin)
	auth.POST("/login/github/callback", authH.GithubCallback)
	auth.GET("/login/google", authH.GoogleLogin)
	auth.POST("/login/google/callback", authH.GoogleCallback)

	files := r.Group("/files")
	files.POST("/upload", authGate, fileH.Upload)
	files.GET("", authGate, fileH.List)
	files.GET("/stats", authGate, fileH.Stats)
	files.GET("/:id", authGate, fileH.Get)
	files.DELETE("/:id", authGate, fileH.Delete)
	files.PATCH("/:id/sharing", authGate, fileH.ToggleSharing)
	files.POST("/:id/charts", authGate, fileH.AddChart)
	// Lectura pública de gráficos de un archivo compartido.
	files.GET("/:id/charts", fileH.ChartsFromFile)

	charts := r.Group("/charts", authGate)
	charts.GET("", chartH.List)
	charts.GET("/:id", chartH.Get)
	charts.DELETE("/:id", chartH.Delete)

	users := r.Group("/users", authGate)
	users.GET("/info", userH.Info)

	admin := r.Group("/admin", adminGate)
	admin.GET("/users", adminH.ListUsers)
	admin.GET("/users/:id", adminH.GetUser)
	admin.DELETE("/users/:id", adminH.DeleteUser)
	admin.GET("/stats", adminH.Stats)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// metricsMiddleware anota método, ruta plantilla y estado de cada petición.
func metricsMiddleware(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		if collector == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		collector.RecordRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
