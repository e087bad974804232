package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	// Set Gin mode (can be controlled via GIN_MODE environment variable)
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// Middleware
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, PUT, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Routes
	setupRoutes(r, handler, apiAccessKey)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	// Ingestion endpoints
	r.PUT("/put/video", handler.PutVideo)
	r.PUT("/put/videos", handler.PutVideos)

	// Query endpoints
	r.GET("/videos", handler.GetVideos)
	r.GET("/search", handler.SearchVideos)
	r.GET("/channels", handler.GetChannels)

	// RSS endpoints
	r.GET("/rss/all", handler.GetRSSAll)
	r.GET("/rss/channel/:name", handler.GetRSSChannel)

	// Health and status endpoints
	r.GET("/health", handler.GetHealth)
	r.GET("/version", handler.GetVersion)

	// Admin endpoints (conditionally enabled with authentication)
	if apiAccessKey != "" {
		admin := r.Group("/admin")
		admin.Use(authMiddleware(apiAccessKey))
		{
			admin.DELETE("/channel/:name", handler.APIDeleteChannel)
			admin.POST("/reindex", handler.APIReindex)
		}
		slog.Info("Admin endpoints enabled with authentication")
	} else {
		slog.Info("Admin endpoints disabled (API_ACCESS_KEY not set)")
	}

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"put_video":   "/put/video (PUT)",
			"put_videos":  "/put/videos (PUT)",
			"videos":      "/videos",
			"search":      "/search?q=<query>",
			"channels":    "/channels",
			"rss_all":     "/rss/all",
			"rss_channel": "/rss/channel/<name>",
			"health":      "/health",
			"version":     "/version",
		}

		// Add admin endpoints if authentication is enabled
		if apiAccessKey != "" {
			endpoints["delete_channel"] = "/admin/channel/<name> (DELETE, requires X-API-Key header)"
			endpoints["reindex"] = "/admin/reindex (POST, requires X-API-Key header)"
		}

		c.JSON(200, gin.H{
			"service":     "Vids DB",
			"description": "Video metadata store with full text search and RSS output",
			"endpoints":   endpoints,
			"admin_status": map[string]interface{}{
				"enabled":       apiAccessKey != "",
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
			"documentation": "https://github.com/zackees/vids-db",
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// authMiddleware creates authentication middleware for admin endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get API key from X-API-Key header
		providedKey := c.GetHeader("X-API-Key")

		// Also check Authorization header with Bearer prefix
		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
