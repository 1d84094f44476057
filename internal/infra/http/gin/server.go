package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"rentline/internal/infra/config"
	"rentline/internal/infra/obs"
)

type LiveChatHTTP interface {
	Serve(c *gin.Context)
}

type Handlers struct {
	Auth           AuthHTTP
	Listing        ListingHTTP
	Chat           ChatHTTP
	LiveChat       LiveChatHTTP
	Plan           PlanHTTP
	Stats          StatsHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	if h.Auth != nil {
		router.POST("/auth/register", h.Auth.Register)
		router.POST("/auth/login", h.Auth.Login)
		router.POST("/auth/refresh", h.Auth.Refresh)
		router.POST("/auth/logout", h.Auth.Logout)
		router.GET("/auth/me", h.Auth.Me)
		router.PUT("/auth/role", h.Auth.UpdateRole)
	}
	if h.Listing != nil {
		router.GET("/properties", h.Listing.Catalog)
		router.POST("/properties", h.Listing.Create)
		router.GET("/properties/mine", h.Listing.Mine)
		router.GET("/properties/:id", h.Listing.Get)
		router.POST("/properties/:id/images", h.Listing.UploadImages)
		router.POST("/properties/:id/promote", h.Listing.Promote)
	}
	if h.Chat != nil {
		router.POST("/chat/start/:propertyId", h.Chat.Start)
		router.GET("/chat/conversations", h.Chat.Conversations)
		router.GET("/chat/:conversationId/messages", h.Chat.Messages)
	}
	if h.LiveChat != nil {
		router.GET("/ws/chat/:conversationId", h.LiveChat.Serve)
	}
	if h.Plan != nil {
		router.GET("/plans/me", h.Plan.Current)
		router.POST("/plans/upgrade", h.Plan.Upgrade)
	}
	if h.Stats != nil {
		router.GET("/stats", h.Stats.Stats)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
