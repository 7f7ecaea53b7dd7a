package httptransport

import (
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	jwtpkg "dropmail/backend/internal/auth/jwt"
	"dropmail/backend/internal/config"
	"dropmail/backend/internal/health"
	"dropmail/backend/internal/middleware"
	"dropmail/backend/internal/monitoring"
	"dropmail/backend/internal/service"
	"dropmail/backend/internal/storage/redis"
	"dropmail/backend/internal/websocket"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config         *config.Config
	InboxService   *service.InboxService
	MessageService *service.MessageService
	TokenManager   *jwtpkg.Manager // 可以为 nil
	WebSocketHub   *websocket.Hub  // 可以为 nil
	RedisClient    *redis.Client   // 可以为 nil
	HealthChecker  *health.Checker
	Metrics        *monitoring.Metrics // 可以为 nil
	Logger         *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	// 使用自定义中间件替代默认中间件
	router.Use(middleware.RecoveryHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())

	// 读取接口只接收小的 JSON 请求体
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))

	if deps.Metrics != nil {
		router.Use(middleware.HTTPMetrics(deps.Metrics))
	}

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Inbox-Password"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	handler := &Handler{
		inboxes:  deps.InboxService,
		messages: deps.MessageService,
		tokens:   deps.TokenManager,
		metrics:  deps.Metrics,
		domain:   deps.Config.SMTP.Domain,
	}

	inboxAuth := middleware.NewInboxAuth(deps.InboxService, deps.TokenManager, deps.Logger)

	// 健康检查与监控端点
	if deps.HealthChecker != nil {
		router.GET("/health/live", gin.WrapF(deps.HealthChecker.LiveEndpoint))
		router.GET("/health/ready", gin.WrapF(deps.HealthChecker.ReadyEndpoint))
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		// 创建邮箱（按 IP 限频）
		v1.POST("/inboxes",
			middleware.CreateInboxRateLimit(deps.RedisClient, deps.Config.Redis.MaxPerIP, deps.Logger),
			handler.createInbox,
		)

		// 用密码换取读取令牌
		v1.POST("/inboxes/:localPart/token", handler.issueToken)

		// 邮件读取端点（需要邮箱凭证）
		inboxRoutes := v1.Group("/inboxes/:localPart")
		inboxRoutes.Use(inboxAuth.RequireCredentials())
		{
			inboxRoutes.GET("/messages", handler.listMessages)
			inboxRoutes.GET("/messages/:messageId", handler.getMessage)
			inboxRoutes.GET("/messages/:messageId/attachments/:storedName", handler.downloadAttachment)
		}
	}

	// WebSocket 新邮件推送
	if deps.WebSocketHub != nil {
		router.GET("/ws", deps.WebSocketHub.HandleConnection)
	}

	return router
}
