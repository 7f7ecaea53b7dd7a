package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	jwtpkg "dropmail/backend/internal/auth/jwt"
	"dropmail/backend/internal/config"
	"dropmail/backend/internal/health"
	"dropmail/backend/internal/logger"
	"dropmail/backend/internal/monitoring"
	"dropmail/backend/internal/service"
	"dropmail/backend/internal/smtp"
	"dropmail/backend/internal/storage"
	"dropmail/backend/internal/storage/filesystem"
	"dropmail/backend/internal/storage/memory"
	"dropmail/backend/internal/storage/redis"
	sqlstore "dropmail/backend/internal/storage/sql"
	"dropmail/backend/internal/sweeper"
	httptransport "dropmail/backend/internal/transport/http"
	"dropmail/backend/internal/websocket"
)

// main 启动同时包含 HTTP API 与 SMTP 接收的一体化服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		File:        cfg.Log.File,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting dropmail server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层
	var store storage.Store
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		store, err = sqlstore.NewStore(
			cfg.Database.Type,
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)
		if err != nil {
			panic(fmt.Sprintf("failed to initialize database storage: %v", err))
		}
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
	} else {
		store = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}

	// 附件存储是投递管线的一部分，初始化失败直接退出
	files, err := filesystem.NewStore(cfg.Storage.AttachmentDir)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize attachment storage: %v", err))
	}
	log.Info("attachment storage initialized", zap.String("dir", cfg.Storage.AttachmentDir))

	// Redis（可选，用于创建邮箱限频）
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.New(&cfg.Redis, log)
		if err != nil {
			panic(fmt.Sprintf("failed to connect to Redis: %v", err))
		}
	}

	// 监控与健康检查
	metrics := monitoring.NewMetrics()
	healthChecker := health.NewChecker(store, files, redisClient, log)

	// 服务层
	inboxService := service.NewInboxService(store, log)
	wsHub := websocket.NewHub(inboxService, cfg.CORS.AllowedOrigins, log)
	messageService := service.NewMessageService(store, files, wsHub, log)

	// 读取令牌（可选功能，未配置密钥时禁用）
	var tokenManager *jwtpkg.Manager
	if cfg.JWT.Secret != "" {
		tokenManager = jwtpkg.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry)
		log.Info("read token endpoint enabled",
			zap.String("issuer", cfg.JWT.Issuer),
			zap.Duration("expiry", cfg.JWT.Expiry),
		)
	}

	// HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:         cfg,
		InboxService:   inboxService,
		MessageService: messageService,
		TokenManager:   tokenManager,
		WebSocketHub:   wsHub,
		RedisClient:    redisClient,
		HealthChecker:  healthChecker,
		Metrics:        metrics,
		Logger:         log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// SMTP 服务器
	limiter := smtp.NewDeliveryLimiter(cfg.SMTP.RatePerSecond, cfg.SMTP.RateBurst)
	smtpBackend := smtp.NewBackend(messageService, files, limiter, metrics, log, cfg.SMTP.MaxMessageBytes)
	smtpServer := gosmtp.NewServer(smtpBackend)
	smtpServer.Addr = cfg.SMTP.BindAddr
	smtpServer.Domain = cfg.SMTP.Domain
	smtpServer.ReadTimeout = cfg.SMTP.ReadTimeout
	smtpServer.WriteTimeout = cfg.SMTP.WriteTimeout
	smtpServer.MaxMessageBytes = cfg.SMTP.MaxMessageBytes
	smtpServer.MaxRecipients = cfg.SMTP.MaxRecipients

	// 过期清理任务
	sweep := sweeper.New(
		store,
		files,
		cfg.Retention.MaxAge,
		cfg.Retention.SweepInterval,
		cfg.Retention.SweepWorkers,
		metrics,
		log,
	)

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// SMTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting SMTP server",
			zap.String("address", cfg.SMTP.BindAddr),
			zap.String("domain", cfg.SMTP.Domain),
		)
		if err := smtpServer.ListenAndServe(); err != nil {
			log.Error("SMTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// WebSocket Hub goroutine
	group.Go(func() error {
		log.Info("starting WebSocket hub")
		wsHub.Run(groupCtx)
		return nil
	})

	// 过期清理 goroutine
	group.Go(func() error {
		return sweep.Run(groupCtx)
	})

	// 存量指标刷新 goroutine
	group.Go(func() error {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				if count, err := store.CountInboxes(); err == nil {
					metrics.InboxesTotal.Set(float64(count))
				}
				if count, err := store.CountMessages(); err == nil {
					metrics.MessagesTotal.Set(float64(count))
				}
			}
		}
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}
		if err := smtpServer.Close(); err != nil {
			log.Warn("SMTP server close warning", zap.Error(err))
		}
		if redisClient != nil {
			_ = redisClient.Close()
		}
		if err := store.Close(); err != nil {
			log.Warn("storage close warning", zap.Error(err))
		}

		log.Info("servers stopped")
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}
