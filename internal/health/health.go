package health

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"dropmail/backend/internal/storage"
	"dropmail/backend/internal/storage/filesystem"
	"dropmail/backend/internal/storage/redis"
)

// Checker 健康检查器，聚合存储、附件目录与可选 Redis 的探活。
type Checker struct {
	health healthcheck.Handler
	logger *zap.Logger
}

// NewChecker 创建健康检查器。redisClient 可以为 nil。
func NewChecker(store storage.Store, files *filesystem.Store, redisClient *redis.Client, logger *zap.Logger) *Checker {
	handler := healthcheck.NewHandler()

	// 数据库/内存存储检查
	handler.AddLivenessCheck("store", func() error {
		return store.Health()
	})

	// 附件目录检查
	handler.AddReadinessCheck("attachments", func() error {
		return files.Health()
	})

	// Redis 检查（启用时）
	if redisClient != nil {
		handler.AddReadinessCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Ping(ctx)
		})
	}

	return &Checker{
		health: handler,
		logger: logger,
	}
}

// LiveEndpoint 存活检查处理函数，所有存活检查通过时返回 200。
func (c *Checker) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	c.health.LiveEndpoint(w, r)
}

// ReadyEndpoint 就绪检查处理函数，存活与就绪检查都通过时返回 200。
func (c *Checker) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	c.health.ReadyEndpoint(w, r)
}
