package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dropmail/backend/internal/storage/redis"
)

// createWindow 创建邮箱限频的固定窗口长度
const createWindow = time.Hour

// CreateInboxRateLimit 按来源 IP 限制创建邮箱的频率。
// redisClient 为 nil（未启用 Redis）时直接放行。
// Redis 不可用时同样放行，限频是保护手段而不是可用性瓶颈。
func CreateInboxRateLimit(redisClient *redis.Client, maxPerIP int, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil || maxPerIP <= 0 {
			c.Next()
			return
		}

		key := "ratelimit:create:" + c.ClientIP()
		count, err := redisClient.IncrementRateLimit(c.Request.Context(), key, createWindow)
		if err != nil {
			log.Warn("rate limit check failed, allowing request",
				zap.String("ip", c.ClientIP()),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if count > int64(maxPerIP) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code": http.StatusTooManyRequests,
				"msg":  "创建过于频繁，请稍后再试",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
