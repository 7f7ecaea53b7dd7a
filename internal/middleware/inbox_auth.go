package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dropmail/backend/internal/auth/jwt"
	"dropmail/backend/internal/domain"
	"dropmail/backend/internal/service"
)

// ContextLocalPart 认证通过后写入 gin 上下文的邮箱前缀键。
const ContextLocalPart = "localPart"

// InboxAuth 邮箱凭证认证中间件。
// 凭证来源按优先级：Bearer 读取令牌 > X-Inbox-Password 头。
// 任何失败（缺凭证、密码错误、邮箱不存在）都返回同样的 401，
// 不暴露前缀是否被注册。
type InboxAuth struct {
	inboxes *service.InboxService
	tokens  *jwt.Manager // 可以为 nil，表示未启用令牌端点
	log     *zap.Logger
}

// NewInboxAuth 创建邮箱认证中间件
func NewInboxAuth(inboxes *service.InboxService, tokens *jwt.Manager, log *zap.Logger) *InboxAuth {
	return &InboxAuth{
		inboxes: inboxes,
		tokens:  tokens,
		log:     log,
	}
}

// RequireCredentials 要求请求携带目标邮箱的有效凭证
func (ia *InboxAuth) RequireCredentials() gin.HandlerFunc {
	return func(c *gin.Context) {
		localPart := c.Param("localPart")

		// Bearer 令牌优先
		if token := bearerToken(c); token != "" && ia.tokens != nil {
			granted, err := ia.tokens.Validate(token)
			if err == nil {
				normalized, normErr := domain.NormalizeLocalPart(localPart)
				if normErr == nil && granted == normalized {
					c.Set(ContextLocalPart, normalized)
					c.Next()
					return
				}
			}
			ia.unauthorized(c)
			return
		}

		password := c.GetHeader("X-Inbox-Password")
		if err := ia.inboxes.Verify(localPart, password); err != nil {
			ia.unauthorized(c)
			return
		}

		normalized, err := domain.NormalizeLocalPart(localPart)
		if err != nil {
			ia.unauthorized(c)
			return
		}
		c.Set(ContextLocalPart, normalized)
		c.Next()
	}
}

func (ia *InboxAuth) unauthorized(c *gin.Context) {
	ia.log.Debug("inbox credential check failed",
		zap.String("path", c.Request.URL.Path),
		zap.String("ip", c.ClientIP()),
	)
	c.JSON(http.StatusUnauthorized, gin.H{
		"code": http.StatusUnauthorized,
		"msg":  "凭证缺失或不正确",
	})
	c.Abort()
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}
