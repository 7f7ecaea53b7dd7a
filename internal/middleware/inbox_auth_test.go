package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dropmail/backend/internal/auth/jwt"
	"dropmail/backend/internal/service"
	"dropmail/backend/internal/storage/memory"
)

func newAuthRouter(t *testing.T, tokens *jwt.Manager) (*gin.Engine, *service.InboxService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	inboxes := service.NewInboxService(store, zap.NewNop())
	auth := NewInboxAuth(inboxes, tokens, zap.NewNop())

	router := gin.New()
	router.GET("/v1/inboxes/:localPart/messages", auth.RequireCredentials(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"localPart": c.GetString(ContextLocalPart)})
	})
	return router, inboxes
}

func doAuthRequest(router *gin.Engine, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequireCredentialsPassword(t *testing.T) {
	router, inboxes := newAuthRouter(t, nil)
	_, err := inboxes.Create("alice", "secret99")
	require.NoError(t, err)

	t.Run("密码正确放行", func(t *testing.T) {
		rec := doAuthRequest(router, "/v1/inboxes/alice/messages", map[string]string{
			"X-Inbox-Password": "secret99",
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"localPart":"alice"`)
	})

	t.Run("前缀大小写不影响认证", func(t *testing.T) {
		rec := doAuthRequest(router, "/v1/inboxes/Alice/messages", map[string]string{
			"X-Inbox-Password": "secret99",
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"localPart":"alice"`)
	})

	t.Run("密码错误与邮箱不存在返回相同响应", func(t *testing.T) {
		wrongPass := doAuthRequest(router, "/v1/inboxes/alice/messages", map[string]string{
			"X-Inbox-Password": "wrong",
		})
		noInbox := doAuthRequest(router, "/v1/inboxes/ghost/messages", map[string]string{
			"X-Inbox-Password": "secret99",
		})

		assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
		assert.Equal(t, http.StatusUnauthorized, noInbox.Code)
		assert.Equal(t, wrongPass.Body.String(), noInbox.Body.String())
	})

	t.Run("缺少凭证返回401", func(t *testing.T) {
		rec := doAuthRequest(router, "/v1/inboxes/alice/messages", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireCredentialsToken(t *testing.T) {
	tokens := jwt.NewManager("0123456789abcdef0123456789abcdef", "dropmail", time.Hour)

	router, inboxes := newAuthRouter(t, tokens)
	_, err := inboxes.Create("alice", "secret99")
	require.NoError(t, err)

	t.Run("有效令牌放行", func(t *testing.T) {
		token, _, err := tokens.Generate("alice")
		require.NoError(t, err)

		rec := doAuthRequest(router, "/v1/inboxes/alice/messages", map[string]string{
			"Authorization": "Bearer " + token,
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("令牌与路径邮箱不符时拒绝", func(t *testing.T) {
		token, _, err := tokens.Generate("bob")
		require.NoError(t, err)

		rec := doAuthRequest(router, "/v1/inboxes/alice/messages", map[string]string{
			"Authorization": "Bearer " + token,
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("伪造令牌拒绝", func(t *testing.T) {
		rec := doAuthRequest(router, "/v1/inboxes/alice/messages", map[string]string{
			"Authorization": "Bearer not-a-token",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
