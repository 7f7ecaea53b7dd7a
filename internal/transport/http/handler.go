package httptransport

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dropmail/backend/internal/auth/jwt"
	"dropmail/backend/internal/domain"
	"dropmail/backend/internal/middleware"
	"dropmail/backend/internal/monitoring"
	"dropmail/backend/internal/service"
)

// Handler 聚合所有 HTTP 处理逻辑。
type Handler struct {
	inboxes  *service.InboxService
	messages *service.MessageService
	tokens   *jwt.Manager // 可以为 nil，表示令牌端点未启用
	metrics  *monitoring.Metrics
	domain   string // 邮件域名，用于拼出完整地址
}

type createInboxRequest struct {
	LocalPart string `json:"localPart"`
	Password  string `json:"password"`
}

type inboxResponse struct {
	LocalPart string `json:"localPart"`
	Address   string `json:"address"`
	CreatedAt string `json:"createdAt"`
}

type messageListResponse struct {
	Items []domain.MessageSummary `json:"items"`
	Count int                     `json:"count"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"` // 有效秒数
	LocalPart string `json:"localPart"`
}

// createInbox 注册一个新的邮箱前缀
// POST /v1/inboxes
func (h *Handler) createInbox(c *gin.Context) {
	var req createInboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	inbox, err := h.inboxes.Create(req.LocalPart, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.InboxesCreated.Inc()
	}

	Created(c, inboxResponse{
		LocalPart: inbox.LocalPart,
		Address:   inbox.LocalPart + "@" + h.domain,
		CreatedAt: inbox.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// issueToken 用邮箱密码换取短期读取令牌
// POST /v1/inboxes/:localPart/token
func (h *Handler) issueToken(c *gin.Context) {
	if h.tokens == nil {
		NotFound(c, MsgTokenDisabled)
		return
	}

	localPart := c.Param("localPart")
	password := c.GetHeader("X-Inbox-Password")
	if err := h.inboxes.Verify(localPart, password); err != nil {
		respondError(c, err)
		return
	}

	normalized, err := domain.NormalizeLocalPart(localPart)
	if err != nil {
		respondError(c, domain.ErrUnauthorized)
		return
	}

	token, expiresIn, err := h.tokens.Generate(normalized)
	if err != nil {
		InternalError(c, MsgTokenIssueFailed)
		return
	}

	Success(c, tokenResponse{
		Token:     token,
		ExpiresIn: expiresIn,
		LocalPart: normalized,
	})
}

// listMessages 返回邮箱的邮件摘要列表
// GET /v1/inboxes/:localPart/messages
func (h *Handler) listMessages(c *gin.Context) {
	localPart := c.GetString(middleware.ContextLocalPart)

	summaries, err := h.messages.List(localPart)
	if err != nil {
		respondError(c, err)
		return
	}
	if summaries == nil {
		summaries = []domain.MessageSummary{}
	}

	Success(c, messageListResponse{
		Items: summaries,
		Count: len(summaries),
	})
}

// getMessage 返回单封邮件的完整内容
// GET /v1/inboxes/:localPart/messages/:messageId
func (h *Handler) getMessage(c *gin.Context) {
	localPart := c.GetString(middleware.ContextLocalPart)

	messageID, err := strconv.ParseInt(c.Param("messageId"), 10, 64)
	if err != nil {
		BadRequest(c, MsgInvalidMessageID)
		return
	}

	message, err := h.messages.Get(localPart, messageID)
	if err != nil {
		respondError(c, err)
		return
	}

	Success(c, message)
}

// downloadAttachment 下载邮件附件
// GET /v1/inboxes/:localPart/messages/:messageId/attachments/:storedName
func (h *Handler) downloadAttachment(c *gin.Context) {
	localPart := c.GetString(middleware.ContextLocalPart)

	messageID, err := strconv.ParseInt(c.Param("messageId"), 10, 64)
	if err != nil {
		BadRequest(c, MsgInvalidMessageID)
		return
	}

	ref, content, err := h.messages.GetAttachment(localPart, messageID, c.Param("storedName"))
	if err != nil {
		respondError(c, err)
		return
	}

	// 附件下载不使用统一响应格式，直接返回二进制流
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ref.OriginalName))
	c.Header("Content-Length", strconv.FormatInt(ref.Size, 10))
	c.Data(http.StatusOK, "application/octet-stream", content)
}
