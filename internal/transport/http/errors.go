package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"

	"dropmail/backend/internal/domain"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[error]string{
	domain.ErrLocalPartMissing:   "邮箱前缀不能为空",
	domain.ErrLocalPartInvalid:   "邮箱前缀格式无效",
	domain.ErrPasswordTooShort:   "密码长度不足",
	domain.ErrPasswordTooLong:    "密码过长",
	domain.ErrInboxExists:        "邮箱前缀已被占用",
	domain.ErrMessageNotFound:    "邮件不存在",
	domain.ErrAttachmentNotFound: "附件不存在",
	domain.ErrUnauthorized:       "凭证缺失或不正确",
}

// 通用错误消息
const (
	MsgInvalidRequest   = "请求参数格式错误"
	MsgInvalidMessageID = "邮件ID格式无效"
	MsgInternalError    = "服务器内部错误，请稍后重试"
	MsgTokenDisabled    = "读取令牌功能未启用"
	MsgTokenIssueFailed = "签发读取令牌失败"
)

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	if msg, ok := errorMessages[err]; ok {
		return msg
	}
	return err.Error()
}

// respondError 根据业务错误类别写出对应的 HTTP 响应。
// 存储层故障一律折叠为 500，不向外暴露内部细节。
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrLocalPartMissing),
		errors.Is(err, domain.ErrLocalPartInvalid),
		errors.Is(err, domain.ErrPasswordTooShort),
		errors.Is(err, domain.ErrPasswordTooLong):
		BadRequest(c, GetErrorMessage(err))
	case errors.Is(err, domain.ErrUnauthorized):
		Unauthorized(c, GetErrorMessage(domain.ErrUnauthorized))
	case errors.Is(err, domain.ErrInboxExists):
		Conflict(c, GetErrorMessage(domain.ErrInboxExists))
	case errors.Is(err, domain.ErrMessageNotFound):
		NotFound(c, GetErrorMessage(domain.ErrMessageNotFound))
	case errors.Is(err, domain.ErrAttachmentNotFound):
		NotFound(c, GetErrorMessage(domain.ErrAttachmentNotFound))
	default:
		InternalError(c, MsgInternalError)
	}
}
