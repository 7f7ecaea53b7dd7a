package domain

import "errors"

// 业务错误按五类划分：参数校验、认证、未找到、解析、存储。
// HTTP 与 SMTP 层只向外暴露类别，不暴露内部细节。
var (
	// ErrLocalPartMissing 未提供邮箱前缀。
	ErrLocalPartMissing = errors.New("localpart is required")
	// ErrLocalPartInvalid 邮箱前缀包含非法字符或长度超限。
	ErrLocalPartInvalid = errors.New("localpart invalid")
	// ErrPasswordTooShort 密码低于最小长度要求。
	ErrPasswordTooShort = errors.New("password too short")
	// ErrPasswordTooLong 密码超出 bcrypt 可处理的长度。
	ErrPasswordTooLong = errors.New("password too long")
	// ErrInboxExists 邮箱前缀已被注册。
	ErrInboxExists = errors.New("inbox already exists")
	// ErrInboxNotFound 邮箱不存在。
	ErrInboxNotFound = errors.New("inbox not found")
	// ErrMessageNotFound 邮件不存在。
	ErrMessageNotFound = errors.New("message not found")
	// ErrAttachmentNotFound 附件不存在。
	ErrAttachmentNotFound = errors.New("attachment not found")
	// ErrUnauthorized 凭证缺失或不匹配。
	ErrUnauthorized = errors.New("unauthorized")
	// ErrParse 邮件载荷无法解析为结构化消息。
	ErrParse = errors.New("message parse failed")
	// ErrStorage 持久化存储或文件系统故障。
	ErrStorage = errors.New("storage failure")
)
