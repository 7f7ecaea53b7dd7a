package storage

import (
	"time"

	"dropmail/backend/internal/domain"
)

// MaxListMessages 单次列表查询返回的最大邮件数。
// 超过部分按时间倒序截断，最旧的摘要不再返回。
const MaxListMessages = 500

// InboxRepository 定义邮箱目录的数据存取操作。
type InboxRepository interface {
	// SaveInbox 原子地创建邮箱，前缀已存在时返回 domain.ErrInboxExists。
	SaveInbox(inbox *domain.Inbox) error
	// GetInbox 按前缀查询邮箱，不存在时返回 domain.ErrInboxNotFound。
	GetInbox(localPart string) (*domain.Inbox, error)
	// CountInboxes 返回当前邮箱总数。
	CountInboxes() (int64, error)
}

// MessageRepository 定义邮件数据存取操作。
type MessageRepository interface {
	// SaveMessage 持久化邮件并回填自增 ID。
	SaveMessage(message *domain.Message) error
	// ListMessages 按时间倒序返回邮箱的邮件摘要，最多 MaxListMessages 条。
	// 邮箱不存在与邮箱为空同样返回空切片，不泄露存在性。
	ListMessages(localPart string) ([]domain.MessageSummary, error)
	// GetMessage 返回邮箱内指定邮件的完整内容（含附件引用）。
	// 邮件不存在或不属于该邮箱时返回 domain.ErrMessageNotFound。
	GetMessage(localPart string, messageID int64) (*domain.Message, error)
	// DeleteExpired 删除创建时间早于 olderThan 的全部邮件，
	// 返回被删除的邮件（含附件引用），供调用方清理附件文件。
	DeleteExpired(olderThan time.Time) ([]domain.Message, error)
	// CountMessages 返回当前邮件总数。
	CountMessages() (int64, error)
}

// Store 定义完整的存储接口。
type Store interface {
	InboxRepository
	MessageRepository

	// 工具方法
	Close() error
	Health() error
}
