package service

import (
	"go.uber.org/zap"

	"dropmail/backend/internal/domain"
	"dropmail/backend/internal/storage"
	"dropmail/backend/internal/storage/filesystem"
)

// Notifier 在新邮件落库后收到通知，用于实时推送。
type Notifier interface {
	NotifyNewMail(localPart string, summary domain.MessageSummary)
}

// MessageService 封装邮件读取与投递的业务操作。
// 读取方法只接受已通过凭证认证的规范化邮箱前缀，
// 认证由 HTTP 认证中间件在进入处理器之前完成。
type MessageService struct {
	repo     storage.MessageRepository
	files    *filesystem.Store
	notifier Notifier
	log      *zap.Logger
}

// NewMessageService 创建邮件业务服务。notifier 可以为 nil。
func NewMessageService(
	repo storage.MessageRepository,
	files *filesystem.Store,
	notifier Notifier,
	log *zap.Logger,
) *MessageService {
	return &MessageService{
		repo:     repo,
		files:    files,
		notifier: notifier,
		log:      log,
	}
}

// List 返回邮箱的邮件摘要列表，按接收时间倒序。
func (s *MessageService) List(localPart string) ([]domain.MessageSummary, error) {
	return s.repo.ListMessages(localPart)
}

// Get 返回邮箱内指定邮件的完整内容。
func (s *MessageService) Get(localPart string, messageID int64) (*domain.Message, error) {
	return s.repo.GetMessage(localPart, messageID)
}

// GetAttachment 返回指定邮件中一个附件的内容与引用信息。
// 附件必须属于该邮箱内的该邮件，存储键不会跨邮件解析。
func (s *MessageService) GetAttachment(localPart string, messageID int64, storedName string) (*domain.AttachmentRef, []byte, error) {
	message, err := s.Get(localPart, messageID)
	if err != nil {
		return nil, nil, err
	}

	var ref *domain.AttachmentRef
	for _, att := range message.Attachments {
		if att.StoredName == storedName {
			ref = att
			break
		}
	}
	if ref == nil {
		return nil, nil, domain.ErrAttachmentNotFound
	}

	content, err := s.files.Read(ref.StoredName)
	if err != nil {
		return nil, nil, err
	}
	return ref, content, nil
}

// Deliver 将解析完成的邮件落库并触发新邮件通知。
// 由投递管线调用，调用方需保证附件文件已先行写盘。
func (s *MessageService) Deliver(message *domain.Message) error {
	if err := s.repo.SaveMessage(message); err != nil {
		return err
	}

	s.log.Info("message delivered",
		zap.String("local_part", message.LocalPart),
		zap.Int64("message_id", message.ID),
		zap.String("sender", message.Sender),
		zap.Int("attachments", len(message.Attachments)),
	)

	if s.notifier != nil {
		s.notifier.NotifyNewMail(message.LocalPart, message.Summary())
	}
	return nil
}
