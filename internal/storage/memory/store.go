package memory

import (
	"sort"
	"sync"
	"time"

	"dropmail/backend/internal/domain"
	"dropmail/backend/internal/storage"
)

// Store 使用内存保存邮箱与邮件数据，主要用于开发验证。
type Store struct {
	mu       sync.RWMutex
	inboxes  map[string]*domain.Inbox              // localPart -> inbox
	messages map[string]map[int64]*domain.Message  // localPart -> messageID -> message
	byTime   map[int64]string                      // messageID -> localPart，清理任务用的反向索引
	nextID   int64
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		inboxes:  make(map[string]*domain.Inbox),
		messages: make(map[string]map[int64]*domain.Message),
		byTime:   make(map[int64]string),
	}
}

// SaveInbox 原子地创建邮箱。前缀已被占用时返回 domain.ErrInboxExists，
// 占用检查与写入在同一把锁内完成，并发创建只有一个成功。
func (s *Store) SaveInbox(inbox *domain.Inbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.inboxes[inbox.LocalPart]; ok {
		return domain.ErrInboxExists
	}
	stored := *inbox
	s.inboxes[inbox.LocalPart] = &stored
	return nil
}

// GetInbox 根据前缀获取邮箱。
func (s *Store) GetInbox(localPart string) (*domain.Inbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inbox, ok := s.inboxes[localPart]
	if !ok {
		return nil, domain.ErrInboxNotFound
	}
	copied := *inbox
	return &copied, nil
}

// CountInboxes 返回当前邮箱总数。
func (s *Store) CountInboxes() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.inboxes)), nil
}

// SaveMessage 持久化邮件并回填自增 ID。
func (s *Store) SaveMessage(message *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	message.ID = s.nextID
	for _, ref := range message.Attachments {
		ref.MessageID = message.ID
	}

	stored := *message
	inboxMessages, ok := s.messages[message.LocalPart]
	if !ok {
		inboxMessages = make(map[int64]*domain.Message)
		s.messages[message.LocalPart] = inboxMessages
	}
	inboxMessages[message.ID] = &stored
	s.byTime[message.ID] = message.LocalPart
	return nil
}

// ListMessages 按时间倒序返回邮件摘要，最多 storage.MaxListMessages 条。
// 不存在的邮箱返回空切片。
func (s *Store) ListMessages(localPart string) ([]domain.MessageSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inboxMessages := s.messages[localPart]
	summaries := make([]domain.MessageSummary, 0, len(inboxMessages))
	for _, msg := range inboxMessages {
		summaries = append(summaries, msg.Summary())
	}

	// 时间倒序，时间相同按 ID 倒序保证顺序稳定
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].ID > summaries[j].ID
		}
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	if len(summaries) > storage.MaxListMessages {
		summaries = summaries[:storage.MaxListMessages]
	}
	return summaries, nil
}

// GetMessage 返回邮箱内指定邮件的完整内容。
func (s *Store) GetMessage(localPart string, messageID int64) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inboxMessages, ok := s.messages[localPart]
	if !ok {
		return nil, domain.ErrMessageNotFound
	}
	msg, ok := inboxMessages[messageID]
	if !ok {
		return nil, domain.ErrMessageNotFound
	}
	copied := *msg
	return &copied, nil
}

// DeleteExpired 删除创建时间早于 olderThan 的全部邮件，返回被删除的邮件。
func (s *Store) DeleteExpired(olderThan time.Time) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := make([]domain.Message, 0)
	for id, localPart := range s.byTime {
		inboxMessages, ok := s.messages[localPart]
		if !ok {
			delete(s.byTime, id)
			continue
		}
		msg, ok := inboxMessages[id]
		if !ok {
			delete(s.byTime, id)
			continue
		}
		if msg.CreatedAt.Before(olderThan) {
			deleted = append(deleted, *msg)
			delete(inboxMessages, id)
			delete(s.byTime, id)
			if len(inboxMessages) == 0 {
				delete(s.messages, localPart)
			}
		}
	}
	return deleted, nil
}

// CountMessages 返回当前邮件总数。
func (s *Store) CountMessages() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.byTime)), nil
}

// Close 关闭存储，内存实现无资源需要释放。
func (s *Store) Close() error {
	return nil
}

// Health 报告存储健康状态。
func (s *Store) Health() error {
	return nil
}
