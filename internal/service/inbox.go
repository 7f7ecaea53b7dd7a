package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"dropmail/backend/internal/domain"
	"dropmail/backend/internal/storage"
)

// dummyHash 是一个固定的 bcrypt 哈希。校验不存在的邮箱时也跑一次完整比较，
// 让"邮箱不存在"与"密码错误"的耗时不可区分。
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// InboxService 封装邮箱目录的业务操作。
type InboxService struct {
	repo storage.InboxRepository
	log  *zap.Logger
}

// NewInboxService 创建邮箱业务服务。
func NewInboxService(repo storage.InboxRepository, log *zap.Logger) *InboxService {
	return &InboxService{
		repo: repo,
		log:  log,
	}
}

// Create 注册新邮箱。前缀先规范化再落库，密码以 bcrypt 哈希保存。
// 前缀已被占用时返回 domain.ErrInboxExists，占用与否由存储层原子判定。
func (s *InboxService) Create(localPart, password string) (*domain.Inbox, error) {
	normalized, err := domain.NormalizeLocalPart(localPart)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	inbox := &domain.Inbox{
		LocalPart:    normalized,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.SaveInbox(inbox); err != nil {
		return nil, err
	}

	s.log.Info("inbox created", zap.String("local_part", normalized))
	return inbox, nil
}

// Verify 校验邮箱凭证。邮箱不存在与密码错误统一返回 domain.ErrUnauthorized，
// 不泄露前缀是否被注册。
func (s *InboxService) Verify(localPart, password string) error {
	normalized, err := domain.NormalizeLocalPart(localPart)
	if err != nil {
		return domain.ErrUnauthorized
	}

	inbox, err := s.repo.GetInbox(normalized)
	if err != nil {
		// 跑一次假比较抹平耗时差异
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return domain.ErrUnauthorized
	}

	if !CheckPassword(password, inbox.PasswordHash) {
		return domain.ErrUnauthorized
	}
	return nil
}

// HashPassword 哈希密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword 检查密码是否匹配
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
