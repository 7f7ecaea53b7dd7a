package sql

import (
	"database/sql"
	"errors"
	"fmt"

	"dropmail/backend/internal/domain"
)

// ========== Inbox Repository ==========

// SaveInbox 原子地创建邮箱。
// 依赖 local_part 主键约束保证并发创建只有一个成功，
// 插入失败时回查一次以区分"已存在"与真正的存储故障。
func (s *Store) SaveInbox(inbox *domain.Inbox) error {
	query := s.rebind(`
		INSERT INTO inboxes (local_part, password_hash, created_at)
		VALUES (?, ?, ?)
	`)
	_, err := s.db.Exec(query,
		inbox.LocalPart,
		inbox.PasswordHash,
		inbox.CreatedAt,
	)
	if err == nil {
		return nil
	}

	if _, lookupErr := s.GetInbox(inbox.LocalPart); lookupErr == nil {
		return domain.ErrInboxExists
	}
	return fmt.Errorf("%w: %v", domain.ErrStorage, err)
}

// GetInbox 根据前缀获取邮箱
func (s *Store) GetInbox(localPart string) (*domain.Inbox, error) {
	query := s.rebind(`
		SELECT local_part, password_hash, created_at
		FROM inboxes
		WHERE local_part = ?
	`)

	var inbox domain.Inbox
	err := s.db.QueryRow(query, localPart).Scan(
		&inbox.LocalPart,
		&inbox.PasswordHash,
		&inbox.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInboxNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return &inbox, nil
}

// CountInboxes 返回当前邮箱总数
func (s *Store) CountInboxes() (int64, error) {
	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM inboxes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return count, nil
}
