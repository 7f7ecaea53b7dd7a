package sql

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dropmail/backend/internal/domain"
	"dropmail/backend/internal/storage"
)

// ========== Message Repository ==========

// SaveMessage 在一个事务内持久化邮件与附件引用，并回填自增 ID
func (s *Store) SaveMessage(message *domain.Message) error {
	headersJSON, err := json.Marshal(message.Headers)
	if err != nil {
		return fmt.Errorf("%w: marshal headers: %v", domain.ErrStorage, err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	defer tx.Rollback()

	if s.driverName == "postgres" {
		query := s.rebind(`
			INSERT INTO messages (local_part, sender, subject, text, html, headers, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`) + ` RETURNING id`
		err = tx.QueryRow(query,
			message.LocalPart,
			message.Sender,
			message.Subject,
			message.Text,
			message.HTML,
			string(headersJSON),
			message.CreatedAt,
		).Scan(&message.ID)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
	} else {
		result, execErr := tx.Exec(`
			INSERT INTO messages (local_part, sender, subject, text, html, headers, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			message.LocalPart,
			message.Sender,
			message.Subject,
			message.Text,
			message.HTML,
			string(headersJSON),
			message.CreatedAt,
		)
		if execErr != nil {
			return fmt.Errorf("%w: %v", domain.ErrStorage, execErr)
		}
		message.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
	}

	attachQuery := s.rebind(`
		INSERT INTO attachment_refs (message_id, stored_name, original_name, size, retrieval_path)
		VALUES (?, ?, ?, ?, ?)
	`)
	for _, ref := range message.Attachments {
		ref.MessageID = message.ID
		if _, err := tx.Exec(attachQuery,
			ref.MessageID,
			ref.StoredName,
			ref.OriginalName,
			ref.Size,
			ref.RetrievalPath,
		); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return nil
}

// ListMessages 按时间倒序返回邮件摘要，最多 storage.MaxListMessages 条
func (s *Store) ListMessages(localPart string) ([]domain.MessageSummary, error) {
	query := s.rebind(fmt.Sprintf(`
		SELECT id, sender, subject, created_at
		FROM messages
		WHERE local_part = ?
		ORDER BY created_at DESC, id DESC
		LIMIT %d
	`, storage.MaxListMessages))

	rows, err := s.db.Query(query, localPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	summaries := make([]domain.MessageSummary, 0)
	for rows.Next() {
		var summary domain.MessageSummary
		if err := rows.Scan(&summary.ID, &summary.Sender, &summary.Subject, &summary.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return summaries, nil
}

// GetMessage 返回邮箱内指定邮件的完整内容（含附件引用）
func (s *Store) GetMessage(localPart string, messageID int64) (*domain.Message, error) {
	query := s.rebind(`
		SELECT id, local_part, sender, subject, text, html, headers, created_at
		FROM messages
		WHERE local_part = ? AND id = ?
	`)

	var message domain.Message
	var headersJSON sql.NullString
	err := s.db.QueryRow(query, localPart, messageID).Scan(
		&message.ID,
		&message.LocalPart,
		&message.Sender,
		&message.Subject,
		&message.Text,
		&message.HTML,
		&headersJSON,
		&message.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	if headersJSON.Valid && headersJSON.String != "" {
		if err := json.Unmarshal([]byte(headersJSON.String), &message.Headers); err != nil {
			return nil, fmt.Errorf("%w: unmarshal headers: %v", domain.ErrStorage, err)
		}
	}

	attachments, err := s.listAttachments(message.ID)
	if err != nil {
		return nil, err
	}
	message.Attachments = attachments

	return &message, nil
}

// DeleteExpired 删除创建时间早于 olderThan 的全部邮件，返回被删除的邮件
func (s *Store) DeleteExpired(olderThan time.Time) ([]domain.Message, error) {
	// 先收集受影响的邮件与附件引用，再在事务内删除
	query := s.rebind(`
		SELECT id, local_part, sender, subject, created_at
		FROM messages
		WHERE created_at < ?
	`)

	rows, err := s.db.Query(query, olderThan)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	expired := make([]domain.Message, 0)
	for rows.Next() {
		var message domain.Message
		if err := rows.Scan(&message.ID, &message.LocalPart, &message.Sender, &message.Subject, &message.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		expired = append(expired, message)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	rows.Close()

	if len(expired) == 0 {
		return expired, nil
	}

	for i := range expired {
		attachments, err := s.listAttachments(expired[i].ID)
		if err != nil {
			return nil, err
		}
		expired[i].Attachments = attachments
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	defer tx.Rollback()

	deleteAttachments := s.rebind(`
		DELETE FROM attachment_refs
		WHERE message_id IN (SELECT id FROM messages WHERE created_at < ?)
	`)
	if _, err := tx.Exec(deleteAttachments, olderThan); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	deleteMessages := s.rebind(`DELETE FROM messages WHERE created_at < ?`)
	if _, err := tx.Exec(deleteMessages, olderThan); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return expired, nil
}

// CountMessages 返回当前邮件总数
func (s *Store) CountMessages() (int64, error) {
	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return count, nil
}

// listAttachments 返回指定邮件的附件引用
func (s *Store) listAttachments(messageID int64) ([]*domain.AttachmentRef, error) {
	query := s.rebind(`
		SELECT id, message_id, stored_name, original_name, size, retrieval_path
		FROM attachment_refs
		WHERE message_id = ?
		ORDER BY id
	`)

	rows, err := s.db.Query(query, messageID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	refs := make([]*domain.AttachmentRef, 0)
	for rows.Next() {
		var ref domain.AttachmentRef
		if err := rows.Scan(&ref.ID, &ref.MessageID, &ref.StoredName, &ref.OriginalName, &ref.Size, &ref.RetrievalPath); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		refs = append(refs, &ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return refs, nil
}
