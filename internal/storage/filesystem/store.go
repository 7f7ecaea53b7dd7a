package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"dropmail/backend/internal/domain"
)

// Store 附件的文件系统存储实现。
// 所有附件保存在单一目录的扁平命名空间下，存储键由写入时生成，
// 全局唯一且不含路径成分。
type Store struct {
	baseDir string
}

// NewStore 创建文件系统附件存储
func NewStore(baseDir string) (*Store, error) {
	if strings.Contains(baseDir, "..") {
		return nil, fmt.Errorf("path traversal detected: %s", baseDir)
	}

	absDir, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("invalid base directory: %w", err)
	}

	if err := os.MkdirAll(absDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create attachment directory: %w", err)
	}

	return &Store{baseDir: absDir}, nil
}

// Save 将附件内容写入磁盘并返回附件引用。
// 存储键格式: {unix纳秒}_{uuid前8位}_{清理后的文件名}，
// 时间戳与随机段保证并发写入同名附件互不覆盖。
func (s *Store) Save(originalName string, content []byte) (*domain.AttachmentRef, error) {
	safeName := SanitizeFilename(originalName)
	storedName := fmt.Sprintf("%d_%s_%s", time.Now().UnixNano(), uuid.NewString()[:8], safeName)

	fullPath := filepath.Join(s.baseDir, storedName)
	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		return nil, fmt.Errorf("%w: write attachment: %v", domain.ErrStorage, err)
	}

	return &domain.AttachmentRef{
		StoredName:    storedName,
		OriginalName:  safeName,
		Size:          int64(len(content)),
		RetrievalPath: storedName,
	}, nil
}

// Read 按存储键读取附件内容，不存在时返回 domain.ErrAttachmentNotFound。
func (s *Store) Read(storedName string) ([]byte, error) {
	fullPath, err := s.resolve(storedName)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if os.IsNotExist(err) {
		return nil, domain.ErrAttachmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read attachment: %v", domain.ErrStorage, err)
	}
	return content, nil
}

// Delete 按存储键删除附件。键不存在时视为成功，删除操作可以安全重试。
func (s *Store) Delete(storedName string) error {
	fullPath, err := s.resolve(storedName)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: delete attachment: %v", domain.ErrStorage, err)
	}
	return nil
}

// Stats 返回当前存储的附件数量与总字节数
func (s *Store) Stats() (count int64, totalBytes int64, err error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: read attachment directory: %v", domain.ErrStorage, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		count++
		totalBytes += info.Size()
	}
	return count, totalBytes, nil
}

// Health 检查附件目录是否可访问
func (s *Store) Health() error {
	info, err := os.Stat(s.baseDir)
	if err != nil {
		return fmt.Errorf("attachment directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("attachment path is not a directory: %s", s.baseDir)
	}
	return nil
}

// resolve 将存储键转换为目录内的绝对路径。
// 存储键不允许包含路径成分，杜绝目录穿越。
func (s *Store) resolve(storedName string) (string, error) {
	if storedName == "" || storedName != filepath.Base(storedName) || strings.Contains(storedName, "..") {
		return "", domain.ErrAttachmentNotFound
	}
	return filepath.Join(s.baseDir, storedName), nil
}
