package domain

import (
	"strings"
)

const (
	// MaxLocalPartLength 邮箱前缀最大长度（RFC 5321 本地部分上限）。
	MaxLocalPartLength = 64
	// MinPasswordLength 邮箱密码最小长度。
	MinPasswordLength = 4
)

// NormalizeLocalPart 规范化并校验邮箱前缀。
//
// 规则：
//   - 去除首尾空白并转为小写
//   - 只允许 a-z 0-9 . _ -
//   - 长度 1 ~ 64
//
// 返回规范化后的前缀；非法输入返回 ErrLocalPartMissing 或 ErrLocalPartInvalid。
func NormalizeLocalPart(localPart string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(localPart))
	if normalized == "" {
		return "", ErrLocalPartMissing
	}
	if len(normalized) > MaxLocalPartLength {
		return "", ErrLocalPartInvalid
	}
	for _, r := range normalized {
		if !isLocalPartRune(r) {
			return "", ErrLocalPartInvalid
		}
	}
	return normalized, nil
}

// ValidatePassword 校验邮箱密码是否满足最小长度策略。
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	// bcrypt 只处理前 72 字节，超长直接拒绝
	if len(password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}

func isLocalPartRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '.' || r == '_' || r == '-':
		return true
	}
	return false
}
