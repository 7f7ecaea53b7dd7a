package domain

import (
	"time"
)

// Inbox 表示一个受密码保护的一次性邮箱。
// 创建后不可变，本核心不提供删除路径。
type Inbox struct {
	LocalPart    string    `json:"localPart" gorm:"primaryKey;type:varchar(64)"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"` // bcrypt 哈希，永不对外暴露
	CreatedAt    time.Time `json:"createdAt"`
}
