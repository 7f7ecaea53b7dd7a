package domain

// AttachmentRef 表示邮件对一个已持久化附件的引用。
// 附件字节由 Attachment Store 持有，与所属邮件同生命周期。
type AttachmentRef struct {
	ID            int64  `json:"-" gorm:"primaryKey;autoIncrement"`
	MessageID     int64  `json:"-" gorm:"index;not null"`
	StoredName    string `json:"storedName" gorm:"type:varchar(300)"`   // 清理后的存储键，不允许包含路径穿越
	OriginalName  string `json:"originalName" gorm:"type:varchar(255)"` // 发件方声明的文件名，不可信
	Size          int64  `json:"size"`
	RetrievalPath string `json:"retrievalPath" gorm:"type:varchar(500)"`
}
