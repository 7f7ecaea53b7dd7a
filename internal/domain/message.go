package domain

import "time"

// Header 表示一条邮件头。重复的头名与原始顺序都必须保留，
// 因此用有序切片而不是 map 存储。
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Message 表示一封投递到邮箱的邮件。写入后不可变，只能被清理任务整体删除。
type Message struct {
	ID          int64            `json:"id" gorm:"primaryKey;autoIncrement"`
	LocalPart   string           `json:"localPart" gorm:"type:varchar(64);index;not null"` // 所属邮箱（普通引用，不做外键约束）
	Sender      string           `json:"sender" gorm:"type:varchar(255)"`
	Subject     string           `json:"subject" gorm:"type:varchar(500)"`
	Text        string           `json:"text,omitempty" gorm:"type:text"`
	HTML        string           `json:"html,omitempty" gorm:"type:text"`
	Headers     []Header         `json:"headers,omitempty" gorm:"serializer:json;type:text"`
	Attachments []*AttachmentRef `json:"attachments,omitempty" gorm:"foreignKey:MessageID"`
	CreatedAt   time.Time        `json:"createdAt" gorm:"index"`
}

// MessageSummary 是邮件列表接口返回的摘要投影，正文与附件需单独获取。
type MessageSummary struct {
	ID        int64     `json:"id"`
	Sender    string    `json:"sender"`
	Subject   string    `json:"subject"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary 返回邮件的摘要投影。
func (m *Message) Summary() MessageSummary {
	return MessageSummary{
		ID:        m.ID,
		Sender:    m.Sender,
		Subject:   m.Subject,
		CreatedAt: m.CreatedAt,
	}
}
