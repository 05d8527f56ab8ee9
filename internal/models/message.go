package models

import "time"

// SenderType indicates who authored a message.
type SenderType string

const (
	SenderParent SenderType = "parent"
	SenderBot    SenderType = "bot"
	SenderExpert SenderType = "expert"
	SenderSystem SenderType = "system"
)

// PlaceholderContent marks the transient "awaiting reply" system message.
const PlaceholderContent = "等待分身/专家回复中"

// MessageModel is one message in a chat timeline. Timestamp carries the
// conversation-scoped ordering; it is assigned monotonically at creation so
// reply segments persisted together keep their order.
type MessageModel struct {
	Base
	ChatID     string     `json:"chat_id"     gorm:"type:char(36);not null;index"`
	SenderType SenderType `json:"sender_type" gorm:"type:varchar(20);not null;index"`
	SenderID   string     `json:"sender_id"   gorm:"type:char(36);not null"`
	Content    string     `json:"content"     gorm:"type:text;not null"`
	Timestamp  time.Time  `json:"timestamp"   gorm:"index"`

	MachineScore   float64 `json:"machine_score"   gorm:"default:0"`
	ExpertScore    float64 `json:"expert_score"    gorm:"default:0"`
	ExpertFeedback string  `json:"expert_feedback" gorm:"type:text"`
	ExpertRevision string  `json:"expert_revision" gorm:"type:text"`
}

func (MessageModel) TableName() string { return "messages" }
