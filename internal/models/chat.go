package models

import "time"

// ChatStatus is the moderation state of a chat.
// The numeric values are part of the wire format.
type ChatStatus int

const (
	ChatSuspended  ChatStatus = 0
	ChatUnreviewed ChatStatus = 1
	ChatReviewed   ChatStatus = 2
)

// ChatModel is one parent/expert conversation.
type ChatModel struct {
	Base
	Title                string     `json:"title"`
	ParentID             string     `json:"parent_id" gorm:"type:char(36);not null;index"`
	ExpertID             string     `json:"expert_id" gorm:"type:char(36);not null;index"`
	Status               ChatStatus `json:"status"    gorm:"default:1;index"`
	LastMessageTimestamp time.Time  `json:"last_message_timestamp"`

	Profile         string `json:"profile"          gorm:"type:text"`
	RespondStrategy string `json:"respond_strategy" gorm:"type:text"`
	EventSummary    string `json:"event_summary"    gorm:"type:text"`

	ExpertScore    float64 `json:"expert_score"    gorm:"default:0"`
	ExpertFeedback string  `json:"expert_feedback" gorm:"type:text"`
	ParentScore    float64 `json:"parent_score"    gorm:"default:0"`
	ParentFeedback string  `json:"parent_feedback" gorm:"type:text"`

	Messages []MessageModel `json:"messages,omitempty" gorm:"foreignKey:ChatID"`
}

func (ChatModel) TableName() string { return "chats" }
