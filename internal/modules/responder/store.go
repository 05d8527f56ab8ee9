package responder

import (
	"errors"
	"time"

	"github.com/famedu/core/internal/models"
	"gorm.io/gorm"
)

// humanScore marks human-authored and system messages in the timeline; only
// bot replies carry a real machine score.
const humanScore = 10.0

// GormStore is the MySQL-backed implementation of the Store boundary.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (g *GormStore) ChatStatus(chatID string) (models.ChatStatus, error) {
	var chat models.ChatModel
	if err := g.db.Select("id, status").First(&chat, "id = ?", chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, errChatNotFound
		}
		return 0, err
	}
	return chat.Status, nil
}

func (g *GormStore) SuspendChat(chatID string) error {
	res := g.db.Model(&models.ChatModel{}).
		Where("id = ?", chatID).
		Update("status", models.ChatSuspended)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errChatNotFound
	}
	return nil
}

func (g *GormStore) CreatePlaceholder(chatID string) error {
	placeholder := models.MessageModel{
		ChatID:       chatID,
		SenderType:   models.SenderSystem,
		SenderID:     "",
		Content:      models.PlaceholderContent,
		Timestamp:    time.Now(),
		MachineScore: humanScore,
	}
	return g.db.Create(&placeholder).Error
}

// AppendReplies persists one message per segment, all sharing the machine
// score. Timestamps increase per segment so timeline order matches segment
// order even within the same millisecond.
func (g *GormStore) AppendReplies(chatID string, segments []string, machineScore float64) error {
	var chat models.ChatModel
	if err := g.db.Select("id, expert_id").First(&chat, "id = ?", chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errChatNotFound
		}
		return err
	}

	base := time.Now()
	msgs := make([]models.MessageModel, 0, len(segments))
	for i, segment := range segments {
		msgs = append(msgs, models.MessageModel{
			ChatID:       chatID,
			SenderType:   models.SenderBot,
			SenderID:     chat.ExpertID,
			Content:      segment,
			Timestamp:    base.Add(time.Duration(i) * time.Millisecond),
			MachineScore: machineScore,
		})
	}
	if len(msgs) == 0 {
		return nil
	}
	return g.db.Create(&msgs).Error
}

func (g *GormStore) DeletePlaceholders(chatID string) error {
	return g.db.
		Where("chat_id = ? AND sender_type = ? AND content LIKE ?",
			chatID, models.SenderSystem, "%"+models.PlaceholderContent+"%").
		Delete(&models.MessageModel{}).Error
}
