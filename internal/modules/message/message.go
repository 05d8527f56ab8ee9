// Package message is the ingestion boundary for chat messages. Persisting a
// parent message hands it to the reply coordinator; persisting an expert
// message clears waiting placeholders and feeds the knowledge accumulator.
package message

import (
	"errors"
	"time"

	"github.com/famedu/core/internal/models"
	"github.com/famedu/core/internal/modules/profile"
	"github.com/famedu/core/internal/modules/responder"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// humanMachineScore marks human-authored messages; only generated replies
// carry a real machine score.
const humanMachineScore = 10.0

var errChatNotFound = errors.New("chat not found")

// Notifier pushes created messages to connected clients. A nil notifier
// disables pushes.
type Notifier interface {
	MessageCreated(chatID string, msg *models.MessageModel)
}

type CreateMessageDTO struct {
	ChatID     string `json:"chat_id"     binding:"required"`
	SenderType string `json:"sender_type" binding:"required,oneof=parent expert"`
	SenderID   string `json:"sender_id"   binding:"required"`
	Content    string `json:"content"     binding:"required"`
}

type Service struct {
	db       *gorm.DB
	resp     *responder.Service
	store    responder.Store
	profile  *profile.Service
	notifier Notifier
	logger   *zap.Logger
}

func NewService(db *gorm.DB, resp *responder.Service, store responder.Store, profileSvc *profile.Service, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		db:       db,
		resp:     resp,
		store:    store,
		profile:  profileSvc,
		notifier: notifier,
		logger:   logger,
	}
}

// Create persists a message and triggers the side effects of its sender
// type. The response never waits on reply generation.
func (s *Service) Create(dto *CreateMessageDTO) (*models.MessageModel, error) {
	var chat models.ChatModel
	if err := s.db.First(&chat, "id = ?", dto.ChatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errChatNotFound
		}
		return nil, err
	}

	msg := models.MessageModel{
		ChatID:       dto.ChatID,
		SenderType:   models.SenderType(dto.SenderType),
		SenderID:     dto.SenderID,
		Content:      dto.Content,
		Timestamp:    time.Now(),
		MachineScore: humanMachineScore,
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&chat).Update("last_message_timestamp", msg.Timestamp).Error; err != nil {
		s.logger.Warn("update last message timestamp failed", zap.String("chat_id", chat.ID), zap.Error(err))
	}

	if s.notifier != nil {
		s.notifier.MessageCreated(chat.ID, &msg)
	}

	switch msg.SenderType {
	case models.SenderParent:
		s.resp.Dispatch(responder.DispatchRequest{
			ChatID:         chat.ID,
			MessageID:      msg.ID,
			SenderID:       msg.SenderID,
			Content:        msg.Content,
			SenderIsParent: true,
			Suspended:      chat.Status == models.ChatSuspended,
		})
	case models.SenderExpert:
		if err := s.store.DeletePlaceholders(chat.ID); err != nil {
			s.logger.Warn("placeholder cleanup failed", zap.String("chat_id", chat.ID), zap.Error(err))
		}
		if s.profile != nil {
			go s.profile.AccumulateKnowledge(chat.ID)
		}
	}

	return &msg, nil
}

func (s *Service) GetByID(id string) (*models.MessageModel, error) {
	var msg models.MessageModel
	if err := s.db.First(&msg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (s *Service) update(id string, updates map[string]interface{}) error {
	res := s.db.Model(&models.MessageModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
