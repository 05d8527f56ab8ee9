// Package profile maintains parent and chat modeling from conversation
// history: per-chat interaction summaries, the aggregate parent profile and
// the knowledge base accumulated from expert replies.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/famedu/core/internal/models"
	"github.com/famedu/core/internal/modules/agent"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const recentMessageWindow = 50

// Service runs modeling updates in the background after replies land. All
// methods log their own failures; callers never wait on them.
type Service struct {
	db     *gorm.DB
	agent  *agent.Service
	logger *zap.Logger
}

func NewService(db *gorm.DB, agentSvc *agent.Service, logger *zap.Logger) *Service {
	return &Service{db: db, agent: agentSvc, logger: logger}
}

type modelingOutput struct {
	Profile         string `json:"profile"`
	RespondStrategy string `json:"respond_strategy"`
	EventSummary    string `json:"event_summary"`
}

// SummarizeInteraction refreshes the chat-level modeling fields from the
// chat's recent messages.
func (s *Service) SummarizeInteraction(parentID, chatID string) {
	transcript, err := s.loadTranscript(chatID)
	if err != nil {
		s.logger.Warn("load transcript failed", zap.String("chat_id", chatID), zap.Error(err))
		return
	}
	if transcript == "" {
		return
	}

	raw, err := s.agent.Complete(context.Background(), interactionSystemPrompt, buildInteractionPrompt(transcript))
	if err != nil {
		s.logger.Warn("interaction summary failed", zap.String("chat_id", chatID), zap.Error(err))
		return
	}

	var out modelingOutput
	if err := agent.UnmarshalModelJSON(raw, &out); err != nil {
		s.logger.Warn("interaction summary unparseable", zap.String("chat_id", chatID), zap.Error(err))
		return
	}

	err = s.db.Model(&models.ChatModel{}).
		Where("id = ?", chatID).
		Updates(map[string]interface{}{
			"profile":          out.Profile,
			"respond_strategy": out.RespondStrategy,
			"event_summary":    out.EventSummary,
		}).Error
	if err != nil {
		s.logger.Error("save chat modeling failed", zap.String("chat_id", chatID), zap.Error(err))
	}
}

// SummarizeAggregate rebuilds the parent-level profile from the modeling of
// all of the parent's chats.
func (s *Service) SummarizeAggregate(parentID string) {
	var chats []models.ChatModel
	err := s.db.
		Select("id, profile, respond_strategy, event_summary").
		Where("parent_id = ?", parentID).
		Find(&chats).Error
	if err != nil {
		s.logger.Warn("load chats for aggregate failed", zap.String("parent_id", parentID), zap.Error(err))
		return
	}

	var b strings.Builder
	for i, chat := range chats {
		if strings.TrimSpace(chat.Profile) == "" &&
			strings.TrimSpace(chat.RespondStrategy) == "" &&
			strings.TrimSpace(chat.EventSummary) == "" {
			continue
		}
		fmt.Fprintf(&b, "对话%d：\n画像：%s\n策略：%s\n事件：%s\n\n", i+1, chat.Profile, chat.RespondStrategy, chat.EventSummary)
	}
	if b.Len() == 0 {
		return
	}

	raw, err := s.agent.Complete(context.Background(), aggregateSystemPrompt, buildAggregatePrompt(b.String()))
	if err != nil {
		s.logger.Warn("aggregate summary failed", zap.String("parent_id", parentID), zap.Error(err))
		return
	}

	var out modelingOutput
	if err := agent.UnmarshalModelJSON(raw, &out); err != nil {
		s.logger.Warn("aggregate summary unparseable", zap.String("parent_id", parentID), zap.Error(err))
		return
	}

	err = s.db.Model(&models.ParentModel{}).
		Where("id = ?", parentID).
		Updates(map[string]interface{}{
			"profile":          out.Profile,
			"respond_strategy": out.RespondStrategy,
			"event_summary":    out.EventSummary,
		}).Error
	if err != nil {
		s.logger.Error("save parent modeling failed", zap.String("parent_id", parentID), zap.Error(err))
	}
}

type knowledgeOutput struct {
	Entries []struct {
		Key       string `json:"key"`
		Emotional string `json:"emotional"`
		Focus     string `json:"focus"`
		Logic     string `json:"logic"`
	} `json:"entries"`
}

// AccumulateKnowledge distills reusable response logics from a chat where a
// human expert has replied, and files them under topic keys.
func (s *Service) AccumulateKnowledge(chatID string) {
	transcript, err := s.loadTranscript(chatID)
	if err != nil {
		s.logger.Warn("load transcript failed", zap.String("chat_id", chatID), zap.Error(err))
		return
	}
	if transcript == "" {
		return
	}

	raw, err := s.agent.Complete(context.Background(), knowledgeSystemPrompt, buildKnowledgePrompt(transcript))
	if err != nil {
		s.logger.Warn("knowledge accumulation failed", zap.String("chat_id", chatID), zap.Error(err))
		return
	}

	var out knowledgeOutput
	if err := agent.UnmarshalModelJSON(raw, &out); err != nil {
		s.logger.Warn("knowledge output unparseable", zap.String("chat_id", chatID), zap.Error(err))
		return
	}

	for _, entry := range out.Entries {
		key := strings.TrimSpace(entry.Key)
		if key == "" || strings.TrimSpace(entry.Logic) == "" {
			continue
		}
		if err := s.fileLogic(key, entry.Emotional, entry.Focus, entry.Logic); err != nil {
			s.logger.Error("save logic failed", zap.String("chat_id", chatID), zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *Service) fileLogic(key, emotional, focus, logic string) error {
	var logicKey models.LogicKeyModel
	err := s.db.Where("`key` = ?", key).First(&logicKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logicKey = models.LogicKeyModel{Key: key}
		if err := s.db.Create(&logicKey).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	return s.db.Create(&models.LogicModel{
		Emotional:  emotional,
		Focus:      focus,
		Logic:      logic,
		LogicKeyID: logicKey.ID,
	}).Error
}

func (s *Service) loadTranscript(chatID string) (string, error) {
	var messages []models.MessageModel
	err := s.db.
		Where("chat_id = ? AND sender_type <> ?", chatID, models.SenderSystem).
		Order("timestamp DESC").
		Limit(recentMessageWindow).
		Find(&messages).Error
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		fmt.Fprintf(&b, "[%s] %s\n", senderLabel(msg.SenderType), msg.Content)
	}
	return strings.TrimSpace(b.String()), nil
}

func senderLabel(t models.SenderType) string {
	switch t {
	case models.SenderParent:
		return "家长"
	case models.SenderExpert:
		return "专家"
	case models.SenderBot:
		return "分身"
	default:
		return "系统"
	}
}
