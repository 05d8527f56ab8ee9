// Package agent generates automated expert replies and summaries by calling
// a configured AI provider.
//
// Files:
//   - agent.go: service wiring and the reply generator
//   - provider.go: provider clients and response handling
//   - prompts.go: prompt construction
package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/famedu/core/internal/config"
	"github.com/famedu/core/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrNoProvider = errors.New("no enabled AI provider configured")

// Service produces AI text for the rest of the application. It implements
// the reply Generator consumed by the responder coordinator and exposes
// Complete for the profile summarizers.
type Service struct {
	db       *gorm.DB
	provider *config.AIProvider
	logger   *zap.Logger
}

func NewService(db *gorm.DB, provider *config.AIProvider, logger *zap.Logger) *Service {
	return &Service{db: db, provider: provider, logger: logger}
}

// Generate produces a raw expert reply for the accumulated parent messages.
// The returned text carries a trailing quality marker the caller strips.
func (s *Service) Generate(ctx context.Context, contextText, parentID, chatID string) (string, error) {
	if s.provider == nil {
		return "", ErrNoProvider
	}

	var chat models.ChatModel
	if err := s.db.First(&chat, "id = ?", chatID).Error; err != nil {
		return "", err
	}
	var parent models.ParentModel
	if err := s.db.First(&parent, "id = ?", parentID).Error; err != nil {
		return "", err
	}

	systemPrompt, prompt := buildReplyPrompt(replyInput{
		ParentInfo:      parent.Info,
		Profile:         firstNonEmpty(chat.Profile, parent.Profile),
		RespondStrategy: firstNonEmpty(chat.RespondStrategy, parent.RespondStrategy),
		EventSummary:    firstNonEmpty(chat.EventSummary, parent.EventSummary),
		Messages:        contextText,
	})
	return s.Complete(ctx, systemPrompt, prompt)
}

// Complete sends one system+user prompt pair to the configured provider and
// returns the raw text.
func (s *Service) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if s.provider == nil {
		return "", ErrNoProvider
	}
	return complete(ctx, s.provider, systemPrompt, prompt)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
