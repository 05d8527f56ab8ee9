// Package chat manages parent/expert conversations: creation, listing,
// moderation status, per-chat modeling and mutual scoring.
package chat

import (
	"errors"

	"github.com/famedu/core/internal/models"
	"github.com/famedu/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var errChatNotFound = errors.New("chat not found")

// Notifier pushes chat lifecycle events to connected clients. A nil
// notifier disables pushes.
type Notifier interface {
	ChatStatusChanged(chatID string, status models.ChatStatus)
}

type CreateChatDTO struct {
	ParentID string `json:"parent_id" binding:"required"`
	ExpertID string `json:"expert_id" binding:"required"`
}

type ModelingDTO struct {
	Profile         string `json:"profile"`
	RespondStrategy string `json:"respond_strategy"`
	EventSummary    string `json:"event_summary"`
}

type ScoreFeedbackDTO struct {
	Score    *float64 `json:"score"    binding:"required"`
	Feedback string   `json:"feedback"`
}

type Service struct {
	db       *gorm.DB
	notifier Notifier
}

func NewService(db *gorm.DB, notifier Notifier) *Service {
	return &Service{db: db, notifier: notifier}
}

// Create opens a chat between a parent and an expert. The title is derived
// from the chat ID until a real title generator exists.
func (s *Service) Create(dto *CreateChatDTO) (*models.ChatModel, error) {
	chat := models.ChatModel{
		ParentID: dto.ParentID,
		ExpertID: dto.ExpertID,
		Status:   models.ChatUnreviewed,
	}
	if err := s.db.Create(&chat).Error; err != nil {
		return nil, err
	}
	chat.Title = "Chat " + chat.ID[:8]
	if err := s.db.Model(&chat).Update("title", chat.Title).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

func (s *Service) GetByID(id string) (*models.ChatModel, error) {
	var chat models.ChatModel
	if err := s.db.First(&chat, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errChatNotFound
		}
		return nil, err
	}
	return &chat, nil
}

func (s *Service) listWithMessages(cond string, args ...interface{}) ([]models.ChatModel, error) {
	var chats []models.ChatModel
	err := s.db.
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp ASC")
		}).
		Where(cond, args...).
		Order("last_message_timestamp DESC").
		Find(&chats).Error
	return chats, err
}

func (s *Service) ByParent(parentID string) ([]models.ChatModel, error) {
	return s.listWithMessages("parent_id = ?", parentID)
}

func (s *Service) ByExpert(expertID string) ([]models.ChatModel, error) {
	return s.listWithMessages("expert_id = ?", expertID)
}

func (s *Service) Between(expertID, parentID string) ([]models.ChatModel, error) {
	return s.listWithMessages("expert_id = ? AND parent_id = ?", expertID, parentID)
}

func (s *Service) Messages(chatID string) ([]models.MessageModel, error) {
	var messages []models.MessageModel
	err := s.db.
		Where("chat_id = ?", chatID).
		Order("timestamp ASC").
		Find(&messages).Error
	return messages, err
}

// SetStatus applies a manual moderation transition.
func (s *Service) SetStatus(chatID string, status models.ChatStatus) error {
	if err := s.update(chatID, map[string]interface{}{"status": status}); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.ChatStatusChanged(chatID, status)
	}
	return nil
}

func (s *Service) SetModeling(chatID string, dto *ModelingDTO) error {
	return s.update(chatID, map[string]interface{}{
		"profile":          dto.Profile,
		"respond_strategy": dto.RespondStrategy,
		"event_summary":    dto.EventSummary,
	})
}

func (s *Service) SetExpertScoreFeedback(chatID string, dto *ScoreFeedbackDTO) error {
	return s.update(chatID, map[string]interface{}{
		"expert_score":    *dto.Score,
		"expert_feedback": dto.Feedback,
	})
}

func (s *Service) SetParentScoreFeedback(chatID string, dto *ScoreFeedbackDTO) error {
	return s.update(chatID, map[string]interface{}{
		"parent_score":    *dto.Score,
		"parent_feedback": dto.Feedback,
	})
}

func (s *Service) update(chatID string, updates map[string]interface{}) error {
	res := s.db.Model(&models.ChatModel{}).Where("id = ?", chatID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errChatNotFound
	}
	return nil
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/chats")

	g.POST("", h.create)
	g.GET("/parent/:parentID", h.byParent)
	g.GET("/expert/:expertID", h.byExpert)
	g.GET("/expert/:expertID/parent/:parentID", h.between)
	g.GET("/:id/messages", h.messages)

	g.POST("/:id/suspend", h.setStatus(models.ChatSuspended))
	g.POST("/:id/unreview", h.setStatus(models.ChatUnreviewed))
	g.POST("/:id/review", h.setStatus(models.ChatReviewed))

	g.GET("/:id/modeling", h.getModeling)
	g.POST("/:id/modeling", h.setModeling)

	g.GET("/:id/expert_score", h.getExpertScore)
	g.POST("/:id/expert_score", h.setExpertScore)
	g.GET("/:id/parent_score", h.getParentScore)
	g.POST("/:id/parent_score", h.setParentScore)
}

// POST /chats
func (h *Handler) create(c *gin.Context) {
	var dto CreateChatDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	chat, err := h.svc.Create(&dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, chat)
}

// GET /chats/parent/:parentID
func (h *Handler) byParent(c *gin.Context) {
	chats, err := h.svc.ByParent(c.Param("parentID"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, chats)
}

// GET /chats/expert/:expertID
func (h *Handler) byExpert(c *gin.Context) {
	chats, err := h.svc.ByExpert(c.Param("expertID"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, chats)
}

// GET /chats/expert/:expertID/parent/:parentID
func (h *Handler) between(c *gin.Context) {
	chats, err := h.svc.Between(c.Param("expertID"), c.Param("parentID"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, chats)
}

// GET /chats/:id/messages
func (h *Handler) messages(c *gin.Context) {
	messages, err := h.svc.Messages(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, messages)
}

func (h *Handler) setStatus(status models.ChatStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.svc.SetStatus(c.Param("id"), status); err != nil {
			h.writeError(c, err)
			return
		}
		response.OK(c, gin.H{"status": status})
	}
}

// GET /chats/:id/modeling
func (h *Handler) getModeling(c *gin.Context) {
	chat, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{
		"profile":          chat.Profile,
		"respond_strategy": chat.RespondStrategy,
		"event_summary":    chat.EventSummary,
	})
}

// POST /chats/:id/modeling
func (h *Handler) setModeling(c *gin.Context) {
	var dto ModelingDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.SetModeling(c.Param("id"), &dto); err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"message": "chat modeling updated"})
}

// GET /chats/:id/expert_score
func (h *Handler) getExpertScore(c *gin.Context) {
	chat, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"expert_score": chat.ExpertScore, "expert_feedback": chat.ExpertFeedback})
}

// POST /chats/:id/expert_score
func (h *Handler) setExpertScore(c *gin.Context) {
	var dto ScoreFeedbackDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.SetExpertScoreFeedback(c.Param("id"), &dto); err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"message": "expert score and feedback set"})
}

// GET /chats/:id/parent_score
func (h *Handler) getParentScore(c *gin.Context) {
	chat, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"parent_score": chat.ParentScore, "parent_feedback": chat.ParentFeedback})
}

// POST /chats/:id/parent_score
func (h *Handler) setParentScore(c *gin.Context) {
	var dto ScoreFeedbackDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.SetParentScoreFeedback(c.Param("id"), &dto); err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"message": "parent score and feedback set"})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	if errors.Is(err, errChatNotFound) {
		response.NotFound(c)
		return
	}
	response.InternalError(c, err)
}
