package message

import (
	"errors"

	"github.com/famedu/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ExpertScoreDTO struct {
	ExpertScore *float64 `json:"expert_score" binding:"required"`
}

type ExpertFeedbackDTO struct {
	ExpertFeedback string `json:"expert_feedback" binding:"required"`
}

type ExpertRevisionDTO struct {
	ExpertRevision string `json:"expert_revision" binding:"required"`
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/messages")

	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.POST("/:id/expert_score", h.setExpertScore)
	g.POST("/:id/expert_feedback", h.setExpertFeedback)
	g.POST("/:id/expert_revision", h.setExpertRevision)
}

// POST /messages
func (h *Handler) create(c *gin.Context) {
	var dto CreateMessageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	msg, err := h.svc.Create(&dto)
	if err != nil {
		if errors.Is(err, errChatNotFound) {
			response.NotFoundMsg(c, "chat not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, gin.H{"message_id": msg.ID})
}

// GET /messages/:id
func (h *Handler) get(c *gin.Context) {
	msg, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if msg == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, msg)
}

// POST /messages/:id/expert_score
func (h *Handler) setExpertScore(c *gin.Context) {
	var dto ExpertScoreDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	h.applyUpdate(c, map[string]interface{}{"expert_score": *dto.ExpertScore})
}

// POST /messages/:id/expert_feedback
func (h *Handler) setExpertFeedback(c *gin.Context) {
	var dto ExpertFeedbackDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	h.applyUpdate(c, map[string]interface{}{"expert_feedback": dto.ExpertFeedback})
}

// POST /messages/:id/expert_revision
func (h *Handler) setExpertRevision(c *gin.Context) {
	var dto ExpertRevisionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	h.applyUpdate(c, map[string]interface{}{"expert_revision": dto.ExpertRevision})
}

func (h *Handler) applyUpdate(c *gin.Context, updates map[string]interface{}) {
	if err := h.svc.update(c.Param("id"), updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"message": "updated"})
}
