package account

import (
	"errors"

	"github.com/famedu/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type UpdateInfoDTO struct {
	Info string `json:"info"`
}

type UpdateUsernameDTO struct {
	Username string `json:"username" binding:"required"`
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	p := rg.Group("/parents")
	p.POST("", h.registerParent)
	p.GET("/ids", h.allParentIDs)
	p.GET("/:id", h.getParent)
	p.GET("/:id/info", h.getParentInfo)
	p.POST("/:id/info", h.setParentInfo)
	p.POST("/:id/username", h.updateUsername)
	p.GET("/:id/modeling", h.getParentModeling)
	p.POST("/:id/modeling", h.setParentModeling)

	e := rg.Group("/experts")
	e.POST("", h.registerExpert)
	e.GET("/:id", h.getExpert)
	e.GET("/:id/parents", h.expertParents)
}

// POST /parents
func (h *Handler) registerParent(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	parent, err := h.svc.RegisterParent(&dto)
	if err != nil {
		h.registerError(c, err)
		return
	}
	response.Created(c, gin.H{"parent_id": parent.ID})
}

// POST /experts
func (h *Handler) registerExpert(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	expert, err := h.svc.RegisterExpert(&dto)
	if err != nil {
		h.registerError(c, err)
		return
	}
	response.Created(c, gin.H{"expert_id": expert.ID})
}

func (h *Handler) registerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errInvalidCode):
		response.BadRequest(c, "invalid verification code")
	case errors.Is(err, errPhoneExists):
		response.Conflict(c, "phone already exists")
	default:
		response.InternalError(c, err)
	}
}

// GET /parents/:id
func (h *Handler) getParent(c *gin.Context) {
	parent, err := h.svc.GetParent(c.Param("id"))
	if err != nil {
		h.lookupError(c, err)
		return
	}
	response.OK(c, parent)
}

// GET /parents/ids
func (h *Handler) allParentIDs(c *gin.Context) {
	ids, err := h.svc.AllParentIDs()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"parent_ids": ids})
}

// GET /parents/:id/info
func (h *Handler) getParentInfo(c *gin.Context) {
	parent, err := h.svc.GetParent(c.Param("id"))
	if err != nil {
		h.lookupError(c, err)
		return
	}
	response.OK(c, gin.H{"info": parent.Info})
}

// POST /parents/:id/info
func (h *Handler) setParentInfo(c *gin.Context) {
	var dto UpdateInfoDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.UpdateParentInfo(c.Param("id"), dto.Info); err != nil {
		h.lookupError(c, err)
		return
	}
	response.OK(c, gin.H{"message": "parent info updated"})
}

// POST /parents/:id/username
func (h *Handler) updateUsername(c *gin.Context) {
	var dto UpdateUsernameDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "new username is required")
		return
	}
	if err := h.svc.UpdateParentUsername(c.Param("id"), dto.Username); err != nil {
		h.lookupError(c, err)
		return
	}
	response.OK(c, gin.H{"message": "username updated"})
}

// GET /parents/:id/modeling
func (h *Handler) getParentModeling(c *gin.Context) {
	parent, err := h.svc.GetParent(c.Param("id"))
	if err != nil {
		h.lookupError(c, err)
		return
	}
	response.OK(c, gin.H{
		"profile":          parent.Profile,
		"respond_strategy": parent.RespondStrategy,
		"event_summary":    parent.EventSummary,
	})
}

// POST /parents/:id/modeling
func (h *Handler) setParentModeling(c *gin.Context) {
	var dto ModelingDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.SetParentModeling(c.Param("id"), &dto); err != nil {
		h.lookupError(c, err)
		return
	}
	response.OK(c, gin.H{"message": "parent modeling updated"})
}

// GET /experts/:id
func (h *Handler) getExpert(c *gin.Context) {
	expert, err := h.svc.GetExpert(c.Param("id"))
	if err != nil {
		h.lookupError(c, err)
		return
	}
	response.OK(c, expert)
}

// GET /experts/:id/parents
func (h *Handler) expertParents(c *gin.Context) {
	parents, err := h.svc.ExpertParents(c.Param("id"))
	if err != nil {
		h.lookupError(c, err)
		return
	}
	response.OK(c, parents)
}

func (h *Handler) lookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errParentNotFound), errors.Is(err, errExpertNotFound):
		response.NotFound(c)
	default:
		response.InternalError(c, err)
	}
}
