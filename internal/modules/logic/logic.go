// Package logic exposes the accumulated response-logic knowledge base.
package logic

import (
	"errors"

	"github.com/famedu/core/internal/models"
	"github.com/famedu/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AddLogicDTO struct {
	Key       string `json:"key"       binding:"required"`
	Emotional string `json:"emotional"`
	Focus     string `json:"focus"`
	Logic     string `json:"logic"     binding:"required"`
}

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// Add files a logic entry under its topic key, creating the key when new.
func (s *Service) Add(dto *AddLogicDTO) (*models.LogicModel, error) {
	var logicKey models.LogicKeyModel
	err := s.db.Where("`key` = ?", dto.Key).First(&logicKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logicKey = models.LogicKeyModel{Key: dto.Key}
		if err := s.db.Create(&logicKey).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	entry := models.LogicModel{
		Emotional:  dto.Emotional,
		Focus:      dto.Focus,
		Logic:      dto.Logic,
		LogicKeyID: logicKey.ID,
	}
	return &entry, s.db.Create(&entry).Error
}

// All returns every topic key with its entries.
func (s *Service) All() ([]models.LogicKeyModel, error) {
	var keys []models.LogicKeyModel
	err := s.db.Preload("Logics").Find(&keys).Error
	return keys, err
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/logics")
	g.POST("", h.add)
	g.GET("", h.all)
}

// POST /logics
func (h *Handler) add(c *gin.Context) {
	var dto AddLogicDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	entry, err := h.svc.Add(&dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, gin.H{"logic_id": entry.ID})
}

// GET /logics
func (h *Handler) all(c *gin.Context) {
	keys, err := h.svc.All()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, keys)
}
