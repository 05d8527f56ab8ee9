// Package verification issues and checks SMS verification codes. Codes are
// four digits, one per phone number, valid for ten minutes; delivery goes
// through an external SMS gateway.
package verification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/famedu/core/internal/config"
	"github.com/famedu/core/internal/models"
	"github.com/famedu/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db     *gorm.DB
	cfg    config.SMSConfig
	client *http.Client
	logger *zap.Logger
}

func NewService(db *gorm.DB, cfg config.SMSConfig, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// Issue generates a fresh code for the phone, replacing any earlier one, and
// delivers it via the SMS gateway.
func (s *Service) Issue(phone string) error {
	code := fmt.Sprintf("%04d", rand.IntN(10000))

	v := models.VerificationModel{Phone: phone, Code: code}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}},
		DoUpdates: clause.AssignmentColumns([]string{"code", "updated_at"}),
	}).Create(&v).Error
	if err != nil {
		return err
	}

	return s.send(phone, code)
}

// Verify reports whether the code matches the phone's current one and is
// still within its validity window.
func (s *Service) Verify(phone, code string) bool {
	if strings.TrimSpace(phone) == "" || strings.TrimSpace(code) == "" {
		return false
	}
	var v models.VerificationModel
	if err := s.db.Where("phone = ? AND code = ?", phone, code).First(&v).Error; err != nil {
		return false
	}
	return v.IsValid(time.Now())
}

// PruneExpired deletes codes past their validity window. Run from cron.
func (s *Service) PruneExpired() error {
	cutoff := time.Now().Add(-models.VerificationTTL)
	return s.db.Where("updated_at < ?", cutoff).Delete(&models.VerificationModel{}).Error
}

type smsPayload struct {
	Text struct {
		Phones     []string `json:"phones"`
		SignID     string   `json:"sign_id"`
		TemplateID string   `json:"template_id"`
		Para       []string `json:"para"`
	} `json:"text"`
	Type int `json:"type"`
}

func (s *Service) send(phone, code string) error {
	if strings.TrimSpace(s.cfg.Endpoint) == "" {
		// No gateway configured; useful in development where the code can be
		// read from the log.
		s.logger.Info("SMS gateway not configured, skipping delivery", zap.String("phone", phone))
		return nil
	}

	var payload smsPayload
	payload.Text.Phones = []string{phone}
	payload.Text.SignID = s.cfg.SignID
	payload.Text.TemplateID = s.cfg.TemplateID
	payload.Text.Para = []string{code}
	payload.Type = s.cfg.Type

	body, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}

type SendCodeDTO struct {
	Phone string `json:"phone" binding:"required"`
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/verification")
	g.POST("/send_code", h.sendCode)
}

// POST /verification/send_code
func (h *Handler) sendCode(c *gin.Context) {
	var dto SendCodeDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "phone number is required")
		return
	}
	if err := h.svc.Issue(dto.Phone); err != nil {
		response.BadGateway(c, "failed to send verification code")
		return
	}
	response.OK(c, gin.H{"message": "verification code sent"})
}
