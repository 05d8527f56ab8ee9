// Package account manages parent and expert registration and profile data.
// Registration is gated on an SMS verification code; passwords are hashed
// with bcrypt before they touch the database.
package account

import (
	"errors"
	"strings"

	"github.com/famedu/core/internal/models"
	"github.com/famedu/core/internal/modules/verification"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	errInvalidCode    = errors.New("invalid verification code")
	errPhoneExists    = errors.New("phone already exists")
	errParentNotFound = errors.New("parent not found")
	errExpertNotFound = errors.New("expert not found")
)

type RegisterDTO struct {
	Phone            string `json:"phone"             binding:"required"`
	VerificationCode string `json:"verification_code" binding:"required"`
	Username         string `json:"username"`
	Password         string `json:"password"          binding:"required,min=6"`
}

type ModelingDTO struct {
	Profile         string `json:"profile"`
	RespondStrategy string `json:"respond_strategy"`
	EventSummary    string `json:"event_summary"`
}

type Service struct {
	db     *gorm.DB
	verify *verification.Service
}

func NewService(db *gorm.DB, verify *verification.Service) *Service {
	return &Service{db: db, verify: verify}
}

// RegisterParent creates a parent account. Registering an already-known
// phone with a valid code returns the existing account.
func (s *Service) RegisterParent(dto *RegisterDTO) (*models.ParentModel, error) {
	if !s.verify.Verify(dto.Phone, dto.VerificationCode) {
		return nil, errInvalidCode
	}

	var existing models.ParentModel
	if err := s.db.Where("phone = ?", dto.Phone).First(&existing).Error; err == nil {
		return &existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	parent := models.ParentModel{
		Username:     usernameOrGenerated(dto.Username),
		Phone:        dto.Phone,
		PasswordHash: string(hash),
	}
	if err := s.db.Create(&parent).Error; err != nil {
		if isDuplicateErr(err) {
			return nil, errPhoneExists
		}
		return nil, err
	}
	return &parent, nil
}

// RegisterExpert mirrors RegisterParent for expert accounts.
func (s *Service) RegisterExpert(dto *RegisterDTO) (*models.ExpertModel, error) {
	if !s.verify.Verify(dto.Phone, dto.VerificationCode) {
		return nil, errInvalidCode
	}

	var existing models.ExpertModel
	if err := s.db.Where("phone = ?", dto.Phone).First(&existing).Error; err == nil {
		return &existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	expert := models.ExpertModel{
		Username:     usernameOrGenerated(dto.Username),
		Phone:        dto.Phone,
		PasswordHash: string(hash),
	}
	if err := s.db.Create(&expert).Error; err != nil {
		if isDuplicateErr(err) {
			return nil, errPhoneExists
		}
		return nil, err
	}
	return &expert, nil
}

func (s *Service) GetParent(id string) (*models.ParentModel, error) {
	var parent models.ParentModel
	if err := s.db.First(&parent, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errParentNotFound
		}
		return nil, err
	}
	return &parent, nil
}

func (s *Service) GetExpert(id string) (*models.ExpertModel, error) {
	var expert models.ExpertModel
	if err := s.db.First(&expert, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errExpertNotFound
		}
		return nil, err
	}
	return &expert, nil
}

func (s *Service) AllParentIDs() ([]string, error) {
	var ids []string
	err := s.db.Model(&models.ParentModel{}).Pluck("id", &ids).Error
	return ids, err
}

// ExpertParents returns the distinct parents an expert shares chats with.
func (s *Service) ExpertParents(expertID string) ([]models.ParentModel, error) {
	if _, err := s.GetExpert(expertID); err != nil {
		return nil, err
	}
	var parents []models.ParentModel
	err := s.db.
		Where("id IN (?)", s.db.Model(&models.ChatModel{}).
			Select("DISTINCT parent_id").
			Where("expert_id = ?", expertID)).
		Find(&parents).Error
	return parents, err
}

func (s *Service) UpdateParentInfo(id, info string) error {
	return s.updateParent(id, map[string]interface{}{"info": info})
}

func (s *Service) UpdateParentUsername(id, username string) error {
	return s.updateParent(id, map[string]interface{}{"username": username})
}

func (s *Service) SetParentModeling(id string, dto *ModelingDTO) error {
	return s.updateParent(id, map[string]interface{}{
		"profile":          dto.Profile,
		"respond_strategy": dto.RespondStrategy,
		"event_summary":    dto.EventSummary,
	})
}

func (s *Service) updateParent(id string, updates map[string]interface{}) error {
	res := s.db.Model(&models.ParentModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errParentNotFound
	}
	return nil
}

func usernameOrGenerated(username string) string {
	if strings.TrimSpace(username) != "" {
		return username
	}
	return "user_" + uuid.NewString()[:8]
}

func isDuplicateErr(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "duplicate")
}
