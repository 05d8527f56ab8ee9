package models

// ExpertModel is a human expert account paired with parents in chats.
type ExpertModel struct {
	Base
	Username     string `json:"username" gorm:"not null"`
	Phone        string `json:"phone"    gorm:"type:varchar(20);uniqueIndex;not null"`
	PasswordHash string `json:"-"        gorm:"not null"`
}

func (ExpertModel) TableName() string { return "experts" }
