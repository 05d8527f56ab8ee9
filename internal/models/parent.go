package models

// ParentModel is a parent account. Modeling fields (profile, respond
// strategy, event summary) are rewritten by the profile summarizer.
type ParentModel struct {
	Base
	Username        string `json:"username"         gorm:"not null"`
	Phone           string `json:"phone"            gorm:"type:varchar(20);uniqueIndex;not null"`
	PasswordHash    string `json:"-"                gorm:"not null"`
	Info            string `json:"info"             gorm:"type:text"`
	Profile         string `json:"profile"          gorm:"type:text"`
	RespondStrategy string `json:"respond_strategy" gorm:"type:text"`
	EventSummary    string `json:"event_summary"    gorm:"type:text"`
}

func (ParentModel) TableName() string { return "parents" }
