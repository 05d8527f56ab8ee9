package models

// LogicKeyModel groups accumulated response logics under a topic key.
type LogicKeyModel struct {
	Base
	Key    string       `json:"key"    gorm:"type:text;not null"`
	Logics []LogicModel `json:"logics" gorm:"foreignKey:LogicKeyID"`
}

func (LogicKeyModel) TableName() string { return "logic_keys" }

// LogicModel is one emotional/focus/logic triple distilled from expert
// replies by the knowledge accumulator.
type LogicModel struct {
	Base
	Emotional  string `json:"emotional" gorm:"type:text;not null"`
	Focus      string `json:"focus"     gorm:"type:text;not null"`
	Logic      string `json:"logic"     gorm:"type:text;not null"`
	LogicKeyID string `json:"-"         gorm:"type:char(36);not null;index"`
}

func (LogicModel) TableName() string { return "logics" }
