package models

import "time"

// VerificationTTL is how long an issued code stays valid.
const VerificationTTL = 10 * time.Minute

// VerificationModel stores the latest SMS code issued per phone number.
type VerificationModel struct {
	Base
	Phone string `json:"phone" gorm:"type:varchar(20);uniqueIndex;not null"`
	Code  string `json:"-"     gorm:"type:varchar(4);not null"`
}

// IsValid reports whether the code is still within its validity window.
func (v *VerificationModel) IsValid(now time.Time) bool {
	return now.Sub(v.UpdatedAt) < VerificationTTL
}

func (VerificationModel) TableName() string { return "verifications" }
