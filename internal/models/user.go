package models

import (
	"time"
)

// User describes a registered account. Accounts start inactive and become
// active only after the email confirmation flow completes.
type User struct {
	BaseModel

	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	IsActive bool `gorm:"default:false" json:"is_active"`

	LastLoginAt *time.Time `json:"last_login_at"`
}
