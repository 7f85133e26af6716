package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type APIKey struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	KeyHash        string     `gorm:"not null" json:"-"`
	Description    string     `json:"description"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	Disabled       bool       `gorm:"default:false" json:"disabled"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (a *APIKey) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Active reports whether the key may still be used to authenticate.
func (a *APIKey) Active(now time.Time) bool {
	if a.Disabled {
		return false
	}
	if a.ExpirationDate != nil && !a.ExpirationDate.After(now) {
		return false
	}
	return true
}

func (APIKey) TableName() string {
	return "api_keys"
}
