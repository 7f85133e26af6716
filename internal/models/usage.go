package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord is one authorized request, buffered in memory by the usage
// recorder and written to durable storage in batches. CreatedAt is stamped at
// flush time, not enqueue time.
type UsageRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Path      string    `gorm:"not null" json:"path"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (UsageRecord) TableName() string {
	return "usage_records"
}
