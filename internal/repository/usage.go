package repository

import (
	"context"
	"time"

	"github.com/aman-churiwal/auth-gateway/internal/models"
	"github.com/aman-churiwal/auth-gateway/internal/storage"
	"github.com/google/uuid"
)

type UsageRepository struct {
	db *storage.Postgres
}

func NewUsageRepository(db *storage.Postgres) *UsageRepository {
	return &UsageRepository{db: db}
}

// CountSince returns how many requests a user made after the given instant.
func (r *UsageRepository) CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.UsageRecord{}).
		Where("user_id = ? AND created_at > ?", userID, since).
		Count(&count).Error

	return count, err
}

// InsertBatch writes a drained usage batch in a single multi-row insert.
func (r *UsageRepository) InsertBatch(ctx context.Context, records []models.UsageRecord) error {
	if len(records) == 0 {
		return nil
	}

	return r.db.DB.WithContext(ctx).Create(&records).Error
}
