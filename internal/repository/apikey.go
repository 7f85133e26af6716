package repository

import (
	"context"
	"time"

	"github.com/aman-churiwal/auth-gateway/internal/models"
	"github.com/aman-churiwal/auth-gateway/internal/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type APIKeyRepository struct {
	db *storage.Postgres
}

func NewAPIKeyRepository(db *storage.Postgres) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) Create(ctx context.Context, apiKey *models.APIKey) error {
	return r.db.DB.WithContext(ctx).Create(apiKey).Error
}

// Retrieves a key by id, scoped to its owner.
func (r *APIKeyRepository) FindByID(ctx context.Context, id, userID uuid.UUID) (*models.APIKey, error) {
	var apiKey models.APIKey
	err := r.db.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&apiKey).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &apiKey, err
}

// ListActiveByUser returns keys that are neither disabled nor expired.
func (r *APIKeyRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.APIKey, error) {
	var keys []models.APIKey
	err := r.db.DB.WithContext(ctx).
		Where("user_id = ? AND disabled = ? AND (expiration_date IS NULL OR expiration_date > ?)",
			userID, false, time.Now().UTC()).
		Find(&keys).Error

	return keys, err
}

func (r *APIKeyRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.APIKey, error) {
	var keys []models.APIKey
	err := r.db.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&keys).Error

	return keys, err
}

// Disable marks a key unusable and reports how many rows changed, so callers
// can tell an already-disabled key from a successful disable.
func (r *APIKeyRepository) Disable(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	result := r.db.DB.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("id = ? AND user_id = ? AND disabled = ?", id, userID, false).
		Update("disabled", true)

	return result.RowsAffected, result.Error
}
