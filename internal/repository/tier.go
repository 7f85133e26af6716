package repository

import (
	"context"
	"fmt"

	"github.com/aman-churiwal/auth-gateway/internal/models"
	"github.com/aman-churiwal/auth-gateway/internal/storage"
)

type TierRepository struct {
	db *storage.Postgres
}

func NewTierRepository(db *storage.Postgres) *TierRepository {
	return &TierRepository{db: db}
}

// RequestsPerDay returns the daily quota for a tier level. An unknown level
// is an error: the rate limiter fails closed rather than guessing a limit.
func (r *TierRepository) RequestsPerDay(ctx context.Context, level int) (int, error) {
	var tier models.Tier
	err := r.db.DB.WithContext(ctx).
		Where("level = ?", level).
		First(&tier).Error

	if err != nil {
		return 0, fmt.Errorf("failed to fetch tier %d: %w", level, err)
	}

	return tier.RequestsPerDay, nil
}

func (r *TierRepository) List(ctx context.Context) ([]models.Tier, error) {
	var tiers []models.Tier
	err := r.db.DB.WithContext(ctx).
		Order("level ASC").
		Find(&tiers).Error

	return tiers, err
}
