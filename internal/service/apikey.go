package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aman-churiwal/auth-gateway/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrKeyNotFound   = errors.New("api key not found or already disabled")
	ErrPastExpiry    = errors.New("expiration date must be in the future")
	defaultKeyExpiry = 2 * 365 * 24 * time.Hour
)

// APIKeyService issues, lists, and rotates API keys. Keys are random
// five-group hex strings; only their Argon2id hash is stored, so the
// plaintext is visible exactly once, in the create/rotate response.
type APIKeyService struct {
	keys     KeyStore
	verifier *CredentialVerifier
	logger   *zap.Logger
}

func NewAPIKeyService(keys KeyStore, verifier *CredentialVerifier, logger *zap.Logger) *APIKeyService {
	return &APIKeyService{
		keys:     keys,
		verifier: verifier,
		logger:   logger,
	}
}

// Create stores a new key for the user and returns the plaintext secret
// alongside the stored record. A nil expiration defaults to two years out.
func (s *APIKeyService) Create(ctx context.Context, userID uuid.UUID, description string, expiration *time.Time) (string, *models.APIKey, error) {
	expiry, err := resolveExpiry(expiration)
	if err != nil {
		return "", nil, err
	}

	secret, err := generateKey()
	if err != nil {
		return "", nil, err
	}

	hash, err := s.verifier.Hash(secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash api key: %w", err)
	}

	key := &models.APIKey{
		UserID:         userID,
		KeyHash:        hash,
		Description:    description,
		ExpirationDate: &expiry,
	}

	if err := s.keys.Create(ctx, key); err != nil {
		return "", nil, fmt.Errorf("failed to create api key: %w", err)
	}

	return secret, key, nil
}

// Rotate replaces an existing key: the new key is created first, then the old
// one is disabled. If disabling fails the new key is rolled back so the user
// never ends up with an extra live credential.
func (s *APIKeyService) Rotate(ctx context.Context, userID, oldID uuid.UUID, description string, expiration *time.Time) (string, *models.APIKey, error) {
	existing, err := s.keys.FindByID(ctx, oldID, userID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to look up api key: %w", err)
	}
	if existing == nil || existing.Disabled {
		return "", nil, ErrKeyNotFound
	}

	if description == "" {
		description = fmt.Sprintf("Rotated from key %s - %s", existing.ID, time.Now().UTC().Format("2006-01-02"))
	}

	secret, newKey, err := s.Create(ctx, userID, description, expiration)
	if err != nil {
		return "", nil, err
	}

	disabled, err := s.keys.Disable(ctx, oldID, userID)
	if err != nil || disabled == 0 {
		// Roll back the replacement so rotation is all-or-nothing.
		if _, rbErr := s.keys.Disable(ctx, newKey.ID, userID); rbErr != nil {
			s.logger.Error("failed to roll back rotated api key",
				zap.String("key_id", newKey.ID.String()),
				zap.Error(rbErr))
		}
		if err != nil {
			return "", nil, fmt.Errorf("failed to disable old api key: %w", err)
		}
		return "", nil, ErrKeyNotFound
	}

	return secret, newKey, nil
}

func (s *APIKeyService) List(ctx context.Context, userID uuid.UUID) ([]models.APIKey, error) {
	return s.keys.ListByUser(ctx, userID)
}

func (s *APIKeyService) Disable(ctx context.Context, id, userID uuid.UUID) error {
	disabled, err := s.keys.Disable(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("failed to disable api key: %w", err)
	}
	if disabled == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func resolveExpiry(expiration *time.Time) (time.Time, error) {
	if expiration == nil {
		return time.Now().UTC().Add(defaultKeyExpiry), nil
	}
	if !expiration.After(time.Now()) {
		return time.Time{}, ErrPastExpiry
	}
	return expiration.UTC(), nil
}

// generateKey produces a secret of five dash-joined groups of eight hex
// characters, e.g. "1f2e3d4c-aabbccdd-00112233-44556677-8899aabb".
func generateKey() (string, error) {
	groups := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		raw := make([]byte, 4)
		if _, err := rand.Read(raw); err != nil {
			return "", fmt.Errorf("failed to generate api key: %w", err)
		}
		groups = append(groups, hex.EncodeToString(raw))
	}

	return strings.Join(groups, "-"), nil
}
