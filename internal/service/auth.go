package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aman-churiwal/auth-gateway/internal/autherr"
	"github.com/aman-churiwal/auth-gateway/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type KeyStore interface {
	Create(ctx context.Context, key *models.APIKey) error
	FindByID(ctx context.Context, id, userID uuid.UUID) (*models.APIKey, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.APIKey, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.APIKey, error)
	Disable(ctx context.Context, id, userID uuid.UUID) (int64, error)
}

// AuthService orchestrates login and signup: credential verification (primary
// password or any active API key, checked concurrently), the optional TOTP
// second factor, and session token issuance.
type AuthService struct {
	users    UserStore
	keys     KeyStore
	verifier *CredentialVerifier
	totp     *TOTPValidator
	tokens   *TokenService
	logger   *zap.Logger
}

func NewAuthService(users UserStore, keys KeyStore, verifier *CredentialVerifier, totp *TOTPValidator, tokens *TokenService, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:    users,
		keys:     keys,
		verifier: verifier,
		totp:     totp,
		tokens:   tokens,
		logger:   logger,
	}
}

// Login authenticates by email plus secret, where the secret may be the
// account password or one of the caller's active API keys. When a TOTP secret
// is enrolled, a current code is also required. Returns a signed session
// token on success.
func (s *AuthService) Login(ctx context.Context, email, secret, totpCode string) (string, *models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return "", nil, autherr.ErrBadCredentials
	}

	keys, err := s.keys.ListActiveByUser(ctx, user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch api keys for user %s: %w", user.ID, err)
	}

	ok, err := s.verifier.VerifyAny(ctx, secret, user.PasswordHash, keys)
	if err != nil {
		s.logger.Warn("credential verification failed",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
		return "", nil, autherr.ErrBadCredentials
	}
	if !ok {
		return "", nil, autherr.ErrBadCredentials
	}

	if user.TOTPSecret != nil {
		if totpCode == "" {
			return "", nil, autherr.ErrSecondFactorRequired
		}

		valid, err := s.totp.Check(*user.TOTPSecret, totpCode)
		if err != nil {
			return "", nil, fmt.Errorf("failed to check totp for user %s: %w", user.ID, err)
		}
		if !valid {
			return "", nil, autherr.ErrSecondFactorInvalid
		}
	}

	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return token, user, nil
}

// Signup creates a user at the default role and tier after validating
// username and password shape.
func (s *AuthService) Signup(ctx context.Context, username, email, password string) (*models.User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if existing != nil {
		return nil, errors.New("user with this email already exists")
	}

	hash, err := s.verifier.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		RoleLevel:    models.RoleUser,
		TierLevel:    1,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}
