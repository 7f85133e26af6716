package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/aman-churiwal/auth-gateway/internal/autherr"
	"github.com/aman-churiwal/auth-gateway/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the validated payload of a session token. Lifetime is
// fixed at issuance; there is no refresh and no revocation list.
type SessionClaims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Issuer    string
	Audience  string
}

// TokenService issues and validates HS256-signed session tokens.
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
	lifetime time.Duration
	leeway   time.Duration
	clock    func() time.Time
}

func NewTokenService(cfg config.JWTConfig) *TokenService {
	return &TokenService{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		lifetime: cfg.Lifetime,
		leeway:   cfg.Leeway,
		clock:    time.Now,
	}
}

// Issue signs a token for the given subject with the configured issuer,
// audience, and lifetime.
func (s *TokenService) Issue(subject string) (string, error) {
	now := s.clock()

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{s.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Validate verifies signature, issuer, audience, and expiry (with leeway for
// clock skew) and returns the claims. Failures come back as the typed
// autherr values so callers can log the distinction while answering 401.
func (s *TokenService) Validate(tokenString string) (*SessionClaims, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.clock),
	)
	if err != nil {
		return nil, mapTokenError(err)
	}

	result := &SessionClaims{
		Subject: claims.Subject,
		Issuer:  claims.Issuer,
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}
	if len(claims.Audience) > 0 {
		result.Audience = claims.Audience[0]
	}

	return result, nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return autherr.ErrMalformedToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return autherr.ErrBadSignature
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
		return autherr.ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return autherr.ErrWrongIssuerAudience
	default:
		return autherr.ErrMalformedToken
	}
}
