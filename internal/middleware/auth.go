package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aman-churiwal/auth-gateway/internal/autherr"
	"github.com/aman-churiwal/auth-gateway/internal/config"
	"github.com/aman-churiwal/auth-gateway/internal/models"
	"github.com/aman-churiwal/auth-gateway/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const userContextKey = "current_user"

type TokenValidator interface {
	Validate(token string) (*service.SessionClaims, error)
}

type IdentityStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type Limiter interface {
	CheckAndIncrement(ctx context.Context, userID uuid.UUID, tierLevel int) error
}

type UsageQueue interface {
	Enqueue(userID uuid.UUID, path string)
}

// Gate is the authorization middleware: token extraction and validation,
// identity resolution, role check, rate limit, usage accounting, in that
// order. Every failure is terminal and short-circuits the rest; in
// particular a rate-limited request never records usage, because it is never
// forwarded.
type Gate struct {
	tokens  TokenValidator
	users   IdentityStore
	limiter Limiter
	usage   UsageQueue
	jwtCfg  config.JWTConfig
	logger  *zap.Logger
}

func NewGate(tokens TokenValidator, users IdentityStore, limiter Limiter, usage UsageQueue, jwtCfg config.JWTConfig, logger *zap.Logger) *Gate {
	return &Gate{
		tokens:  tokens,
		users:   users,
		limiter: limiter,
		usage:   usage,
		jwtCfg:  jwtCfg,
		logger:  logger,
	}
}

// RequireRoles guards a route group with an allow-list over the role enum.
func (g *Gate) RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := models.NewRoleSet(roles...)

	return func(c *gin.Context) {
		token, err := ExtractToken(c, g.jwtCfg)
		if err != nil {
			g.reject(c, err, "")
			return
		}

		claims, err := g.tokens.Validate(token)
		if err != nil {
			g.reject(c, err, "")
			return
		}

		ctx := c.Request.Context()

		user, err := g.users.FindByEmail(ctx, claims.Subject)
		if err != nil {
			g.logger.Error("identity lookup failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			g.reject(c, autherr.ErrUnknownIdentity, "")
			return
		}
		if user == nil {
			// Same rejection as an invalid token so callers cannot probe
			// which subjects exist.
			g.reject(c, autherr.ErrUnknownIdentity, "")
			return
		}

		if !allowed.Contains(user.RoleLevel) {
			g.reject(c, autherr.ErrInsufficientRole, user.ID.String())
			return
		}

		if err := g.limiter.CheckAndIncrement(ctx, user.ID, user.TierLevel); err != nil {
			g.reject(c, err, user.ID.String())
			return
		}

		g.usage.Enqueue(user.ID, c.Request.URL.Path)

		c.Set(userContextKey, user)
		c.Next()
	}
}

func (g *Gate) reject(c *gin.Context, err error, userID string) {
	var authErr *autherr.Error
	if !errors.As(err, &authErr) {
		authErr = autherr.ErrStoreUnavailable
	}

	fields := []zap.Field{
		zap.String("kind", string(authErr.Kind)),
		zap.String("path", c.Request.URL.Path),
	}
	if userID != "" {
		fields = append(fields, zap.String("user_id", userID))
	}
	g.logger.Warn("request rejected", fields...)

	c.JSON(authErr.Status, gin.H{"error": authErr.Message})
	c.Abort()
}

// CurrentUser returns the identity resolved by the gate for this request.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(userContextKey)
	if !exists {
		return nil, false
	}

	user, ok := v.(*models.User)
	return user, ok
}

// ExtractToken pulls the session token from the request. Header and cookie
// delivery follow configuration: when cookie auth is forced only the cookie
// is read; when merely allowed, the Authorization header wins and the cookie
// is the fallback; otherwise only the header is read.
func ExtractToken(c *gin.Context, cfg config.JWTConfig) (string, error) {
	fromHeader := func() string {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return ""
		}
		return strings.TrimSpace(token)
	}

	fromCookie := func() string {
		token, err := c.Cookie(cfg.CookieName)
		if err != nil {
			return ""
		}
		return token
	}

	var token string
	switch {
	case cfg.AllowCookieAuth && cfg.ForceCookieAuth:
		token = fromCookie()
	case cfg.AllowCookieAuth:
		token = fromHeader()
		if token == "" {
			token = fromCookie()
		}
	default:
		token = fromHeader()
	}

	if token == "" {
		return "", autherr.ErrMissingToken
	}

	return token, nil
}

// RespondAuthError writes a typed auth failure, falling back to a generic 500
// body for unexpected errors.
func RespondAuthError(c *gin.Context, err error) {
	var authErr *autherr.Error
	if errors.As(err, &authErr) {
		c.JSON(authErr.Status, gin.H{"error": authErr.Message})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error."})
}
