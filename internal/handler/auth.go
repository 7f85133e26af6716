package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aman-churiwal/auth-gateway/internal/config"
	"github.com/aman-churiwal/auth-gateway/internal/middleware"
	"github.com/aman-churiwal/auth-gateway/internal/service"
	"github.com/aman-churiwal/auth-gateway/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const validateCacheTTL = 30 * time.Second

type AuthHandler struct {
	auth         *service.AuthService
	tokens       *service.TokenService
	redis        *storage.RedisClient
	jwtCfg       config.JWTConfig
	httpsEnabled bool
	logger       *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, tokens *service.TokenService, redis *storage.RedisClient, jwtCfg config.JWTConfig, httpsEnabled bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		tokens:       tokens,
		redis:        redis,
		jwtCfg:       jwtCfg,
		httpsEnabled: httpsEnabled,
		logger:       logger,
	}
}

// Login authenticates with email plus password or API-key secret, optionally
// a TOTP code, and returns a session token. Depending on configuration the
// token is also (or only) delivered as an HttpOnly cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
		TOTP     string `json:"totp"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, user, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, req.TOTP)
	if err != nil {
		middleware.RespondAuthError(c, err)
		return
	}

	h.logger.Debug("user signed in", zap.String("user_id", user.ID.String()))

	// Tokens must never land in shared caches.
	c.Header("Cache-Control", "no-store")

	if h.jwtCfg.AllowCookieAuth || h.jwtCfg.ForceCookieAuth {
		h.setAuthCookie(c, token)
	}

	if h.jwtCfg.ForceCookieAuth {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	c.Header("Authorization", "Bearer "+token)
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
	})
}

func (h *AuthHandler) setAuthCookie(c *gin.Context, token string) {
	sameSite, secure := h.cookieFlags()

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.jwtCfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   h.jwtCfg.CookieMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	})
}

// cookieFlags resolves the configured SameSite mode. SameSite=None is only
// honored over HTTPS; anything else falls back to Lax.
func (h *AuthHandler) cookieFlags() (http.SameSite, bool) {
	switch mode := h.jwtCfg.CookieSameSite; mode {
	case "None", "none":
		if h.httpsEnabled {
			return http.SameSiteNoneMode, true
		}
		h.logger.Warn("SameSite=None requires HTTPS, falling back to Lax")
		return http.SameSiteLaxMode, false
	case "Strict", "strict":
		return http.SameSiteStrictMode, false
	case "Lax", "lax":
		return http.SameSiteLaxMode, false
	default:
		h.logger.Warn("invalid SameSite value, using Lax", zap.String("value", mode))
		return http.SameSiteLaxMode, false
	}
}

// Signup registers a user at the default role and tier.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.auth.Signup(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Validate checks the presented token and returns its claims. Recent results
// are cached in redis keyed by a token digest so bursts of validation calls
// skip signature checks.
func (h *AuthHandler) Validate(c *gin.Context) {
	token, err := middleware.ExtractToken(c, h.jwtCfg)
	if err != nil {
		middleware.RespondAuthError(c, err)
		return
	}

	digest := sha256.Sum256([]byte(token))
	cacheKey := "token:valid:" + hex.EncodeToString(digest[:])

	ctx := c.Request.Context()
	if h.redis != nil {
		if cached, err := h.redis.Get(ctx, cacheKey); err == nil && cached != "" {
			var body gin.H
			if err := json.Unmarshal([]byte(cached), &body); err == nil {
				c.JSON(http.StatusOK, body)
				return
			}
		}
	}

	claims, err := h.tokens.Validate(token)
	if err != nil {
		middleware.RespondAuthError(c, err)
		return
	}

	body := gin.H{
		"subject":    claims.Subject,
		"issuer":     claims.Issuer,
		"audience":   claims.Audience,
		"issued_at":  claims.IssuedAt.Unix(),
		"expires_at": claims.ExpiresAt.Unix(),
	}

	if h.redis != nil {
		if encoded, err := json.Marshal(body); err == nil {
			if err := h.redis.Set(ctx, cacheKey, encoded, validateCacheTTL); err != nil {
				h.logger.Debug("failed to cache token validation", zap.Error(err))
			}
		}
	}

	c.JSON(http.StatusOK, body)
}

// Protected returns the identity resolved by the gate; it is the canonical
// downstream consumer of the middleware.
func (h *AuthHandler) Protected(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token."})
		return
	}

	c.JSON(http.StatusOK, user)
}
