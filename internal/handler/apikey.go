package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/aman-churiwal/auth-gateway/internal/middleware"
	"github.com/aman-churiwal/auth-gateway/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type APIKeyHandler struct {
	service *service.APIKeyService
}

func NewAPIKeyHandler(service *service.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{service: service}
}

type apiKeyRequest struct {
	Description    string `json:"description"`
	ExpirationDate string `json:"expiration_date"` // YYYY-MM-DD
}

func (r apiKeyRequest) expiry() (*time.Time, error) {
	if r.ExpirationDate == "" {
		return nil, nil
	}

	parsed, err := time.Parse("2006-01-02", r.ExpirationDate)
	if err != nil {
		return nil, errors.New("invalid expiration date format, use YYYY-MM-DD")
	}
	return &parsed, nil
}

func (h *APIKeyHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token."})
		return
	}

	var req apiKeyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	expiry, err := req.expiry()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	secret, key, err := h.service.Create(c.Request.Context(), user.ID, req.Description, expiry)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrPastExpiry) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":              key.ID,
		"api_key":         secret,
		"description":     key.Description,
		"expiration_date": key.ExpirationDate,
		"message":         "Save this key - it won't be shown again",
	})
}

func (h *APIKeyHandler) Rotate(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token."})
		return
	}

	oldID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid API key identifier format"})
		return
	}

	// Body is optional on rotation; the service derives a description and
	// expiry when none are given.
	var req apiKeyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	expiry, err := req.expiry()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	secret, key, err := h.service.Rotate(c.Request.Context(), user.ID, oldID, req.Description, expiry)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrKeyNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrPastExpiry):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error."})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":              key.ID,
		"api_key":         secret,
		"description":     key.Description,
		"expiration_date": key.ExpirationDate,
		"rotated_from":    oldID,
	})
}

func (h *APIKeyHandler) List(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token."})
		return
	}

	keys, err := h.service.List(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error."})
		return
	}

	c.JSON(http.StatusOK, keys)
}

func (h *APIKeyHandler) Disable(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token."})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid API key identifier format"})
		return
	}

	if err := h.service.Disable(c.Request.Context(), id, user.ID); err != nil {
		if errors.Is(err, service.ErrKeyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "API key disabled"})
}
