package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aman-churiwal/auth-gateway/internal/models"
)

var keyFormatRe = regexp.MustCompile(`^[0-9a-f]{8}(-[0-9a-f]{8}){4}$`)

func newAPIKeyFixture(t *testing.T) (*APIKeyService, *fakeKeyStore, *CredentialVerifier) {
	t.Helper()

	keys := &fakeKeyStore{keys: make(map[uuid.UUID][]models.APIKey)}
	verifier := NewCredentialVerifier(testArgon2Config())
	t.Cleanup(verifier.Close)

	return NewAPIKeyService(keys, verifier, zap.NewNop()), keys, verifier
}

func TestAPIKeyCreate(t *testing.T) {
	svc, keys, verifier := newAPIKeyFixture(t)
	userID := uuid.New()

	secret, key, err := svc.Create(context.Background(), userID, "ci pipeline", nil)
	require.NoError(t, err)

	assert.Regexp(t, keyFormatRe, secret)
	assert.Equal(t, userID, key.UserID)
	assert.Equal(t, "ci pipeline", key.Description)
	require.NotNil(t, key.ExpirationDate)
	assert.True(t, key.ExpirationDate.After(time.Now().Add(700*24*time.Hour)))

	// Only the hash is stored, and it verifies against the plaintext.
	require.Len(t, keys.keys[userID], 1)
	ok, err := verifier.Verify(secret, key.KeyHash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotContains(t, key.KeyHash, secret)
}

func TestAPIKeyCreateRejectsPastExpiry(t *testing.T) {
	svc, _, _ := newAPIKeyFixture(t)

	past := time.Now().Add(-time.Hour)
	_, _, err := svc.Create(context.Background(), uuid.New(), "stale", &past)
	assert.ErrorIs(t, err, ErrPastExpiry)
}

func TestAPIKeyRotate(t *testing.T) {
	svc, keys, _ := newAPIKeyFixture(t)
	userID := uuid.New()

	_, oldKey, err := svc.Create(context.Background(), userID, "original", nil)
	require.NoError(t, err)

	secret, newKey, err := svc.Rotate(context.Background(), userID, oldKey.ID, "", nil)
	require.NoError(t, err)

	assert.Regexp(t, keyFormatRe, secret)
	assert.NotEqual(t, oldKey.ID, newKey.ID)
	assert.Contains(t, newKey.Description, oldKey.ID.String())

	stored := keys.keys[userID]
	require.Len(t, stored, 2)
	for _, key := range stored {
		if key.ID == oldKey.ID {
			assert.True(t, key.Disabled)
		} else {
			assert.False(t, key.Disabled)
		}
	}
}

func TestAPIKeyRotateUnknownKey(t *testing.T) {
	svc, _, _ := newAPIKeyFixture(t)

	_, _, err := svc.Rotate(context.Background(), uuid.New(), uuid.New(), "", nil)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestAPIKeyRotateDisabledKey(t *testing.T) {
	svc, keys, _ := newAPIKeyFixture(t)
	userID := uuid.New()

	_, key, err := svc.Create(context.Background(), userID, "original", nil)
	require.NoError(t, err)
	_, err = keys.Disable(context.Background(), key.ID, userID)
	require.NoError(t, err)

	_, _, err = svc.Rotate(context.Background(), userID, key.ID, "", nil)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestAPIKeyDisable(t *testing.T) {
	svc, _, _ := newAPIKeyFixture(t)
	userID := uuid.New()

	_, key, err := svc.Create(context.Background(), userID, "to disable", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Disable(context.Background(), key.ID, userID))

	// A second disable finds nothing live.
	assert.ErrorIs(t, svc.Disable(context.Background(), key.ID, userID), ErrKeyNotFound)
}

func TestAPIKeyDisableIsScopedToOwner(t *testing.T) {
	svc, _, _ := newAPIKeyFixture(t)
	owner := uuid.New()

	_, key, err := svc.Create(context.Background(), owner, "mine", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Disable(context.Background(), key.ID, uuid.New()), ErrKeyNotFound)
}
