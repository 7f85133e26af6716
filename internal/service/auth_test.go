package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aman-churiwal/auth-gateway/internal/autherr"
	"github.com/aman-churiwal/auth-gateway/internal/models"
)

type fakeUserStore struct {
	byEmail map[string]*models.User
	err     error
}

func (f *fakeUserStore) Create(_ context.Context, user *models.User) error {
	if f.err != nil {
		return f.err
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.byEmail[user.Email] = user
	return nil
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byEmail[email], nil
}

type fakeKeyStore struct {
	keys map[uuid.UUID][]models.APIKey
	err  error
}

func (f *fakeKeyStore) Create(_ context.Context, key *models.APIKey) error {
	if f.err != nil {
		return f.err
	}
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	f.keys[key.UserID] = append(f.keys[key.UserID], *key)
	return nil
}

func (f *fakeKeyStore) FindByID(_ context.Context, id, userID uuid.UUID) (*models.APIKey, error) {
	for _, key := range f.keys[userID] {
		if key.ID == id {
			k := key
			return &k, nil
		}
	}
	return nil, nil
}

func (f *fakeKeyStore) ListActiveByUser(_ context.Context, userID uuid.UUID) ([]models.APIKey, error) {
	if f.err != nil {
		return nil, f.err
	}
	now := time.Now()
	var active []models.APIKey
	for _, key := range f.keys[userID] {
		if key.Active(now) {
			active = append(active, key)
		}
	}
	return active, nil
}

func (f *fakeKeyStore) ListByUser(_ context.Context, userID uuid.UUID) ([]models.APIKey, error) {
	return f.keys[userID], nil
}

func (f *fakeKeyStore) Disable(_ context.Context, id, userID uuid.UUID) (int64, error) {
	for i, key := range f.keys[userID] {
		if key.ID == id && !key.Disabled {
			f.keys[userID][i].Disabled = true
			return 1, nil
		}
	}
	return 0, nil
}

type authFixture struct {
	svc      *AuthService
	users    *fakeUserStore
	keys     *fakeKeyStore
	verifier *CredentialVerifier
	totp     *TOTPValidator
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	users := &fakeUserStore{byEmail: make(map[string]*models.User)}
	keys := &fakeKeyStore{keys: make(map[uuid.UUID][]models.APIKey)}
	verifier := NewCredentialVerifier(testArgon2Config())
	t.Cleanup(verifier.Close)
	totp := NewTOTPValidator()
	tokens := NewTokenService(testJWTConfig())

	return &authFixture{
		svc:      NewAuthService(users, keys, verifier, totp, tokens, zap.NewNop()),
		users:    users,
		keys:     keys,
		verifier: verifier,
		totp:     totp,
	}
}

func (f *authFixture) addUser(t *testing.T, email, password string) *models.User {
	t.Helper()

	hash, err := f.verifier.Hash(password)
	require.NoError(t, err)

	user := &models.User{
		ID:           uuid.New(),
		Username:     "alice",
		Email:        email,
		PasswordHash: hash,
		RoleLevel:    models.RoleUser,
		TierLevel:    1,
	}
	f.users.byEmail[email] = user
	return user
}

func TestLoginWithPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.addUser(t, "alice@example.com", "Sup3r-secret")

	token, user, err := f.svc.Login(context.Background(), "alice@example.com", "Sup3r-secret", "")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestLoginWithAPIKey(t *testing.T) {
	f := newAuthFixture(t)
	user := f.addUser(t, "alice@example.com", "Sup3r-secret")

	plaintext := "11111111-22222222-33333333-44444444-55555555"
	keyHash, err := f.verifier.Hash(plaintext)
	require.NoError(t, err)
	f.keys.keys[user.ID] = []models.APIKey{{ID: uuid.New(), UserID: user.ID, KeyHash: keyHash}}

	token, _, err := f.svc.Login(context.Background(), "alice@example.com", plaintext, "")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestLoginUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, _, err := f.svc.Login(context.Background(), "nobody@example.com", "whatever", "")
	assert.ErrorIs(t, err, autherr.ErrBadCredentials)
}

func TestLoginWrongSecret(t *testing.T) {
	f := newAuthFixture(t)
	f.addUser(t, "alice@example.com", "Sup3r-secret")

	_, _, err := f.svc.Login(context.Background(), "alice@example.com", "not the password", "")
	assert.ErrorIs(t, err, autherr.ErrBadCredentials)
}

func TestLoginDisabledKeyIsRejected(t *testing.T) {
	f := newAuthFixture(t)
	user := f.addUser(t, "alice@example.com", "Sup3r-secret")

	plaintext := "aaaaaaaa-bbbbbbbb-cccccccc-dddddddd-eeeeeeee"
	keyHash, err := f.verifier.Hash(plaintext)
	require.NoError(t, err)
	f.keys.keys[user.ID] = []models.APIKey{{ID: uuid.New(), UserID: user.ID, KeyHash: keyHash, Disabled: true}}

	_, _, err = f.svc.Login(context.Background(), "alice@example.com", plaintext, "")
	assert.ErrorIs(t, err, autherr.ErrBadCredentials)
}

func TestLoginRequiresTOTPWhenEnrolled(t *testing.T) {
	f := newAuthFixture(t)
	user := f.addUser(t, "alice@example.com", "Sup3r-secret")

	secret := testTOTPSecret
	user.TOTPSecret = &secret

	_, _, err := f.svc.Login(context.Background(), "alice@example.com", "Sup3r-secret", "")
	assert.ErrorIs(t, err, autherr.ErrSecondFactorRequired)
}

func TestLoginWithTOTP(t *testing.T) {
	f := newAuthFixture(t)
	user := f.addUser(t, "alice@example.com", "Sup3r-secret")

	secret := testTOTPSecret
	user.TOTPSecret = &secret

	now := time.Date(2026, 3, 1, 12, 0, 15, 0, time.UTC)
	f.totp.clock = func() time.Time { return now }

	token, _, err := f.svc.Login(context.Background(), "alice@example.com", "Sup3r-secret", codeAt(t, secret, now))
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestLoginRejectsBadTOTP(t *testing.T) {
	f := newAuthFixture(t)
	user := f.addUser(t, "alice@example.com", "Sup3r-secret")

	secret := testTOTPSecret
	user.TOTPSecret = &secret

	_, _, err := f.svc.Login(context.Background(), "alice@example.com", "Sup3r-secret", "00000000")
	assert.ErrorIs(t, err, autherr.ErrSecondFactorInvalid)
}

func TestSignupCreatesUserAtDefaults(t *testing.T) {
	f := newAuthFixture(t)

	user, err := f.svc.Signup(context.Background(), "alice", "alice@example.com", "Sup3r-secret!")
	require.NoError(t, err)

	assert.Equal(t, models.RoleUser, user.RoleLevel)
	assert.Equal(t, 1, user.TierLevel)
	assert.NotEqual(t, "Sup3r-secret!", user.PasswordHash)

	ok, err := f.verifier.Verify("Sup3r-secret!", user.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.addUser(t, "alice@example.com", "Sup3r-secret")

	_, err := f.svc.Signup(context.Background(), "alice2", "alice@example.com", "An0ther-secret!")
	assert.Error(t, err)
}

func TestSignupRejectsWeakPassword(t *testing.T) {
	f := newAuthFixture(t)

	for _, password := range []string{"short1!", "nouppercase1!", "NOLOWERCASE1!", "NoDigits!!", "NoSpecials123"} {
		_, err := f.svc.Signup(context.Background(), "alice", "alice@example.com", password)
		assert.Error(t, err, "password %q", password)
	}
}

func TestSignupRejectsBadUsername(t *testing.T) {
	f := newAuthFixture(t)

	for _, username := range []string{"", "has space", "ünïcode", "semi;colon"} {
		_, err := f.svc.Signup(context.Background(), username, "alice@example.com", "Sup3r-secret!")
		assert.Error(t, err, "username %q", username)
	}
}

func TestLoginStoreFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.users.err = errors.New("connection refused")

	_, _, err := f.svc.Login(context.Background(), "alice@example.com", "whatever", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, autherr.ErrBadCredentials)
}
