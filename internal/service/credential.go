package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aman-churiwal/auth-gateway/internal/cache"
	"github.com/aman-churiwal/auth-gateway/internal/config"
	"github.com/aman-churiwal/auth-gateway/internal/models"
	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/errgroup"
)

const argon2id = "argon2id"

// CredentialVerifier hashes and verifies secrets with Argon2id. Verification
// is deliberately expensive, so successful outcomes are memoized in a short
// TTL cache keyed by a digest of (secret, hash). Failures are never cached:
// a rotated credential must start failing immediately.
type CredentialVerifier struct {
	cfg   config.Argon2Config
	memo  *cache.TTL[string, bool]
	clock func() time.Time
}

func NewCredentialVerifier(cfg config.Argon2Config) *CredentialVerifier {
	return &CredentialVerifier{
		cfg:   cfg,
		memo:  cache.New[string, bool](cfg.VerifyCacheTTL, cfg.VerifyCacheTTL),
		clock: time.Now,
	}
}

func (v *CredentialVerifier) Close() {
	v.memo.Close()
}

// Hash derives an Argon2id PHC string with a fresh random salt. Two calls
// with the same secret produce different outputs.
func (v *CredentialVerifier) Hash(secret string) (string, error) {
	salt := make([]byte, v.cfg.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(secret), salt, v.cfg.Iterations, v.cfg.MemoryKiB, v.cfg.Parallelism, v.cfg.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2id,
		argon2.Version,
		v.cfg.MemoryKiB,
		v.cfg.Iterations,
		v.cfg.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify compares a plaintext secret against a stored PHC hash. A mismatch is
// a normal (false, nil) outcome; only a malformed stored hash is an error.
func (v *CredentialVerifier) Verify(secret, encodedHash string) (bool, error) {
	memoKey := verifyMemoKey(secret, encodedHash)
	if ok, hit := v.memo.Get(memoKey); hit && ok {
		return true, nil
	}

	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(secret), parsed.salt, parsed.iterations, parsed.memoryKiB, parsed.parallelism, uint32(len(parsed.key)))

	if subtle.ConstantTimeCompare(computed, parsed.key) != 1 {
		return false, nil
	}

	v.memo.Set(memoKey, true)
	return true, nil
}

// VerifyAny checks the secret against the primary password hash and every
// active API key concurrently. The credential is valid if any check passes.
// A malformed primary hash is an error; a malformed key hash only disqualifies
// that key.
func (v *CredentialVerifier) VerifyAny(ctx context.Context, secret, primaryHash string, keys []models.APIKey) (bool, error) {
	now := v.clock()

	var matched atomic.Bool
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		ok, err := v.Verify(secret, primaryHash)
		if err != nil {
			return err
		}
		if ok {
			matched.Store(true)
		}
		return nil
	})

	for _, key := range keys {
		if !key.Active(now) {
			continue
		}

		hash := key.KeyHash
		g.Go(func() error {
			if ok, err := v.Verify(secret, hash); err == nil && ok {
				matched.Store(true)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return false, err
	}

	return matched.Load(), nil
}

func verifyMemoKey(secret, encodedHash string) string {
	sum := sha256.Sum256([]byte(secret + "\x00" + encodedHash))
	return hex.EncodeToString(sum[:])
}

type phcHash struct {
	memoryKiB   uint32
	iterations  uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func parsePHC(encoded string) (*phcHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("malformed password hash")
	}
	if parts[1] != argon2id {
		return nil, errors.New("unsupported hash algorithm")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, errors.New("malformed password hash version")
	}
	if version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	params, err := parsePHCParams(parts[3])
	if err != nil {
		return nil, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, errors.New("malformed password hash salt")
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, errors.New("malformed password hash key")
	}

	params.salt = salt
	params.key = key
	return params, nil
}

func parsePHCParams(part string) (*phcHash, error) {
	pairs := strings.Split(part, ",")
	if len(pairs) != 3 {
		return nil, errors.New("malformed password hash parameters")
	}

	parsed := &phcHash{}
	for _, pair := range pairs {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, errors.New("malformed password hash parameters")
		}

		switch kv[0] {
		case "m":
			n, err := strconv.ParseUint(kv[1], 10, 32)
			if err != nil {
				return nil, errors.New("malformed memory parameter")
			}
			parsed.memoryKiB = uint32(n)
		case "t":
			n, err := strconv.ParseUint(kv[1], 10, 32)
			if err != nil {
				return nil, errors.New("malformed time parameter")
			}
			parsed.iterations = uint32(n)
		case "p":
			n, err := strconv.ParseUint(kv[1], 10, 8)
			if err != nil {
				return nil, errors.New("malformed parallelism parameter")
			}
			parsed.parallelism = uint8(n)
		default:
			return nil, errors.New("unknown password hash parameter")
		}
	}

	if parsed.memoryKiB == 0 || parsed.iterations == 0 || parsed.parallelism == 0 {
		return nil, errors.New("incomplete password hash parameters")
	}

	return parsed, nil
}
