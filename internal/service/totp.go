package service

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	totpDigits      = 8
	totpPeriod      = 30 * time.Second
	totpSkew        = 1
	totpSecretBytes = 20
)

// TOTPValidator generates and checks time-based one-time codes: SHA-512 HOTP,
// eight digits, 30-second steps, one step of leeway in either direction.
type TOTPValidator struct {
	clock func() time.Time
}

func NewTOTPValidator() *TOTPValidator {
	return &TOTPValidator{clock: time.Now}
}

// GenerateSecret returns a fresh base32-encoded secret for enrollment.
func (t *TOTPValidator) GenerateSecret() (string, error) {
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate totp secret: %w", err)
	}

	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw), nil
}

// Check validates a supplied code against the stored base32 secret, accepting
// the current step and one step either side.
func (t *TOTPValidator) Check(secret, code string) (bool, error) {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != totpDigits || !isDigits(trimmed) {
		return false, nil
	}

	key, err := decodeTOTPSecret(secret)
	if err != nil {
		return false, err
	}

	counter := t.clock().Unix() / int64(totpPeriod/time.Second)
	for step := int64(-totpSkew); step <= totpSkew; step++ {
		at := counter + step
		if at < 0 {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(hotpCode(key, at)), []byte(trimmed)) == 1 {
			return true, nil
		}
	}

	return false, nil
}

func decodeTOTPSecret(secret string) ([]byte, error) {
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(secret))
	if err != nil {
		return nil, errors.New("malformed totp secret")
	}
	if len(key) == 0 {
		return nil, errors.New("empty totp secret")
	}
	return key, nil
}

func hotpCode(key []byte, counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha512.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < totpDigits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", totpDigits, bin%mod)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
