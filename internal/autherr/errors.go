// Package autherr defines the typed rejection taxonomy shared by the token
// service, rate limiter, and authorization middleware. Every terminal gate
// failure is one of these kinds; callers map each to an HTTP status and a
// machine-readable body.
package autherr

import "net/http"

type Kind string

const (
	KindMissingToken         Kind = "missing_token"
	KindMalformedToken       Kind = "malformed_token"
	KindBadSignature         Kind = "bad_signature"
	KindExpiredToken         Kind = "expired_token"
	KindWrongIssuerAudience  Kind = "wrong_issuer_or_audience"
	KindUnknownIdentity      Kind = "unknown_identity"
	KindInsufficientRole     Kind = "insufficient_role"
	KindRateLimitExceeded    Kind = "rate_limit_exceeded"
	KindStoreUnavailable     Kind = "durable_store_unavailable"
	KindBadCredentials       Kind = "bad_credentials"
	KindSecondFactorRequired Kind = "second_factor_required"
	KindSecondFactorInvalid  Kind = "second_factor_invalid"
)

// Error carries the rejection kind, the HTTP status it maps to, and the
// message returned to the caller. Message wording is part of the contract:
// token-validity and identity-lookup failures deliberately share the same
// text so callers cannot enumerate accounts.
type Error struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrMissingToken = &Error{KindMissingToken, http.StatusUnauthorized, "Authorization token missing."}

	ErrMalformedToken      = &Error{KindMalformedToken, http.StatusUnauthorized, "Invalid or expired token."}
	ErrBadSignature        = &Error{KindBadSignature, http.StatusUnauthorized, "Invalid or expired token."}
	ErrExpiredToken        = &Error{KindExpiredToken, http.StatusUnauthorized, "Invalid or expired token."}
	ErrWrongIssuerAudience = &Error{KindWrongIssuerAudience, http.StatusUnauthorized, "Invalid or expired token."}
	ErrUnknownIdentity     = &Error{KindUnknownIdentity, http.StatusUnauthorized, "Invalid or expired token."}

	ErrInsufficientRole  = &Error{KindInsufficientRole, http.StatusForbidden, "Forbidden: insufficient role."}
	ErrRateLimitExceeded = &Error{KindRateLimitExceeded, http.StatusTooManyRequests, "Rate limit exceeded."}
	ErrStoreUnavailable  = &Error{KindStoreUnavailable, http.StatusInternalServerError, "Internal server error."}

	ErrBadCredentials       = &Error{KindBadCredentials, http.StatusUnauthorized, "Incorrect credentials."}
	ErrSecondFactorRequired = &Error{KindSecondFactorRequired, http.StatusBadRequest, "2FA code required for this account."}
	ErrSecondFactorInvalid  = &Error{KindSecondFactorInvalid, http.StatusUnauthorized, "Invalid 2FA code."}
)
