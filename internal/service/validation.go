package service

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

const passwordSpecials = `!@#$%^&*()_+-=[]{};:'"\|,.<>/?`

func ValidateUsername(username string) error {
	if username == "" || !usernameRe.MatchString(username) {
		return errors.New("invalid username: only alphanumeric characters, dashes, and underscores are allowed")
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password too short: minimum length is 8 characters")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		}
	}

	switch {
	case !hasUpper:
		return errors.New("password must contain an uppercase letter")
	case !hasLower:
		return errors.New("password must contain a lowercase letter")
	case !hasDigit:
		return errors.New("password must contain a number")
	case !hasSpecial:
		return errors.New("password must contain at least one special character")
	}

	return nil
}
