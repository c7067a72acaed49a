// Package validation contains input validation rules shared by handlers.
package validation

import (
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	maxEmailLen    = 254
	maxNicknameLen = 60
	maxTitleLen    = 2000
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt input limit
)

// ValidateEmail checks RFC 5322 address shape and length.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("invalid_email_format")
	}
	if len(email) > maxEmailLen {
		return errors.New("invalid_email_format")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("invalid_email_format")
	}
	return nil
}

// ValidatePassword enforces minimal password strength.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLen {
		return errors.New("invalid_password_format")
	}
	if len(password) > maxPasswordLen {
		return errors.New("invalid_password_format")
	}
	return nil
}

// ValidateNickname rejects empty or oversized nicknames.
func ValidateNickname(nickname string) error {
	if strings.TrimSpace(nickname) == "" {
		return errors.New("invalid_request")
	}
	if utf8.RuneCountInString(nickname) > maxNicknameLen {
		return errors.New("invalid_request")
	}
	return nil
}

// ValidateTitle rejects empty titles and titles over the 2000-character cap.
func ValidateTitle(title string) error {
	if title == "" {
		return errors.New("invalid_request")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return errors.New("invalid_request")
	}
	return nil
}
