package security

import (
	"errors"
	"unicode"
)

const MinPasswordLength = 8

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordTooWeak  = errors.New("password must mix letters and digits")
)

// CheckStrength enforces the minimum policy applied to user-chosen passwords.
func CheckStrength(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return ErrPasswordTooWeak
	}
	return nil
}
