package password

import (
	"errors"
	"unicode"
)

// ErrWeak is returned when a password fails the strength policy.
var ErrWeak = errors.New("password must be at least 8 characters long, include uppercase, lowercase, 2 numbers, and a special character")

// Validate enforces the account password policy: at least 8 characters,
// at least one uppercase and one lowercase letter, at least two digits and
// one special character.
func Validate(pw string) error {
	var upper, lower, digits, special int
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper++
		case unicode.IsLower(r):
			lower++
		case unicode.IsDigit(r):
			digits++
		default:
			special++
		}
	}
	if len(pw) < 8 || upper < 1 || lower < 1 || digits < 2 || special < 1 {
		return ErrWeak
	}
	return nil
}
