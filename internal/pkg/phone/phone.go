// Package phone normalizes client phone numbers to a canonical 10-digit form.
package phone

import (
	"errors"
	"regexp"
)

var ErrInvalid = errors.New("invalid phone number")

var nonDigits = regexp.MustCompile(`\D`)

// Normalize strips formatting and a leading country code 1.
// "(416) 555-0100", "+1 416 555 0100" and "4165550100" all yield "4165550100".
func Normalize(raw string) (string, error) {
	digits := nonDigits.ReplaceAllString(raw, "")
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return "", ErrInvalid
	}
	return digits, nil
}
