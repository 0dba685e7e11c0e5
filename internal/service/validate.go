package service

import (
	"regexp"
	"strings"

	"github.com/readypixelgo/venue-booking/internal/apperr"
	"github.com/readypixelgo/venue-booking/internal/slot"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like local@domain.tld.
func ValidEmail(s string) bool { return emailPattern.MatchString(s) }

// PhoneDigits strips everything but digits from s.
func PhoneDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidPhone reports whether s has 6 to 15 digits once separators are
// removed.
func ValidPhone(s string) bool {
	n := len(PhoneDigits(s))
	return n >= 6 && n <= 15
}

func checkSlot(label string) error {
	if !slot.IsCanonical(label) {
		return apperr.Validation("time slot is not offered")
	}
	return nil
}

func checkContact(email, phone string) error {
	if !ValidEmail(email) {
		return apperr.Validation("email address is invalid")
	}
	if !ValidPhone(phone) {
		return apperr.Validation("phone number must have 6 to 15 digits")
	}
	return nil
}
