package utils

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashAccessCode returns a bcrypt digest suitable for ADMIN_ACCESS_CODE_HASH.
func HashAccessCode(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// verifyHash compares a bcrypt digest with a plain code.
func verifyHash(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// AccessCode checks the shared admin secret.  When a bcrypt hash is
// configured it is used; otherwise the plain code is compared in constant
// time.
type AccessCode struct {
	plain string
	hash  string
}

// NewAccessCode builds a checker from the configured values.  Surrounding
// whitespace is ignored on both sides.
func NewAccessCode(plain, hash string) *AccessCode {
	return &AccessCode{plain: strings.TrimSpace(plain), hash: strings.TrimSpace(hash)}
}

// Check reports whether code matches.  Empty codes never match.
func (a *AccessCode) Check(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	if a.hash != "" {
		return verifyHash(a.hash, code)
	}
	if a.plain == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a.plain), []byte(code)) == 1
}
