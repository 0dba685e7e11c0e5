package utils // package utils provides token signing and secret checking helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const unsubscribePurpose = "unsubscribe"

// DefaultUnsubscribeTTL is how long an unsubscribe link in a waitlist email
// stays valid.
const DefaultUnsubscribeTTL = 365 * 24 * time.Hour

// ErrInvalidToken is returned for tokens that are malformed, expired, signed
// with another key or issued for another purpose.
var ErrInvalidToken = errors.New("invalid token")

// UnsubscribeTokens signs HS256 JWTs carrying a subscriber's email as the
// subject.
type UnsubscribeTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewUnsubscribeTokens returns a signer.  A non-positive ttl selects
// DefaultUnsubscribeTTL.
func NewUnsubscribeTokens(secret string, ttl time.Duration) *UnsubscribeTokens {
	if ttl <= 0 {
		ttl = DefaultUnsubscribeTTL
	}
	return &UnsubscribeTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for email.  The claims are sub, purpose, iat and exp.
func (u *UnsubscribeTokens) Issue(email string) (string, error) {
	if len(u.secret) == 0 {
		return "", errors.New("unsubscribe secret is not configured")
	}
	now := u.now().UTC()
	claims := jwt.MapClaims{
		"sub":     email,
		"purpose": unsubscribePurpose,
		"iat":     now.Unix(),
		"exp":     now.Add(u.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(u.secret)
}

// Parse verifies token and returns the email it was issued for.
func (u *UnsubscribeTokens) Parse(token string) (string, error) {
	if len(u.secret) == 0 {
		return "", ErrInvalidToken
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return u.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(u.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || claims["purpose"] != unsubscribePurpose {
		return "", ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}
