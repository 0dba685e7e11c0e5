// Package pricing computes session prices from party size and applies the
// launch discount code.  Prices are whole SEK.
package pricing

import (
	"errors"
	"strings"
	"time"
)

const (
	MaxGuests   = 6
	MaxAdults   = 6
	MaxChildren = 5
)

var (
	ErrNoGuests        = errors.New("at least one guest is required")
	ErrTooManyGuests   = errors.New("a session holds at most 6 guests")
	ErrTooManyAdults   = errors.New("at most 6 adults per session")
	ErrTooManyChildren = errors.New("at most 5 children per session")
	ErrNegativeCount   = errors.New("guest counts must not be negative")
	ErrUnknownCode     = errors.New("discount code is not valid")
	ErrExpiredCode     = errors.New("discount code has expired")
)

// tier is a per-head rate pair applied to the whole party once its size
// reaches the tier.
type tier struct {
	maxGuests int
	adult     int
	child     int
}

var tiers = []tier{
	{maxGuests: 2, adult: 350, child: 300},
	{maxGuests: 4, adult: 330, child: 280},
	{maxGuests: MaxGuests, adult: 300, child: 250},
}

// Quote is a fully itemised price.
type Quote struct {
	Adults          int    `json:"adults"`
	Children        int    `json:"children"`
	AdultRate       int    `json:"adult_rate"`
	ChildRate       int    `json:"child_rate"`
	BaseTotal       int    `json:"base_total"`
	DiscountCode    string `json:"discount_code,omitempty"`
	DiscountPercent int    `json:"discount_percent"`
	DiscountAmount  int    `json:"discount_amount"`
	Total           int    `json:"total"`
}

// ValidateParty checks guest counts against the session limits.
func ValidateParty(adults, children int) error {
	switch {
	case adults < 0 || children < 0:
		return ErrNegativeCount
	case adults+children < 1:
		return ErrNoGuests
	case adults > MaxAdults:
		return ErrTooManyAdults
	case children > MaxChildren:
		return ErrTooManyChildren
	case adults+children > MaxGuests:
		return ErrTooManyGuests
	}
	return nil
}

// Calculate prices a party with an already resolved discount percentage.
func Calculate(adults, children, discountPercent int) (Quote, error) {
	if err := ValidateParty(adults, children); err != nil {
		return Quote{}, err
	}
	if discountPercent < 0 {
		discountPercent = 0
	}
	if discountPercent > 100 {
		discountPercent = 100
	}
	t := tierFor(adults + children)
	base := adults*t.adult + children*t.child
	total := Discounted(base, discountPercent)
	return Quote{
		Adults:          adults,
		Children:        children,
		AdultRate:       t.adult,
		ChildRate:       t.child,
		BaseTotal:       base,
		DiscountPercent: discountPercent,
		DiscountAmount:  base - total,
		Total:           total,
	}, nil
}

// Discounted returns round(base * (1 - pct/100)) with halves rounded up.
func Discounted(base, pct int) int {
	if pct <= 0 {
		return base
	}
	return (base*(100-pct) + 50) / 100
}

func tierFor(guests int) tier {
	for _, t := range tiers {
		if guests <= t.maxGuests {
			return t
		}
	}
	return tiers[len(tiers)-1]
}

// LaunchCode is the single promotional code accepted at checkout.
type LaunchCode struct {
	Code    string
	Percent int
	// LastDay is the final calendar day (venue time) the code is accepted.
	LastDay time.Time
}

// Resolve maps a user-entered code to a discount percentage.  An empty code
// resolves to zero.  Matching is case-insensitive and ignores surrounding
// whitespace.
func (l LaunchCode) Resolve(code string, now time.Time) (string, int, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", 0, nil
	}
	if l.Code == "" || code != strings.ToUpper(l.Code) {
		return "", 0, ErrUnknownCode
	}
	if !l.LastDay.IsZero() && !now.Before(l.LastDay.AddDate(0, 0, 1)) {
		return "", 0, ErrExpiredCode
	}
	return code, l.Percent, nil
}

// Quote resolves code and prices the party in one step.
func (l LaunchCode) Quote(adults, children int, code string, now time.Time) (Quote, error) {
	normalized, pct, err := l.Resolve(code, now)
	if err != nil {
		return Quote{}, err
	}
	q, err := Calculate(adults, children, pct)
	if err != nil {
		return Quote{}, err
	}
	q.DiscountCode = normalized
	return q, nil
}
