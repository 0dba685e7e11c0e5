package model

import "time"

// WaitlistEntry is a launch waitlist subscriber.  The first
// LAUNCH_MAX_CODES consenting subscribers are mailed a discount code;
// CodeSent flips exactly once per entry.
type WaitlistEntry struct {
	ID         uint64     `json:"id"`
	Email      string     `json:"email"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	DOB        *string    `json:"dob,omitempty"`
	Consent    bool       `json:"consent"`
	CodeSent   bool       `json:"code_sent"`
	CodeSentAt *time.Time `json:"code_sent_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
