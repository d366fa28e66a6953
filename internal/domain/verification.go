package domain

import "time"

// VerificationCode is a pending email-binding code. At most one exists per
// email; issuing a new one replaces it regardless of which user requested
// the previous one.
type VerificationCode struct {
	Code      string
	UserID    string
	ExpiresAt time.Time
}
