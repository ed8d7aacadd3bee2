package domain

import (
	"strings"
	"time"
)

// Purpose scopes a one-time code. The same identifier may hold one live code
// per purpose.
type Purpose string

const (
	PurposeRegister Purpose = "register"
	PurposeLogin    Purpose = "login"
	PurposeReset    Purpose = "reset"
)

// ParsePurpose accepts register, login or reset in any case.
func ParsePurpose(s string) (Purpose, error) {
	switch p := Purpose(strings.ToLower(strings.TrimSpace(s))); p {
	case PurposeRegister, PurposeLogin, PurposeReset:
		return p, nil
	}
	return "", NewValidationError("type", "must be one of register, login, reset")
}

// Channel is how a code is delivered.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Confirmation is returned by a successful verify.
type Confirmation struct {
	Identifier string    `json:"identifier"`
	Purpose    Purpose   `json:"type"`
	VerifiedAt time.Time `json:"verified_at"`
}

type RateLimitStatus struct {
	CanSend  bool          `json:"can_send"`
	TimeLeft time.Duration `json:"-"`
}

// Seconds left until the next send is allowed, rounded up.
func (s RateLimitStatus) Seconds() int {
	if s.TimeLeft <= 0 {
		return 0
	}
	return int((s.TimeLeft + time.Second - 1) / time.Second)
}

type VerificationStats struct {
	ActiveCodes      int `json:"active_codes"`
	ActiveRateLimits int `json:"active_rate_limits"`
}

// CodeDispatch acknowledges that a code was sent. DevCode is only filled in
// when the server runs with code echo enabled.
type CodeDispatch struct {
	Channel    Channel `json:"channel"`
	Identifier string  `json:"identifier"`
	Purpose    Purpose `json:"type"`
	ExpiresIn  int     `json:"expires_in"`
	DevCode    string  `json:"code,omitempty"`
}
