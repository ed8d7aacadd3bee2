package domain

import "time"

// LoginType records how a token was obtained.
type LoginType string

const (
	LoginPassword  LoginType = "password"
	LoginEmailCode LoginType = "email_code"
	LoginSMS       LoginType = "sms"
)

type User struct {
	UserID          string       `json:"id" dynamodbav:"user_id"`
	Email           string       `json:"email,omitempty" dynamodbav:"email,omitempty"`
	Phone           string       `json:"phone,omitempty" dynamodbav:"phone,omitempty"`
	Name            string       `json:"name" dynamodbav:"name"`
	PasswordHash    string       `json:"-" dynamodbav:"password_hash"`
	Role            string       `json:"role" dynamodbav:"role"`
	DefaultCurrency CurrencyCode `json:"default_currency" dynamodbav:"default_currency"`
	EmailVerified   bool         `json:"email_verified" dynamodbav:"email_verified"`
	PhoneVerified   bool         `json:"phone_verified" dynamodbav:"phone_verified"`
	Enable          int          `json:"enable" dynamodbav:"enable"`
	LastLoginAt     *time.Time   `json:"last_login_at,omitempty" dynamodbav:"last_login_at"`
	CreatedAt       time.Time    `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" dynamodbav:"updated_at"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,max=255"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SendCodeRequest asks for a one-time code. Exactly one of Email or Phone is
// used, chosen by the endpoint.
type SendCodeRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,e164"`
	Type  string `json:"type"`
}

// EmailLoginRequest signs in with an emailed code; an unknown email is
// registered on the spot. Type is the purpose the code was issued for
// (login by default, or register).
type EmailLoginRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
	Name  string `json:"name" validate:"omitempty,min=2,max=50"`
	Type  string `json:"type" validate:"omitempty,oneof=login register"`
}

type PhoneRegisterRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
	Name  string `json:"name" validate:"max=255"`
}

type PhoneLoginRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

type UpdateProfileRequest struct {
	Name            *string `json:"name" validate:"omitempty,max=255"`
	DefaultCurrency *string `json:"default_currency" validate:"omitempty,currency"`
}

// AuthResult is what every successful login or registration yields.
type AuthResult struct {
	Token     string    `json:"token"`
	User      *User     `json:"user"`
	LoginType LoginType `json:"login_type"`
	IsNewUser bool      `json:"is_new_user,omitempty"`
}

// UserStats aggregates a user's activity for the profile page.
type UserStats struct {
	TransactionCount int               `json:"transaction_count"`
	VolumeByCurrency map[string]string `json:"volume_by_currency"`
	WatchlistSize    int               `json:"watchlist_size"`
	AlertCount       int               `json:"alert_count"`
	MemberSince      time.Time         `json:"member_since"`
}
