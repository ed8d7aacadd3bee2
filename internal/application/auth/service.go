package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/currency-exchange-api/internal/application/verification"
	"github.com/currency-exchange-api/internal/domain"
	"github.com/currency-exchange-api/internal/pkg/id"
	pkgtoken "github.com/currency-exchange-api/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

const codeLength = 6

// DynamoDB attribute names used in partial update maps.
const (
	fieldPasswordHash  = "password_hash"
	fieldLastLoginAt   = "last_login_at"
	fieldEmailVerified = "email_verified"
	fieldPhoneVerified = "phone_verified"
)

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResult, error)
	Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResult, error)
	SendCode(ctx context.Context, channel domain.Channel, req domain.SendCodeRequest) (*domain.CodeDispatch, error)
	EmailLogin(ctx context.Context, req domain.EmailLoginRequest) (*domain.AuthResult, error)
	RegisterWithPhone(ctx context.Context, req domain.PhoneRegisterRequest) (*domain.AuthResult, error)
	LoginWithPhone(ctx context.Context, req domain.PhoneLoginRequest) (*domain.AuthResult, error)
	ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error
	VerificationStats(ctx context.Context) (domain.VerificationStats, error)
}

type userStore interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type jwtSigner interface {
	Sign(userID, role string, loginType domain.LoginType) (string, error)
}

type service struct {
	users       userStore
	codes       verification.Store
	mailer      mailer
	sms         smsSender
	signer      jwtSigner
	codeTTL     time.Duration
	exposeCodes bool
}

// ServiceDeps wires the auth service. ExposeCodes echoes issued codes in the
// send response and must stay off in production.
type ServiceDeps struct {
	UserRepo    userStore
	Codes       verification.Store
	Mailer      mailer
	SMSSender   smsSender
	JWTProvider jwtSigner
	CodeTTL     time.Duration
	ExposeCodes bool
}

func NewService(deps ServiceDeps) Service {
	ttl := deps.CodeTTL
	if ttl <= 0 {
		ttl = verification.DefaultCodeTTL
	}
	return &service{
		users:       deps.UserRepo,
		codes:       deps.Codes,
		mailer:      deps.Mailer,
		sms:         deps.SMSSender,
		signer:      deps.JWTProvider,
		codeTTL:     ttl,
		exposeCodes: deps.ExposeCodes,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResult, error) {
	email := normalizeEmail(req.Email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := newUser(strings.TrimSpace(req.Name))
	u.Email = email
	u.PasswordHash = string(hash)
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return s.issue(ctx, u, domain.LoginPassword, true)
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	return s.issue(ctx, u, domain.LoginPassword, false)
}

// SendCode delivers a fresh code over channel. Register codes need an unused
// identifier; SMS login and reset codes need an existing account. Email login
// codes go to any address since EmailLogin registers unknown users.
func (s *service) SendCode(ctx context.Context, channel domain.Channel, req domain.SendCodeRequest) (*domain.CodeDispatch, error) {
	purpose := domain.PurposeRegister
	if req.Type != "" {
		p, err := domain.ParsePurpose(req.Type)
		if err != nil {
			return nil, err
		}
		purpose = p
	}

	var identifier string
	switch channel {
	case domain.ChannelEmail:
		identifier = normalizeEmail(req.Email)
		if identifier == "" {
			return nil, domain.NewValidationError("email", "is required")
		}
	case domain.ChannelSMS:
		identifier = strings.TrimSpace(req.Phone)
		if identifier == "" {
			return nil, domain.NewValidationError("phone", "is required")
		}
	default:
		return nil, fmt.Errorf("unknown channel %q: %w", channel, domain.ErrBadRequest)
	}

	limit, err := s.codes.CheckRateLimit(ctx, identifier, purpose)
	if err != nil {
		return nil, err
	}
	if !limit.CanSend {
		return nil, &domain.RateLimitedError{Wait: limit.TimeLeft}
	}

	if err := s.checkAccount(ctx, channel, identifier, purpose); err != nil {
		return nil, err
	}

	// Claim the cooldown slot before delivery so concurrent requests for the
	// same key send one code. A failed delivery keeps the stamp.
	claim, err := s.codes.TryRecordSent(ctx, identifier, purpose)
	if err != nil {
		return nil, err
	}
	if !claim.CanSend {
		return nil, &domain.RateLimitedError{Wait: claim.TimeLeft}
	}

	code, err := pkgtoken.NewNumericCode(codeLength)
	if err != nil {
		return nil, err
	}
	if err := s.deliver(ctx, channel, identifier, purpose, code); err != nil {
		return nil, fmt.Errorf("sending %s code: %w", channel, err)
	}
	if err := s.codes.Issue(ctx, identifier, purpose, code, s.codeTTL); err != nil {
		return nil, err
	}

	out := &domain.CodeDispatch{
		Channel:    channel,
		Identifier: identifier,
		Purpose:    purpose,
		ExpiresIn:  int(s.codeTTL.Seconds()),
	}
	if s.exposeCodes {
		out.DevCode = code
	}
	return out, nil
}

func (s *service) checkAccount(ctx context.Context, channel domain.Channel, identifier string, purpose domain.Purpose) error {
	if channel == domain.ChannelEmail && purpose == domain.PurposeLogin {
		return nil
	}
	lookup := s.users.GetByEmail
	if channel == domain.ChannelSMS {
		lookup = s.users.GetByPhone
	}
	_, err := lookup(ctx, identifier)
	exists := err == nil
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if purpose == domain.PurposeRegister && exists {
		return fmt.Errorf("%s already registered: %w", channel, domain.ErrConflict)
	}
	if purpose != domain.PurposeRegister && !exists {
		return fmt.Errorf("no account for this %s: %w", channel, domain.ErrNotFound)
	}
	return nil
}

func (s *service) deliver(ctx context.Context, channel domain.Channel, to string, purpose domain.Purpose, code string) error {
	minutes := int(s.codeTTL.Minutes())
	if channel == domain.ChannelSMS {
		return s.sms.SendSMS(ctx, to, fmt.Sprintf("Your %s verification code is %s. It expires in %d minutes.", purpose, code, minutes))
	}
	subject := "Your verification code"
	if purpose == domain.PurposeReset {
		subject = "Password reset code"
	}
	return s.mailer.SendEmail(to, subject, fmt.Sprintf("Your %s code is %s.\nIt expires in %d minutes.", purpose, code, minutes))
}

// EmailLogin consumes an emailed code and signs the user in, creating the
// account on first use.
func (s *service) EmailLogin(ctx context.Context, req domain.EmailLoginRequest) (*domain.AuthResult, error) {
	purpose := domain.PurposeLogin
	if req.Type != "" {
		p, err := domain.ParsePurpose(req.Type)
		if err != nil {
			return nil, err
		}
		if p == domain.PurposeReset {
			return nil, domain.NewValidationError("type", "must be login or register")
		}
		purpose = p
	}
	email := normalizeEmail(req.Email)
	if _, err := s.codes.Verify(ctx, email, purpose, req.Code); err != nil {
		return nil, err
	}

	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !u.EmailVerified {
			if err := s.users.Update(ctx, u.UserID, map[string]interface{}{fieldEmailVerified: true}); err != nil {
				slog.Warn("marking email verified", "user_id", u.UserID, "err", err)
			}
			u.EmailVerified = true
		}
		return s.issue(ctx, u, domain.LoginEmailCode, false)
	case errors.Is(err, domain.ErrNotFound):
		name := strings.TrimSpace(req.Name)
		if name == "" {
			name = strings.SplitN(email, "@", 2)[0]
		}
		u = newUser(name)
		u.Email = email
		u.EmailVerified = true
		if err := s.users.Create(ctx, u); err != nil {
			return nil, err
		}
		return s.issue(ctx, u, domain.LoginEmailCode, true)
	default:
		return nil, err
	}
}

func (s *service) RegisterWithPhone(ctx context.Context, req domain.PhoneRegisterRequest) (*domain.AuthResult, error) {
	phone := strings.TrimSpace(req.Phone)
	if _, err := s.users.GetByPhone(ctx, phone); err == nil {
		return nil, fmt.Errorf("phone already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if _, err := s.codes.Verify(ctx, phone, domain.PurposeRegister, req.Code); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "User " + phone[max(0, len(phone)-4):]
	}
	u := newUser(name)
	u.Phone = phone
	u.PhoneVerified = true
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return s.issue(ctx, u, domain.LoginSMS, true)
}

func (s *service) LoginWithPhone(ctx context.Context, req domain.PhoneLoginRequest) (*domain.AuthResult, error) {
	phone := strings.TrimSpace(req.Phone)
	if _, err := s.codes.Verify(ctx, phone, domain.PurposeLogin, req.Code); err != nil {
		return nil, err
	}
	u, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if !u.PhoneVerified {
		if err := s.users.Update(ctx, u.UserID, map[string]interface{}{fieldPhoneVerified: true}); err != nil {
			slog.Warn("marking phone verified", "user_id", u.UserID, "err", err)
		}
		u.PhoneVerified = true
	}
	return s.issue(ctx, u, domain.LoginSMS, false)
}

func (s *service) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	email := normalizeEmail(req.Email)
	if _, err := s.codes.Verify(ctx, email, domain.PurposeReset, req.Code); err != nil {
		return err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.Update(ctx, u.UserID, map[string]interface{}{fieldPasswordHash: string(hash)})
}

func (s *service) VerificationStats(ctx context.Context) (domain.VerificationStats, error) {
	return s.codes.Stats(ctx)
}

func newUser(name string) *domain.User {
	now := time.Now().UTC()
	return &domain.User{
		UserID:          id.New(),
		Name:            name,
		Role:            domain.RoleUser,
		DefaultCurrency: "USD",
		Enable:          1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// issue signs a token for u and stamps the login time. Disabled accounts are
// refused.
func (s *service) issue(ctx context.Context, u *domain.User, loginType domain.LoginType, isNew bool) (*domain.AuthResult, error) {
	if u.Enable != 1 {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrUnauthorized)
	}
	now := time.Now().UTC()
	if err := s.users.Update(ctx, u.UserID, map[string]interface{}{fieldLastLoginAt: now}); err != nil {
		slog.Warn("updating last login", "user_id", u.UserID, "err", err)
	} else {
		u.LastLoginAt = &now
	}
	token, err := s.signer.Sign(u.UserID, u.Role, loginType)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResult{Token: token, User: u, LoginType: loginType, IsNewUser: isNew}, nil
}
