package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/auth-api-nosql/internal/config"
	"github.com/auth-api-nosql/internal/domain"
	jwtinfra "github.com/auth-api-nosql/internal/infrastructure/jwt"
	"github.com/auth-api-nosql/internal/infrastructure/smtp"
	"github.com/auth-api-nosql/internal/pkg/id"
	"github.com/auth-api-nosql/internal/pkg/password"
	"github.com/auth-api-nosql/internal/ratelimit"
)

// Response messages. ForgotPassword returns msgForgotPassword on both
// branches; an attacker must not be able to tell a known email from an
// unknown one.
const (
	msgRegistered     = "Registration successful. Please check your email for verification code."
	msgVerified       = "Email verified successfully. You can now login."
	msgOTPResent      = "New verification code sent to your email."
	msgLoggedIn       = "Login successful"
	msgForgotPassword = "If the email exists, a password reset code has been sent."
	msgPasswordReset  = "Password reset successfully. You can now login with your new password."
)

// Result is the outcome of a successful auth flow.
type Result struct {
	Message     string       `json:"message"`
	AccessToken string       `json:"access_token,omitempty"`
	User        *domain.User `json:"user,omitempty"`
}

// UserRepository is the persistence the orchestrator requires for users.
type UserRepository interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

// OTPManager is the passcode lifecycle the orchestrator drives.
type OTPManager interface {
	Issue(ctx context.Context, userID, email, purpose string) (*domain.OTPRecord, error)
	InvalidateAll(ctx context.Context, email, purpose string) error
	Consume(ctx context.Context, email, code, purpose string) (*domain.OTPRecord, error)
}

// TokenProvider issues and verifies bearer tokens.
type TokenProvider interface {
	Sign(userID, email string) (string, error)
	Verify(token string) (*jwtinfra.Claims, error)
}

// Service is the authentication state machine: registration,
// verification, login, and password reset.
type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*Result, error)
	VerifyOTP(ctx context.Context, req domain.VerifyOTPRequest) (*Result, error)
	ResendOTP(ctx context.Context, req domain.ResendOTPRequest) (*Result, error)
	Login(ctx context.Context, req domain.LoginRequest) (*Result, error)
	ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) (*Result, error)
	ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) (*Result, error)
	WhoAmI(ctx context.Context, token string) (*domain.User, error)
}

// ServiceDeps bundles everything the service needs.
type ServiceDeps struct {
	Users   UserRepository
	OTPs    OTPManager
	Mailer  smtp.Mailer
	Tokens  TokenProvider
	Limiter ratelimit.Limiter

	RegisterLimit config.RateLimit
	ResendLimit   config.RateLimit
	ForgotLimit   config.RateLimit
}

type service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) Service {
	return &service{deps: deps}
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*Result, error) {
	// Only a definite "no such user" clears the uniqueness check; a
	// store fault must not be mistaken for a free email.
	_, err := s.deps.Users.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("check email: %w", err)
	}
	if !s.deps.Limiter.Allow("register:"+req.Email, s.deps.RegisterLimit.Limit, s.deps.RegisterLimit.Window) {
		return nil, fmt.Errorf("too many registration attempts: %w", domain.ErrTooManyRequests)
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{
		UserID:       id.New(),
		FullName:     req.FullName,
		Email:        req.Email,
		PasswordHash: hash,
		IsVerified:   false,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.deps.Users.Put(ctx, u); err != nil {
		return nil, fmt.Errorf("store user: %w", err)
	}

	// Two writes, no transaction: a failure here leaves an unverified
	// user without a code, which ResendOTP recovers.
	rec, err := s.deps.OTPs.Issue(ctx, u.UserID, u.Email, domain.OTPPurposeVerification)
	if err != nil {
		return nil, err
	}
	s.dispatchOTPEmail(u.Email, rec.Code, domain.OTPPurposeVerification)

	return &Result{Message: msgRegistered}, nil
}

func (s *service) VerifyOTP(ctx context.Context, req domain.VerifyOTPRequest) (*Result, error) {
	rec, err := s.deps.OTPs.Consume(ctx, req.Email, req.OTP, domain.OTPPurposeVerification)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Users.Update(ctx, rec.UserID, map[string]interface{}{"is_verified": true}); err != nil {
		return nil, fmt.Errorf("mark user verified: %w", err)
	}
	return &Result{Message: msgVerified}, nil
}

func (s *service) ResendOTP(ctx context.Context, req domain.ResendOTPRequest) (*Result, error) {
	// Windows are per operation class; a registration attempt does not
	// count toward the resend window.
	if !s.deps.Limiter.Allow("resend:"+req.Email, s.deps.ResendLimit.Limit, s.deps.ResendLimit.Window) {
		return nil, fmt.Errorf("too many OTP requests: %w", domain.ErrTooManyRequests)
	}
	u, err := s.deps.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("look up user: %w", err)
		}
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}

	if err := s.deps.OTPs.InvalidateAll(ctx, u.Email, domain.OTPPurposeVerification); err != nil {
		return nil, err
	}
	rec, err := s.deps.OTPs.Issue(ctx, u.UserID, u.Email, domain.OTPPurposeVerification)
	if err != nil {
		return nil, err
	}
	s.dispatchOTPEmail(u.Email, rec.Code, domain.OTPPurposeVerification)

	return &Result{Message: msgOTPResent}, nil
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*Result, error) {
	// "No such user" and "wrong password" collapse into one failure so
	// login cannot be used to probe for registered emails.
	u, err := s.deps.Users.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if err != nil || !password.Verify(req.Password, u.PasswordHash) {
		return nil, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
	}
	if !u.IsVerified {
		return nil, fmt.Errorf("email not verified: %w", domain.ErrForbidden)
	}

	token, err := s.deps.Tokens.Sign(u.UserID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Result{Message: msgLoggedIn, AccessToken: token, User: u}, nil
}

func (s *service) ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) (*Result, error) {
	if !s.deps.Limiter.Allow("forgot:"+req.Email, s.deps.ForgotLimit.Limit, s.deps.ForgotLimit.Window) {
		return nil, fmt.Errorf("too many password reset requests: %w", domain.ErrTooManyRequests)
	}

	u, err := s.deps.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("look up user: %w", err)
		}
		// Unknown email gets the exact same response as a known one.
		return &Result{Message: msgForgotPassword}, nil
	}

	if err := s.deps.OTPs.InvalidateAll(ctx, u.Email, domain.OTPPurposeReset); err != nil {
		return nil, err
	}
	rec, err := s.deps.OTPs.Issue(ctx, u.UserID, u.Email, domain.OTPPurposeReset)
	if err != nil {
		return nil, err
	}
	s.dispatchOTPEmail(u.Email, rec.Code, domain.OTPPurposeReset)

	return &Result{Message: msgForgotPassword}, nil
}

func (s *service) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) (*Result, error) {
	rec, err := s.deps.OTPs.Consume(ctx, req.Email, req.OTP, domain.OTPPurposeReset)
	if err != nil {
		return nil, err
	}
	hash, err := password.Hash(req.NewPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.deps.Users.Update(ctx, rec.UserID, map[string]interface{}{"password_hash": hash}); err != nil {
		return nil, fmt.Errorf("update password: %w", err)
	}
	return &Result{Message: msgPasswordReset}, nil
}

func (s *service) WhoAmI(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.deps.Tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
	}
	// Tokens carry no revocation; a user deleted after issuance is
	// caught here.
	u, err := s.deps.Users.Get(ctx, claims.Subject)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("load user: %w", err)
		}
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return u, nil
}

// dispatchOTPEmail sends the code in the background. The caller's
// response never waits on delivery, and a delivery failure never undoes
// the state transition: the record already exists and ResendOTP covers
// a lost message.
func (s *service) dispatchOTPEmail(email, code, purpose string) {
	subject := "Your email verification code"
	if purpose == domain.OTPPurposeReset {
		subject = "Your password reset code"
	}
	body := fmt.Sprintf("Your verification code is: %s\n\nThis code will expire in 10 minutes.\nIf you didn't request this code, please ignore this email.", code)

	go func() {
		if err := s.deps.Mailer.SendEmail(email, subject, body); err != nil {
			slog.Warn("failed to send OTP email", "to", email, "purpose", purpose, "err", err)
		}
	}()
}
