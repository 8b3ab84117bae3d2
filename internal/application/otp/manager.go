package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/auth-api-nosql/internal/domain"
	"github.com/auth-api-nosql/internal/pkg/id"
)

// Repository is the persistence the manager requires for OTP records.
type Repository interface {
	Put(ctx context.Context, rec *domain.OTPRecord) error
	FindValid(ctx context.Context, email, code, purpose string, now time.Time) (*domain.OTPRecord, error)
	MarkUsed(ctx context.Context, otpID string) error
	MarkAllUsed(ctx context.Context, email, purpose string) error
}

// Manager generates, issues, invalidates, and consumes one-time passcodes.
type Manager struct {
	repo Repository
	ttl  time.Duration
	now  func() time.Time
}

func NewManager(repo Repository, ttl time.Duration) *Manager {
	return &Manager{repo: repo, ttl: ttl, now: time.Now}
}

// Generate produces a uniformly random six-digit code, "000000" through
// "999999".
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Issue creates and persists a fresh record for the user. Prior records
// are left alone; callers invalidate them when their flow requires it.
func (m *Manager) Issue(ctx context.Context, userID, email, purpose string) (*domain.OTPRecord, error) {
	code, err := Generate()
	if err != nil {
		return nil, err
	}
	now := m.now().UTC()
	rec := &domain.OTPRecord{
		OTPID:     id.New(),
		UserID:    userID,
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl).Unix(),
		IsUsed:    false,
	}
	if err := m.repo.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("store otp: %w", err)
	}
	return rec, nil
}

// InvalidateAll marks every unused record for the email as used.
// An empty purpose covers all purposes. Idempotent.
func (m *Manager) InvalidateAll(ctx context.Context, email, purpose string) error {
	return m.repo.MarkAllUsed(ctx, email, purpose)
}

// Consume atomically redeems the record matching email + code + purpose.
// Every failure mode (no such code, expired, already used, lost race)
// collapses into ErrInvalidOTP so callers cannot tell them apart.
func (m *Manager) Consume(ctx context.Context, email, code, purpose string) (*domain.OTPRecord, error) {
	rec, err := m.repo.FindValid(ctx, email, code, purpose, m.now())
	if err != nil {
		return nil, fmt.Errorf("no matching otp: %w", domain.ErrInvalidOTP)
	}
	if err := m.repo.MarkUsed(ctx, rec.OTPID); err != nil {
		return nil, fmt.Errorf("otp no longer valid: %w", domain.ErrInvalidOTP)
	}
	rec.IsUsed = true
	return rec, nil
}
