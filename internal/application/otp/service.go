package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/identity-api/internal/domain"
)

// CodeTTL is the validity window of an issued code.
const CodeTTL = 10 * time.Minute

const codeDigits = 6

// Service issues and consumes one-time codes. Issuance replaces any prior
// code for the same (email, purpose); consumption flips the used flag
// exactly once.
type Service interface {
	Issue(ctx context.Context, email, purpose string) (*domain.OTPRecord, error)
	Verify(ctx context.Context, email, code, purpose string) error
	Peek(ctx context.Context, email, purpose string) (*domain.OTPRecord, error)
}

type otpStore interface {
	Put(ctx context.Context, rec *domain.OTPRecord) error
	Get(ctx context.Context, email, purpose string) (*domain.OTPRecord, error)
	Delete(ctx context.Context, email, purpose string) error
	MarkUsed(ctx context.Context, email, purpose string) error
}

type service struct {
	repo otpStore
}

func NewService(repo otpStore) Service {
	return &service{repo: repo}
}

// Issue generates a fresh 6-digit code and persists it with a 10-minute
// expiry. The delete and the insert are two separate writes — two
// concurrent issuances for the same key interleave such that exactly one
// full record survives, which callers accept. Sending the code by mail is
// the caller's responsibility and never rolls back the issuance.
func (s *service) Issue(ctx context.Context, email, purpose string) (*domain.OTPRecord, error) {
	if !domain.ValidPurpose(purpose) {
		return nil, fmt.Errorf("unknown otp purpose %q: %w", purpose, domain.ErrBadRequest)
	}
	code, err := generateCode()
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, email, purpose); err != nil {
		return nil, fmt.Errorf("replace otp: %v: %w", err, domain.ErrDownstream)
	}
	now := time.Now()
	rec := &domain.OTPRecord{
		Email:     email,
		Purpose:   purpose,
		Code:      code,
		Used:      false,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(CodeTTL).Unix(),
	}
	if err := s.repo.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("store otp: %v: %w", err, domain.ErrDownstream)
	}
	return rec, nil
}

// Verify consumes the code for (email, purpose). The used flag is the sole
// idempotency guard: replaying an identical successful request yields
// ErrCodeUsed, never a second success. The expired path leaves the record
// untouched so a late-but-correct code stays distinguishable from a wrong
// one on any later diagnostic query.
func (s *service) Verify(ctx context.Context, email, code, purpose string) error {
	rec, err := s.repo.Get(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no code on record: %w", domain.ErrInvalidCode)
		}
		return fmt.Errorf("load otp: %v: %w", err, domain.ErrDownstream)
	}
	if rec.Code != code {
		return fmt.Errorf("code mismatch: %w", domain.ErrInvalidCode)
	}
	// Used before expired: a code consumed at minute 9 and replayed at
	// minute 11 must still answer "already used".
	if rec.Used {
		return fmt.Errorf("code redeemed before: %w", domain.ErrCodeUsed)
	}
	if rec.ExpiresAt < time.Now().Unix() {
		return fmt.Errorf("code past validity: %w", domain.ErrExpiredCode)
	}
	if err := s.repo.MarkUsed(ctx, email, purpose); err != nil {
		return fmt.Errorf("consume otp: %v: %w", err, domain.ErrDownstream)
	}
	return nil
}

// Peek returns the current record without consuming it. Exposed over HTTP
// only outside production so flows can be exercised without a working mail
// provider; it reads the same table the issuer writes, so it holds up in a
// multi-instance deployment.
func (s *service) Peek(ctx context.Context, email, purpose string) (*domain.OTPRecord, error) {
	rec, err := s.repo.Get(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load otp: %v: %w", err, domain.ErrDownstream)
	}
	return rec, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
