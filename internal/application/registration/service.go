package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/identity-api/internal/application/otp"
	"github.com/identity-api/internal/application/session"
	"github.com/identity-api/internal/domain"
	"github.com/identity-api/internal/infrastructure/sns"
	"github.com/identity-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required"`
}

type ResendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// Service drives the registration lifecycle:
// unregistered -> awaiting verification -> active.
type Service interface {
	// Register stores a profile draft and issues a registration code.
	// Re-registering while awaiting verification overwrites the draft and
	// replaces the code; an active account with the email is a conflict.
	Register(ctx context.Context, req RegisterRequest) error
	// Resend issues a fresh code for an existing draft. The draft is untouched.
	Resend(ctx context.Context, email string) error
	// Verify consumes the code, materializes the account from the draft and
	// mints a session. The draft is gone afterwards.
	Verify(ctx context.Context, req VerifyRequest) (*session.Result, error)
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByEmailIncludingDeleted(ctx context.Context, email string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
}

type pendingStore interface {
	Put(ctx context.Context, p *domain.PendingRegistration) error
	Get(ctx context.Context, email string) (*domain.PendingRegistration, error)
	Delete(ctx context.Context, email string) error
}

type sessionMinter interface {
	Mint(ctx context.Context, u *domain.User) (*session.Result, error)
}

type mailSender interface {
	SendEmail(to, subject, body string) error
}

type service struct {
	userRepo    userStore
	pendingRepo pendingStore
	otpSvc      otp.Service
	sessions    sessionMinter
	mailer      mailSender
	events      sns.EventPublisher
	strictMail  bool
}

type ServiceDeps struct {
	UserRepo    userStore
	PendingRepo pendingStore
	OTPService  otp.Service
	Sessions    sessionMinter
	Mailer      mailSender
	Events      sns.EventPublisher
	// StrictMail fails the enclosing request on mail delivery errors.
	// Outside production the code stays retrievable via the diagnostic path.
	StrictMail bool
}

func NewService(deps ServiceDeps) Service {
	return &service{
		userRepo:    deps.UserRepo,
		pendingRepo: deps.PendingRepo,
		otpSvc:      deps.OTPService,
		sessions:    deps.Sessions,
		mailer:      deps.Mailer,
		events:      deps.Events,
		strictMail:  deps.StrictMail,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) error {
	if !domain.ValidRole(req.Role) {
		return fmt.Errorf("invalid role %q: %w", req.Role, domain.ErrBadRequest)
	}
	// GetByEmail only sees enabled accounts, so a soft-deleted one does
	// not block its owner from registering again.
	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	// Upsert: the latest draft for an email always wins.
	p := &domain.PendingRegistration{
		Email: req.Email,
		Draft: domain.ProfileDraft{
			Username:     req.Username,
			PasswordHash: string(hash),
			Role:         req.Role,
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.pendingRepo.Put(ctx, p); err != nil {
		return fmt.Errorf("store draft: %v: %w", err, domain.ErrDownstream)
	}
	rec, err := s.otpSvc.Issue(ctx, req.Email, domain.PurposeRegistration)
	if err != nil {
		return err
	}
	return s.sendCode(req.Email, "Confirm your registration", rec.Code)
}

func (s *service) Resend(ctx context.Context, email string) error {
	if _, err := s.pendingRepo.Get(ctx, email); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no pending registration for %s: %w", email, domain.ErrState)
		}
		return fmt.Errorf("load draft: %v: %w", err, domain.ErrDownstream)
	}
	rec, err := s.otpSvc.Issue(ctx, email, domain.PurposeRegistration)
	if err != nil {
		return err
	}
	return s.sendCode(email, "Confirm your registration", rec.Code)
}

func (s *service) Verify(ctx context.Context, req VerifyRequest) (*session.Result, error) {
	if err := s.otpSvc.Verify(ctx, req.Email, req.Code, domain.PurposeRegistration); err != nil {
		return nil, err
	}
	p, err := s.pendingRepo.Get(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("no pending registration for %s: %w", req.Email, domain.ErrState)
		}
		return nil, fmt.Errorf("load draft: %v: %w", err, domain.ErrDownstream)
	}
	// Reuse the row of a previously deleted account: the put below then
	// overwrites it, so the email index never holds two items for one
	// address.
	userID := id.New()
	if prev, err := s.userRepo.GetByEmailIncludingDeleted(ctx, req.Email); err == nil {
		userID = prev.UserID
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:        userID,
		Username:      p.Draft.Username,
		Email:         p.Email,
		PasswordHash:  p.Draft.PasswordHash,
		Role:          p.Draft.Role,
		EmailVerified: true,
		Enable:        1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.userRepo.Put(ctx, u); err != nil {
		return nil, fmt.Errorf("materialize account: %v: %w", err, domain.ErrDownstream)
	}
	if err := s.pendingRepo.Delete(ctx, req.Email); err != nil {
		slog.Warn("failed to delete pending registration", "email", req.Email, "err", err)
	}
	result, err := s.sessions.Mint(ctx, u)
	if err != nil {
		return nil, err
	}
	if s.events != nil {
		if err := s.events.Publish(ctx, sns.EventAccountCreated, u.Email); err != nil {
			slog.Warn("failed to publish account_created event", "email", u.Email, "err", err)
		}
	}
	return result, nil
}

func (s *service) sendCode(email, subject, code string) error {
	if err := s.mailer.SendEmail(email, subject, "Your verification code: "+code); err != nil {
		if s.strictMail {
			return fmt.Errorf("send code: %v: %w", err, domain.ErrDownstream)
		}
		slog.Warn("mail delivery failed, code remains retrievable", "email", email, "err", err)
	}
	return nil
}
