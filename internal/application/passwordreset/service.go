package passwordreset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/identity-api/internal/application/otp"
	"github.com/identity-api/internal/application/session"
	"github.com/identity-api/internal/domain"
	jwtinfra "github.com/identity-api/internal/infrastructure/jwt"
	"github.com/identity-api/internal/infrastructure/sns"
	"golang.org/x/crypto/bcrypt"
)

const fieldPasswordHash = "password_hash"

type ForgotRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type ResetRequest struct {
	ResetToken  string `json:"reset_token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// Service drives the reset lifecycle: forgot -> otp verified -> password
// changed. The intermediate proof is a 15-minute signed token scoped to
// the password_reset purpose, never a persisted row.
type Service interface {
	Forgot(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, req VerifyOTPRequest) (resetToken string, err error)
	Reset(ctx context.Context, req ResetRequest) (*session.Result, error)
	// ChangePassword is the authenticated variant bypassing the OTP. The
	// current password must match; nothing is mutated otherwise.
	ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) (*session.Result, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type resetSigner interface {
	SignReset(email string) (string, error)
	VerifyReset(tokenStr string) (*jwtinfra.ResetClaims, error)
}

type sessionMinter interface {
	Mint(ctx context.Context, u *domain.User) (*session.Result, error)
}

type mailSender interface {
	SendEmail(to, subject, body string) error
}

type service struct {
	userRepo   userStore
	otpSvc     otp.Service
	signer     resetSigner
	sessions   sessionMinter
	mailer     mailSender
	events     sns.EventPublisher
	strictMail bool
}

type ServiceDeps struct {
	UserRepo   userStore
	OTPService otp.Service
	Signer     resetSigner
	Sessions   sessionMinter
	Mailer     mailSender
	Events     sns.EventPublisher
	StrictMail bool
}

func NewService(deps ServiceDeps) Service {
	return &service{
		userRepo:   deps.UserRepo,
		otpSvc:     deps.OTPService,
		signer:     deps.Signer,
		sessions:   deps.Sessions,
		mailer:     deps.Mailer,
		events:     deps.Events,
		strictMail: deps.StrictMail,
	}
}

func (s *service) Forgot(ctx context.Context, email string) error {
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("unknown email: %w", domain.ErrNotFound)
	}
	// Distinct from the unknown-email answer; clients route the user back
	// to registration verification instead of the reset form.
	if !u.EmailVerified {
		return fmt.Errorf("account never verified: %w", domain.ErrUnverified)
	}
	rec, err := s.otpSvc.Issue(ctx, email, domain.PurposePasswordReset)
	if err != nil {
		return err
	}
	if err := s.mailer.SendEmail(email, "Password reset code", "Your reset code: "+rec.Code); err != nil {
		if s.strictMail {
			return fmt.Errorf("send reset code: %v: %w", err, domain.ErrDownstream)
		}
		slog.Warn("mail delivery failed, code remains retrievable", "email", email, "err", err)
	}
	return nil
}

func (s *service) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (string, error) {
	if err := s.otpSvc.Verify(ctx, req.Email, req.Code, domain.PurposePasswordReset); err != nil {
		return "", err
	}
	return s.signer.SignReset(req.Email)
}

func (s *service) Reset(ctx context.Context, req ResetRequest) (*session.Result, error) {
	claims, err := s.signer.VerifyReset(req.ResetToken)
	if err != nil {
		return nil, err
	}
	u, err := s.userRepo.GetByEmail(ctx, claims.Email)
	if err != nil {
		return nil, fmt.Errorf("account vanished since reset was verified: %w", domain.ErrNotFound)
	}
	if err := s.updatePassword(ctx, u, req.NewPassword); err != nil {
		return nil, err
	}
	return s.sessions.Mint(ctx, u)
}

func (s *service) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) (*session.Result, error) {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load account: %v: %w", err, domain.ErrDownstream)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return nil, fmt.Errorf("current password mismatch: %w", domain.ErrWrongPassword)
	}
	if err := s.updatePassword(ctx, u, req.NewPassword); err != nil {
		return nil, err
	}
	// Previously issued tokens stay valid; there is no revocation list.
	return s.sessions.Mint(ctx, u)
}

func (s *service) updatePassword(ctx context.Context, u *domain.User, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, u.UserID, map[string]interface{}{fieldPasswordHash: string(hash)}); err != nil {
		return fmt.Errorf("update password: %v: %w", err, domain.ErrDownstream)
	}
	u.PasswordHash = string(hash)
	if s.events != nil {
		if err := s.events.Publish(ctx, sns.EventPasswordChanged, u.Email); err != nil {
			slog.Warn("failed to publish password_changed event", "email", u.Email, "err", err)
		}
	}
	return nil
}
