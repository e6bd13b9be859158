package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/identity-api/internal/application/otp"
	"github.com/identity-api/internal/domain"
	"github.com/identity-api/internal/infrastructure/sns"
)

type ConfirmDeletionRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// Service handles OTP-gated account deletion. The proof is a code sent to
// the account's own inbox, same machinery as registration and reset.
type Service interface {
	RequestDeletion(ctx context.Context, userID string) error
	ConfirmDeletion(ctx context.Context, userID string, req ConfirmDeletionRequest) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	SoftDelete(ctx context.Context, userID string) error
}

type sessionStore interface {
	SoftDeleteByUser(ctx context.Context, userID string) error
}

type mailSender interface {
	SendEmail(to, subject, body string) error
}

type service struct {
	userRepo    userStore
	sessionRepo sessionStore
	otpSvc      otp.Service
	mailer      mailSender
	events      sns.EventPublisher
	strictMail  bool
}

type ServiceDeps struct {
	UserRepo    userStore
	SessionRepo sessionStore
	OTPService  otp.Service
	Mailer      mailSender
	Events      sns.EventPublisher
	StrictMail  bool
}

func NewService(deps ServiceDeps) Service {
	return &service{
		userRepo:    deps.UserRepo,
		sessionRepo: deps.SessionRepo,
		otpSvc:      deps.OTPService,
		mailer:      deps.Mailer,
		events:      deps.Events,
		strictMail:  deps.StrictMail,
	}
}

func (s *service) RequestDeletion(ctx context.Context, userID string) error {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	rec, err := s.otpSvc.Issue(ctx, u.Email, domain.PurposeAccountDeletion)
	if err != nil {
		return err
	}
	if err := s.mailer.SendEmail(u.Email, "Confirm account deletion", "Your deletion code: "+rec.Code); err != nil {
		if s.strictMail {
			return fmt.Errorf("send deletion code: %v: %w", err, domain.ErrDownstream)
		}
		slog.Warn("mail delivery failed, code remains retrievable", "email", u.Email, "err", err)
	}
	return nil
}

func (s *service) ConfirmDeletion(ctx context.Context, userID string, req ConfirmDeletionRequest) error {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.otpSvc.Verify(ctx, u.Email, req.Code, domain.PurposeAccountDeletion); err != nil {
		return err
	}
	if err := s.userRepo.SoftDelete(ctx, userID); err != nil {
		return fmt.Errorf("soft delete account: %v: %w", err, domain.ErrDownstream)
	}
	if err := s.sessionRepo.SoftDeleteByUser(ctx, userID); err != nil {
		slog.Warn("failed to disable sessions after deletion", "user_id", userID, "err", err)
	}
	if s.events != nil {
		if err := s.events.Publish(ctx, sns.EventAccountDeleted, u.Email); err != nil {
			slog.Warn("failed to publish account_deleted event", "email", u.Email, "err", err)
		}
	}
	return nil
}
