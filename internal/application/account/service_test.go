package account

import (
	"context"
	"errors"
	"testing"

	"github.com/identity-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) SoftDelete(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) SoftDeleteByUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockOTPService struct{ mock.Mock }

func (m *mockOTPService) Issue(ctx context.Context, email, purpose string) (*domain.OTPRecord, error) {
	args := m.Called(ctx, email, purpose)
	if rec, _ := args.Get(0).(*domain.OTPRecord); rec != nil {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockOTPService) Verify(ctx context.Context, email, code, purpose string) error {
	return m.Called(ctx, email, code, purpose).Error(0)
}
func (m *mockOTPService) Peek(ctx context.Context, email, purpose string) (*domain.OTPRecord, error) {
	args := m.Called(ctx, email, purpose)
	if rec, _ := args.Get(0).(*domain.OTPRecord); rec != nil {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

func newTestService(us *mockUserStore, ss *mockSessionStore, os *mockOTPService, ml *mockMailer) Service {
	return NewService(ServiceDeps{
		UserRepo:    us,
		SessionRepo: ss,
		OTPService:  os,
		Mailer:      ml,
	})
}

// --- RequestDeletion ---

func TestRequestDeletion_SendsCodeToOwnInbox(t *testing.T) {
	us := &mockUserStore{}
	os := &mockOTPService{}
	ml := &mockMailer{}

	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Email: "a@x.com"}, nil)
	os.On("Issue", mock.Anything, "a@x.com", domain.PurposeAccountDeletion).
		Return(&domain.OTPRecord{Email: "a@x.com", Purpose: domain.PurposeAccountDeletion, Code: "111111"}, nil)
	ml.On("SendEmail", "a@x.com", mock.Anything, mock.MatchedBy(func(body string) bool {
		return body != ""
	})).Return(nil)

	svc := newTestService(us, &mockSessionStore{}, os, ml)
	require.NoError(t, svc.RequestDeletion(context.Background(), "u1"))
	ml.AssertExpectations(t)
}

func TestRequestDeletion_UnknownUser(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	svc := newTestService(us, &mockSessionStore{}, &mockOTPService{}, &mockMailer{})
	err := svc.RequestDeletion(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

// --- ConfirmDeletion ---

func TestConfirmDeletion_WrongCodeLeavesAccount(t *testing.T) {
	us := &mockUserStore{}
	os := &mockOTPService{}

	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Email: "a@x.com"}, nil)
	os.On("Verify", mock.Anything, "a@x.com", "000000", domain.PurposeAccountDeletion).
		Return(domain.ErrInvalidCode)

	svc := newTestService(us, &mockSessionStore{}, os, &mockMailer{})
	err := svc.ConfirmDeletion(context.Background(), "u1", ConfirmDeletionRequest{Code: "000000"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidCode))
	us.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
}

func TestConfirmDeletion_DisablesAccountAndSessions(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	os := &mockOTPService{}

	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Email: "a@x.com"}, nil)
	os.On("Verify", mock.Anything, "a@x.com", "111111", domain.PurposeAccountDeletion).Return(nil)
	us.On("SoftDelete", mock.Anything, "u1").Return(nil)
	ss.On("SoftDeleteByUser", mock.Anything, "u1").Return(nil)

	svc := newTestService(us, ss, os, &mockMailer{})
	require.NoError(t, svc.ConfirmDeletion(context.Background(), "u1", ConfirmDeletionRequest{Code: "111111"}))
	us.AssertExpectations(t)
	ss.AssertExpectations(t)
}

func TestConfirmDeletion_SessionSweepFailureIsNotFatal(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	os := &mockOTPService{}

	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Email: "a@x.com"}, nil)
	os.On("Verify", mock.Anything, "a@x.com", "111111", domain.PurposeAccountDeletion).Return(nil)
	us.On("SoftDelete", mock.Anything, "u1").Return(nil)
	ss.On("SoftDeleteByUser", mock.Anything, "u1").Return(errors.New("dynamo unavailable"))

	svc := newTestService(us, ss, os, &mockMailer{})
	require.NoError(t, svc.ConfirmDeletion(context.Background(), "u1", ConfirmDeletionRequest{Code: "111111"}))
}
