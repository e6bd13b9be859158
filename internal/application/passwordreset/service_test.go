package passwordreset

import (
	"context"
	"errors"
	"testing"

	"github.com/identity-api/internal/application/session"
	"github.com/identity-api/internal/domain"
	jwtinfra "github.com/identity-api/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
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
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
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

type mockSigner struct{ mock.Mock }

func (m *mockSigner) SignReset(email string) (string, error) {
	args := m.Called(email)
	return args.String(0), args.Error(1)
}
func (m *mockSigner) VerifyReset(tokenStr string) (*jwtinfra.ResetClaims, error) {
	args := m.Called(tokenStr)
	if c, _ := args.Get(0).(*jwtinfra.ResetClaims); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMinter struct{ mock.Mock }

func (m *mockMinter) Mint(ctx context.Context, u *domain.User) (*session.Result, error) {
	args := m.Called(ctx, u)
	if r, _ := args.Get(0).(*session.Result); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

// --- builder ---

func newTestService(us *mockUserStore, os *mockOTPService, sg *mockSigner, mi *mockMinter, ml *mockMailer, strict bool) Service {
	return NewService(ServiceDeps{
		UserRepo:   us,
		OTPService: os,
		Signer:     sg,
		Sessions:   mi,
		Mailer:     ml,
		StrictMail: strict,
	})
}

// --- Forgot ---

func TestForgot_UnknownEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "x@x.com").Return(nil, domain.ErrNotFound)

	svc := newTestService(us, nil, nil, nil, nil, false)
	err := svc.Forgot(context.Background(), "x@x.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestForgot_UnverifiedAccount(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.User{UserID: "u1", EmailVerified: false}, nil)

	svc := newTestService(us, nil, nil, nil, nil, false)
	err := svc.Forgot(context.Background(), "a@x.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnverified))
}

func TestForgot_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	os := &mockOTPService{}
	ml := &mockMailer{}

	us.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.User{UserID: "u1", Email: "a@x.com", EmailVerified: true}, nil)
	os.On("Issue", mock.Anything, "a@x.com", domain.PurposePasswordReset).
		Return(&domain.OTPRecord{Email: "a@x.com", Purpose: domain.PurposePasswordReset, Code: "654321"}, nil)
	ml.On("SendEmail", "a@x.com", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(us, os, nil, nil, ml, false)
	require.NoError(t, svc.Forgot(context.Background(), "a@x.com"))
	os.AssertExpectations(t)
	ml.AssertExpectations(t)
}

// --- VerifyOTP ---

func TestVerifyOTP_MintsResetToken(t *testing.T) {
	os := &mockOTPService{}
	sg := &mockSigner{}

	os.On("Verify", mock.Anything, "a@x.com", "654321", domain.PurposePasswordReset).Return(nil)
	sg.On("SignReset", "a@x.com").Return("reset-token", nil)

	svc := newTestService(nil, os, sg, nil, nil, false)
	token, err := svc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "a@x.com", Code: "654321"})

	require.NoError(t, err)
	assert.Equal(t, "reset-token", token)
}

func TestVerifyOTP_ReplayedCode(t *testing.T) {
	os := &mockOTPService{}
	sg := &mockSigner{}

	os.On("Verify", mock.Anything, "a@x.com", "654321", domain.PurposePasswordReset).
		Return(domain.ErrCodeUsed)

	svc := newTestService(nil, os, sg, nil, nil, false)
	_, err := svc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "a@x.com", Code: "654321"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCodeUsed))
	sg.AssertNotCalled(t, "SignReset", mock.Anything)
}

// --- Reset ---

func TestReset_InvalidToken(t *testing.T) {
	sg := &mockSigner{}
	sg.On("VerifyReset", "some-session-jwt").Return(nil, domain.ErrInvalidToken)

	svc := newTestService(nil, nil, sg, nil, nil, false)
	_, err := svc.Reset(context.Background(), ResetRequest{ResetToken: "some-session-jwt", NewPassword: "newpassword"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))
}

func TestReset_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	sg := &mockSigner{}
	mi := &mockMinter{}

	sg.On("VerifyReset", "reset-token").Return(&jwtinfra.ResetClaims{Email: "a@x.com", Purpose: jwtinfra.PurposePasswordReset}, nil)
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.User{UserID: "u1", Email: "a@x.com", EmailVerified: true}, nil)
	us.On("Update", mock.Anything, "u1", mock.MatchedBy(func(m map[string]interface{}) bool {
		hash, ok := m[fieldPasswordHash].(string)
		return ok && bcrypt.CompareHashAndPassword([]byte(hash), []byte("newpassword")) == nil
	})).Return(nil)
	mi.On("Mint", mock.Anything, mock.AnythingOfType("*domain.User")).
		Return(&session.Result{Bearer: "fresh-bearer", Session: &domain.Session{SessionID: "s2"}}, nil)

	svc := newTestService(us, nil, sg, mi, nil, false)
	result, err := svc.Reset(context.Background(), ResetRequest{ResetToken: "reset-token", NewPassword: "newpassword"})

	require.NoError(t, err)
	assert.Equal(t, "fresh-bearer", result.Bearer)
	us.AssertExpectations(t)
}

// --- ChangePassword ---

func TestChangePassword_WrongCurrentLeavesHashUnmodified(t *testing.T) {
	us := &mockUserStore{}
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.DefaultCost)
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", PasswordHash: string(hash)}, nil)

	svc := newTestService(us, nil, nil, nil, nil, false)
	_, err := svc.ChangePassword(context.Background(), "u1", ChangePasswordRequest{
		CurrentPassword: "wrong", NewPassword: "newpassword",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrWrongPassword))
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestChangePassword_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	mi := &mockMinter{}

	hash, _ := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.DefaultCost)
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Email: "a@x.com", PasswordHash: string(hash)}, nil)
	us.On("Update", mock.Anything, "u1", mock.MatchedBy(func(m map[string]interface{}) bool {
		_, ok := m[fieldPasswordHash]
		return ok
	})).Return(nil)
	mi.On("Mint", mock.Anything, mock.AnythingOfType("*domain.User")).
		Return(&session.Result{Bearer: "fresh-bearer", Session: &domain.Session{SessionID: "s3"}}, nil)

	svc := newTestService(us, nil, nil, mi, nil, false)
	result, err := svc.ChangePassword(context.Background(), "u1", ChangePasswordRequest{
		CurrentPassword: "correct", NewPassword: "newpassword",
	})

	require.NoError(t, err)
	assert.Equal(t, "fresh-bearer", result.Bearer)
	us.AssertExpectations(t)
}
