package otp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/identity-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory otpStore so issue/verify round-trips exercise
// the real state transitions instead of canned mock returns.
type memStore struct {
	records map[string]*domain.OTPRecord
	failPut bool
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*domain.OTPRecord)}
}

func key(email, purpose string) string { return email + "|" + purpose }

func (m *memStore) Put(_ context.Context, rec *domain.OTPRecord) error {
	if m.failPut {
		return errors.New("dynamo unavailable")
	}
	cp := *rec
	m.records[key(rec.Email, rec.Purpose)] = &cp
	return nil
}

func (m *memStore) Get(_ context.Context, email, purpose string) (*domain.OTPRecord, error) {
	rec, ok := m.records[key(email, purpose)]
	if !ok {
		return nil, fmt.Errorf("otp record not found: %w", domain.ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (m *memStore) Delete(_ context.Context, email, purpose string) error {
	delete(m.records, key(email, purpose))
	return nil
}

func (m *memStore) MarkUsed(_ context.Context, email, purpose string) error {
	rec, ok := m.records[key(email, purpose)]
	if !ok {
		return errors.New("no record to mark")
	}
	rec.Used = true
	return nil
}

func TestIssue_GeneratesSixDigitCodeWithTTL(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)

	before := time.Now().Unix()
	rec, err := svc.Issue(context.Background(), "a@x.com", domain.PurposeRegistration)
	require.NoError(t, err)

	assert.Len(t, rec.Code, 6)
	for _, c := range rec.Code {
		assert.True(t, c >= '0' && c <= '9')
	}
	assert.False(t, rec.Used)
	assert.GreaterOrEqual(t, rec.ExpiresAt, before+int64(CodeTTL.Seconds()))
	assert.Equal(t, rec.ExpiresAt-rec.CreatedAt, int64(CodeTTL.Seconds()))
}

func TestIssue_ReplacesPriorCodeForSameKey(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	ctx := context.Background()

	first, err := svc.Issue(ctx, "a@x.com", domain.PurposeRegistration)
	require.NoError(t, err)
	second, err := svc.Issue(ctx, "a@x.com", domain.PurposeRegistration)
	require.NoError(t, err)

	// The old code no longer validates; the new one does.
	if first.Code != second.Code {
		err = svc.Verify(ctx, "a@x.com", first.Code, domain.PurposeRegistration)
		assert.True(t, errors.Is(err, domain.ErrInvalidCode))
	}
	require.NoError(t, svc.Verify(ctx, "a@x.com", second.Code, domain.PurposeRegistration))
}

func TestIssue_IndependentPerPurpose(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	ctx := context.Background()

	reg, err := svc.Issue(ctx, "a@x.com", domain.PurposeRegistration)
	require.NoError(t, err)
	reset, err := svc.Issue(ctx, "a@x.com", domain.PurposePasswordReset)
	require.NoError(t, err)

	// A registration code never consumes the reset slot.
	require.NoError(t, svc.Verify(ctx, "a@x.com", reg.Code, domain.PurposeRegistration))
	require.NoError(t, svc.Verify(ctx, "a@x.com", reset.Code, domain.PurposePasswordReset))
}

func TestIssue_UnknownPurpose(t *testing.T) {
	svc := NewService(newMemStore())
	_, err := svc.Issue(context.Background(), "a@x.com", "mfa")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestIssue_StoreFaultIsDownstream(t *testing.T) {
	store := newMemStore()
	store.failPut = true
	svc := NewService(store)
	_, err := svc.Issue(context.Background(), "a@x.com", domain.PurposeRegistration)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDownstream))
}

func TestVerify_NoRecord(t *testing.T) {
	svc := NewService(newMemStore())
	err := svc.Verify(context.Background(), "a@x.com", "123456", domain.PurposeRegistration)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidCode))
}

func TestVerify_WrongCode(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	ctx := context.Background()

	rec, err := svc.Issue(ctx, "a@x.com", domain.PurposeRegistration)
	require.NoError(t, err)

	wrong := "000000"
	if rec.Code == wrong {
		wrong = "000001"
	}
	err = svc.Verify(ctx, "a@x.com", wrong, domain.PurposeRegistration)
	assert.True(t, errors.Is(err, domain.ErrInvalidCode))

	// A wrong guess never consumes the code.
	require.NoError(t, svc.Verify(ctx, "a@x.com", rec.Code, domain.PurposeRegistration))
}

func TestVerify_SucceedsAtMostOnce(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	ctx := context.Background()

	rec, err := svc.Issue(ctx, "a@x.com", domain.PurposeRegistration)
	require.NoError(t, err)

	require.NoError(t, svc.Verify(ctx, "a@x.com", rec.Code, domain.PurposeRegistration))

	// Identical replay — the used flag is the sole idempotency guard.
	err = svc.Verify(ctx, "a@x.com", rec.Code, domain.PurposeRegistration)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCodeUsed))
}

func TestVerify_ExpiredLeavesRecordUntouched(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	ctx := context.Background()

	rec, err := svc.Issue(ctx, "a@x.com", domain.PurposePasswordReset)
	require.NoError(t, err)

	stored := store.records[key("a@x.com", domain.PurposePasswordReset)]
	stored.ExpiresAt = time.Now().Add(-time.Minute).Unix()

	err = svc.Verify(ctx, "a@x.com", rec.Code, domain.PurposePasswordReset)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExpiredCode))

	// A late-but-correct code stays distinguishable from a wrong one.
	assert.False(t, stored.Used)
}

func TestVerify_UsedBeatsExpired(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	ctx := context.Background()

	rec, err := svc.Issue(ctx, "a@x.com", domain.PurposeRegistration)
	require.NoError(t, err)
	require.NoError(t, svc.Verify(ctx, "a@x.com", rec.Code, domain.PurposeRegistration))

	// Consumed at minute 9, replayed at minute 11: still "already used".
	store.records[key("a@x.com", domain.PurposeRegistration)].ExpiresAt = time.Now().Add(-time.Minute).Unix()
	err = svc.Verify(ctx, "a@x.com", rec.Code, domain.PurposeRegistration)
	assert.True(t, errors.Is(err, domain.ErrCodeUsed))
}

func TestPeek_ReturnsWithoutConsuming(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	ctx := context.Background()

	rec, err := svc.Issue(ctx, "a@x.com", domain.PurposeRegistration)
	require.NoError(t, err)

	peeked, err := svc.Peek(ctx, "a@x.com", domain.PurposeRegistration)
	require.NoError(t, err)
	assert.Equal(t, rec.Code, peeked.Code)
	assert.False(t, peeked.Used)

	require.NoError(t, svc.Verify(ctx, "a@x.com", rec.Code, domain.PurposeRegistration))
}

func TestPeek_NotFound(t *testing.T) {
	svc := NewService(newMemStore())
	_, err := svc.Peek(context.Background(), "nobody@x.com", domain.PurposeRegistration)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
