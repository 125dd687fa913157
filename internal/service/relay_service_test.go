package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rootseed/pos-otp-relay/internal/domain"
	"github.com/rootseed/pos-otp-relay/internal/rate"
	"github.com/rootseed/pos-otp-relay/internal/repository/memory"
	"github.com/rootseed/pos-otp-relay/internal/repository/ports"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// flakyRepo fails selected writes on top of the in-memory store.
type flakyRepo struct {
	*memory.MessageRepository
	failResponseCreate bool
	failRevert         bool
}

func (f *flakyRepo) Create(ctx context.Context, msg domain.Message) (*domain.Message, error) {
	if f.failResponseCreate && msg.Type == domain.MessageTypeOTPResponse {
		return nil, errors.New("store unavailable")
	}
	return f.MessageRepository.Create(ctx, msg)
}

func (f *flakyRepo) UpdateIfStatus(ctx context.Context, id string, patch domain.MessagePatch, expected ...domain.MessageStatus) (*domain.Message, error) {
	if f.failRevert && patch.Status == domain.MessageStatusPending && patch.ClearOTP {
		return nil, errors.New("store unavailable")
	}
	return f.MessageRepository.UpdateIfStatus(ctx, id, patch, expected...)
}

// txRepo runs InTx callbacks directly against the wrapped store.
type txRepo struct {
	*memory.MessageRepository
	calls int
}

func (t *txRepo) InTx(_ context.Context, fn func(repo ports.MessageRepository) error) error {
	t.calls++
	return fn(t.MessageRepository)
}

type stubLimiter struct {
	err   error
	calls int
}

func (s *stubLimiter) CanRequest(context.Context, string, string) error {
	s.calls++
	return s.err
}

var (
	t1      = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cashier = domain.Principal{UserID: uuid.New(), Role: domain.RoleCashier, CashierID: "CS001", Name: "Front Till"}
	admin   = domain.Principal{UserID: uuid.New(), Role: domain.RoleAdmin, Name: "Manager"}
)

func newRelayForTests(repo ports.MessageRepository, clock *testClock) *RelayService {
	svc := NewRelayService(repo, nil, nil, RelayConfig{})
	svc.now = clock.Now
	return svc
}

func newMemoryRelay(t *testing.T) (*RelayService, *memory.MessageRepository, *testClock) {
	t.Helper()
	clock := &testClock{now: t1}
	repo := memory.NewMessageRepo().WithClock(clock.Now)
	return newRelayForTests(repo, clock), repo, clock
}

func TestRequestOTPCreatesPendingRequest(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newMemoryRelay(t)

	req, err := svc.RequestOTP(ctx, cashier)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageTypeOTPRequest, req.Type)
	assert.Equal(t, domain.MessageStatusPending, req.Status)
	assert.Equal(t, "CS001", req.SenderID)
	require.NotNil(t, req.SenderName)
	assert.Equal(t, "Front Till", *req.SenderName)
	require.NotNil(t, req.ExpiresAt)
	assert.Equal(t, t1.Add(5*time.Minute), *req.ExpiresAt)

	clock.Advance(time.Minute)
	again, err := svc.RequestOTP(ctx, cashier)
	require.NoError(t, err)
	assert.Equal(t, req.ID, again.ID, "live pending request is reused")
}

func TestRequestOTPRateLimited(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newMemoryRelay(t)
	limiter := &stubLimiter{err: &rate.LimitError{Reason: "too many OTP requests", RetryAfter: time.Minute}}
	svc.limiter = limiter

	_, err := svc.RequestOTP(ctx, cashier)
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, "rate_limited", RejectionReason(err))

	limiter.err = errors.New("redis: connection refused")
	req, err := svc.RequestOTP(ctx, cashier)
	require.NoError(t, err, "limiter outages do not block cashiers")
	assert.NotEmpty(t, req.ID)
}

func TestGenerateIssuesResponseToRequester(t *testing.T) {
	ctx := context.Background()
	svc, repo, clock := newMemoryRelay(t)
	svc.generate = func() (string, error) { return "482913", nil }

	req, err := svc.RequestOTP(ctx, cashier)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	gen, err := svc.Generate(ctx, admin, req.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.MessageStatusGenerated, gen.Request.Status)
	assert.Equal(t, "482913", gen.Request.Code())

	resp := gen.Response
	assert.Equal(t, domain.MessageTypeOTPResponse, resp.Type)
	assert.Equal(t, domain.MessageStatusPending, resp.Status)
	require.NotNil(t, resp.RecipientID)
	assert.Equal(t, req.SenderID, *resp.RecipientID)
	assert.Equal(t, "482913", resp.Code())
	require.NotNil(t, resp.ExpiresAt)
	assert.Equal(t, t1.Add(7*time.Minute), *resp.ExpiresAt)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGenerateRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("already generated", func(t *testing.T) {
		svc, _, _ := newMemoryRelay(t)
		req, _ := svc.RequestOTP(ctx, cashier)
		_, err := svc.Generate(ctx, admin, req.ID)
		require.NoError(t, err)

		_, err = svc.Generate(ctx, admin, req.ID)
		require.ErrorIs(t, err, ErrRequestAlreadyGenerated)
		assert.Equal(t, "already_generated", RejectionReason(err))
	})

	t.Run("expired request", func(t *testing.T) {
		svc, _, clock := newMemoryRelay(t)
		req, _ := svc.RequestOTP(ctx, cashier)
		clock.Advance(6 * time.Minute)

		_, err := svc.Generate(ctx, admin, req.ID)
		require.ErrorIs(t, err, ErrRequestExpired)
	})

	t.Run("consumed request", func(t *testing.T) {
		svc, repo, _ := newMemoryRelay(t)
		req, _ := svc.RequestOTP(ctx, cashier)
		_, err := repo.UpdateByID(ctx, req.ID, domain.MessagePatch{Status: domain.MessageStatusUsed})
		require.NoError(t, err)

		_, err = svc.Generate(ctx, admin, req.ID)
		require.ErrorIs(t, err, ErrRequestConsumed)
	})

	t.Run("not a request", func(t *testing.T) {
		svc, _, _ := newMemoryRelay(t)
		req, _ := svc.RequestOTP(ctx, cashier)
		gen, err := svc.Generate(ctx, admin, req.ID)
		require.NoError(t, err)

		_, err = svc.Generate(ctx, admin, gen.Response.ID)
		require.ErrorIs(t, err, ErrNotAnOTPRequest)
	})

	t.Run("unknown and malformed ids", func(t *testing.T) {
		svc, _, _ := newMemoryRelay(t)
		_, err := svc.Generate(ctx, admin, uuid.NewString())
		require.ErrorIs(t, err, ErrRequestNotFound)

		_, err = svc.Generate(ctx, admin, "not-an-id")
		require.ErrorIs(t, err, ErrMessageInvalidID)
	})
}

func TestGenerateConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newMemoryRelay(t)
	req, err := svc.RequestOTP(ctx, cashier)
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Generate(ctx, admin, req.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins int
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrRequestAlreadyGenerated)
	}
	assert.Equal(t, 1, wins)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	var responses int
	for _, m := range all {
		if m.Type == domain.MessageTypeOTPResponse {
			responses++
		}
	}
	assert.Equal(t, 1, responses)
}

func TestGenerateUsesTransactionWhenAvailable(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: t1}
	repo := &txRepo{MessageRepository: memory.NewMessageRepo().WithClock(clock.Now)}
	svc := newRelayForTests(repo, clock)

	req, err := svc.RequestOTP(ctx, cashier)
	require.NoError(t, err)
	_, err = svc.Generate(ctx, admin, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)
}

func TestGenerateCompensatesFailedResponse(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: t1}
	repo := &flakyRepo{MessageRepository: memory.NewMessageRepo().WithClock(clock.Now), failResponseCreate: true}
	svc := newRelayForTests(repo, clock)

	req, err := svc.RequestOTP(ctx, cashier)
	require.NoError(t, err)

	_, err = svc.Generate(ctx, admin, req.ID)
	require.Error(t, err)
	var partial *PartialFailureError
	assert.False(t, errors.As(err, &partial))

	stored, err := repo.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageStatusPending, stored.Status)
	assert.Nil(t, stored.OTP)

	repo.failResponseCreate = false
	_, err = svc.Generate(ctx, admin, req.ID)
	assert.NoError(t, err, "reverted request can be generated again")
}

func TestGeneratePartialFailureAndRepair(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: t1}
	repo := &flakyRepo{MessageRepository: memory.NewMessageRepo().WithClock(clock.Now), failResponseCreate: true, failRevert: true}
	svc := newRelayForTests(repo, clock)

	req, err := svc.RequestOTP(ctx, cashier)
	require.NoError(t, err)

	_, err = svc.Generate(ctx, admin, req.ID)
	var partial *PartialFailureError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, req.ID, partial.RequestID)

	stored, err := repo.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageStatusGenerated, stored.Status)

	repo.failResponseCreate = false
	resp, err := svc.Repair(ctx, admin, req.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Code(), resp.Code())
	require.NotNil(t, resp.RecipientID)
	assert.Equal(t, "CS001", *resp.RecipientID)

	again, err := svc.Repair(ctx, admin, req.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.ID, again.ID, "repair is idempotent")
}

func TestRepairRejectsPendingRequest(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newMemoryRelay(t)
	req, _ := svc.RequestOTP(ctx, cashier)

	_, err := svc.Repair(ctx, admin, req.ID)
	assert.ErrorIs(t, err, ErrRequestNotGenerated)
}

func TestGenerateSupersedesPreviousResponse(t *testing.T) {
	ctx := context.Background()
	svc, repo, clock := newMemoryRelay(t)

	first, _ := svc.RequestOTP(ctx, cashier)
	gen1, err := svc.Generate(ctx, admin, first.ID)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	second, err := svc.RequestOTP(ctx, cashier)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
	gen2, err := svc.Generate(ctx, admin, second.ID)
	require.NoError(t, err)

	old, err := repo.FindByID(ctx, gen1.Response.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageStatusExpired, old.Status)

	var live int
	all, _ := repo.ListAll(ctx)
	for _, m := range all {
		if m.IsLiveResponseFor("CS001", clock.Now()) {
			live++
			assert.Equal(t, gen2.Response.ID, m.ID)
		}
	}
	assert.Equal(t, 1, live)
}

func TestPendingRequestsHonourExpiry(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newMemoryRelay(t)
	req, err := svc.RequestOTP(ctx, cashier)
	require.NoError(t, err)

	clock.Advance(4 * time.Minute)
	pending, err := svc.PendingRequests(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, req.ID, pending[0].ID)

	clock.Advance(2 * time.Minute)
	pending, err = svc.PendingRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	active, err := svc.Snapshot(ctx, admin, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := svc.Snapshot(ctx, admin, false)
	require.NoError(t, err)
	assert.Len(t, all, 1, "expired messages are hidden, not purged")
}

func TestConsumeExactlyOnce(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newMemoryRelay(t)
	svc.generate = func() (string, error) { return "654321", nil }

	req, _ := svc.RequestOTP(ctx, cashier)
	gen, err := svc.Generate(ctx, admin, req.ID)
	require.NoError(t, err)

	_, err = svc.Consume(ctx, "CS001", "111111")
	require.ErrorIs(t, err, ErrCodeInvalid)
	_, err = svc.Consume(ctx, "CS002", "654321")
	require.ErrorIs(t, err, ErrCodeInvalid, "codes are bound to their cashier")

	claim, err := svc.Consume(ctx, "CS001", "654321")
	require.NoError(t, err)
	assert.Equal(t, gen.Response.ID, claim.Response.ID)
	assert.Equal(t, domain.MessageStatusUsed, claim.Response.Status)
	assert.Equal(t, domain.MessageStatusPending, claim.Previous)

	storedReq, err := repo.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageStatusUsed, storedReq.Status)

	_, err = svc.Consume(ctx, "CS001", "654321")
	require.ErrorIs(t, err, ErrCodeUsed)
}

func TestConsumeConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newMemoryRelay(t)
	svc.generate = func() (string, error) { return "222333", nil }
	req, _ := svc.RequestOTP(ctx, cashier)
	_, err := svc.Generate(ctx, admin, req.ID)
	require.NoError(t, err)

	const callers = 6
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Consume(ctx, "CS001", "222333")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins int
	for err := range results {
		if err == nil {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}

func TestConsumeExpiredCode(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newMemoryRelay(t)
	svc.generate = func() (string, error) { return "777888", nil }
	req, _ := svc.RequestOTP(ctx, cashier)
	_, err := svc.Generate(ctx, admin, req.ID)
	require.NoError(t, err)

	clock.Advance(5*time.Minute + time.Second)
	_, err = svc.Consume(ctx, "CS001", "777888")
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestReleaseRestoresCode(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newMemoryRelay(t)
	svc.generate = func() (string, error) { return "909090", nil }
	req, _ := svc.RequestOTP(ctx, cashier)
	gen, err := svc.Generate(ctx, admin, req.ID)
	require.NoError(t, err)
	_, err = svc.MarkDelivered(ctx, cashier, gen.Response.ID)
	require.NoError(t, err)

	claim, err := svc.Consume(ctx, "CS001", "909090")
	require.NoError(t, err)
	assert.Equal(t, domain.MessageStatusDelivered, claim.Previous)

	require.NoError(t, svc.Release(ctx, claim))
	stored, err := repo.FindByID(ctx, gen.Response.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageStatusDelivered, stored.Status)
	storedReq, err := repo.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageStatusGenerated, storedReq.Status)

	_, err = svc.Consume(ctx, "CS001", "909090")
	assert.NoError(t, err)
}

func TestMarkDelivered(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newMemoryRelay(t)
	req, _ := svc.RequestOTP(ctx, cashier)
	gen, err := svc.Generate(ctx, admin, req.ID)
	require.NoError(t, err)

	other := domain.Principal{UserID: uuid.New(), Role: domain.RoleCashier, CashierID: "CS002"}
	_, err = svc.MarkDelivered(ctx, other, gen.Response.ID)
	require.ErrorIs(t, err, ErrNotRecipient)

	_, err = svc.MarkDelivered(ctx, cashier, req.ID)
	require.ErrorIs(t, err, ErrNotAnOTPResponse)

	delivered, err := svc.MarkDelivered(ctx, cashier, gen.Response.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageStatusDelivered, delivered.Status)

	again, err := svc.MarkDelivered(ctx, cashier, gen.Response.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageStatusDelivered, again.Status)
}

func TestCreateAppliesDefaults(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newMemoryRelay(t)

	created, err := svc.Create(ctx, admin, domain.Message{Type: domain.MessageTypeOTPRequest, SenderID: "CS001"})
	require.NoError(t, err)
	assert.Equal(t, t1, created.Timestamp)
	assert.Equal(t, domain.MessageStatusPending, created.Status)
	require.NotNil(t, created.ExpiresAt)
	assert.Equal(t, t1.Add(5*time.Minute), *created.ExpiresAt)

	_, err = svc.Create(ctx, admin, domain.Message{Type: domain.MessageTypeOTPRequest})
	assert.ErrorIs(t, err, ErrMessageValidation)
}

func TestUpdateWithCodeRestartsWindow(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newMemoryRelay(t)
	created, err := svc.Create(ctx, admin, domain.Message{Type: domain.MessageTypeOTPRequest, SenderID: "CS001"})
	require.NoError(t, err)

	clock.Advance(3 * time.Minute)
	code := "135790"
	updated, err := svc.Update(ctx, admin, created.ID, domain.MessagePatch{OTP: &code, Status: domain.MessageStatusGenerated})
	require.NoError(t, err)
	require.NotNil(t, updated.ExpiresAt)
	assert.Equal(t, t1.Add(8*time.Minute), *updated.ExpiresAt)
	require.NotNil(t, updated.UpdatedAt)

	_, err = svc.Update(ctx, admin, uuid.NewString(), domain.MessagePatch{Status: domain.MessageStatusUsed})
	assert.ErrorIs(t, err, ErrMessageNotFound)
	_, err = svc.Update(ctx, admin, "42", domain.MessagePatch{Status: domain.MessageStatusUsed})
	assert.ErrorIs(t, err, ErrMessageInvalidID)
}

func TestCashierMayOnlyPostOwnRequest(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newMemoryRelay(t)
	code, self := "111111", "CS001"

	forged := []domain.Message{
		{Type: domain.MessageTypeOTPResponse, SenderID: "CS001", RecipientID: &self, OTP: &code},
		{Type: domain.MessageTypeOTPRequest, SenderID: "CS002"},
		{Type: domain.MessageTypeOTPRequest, SenderID: "CS001", OTP: &code},
		{Type: domain.MessageTypeOTPRequest, SenderID: "CS001", Status: domain.MessageStatusGenerated},
	}
	for _, msg := range forged {
		_, err := svc.Create(ctx, cashier, msg)
		assert.ErrorIs(t, err, ErrMessageForbidden)
	}
	all, _ := repo.ListAll(ctx)
	assert.Empty(t, all)

	own, err := svc.Create(ctx, cashier, domain.Message{Type: domain.MessageTypeOTPRequest})
	require.NoError(t, err)
	assert.Equal(t, "CS001", own.SenderID)

	_, err = svc.Update(ctx, cashier, own.ID, domain.MessagePatch{OTP: &code})
	assert.ErrorIs(t, err, ErrMessageForbidden)

	_, err = svc.Consume(ctx, "CS001", code)
	assert.ErrorIs(t, err, ErrCodeInvalid)
}

func TestCreateResponseNeedsCodeAndRecipient(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newMemoryRelay(t)
	code, recipient := "246810", "CS001"

	_, err := svc.Create(ctx, admin, domain.Message{Type: domain.MessageTypeOTPResponse, SenderID: "admin", OTP: &code})
	assert.ErrorIs(t, err, ErrMessageValidation)
	_, err = svc.Create(ctx, admin, domain.Message{Type: domain.MessageTypeOTPResponse, SenderID: "admin", RecipientID: &recipient})
	assert.ErrorIs(t, err, ErrMessageValidation)

	resp, err := svc.Create(ctx, admin, domain.Message{Type: domain.MessageTypeOTPResponse, SenderID: "admin", RecipientID: &recipient, OTP: &code})
	require.NoError(t, err)
	require.NotNil(t, resp.ExpiresAt)
	assert.Equal(t, t1.Add(5*time.Minute), *resp.ExpiresAt)
}

func TestConsumeIgnoresResponsesWithoutDeadline(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newMemoryRelay(t)
	code, recipient := "313131", "CS001"
	_, err := repo.Create(ctx, domain.Message{
		Type: domain.MessageTypeOTPResponse, SenderID: "admin", RecipientID: &recipient,
		OTP: &code, Status: domain.MessageStatusPending, Timestamp: t1,
	})
	require.NoError(t, err)

	_, err = svc.Consume(ctx, "CS001", code)
	assert.ErrorIs(t, err, ErrCodeInvalid)
}

func TestSnapshotScopedToCashier(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newMemoryRelay(t)
	other := domain.Principal{UserID: uuid.New(), Role: domain.RoleCashier, CashierID: "CS002", Name: "Back Till"}

	mine, err := svc.RequestOTP(ctx, cashier)
	require.NoError(t, err)
	theirs, err := svc.RequestOTP(ctx, other)
	require.NoError(t, err)
	gen, err := svc.Generate(ctx, admin, theirs.ID)
	require.NoError(t, err)

	seen, err := svc.Snapshot(ctx, cashier, false)
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, mine.ID, seen[0].ID)

	seen, err = svc.Snapshot(ctx, other, false)
	require.NoError(t, err)
	require.Len(t, seen, 2)
	ids := []string{seen[0].ID, seen[1].ID}
	assert.ElementsMatch(t, []string{theirs.ID, gen.Response.ID}, ids)

	seen, err = svc.Snapshot(ctx, admin, false)
	require.NoError(t, err)
	assert.Len(t, seen, 3)
}

// racingRepo changes the target response right before Consume's conditional
// update lands.
type racingRepo struct {
	*memory.MessageRepository
	interfere domain.MessageStatus
}

func (r *racingRepo) UpdateIfStatus(ctx context.Context, id string, patch domain.MessagePatch, expected ...domain.MessageStatus) (*domain.Message, error) {
	if r.interfere != "" && patch.Status == domain.MessageStatusUsed {
		status := r.interfere
		r.interfere = ""
		if _, err := r.MessageRepository.UpdateByID(ctx, id, domain.MessagePatch{Status: status}); err != nil {
			return nil, err
		}
	}
	return r.MessageRepository.UpdateIfStatus(ctx, id, patch, expected...)
}

func TestConsumeLoserReportsCurrentState(t *testing.T) {
	ctx := context.Background()
	for status, want := range map[domain.MessageStatus]error{
		domain.MessageStatusUsed:    ErrCodeUsed,
		domain.MessageStatusExpired: ErrCodeExpired,
	} {
		t.Run(string(status), func(t *testing.T) {
			clock := &testClock{now: t1}
			repo := &racingRepo{MessageRepository: memory.NewMessageRepo().WithClock(clock.Now)}
			svc := newRelayForTests(repo, clock)
			svc.generate = func() (string, error) { return "565656", nil }
			req, _ := svc.RequestOTP(ctx, cashier)
			_, err := svc.Generate(ctx, admin, req.ID)
			require.NoError(t, err)

			repo.interfere = status
			_, err = svc.Consume(ctx, "CS001", "565656")
			assert.ErrorIs(t, err, want)
		})
	}
}

// stuckRequestRepo cannot move a request back from used.
type stuckRequestRepo struct {
	*memory.MessageRepository
}

func (r *stuckRequestRepo) UpdateIfStatus(ctx context.Context, id string, patch domain.MessagePatch, expected ...domain.MessageStatus) (*domain.Message, error) {
	if patch.Status == domain.MessageStatusGenerated && slices.Contains(expected, domain.MessageStatusUsed) {
		return nil, errors.New("store unavailable")
	}
	return r.MessageRepository.UpdateIfStatus(ctx, id, patch, expected...)
}

func TestReleaseLogsRequestRevertFailure(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: t1}
	repo := &stuckRequestRepo{MessageRepository: memory.NewMessageRepo().WithClock(clock.Now)}
	core, logs := observer.New(zap.WarnLevel)
	svc := NewRelayService(repo, nil, zap.New(core), RelayConfig{})
	svc.now = clock.Now
	svc.generate = func() (string, error) { return "808080", nil }

	req, _ := svc.RequestOTP(ctx, cashier)
	_, err := svc.Generate(ctx, admin, req.ID)
	require.NoError(t, err)
	claim, err := svc.Consume(ctx, "CS001", "808080")
	require.NoError(t, err)

	require.NoError(t, svc.Release(ctx, claim))
	entries := logs.FilterMessage("revert otp request to generated").All()
	require.Len(t, entries, 1)
	assert.Equal(t, req.ID, entries[0].ContextMap()["request_id"])
}
