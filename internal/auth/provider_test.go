//go:build !production

package auth_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarta/server/internal/auth"
	"github.com/smarta/server/internal/auth/mocks"
	"github.com/smarta/server/internal/metrics"
	"github.com/smarta/server/internal/model"
	"github.com/smarta/server/internal/storage"
)

const testPhone = "+254712345678"

type harness struct {
	provider *auth.Provider
	channel  *mocks.MockChannel
	pending  *storage.MemoryStore
	metrics  *metrics.Metrics
}

func newHarness(t *testing.T, mode auth.Mode) *harness {
	t.Helper()
	channel := &mocks.MockChannel{}
	codes, err := auth.NewCodeProvider(mode, channel)
	require.NoError(t, err)
	pending := storage.NewMemoryStore()
	m := metrics.New(prometheus.NewRegistry())

	p := auth.NewProvider(auth.ProviderConfig{
		ClientID: "client-1",
		Codes:    codes,
		Channel:  channel,
		Pending:  pending,
		Metrics:  m,
	})
	require.Equal(t, auth.StateUnknown, p.Snapshot().State, "state must be unknown before the first session check")
	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() { _ = p.Close() })
	return &harness{provider: p, channel: channel, pending: pending, metrics: m}
}

func remoteSession(id string) *model.Session {
	return &model.Session{
		AccessToken: "access-" + id,
		User:        model.User{ID: id, Phone: testPhone},
	}
}

func TestProvider_StartResolvesState(t *testing.T) {
	t.Run("NoSession", func(t *testing.T) {
		h := newHarness(t, auth.ModeProduction)
		assert.Equal(t, auth.StateNoSession, h.provider.Snapshot().State)
	})

	t.Run("ExistingSession", func(t *testing.T) {
		channel := &mocks.MockChannel{Current: remoteSession("user-a")}
		p := auth.NewProvider(auth.ProviderConfig{
			ClientID: "c", Codes: auth.NewLiveCodes(channel), Channel: channel, Pending: storage.NewMemoryStore(),
		})
		require.NoError(t, p.Start(context.Background()))
		defer p.Close()
		snap := p.Snapshot()
		assert.Equal(t, auth.StateActive, snap.State)
		assert.Equal(t, "user-a", snap.Session.User.ID)
	})

	t.Run("SessionCheckFails", func(t *testing.T) {
		channel := &mocks.MockChannel{GetSessionErr: errors.New("network down")}
		p := auth.NewProvider(auth.ProviderConfig{
			ClientID: "c", Codes: auth.NewLiveCodes(channel), Channel: channel, Pending: storage.NewMemoryStore(),
		})
		require.NoError(t, p.Start(context.Background()))
		defer p.Close()
		assert.Equal(t, auth.StateNoSession, p.Snapshot().State)
	})

	t.Run("PendingRestoredFromStore", func(t *testing.T) {
		pending := storage.NewMemoryStore()
		require.NoError(t, pending.Put(context.Background(), "c", auth.SlotPendingPhone, testPhone))
		channel := &mocks.MockChannel{}
		p := auth.NewProvider(auth.ProviderConfig{
			ClientID: "c", Codes: auth.NewLiveCodes(channel), Channel: channel, Pending: pending,
		})
		require.NoError(t, p.Start(context.Background()))
		defer p.Close()
		assert.Equal(t, auth.StatePendingVerification, p.Snapshot().State)
	})
}

func TestProvider_DevelopmentFlow(t *testing.T) {
	h := newHarness(t, auth.ModeDevelopment)
	ctx := context.Background()

	require.NoError(t, h.provider.SignInWithPhone(ctx, testPhone))
	assert.Empty(t, h.channel.SignInPhones, "development sign-in must not contact the backend")
	snap := h.provider.Snapshot()
	assert.Equal(t, auth.StatePendingVerification, snap.State)
	assert.Equal(t, testPhone, snap.PendingPhone)

	phone, _ := h.pending.Get(ctx, "client-1", auth.SlotPendingPhone)
	assert.Equal(t, testPhone, phone)
	marker, _ := h.pending.Get(ctx, "client-1", auth.SlotDevMode)
	assert.Equal(t, "true", marker)

	require.NoError(t, h.provider.VerifyOTP(ctx, testPhone, "123456"))
	assert.Zero(t, h.channel.VerifyCalls, "development verify must not contact the backend")
	snap = h.provider.Snapshot()
	assert.Equal(t, auth.StateActive, snap.State)
	assert.True(t, snap.Session.IsDevelopment())
	assert.Empty(t, snap.Error)

	phone, _ = h.pending.Get(ctx, "client-1", auth.SlotPendingPhone)
	assert.Empty(t, phone, "pending phone must be cleared after verify")
	marker, _ = h.pending.Get(ctx, "client-1", auth.SlotDevMode)
	assert.Empty(t, marker, "dev marker must be cleared after verify")
}

func TestProvider_DevelopmentVerifyAnySixDigits(t *testing.T) {
	for i := 0; i < 1000000; i += 99991 {
		code := fmt.Sprintf("%06d", i)
		h := newHarness(t, auth.ModeDevelopment)
		require.NoError(t, h.provider.VerifyOTP(context.Background(), testPhone, code), "code %s", code)
		assert.True(t, h.provider.Session().IsDevelopment(), "code %s", code)
	}
}

func TestProvider_DevelopmentVerifyMalformedCode(t *testing.T) {
	h := newHarness(t, auth.ModeDevelopment)
	ctx := context.Background()
	require.NoError(t, h.provider.SignInWithPhone(ctx, testPhone))

	for _, code := range []string{"12345", "1234567", "abc123", "", "12-456"} {
		err := h.provider.VerifyOTP(ctx, testPhone, code)
		require.ErrorIs(t, err, auth.ErrInvalidCode, "code %q", code)
		snap := h.provider.Snapshot()
		assert.Equal(t, "code must be 6 digits", snap.Error)
		assert.Nil(t, snap.Session, "session must be unchanged")
		assert.Equal(t, auth.StatePendingVerification, snap.State, "pending marker allows retry")
	}
	assert.Zero(t, h.channel.VerifyCalls)
}

func TestProvider_DevelopmentVerifyFallsBackToPendingPhone(t *testing.T) {
	h := newHarness(t, auth.ModeDevelopment)
	ctx := context.Background()
	require.NoError(t, h.provider.SignInWithPhone(ctx, testPhone))
	require.NoError(t, h.provider.VerifyOTP(ctx, "", "000000"))
	assert.Equal(t, testPhone, h.provider.Session().User.Phone)
}

func TestProvider_DevelopmentSignOutIsLocal(t *testing.T) {
	h := newHarness(t, auth.ModeDevelopment)
	ctx := context.Background()
	require.NoError(t, h.provider.SignInWithPhone(ctx, testPhone))
	require.NoError(t, h.provider.VerifyOTP(ctx, testPhone, "111111"))

	h.channel.SignOutErr = errors.New("must not be called")
	require.NoError(t, h.provider.SignOut(ctx))
	assert.Zero(t, h.channel.SignOutCalls, "development sign-out must not issue a remote call")
	assert.Equal(t, auth.StateNoSession, h.provider.Snapshot().State)
}

func TestProvider_ProductionFlow(t *testing.T) {
	h := newHarness(t, auth.ModeProduction)
	ctx := context.Background()
	h.channel.VerifyResult = remoteSession("8f2c1a9e-0000-4000-8000-000000000001")

	require.NoError(t, h.provider.SignInWithPhone(ctx, testPhone))
	assert.Equal(t, []string{testPhone}, h.channel.SignInPhones)
	marker, _ := h.pending.Get(ctx, "client-1", auth.SlotDevMode)
	assert.Empty(t, marker, "production sign-in must not write the dev marker")
	assert.Equal(t, auth.StatePendingVerification, h.provider.Snapshot().State)

	require.NoError(t, h.provider.VerifyOTP(ctx, testPhone, "999999"))
	assert.Equal(t, 1, h.channel.VerifyCalls)
	snap := h.provider.Snapshot()
	assert.Equal(t, auth.StateActive, snap.State)
	assert.False(t, snap.Session.IsDevelopment())
	assert.Empty(t, snap.PendingPhone)

	require.NoError(t, h.provider.SignOut(ctx))
	assert.Equal(t, 1, h.channel.SignOutCalls)
	assert.Equal(t, auth.StateNoSession, h.provider.Snapshot().State)
}

func TestProvider_ProductionSignInFailure(t *testing.T) {
	h := newHarness(t, auth.ModeProduction)
	h.channel.SignInErr = errors.New("sms gateway unavailable")

	err := h.provider.SignInWithPhone(context.Background(), testPhone)
	require.Error(t, err)
	snap := h.provider.Snapshot()
	assert.Contains(t, snap.Error, "sms gateway unavailable")
	assert.False(t, snap.Loading)
	assert.Equal(t, auth.StateNoSession, snap.State)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.AuthOperations.WithLabelValues("sign_in", "error")))
}

func TestProvider_ProductionVerifyWithoutUser(t *testing.T) {
	h := newHarness(t, auth.ModeProduction)
	h.channel.VerifyResult = nil

	err := h.provider.VerifyOTP(context.Background(), testPhone, "123456")
	require.ErrorIs(t, err, auth.ErrCodeRejected)
	assert.Equal(t, "invalid verification code", h.provider.Snapshot().Error)
}

func TestProvider_ProductionSignOutFailureKeepsSession(t *testing.T) {
	h := newHarness(t, auth.ModeProduction)
	ctx := context.Background()
	h.channel.VerifyResult = remoteSession("user-b")
	require.NoError(t, h.provider.VerifyOTP(ctx, testPhone, "123456"))

	h.channel.SignOutErr = errors.New("network unreachable")
	err := h.provider.SignOut(ctx)
	require.Error(t, err)

	snap := h.provider.Snapshot()
	assert.Equal(t, auth.StateActive, snap.State, "failed remote sign-out must leave the user authenticated")
	assert.Equal(t, "user-b", snap.Session.User.ID)
	assert.Contains(t, snap.Error, "network unreachable")
	assert.Equal(t, 1, h.channel.SignOutCalls)
}

func TestProvider_DevelopmentModeRemoteSessionSignsOutRemotely(t *testing.T) {
	// A real session in development mode still goes through the backend.
	h := newHarness(t, auth.ModeDevelopment)
	h.channel.Emit(auth.AuthEvent{Type: auth.EventSignedIn, Session: remoteSession("user-c")})
	h.channel.SignOutErr = errors.New("offline")

	require.Error(t, h.provider.SignOut(context.Background()))
	assert.Equal(t, 1, h.channel.SignOutCalls)
	assert.Equal(t, auth.StateActive, h.provider.Snapshot().State)
}

func TestProvider_ErrorsDoNotLeakAcrossCalls(t *testing.T) {
	h := newHarness(t, auth.ModeDevelopment)
	ctx := context.Background()

	require.Error(t, h.provider.VerifyOTP(ctx, testPhone, "12"))
	require.NotEmpty(t, h.provider.Snapshot().Error)

	require.NoError(t, h.provider.SignInWithPhone(ctx, testPhone))
	assert.Empty(t, h.provider.Snapshot().Error, "a successful call must reset the error slot")
}

func TestProvider_LoadingVisibleToSubscribers(t *testing.T) {
	h := newHarness(t, auth.ModeDevelopment)

	var mu sync.Mutex
	var loading []bool
	unsubscribe := h.provider.Subscribe(func(s auth.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		loading = append(loading, s.Loading)
	})

	require.NoError(t, h.provider.SignInWithPhone(context.Background(), testPhone))
	unsubscribe()
	require.NoError(t, h.provider.SignInWithPhone(context.Background(), testPhone))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, loading)
}

func TestProvider_PassiveSessionChanges(t *testing.T) {
	h := newHarness(t, auth.ModeProduction)

	refreshed := remoteSession("user-d")
	refreshed.ExpiresAt = time.Now().Add(time.Hour)
	h.channel.Emit(auth.AuthEvent{Type: auth.EventTokenRefreshed, Session: refreshed})
	assert.Equal(t, auth.StateActive, h.provider.Snapshot().State)
	assert.Equal(t, "access-user-d", h.provider.Session().AccessToken)

	h.channel.Emit(auth.AuthEvent{Type: auth.EventSignedOut})
	assert.Equal(t, auth.StateNoSession, h.provider.Snapshot().State)
}

func TestProvider_CloseReleasesSubscription(t *testing.T) {
	channel := &mocks.MockChannel{}
	p := auth.NewProvider(auth.ProviderConfig{
		ClientID: "c", Codes: auth.NewLiveCodes(channel), Channel: channel, Pending: storage.NewMemoryStore(),
	})
	require.NoError(t, p.Start(context.Background()))
	assert.Equal(t, 1, channel.Subscribers())

	require.NoError(t, p.Close())
	assert.Zero(t, channel.Subscribers())
	assert.True(t, channel.Closed)

	// Events after teardown are ignored.
	channel.Emit(auth.AuthEvent{Type: auth.EventSignedIn, Session: remoteSession("late")})
	assert.Nil(t, p.Session())
	assert.NoError(t, p.Close(), "close is idempotent")
}

func TestProvider_ConcurrentEventAndVerify(t *testing.T) {
	h := newHarness(t, auth.ModeDevelopment)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = h.provider.VerifyOTP(ctx, testPhone, "123456")
		}()
		go func() {
			defer wg.Done()
			h.channel.Emit(auth.AuthEvent{Type: auth.EventTokenRefreshed, Session: remoteSession("user-e")})
		}()
	}
	wg.Wait()

	snap := h.provider.Snapshot()
	assert.Equal(t, auth.StateActive, snap.State, "either writer may win, but a session must be present")
	assert.False(t, snap.Loading)
}
