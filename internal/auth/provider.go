package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/smarta/server/internal/metrics"
	"github.com/smarta/server/internal/model"
	"github.com/smarta/server/internal/phone"
)

// State is the session lifecycle position of a provider
type State string

const (
	StateUnknown             State = "unknown"
	StateNoSession           State = "no_session"
	StatePendingVerification State = "pending_verification"
	StateActive              State = "active"
)

// Snapshot is a consistent read of a provider's published state
type Snapshot struct {
	State        State          `json:"state"`
	Session      *model.Session `json:"session,omitempty"`
	PendingPhone string         `json:"pending_phone,omitempty"`
	Loading      bool           `json:"loading"`
	Error        string         `json:"error,omitempty"`
}

// ProviderConfig wires a Provider's collaborators
type ProviderConfig struct {
	ClientID string
	Codes    CodeProvider
	Channel  AuthChannel
	Pending  PendingStore
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// Provider owns the session of one client instance. It mediates between the
// views and the configured CodeProvider, and follows out-of-band session
// changes from the auth channel until Close.
type Provider struct {
	clientID string
	codes    CodeProvider
	channel  AuthChannel
	pending  PendingStore
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu           sync.RWMutex
	resolved     bool
	session      *model.Session
	pendingPhone string
	loading      bool
	lastErr      string
	subs         map[uint64]func(Snapshot)
	nextSub      uint64
	channelSub   Subscription
	closed       bool
}

// NewProvider creates a Provider in StateUnknown. Call Start before use.
func NewProvider(cfg ProviderConfig) *Provider {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Provider{
		clientID: cfg.ClientID,
		codes:    cfg.Codes,
		channel:  cfg.Channel,
		pending:  cfg.Pending,
		logger:   logger.With("client_id", cfg.ClientID),
		metrics:  cfg.Metrics,
		subs:     make(map[uint64]func(Snapshot)),
	}
}

// Mode returns the sign-in mode selected at startup
func (p *Provider) Mode() Mode { return p.codes.Mode() }

// ClientID returns the client instance the provider serves
func (p *Provider) ClientID() string { return p.clientID }

// Start subscribes to the auth channel and resolves the initial session,
// moving the provider out of StateUnknown.
func (p *Provider) Start(ctx context.Context) error {
	sub := p.channel.OnAuthStateChange(p.applyEvent)

	session, err := p.channel.GetSession(ctx)
	if err != nil {
		p.logger.Warn("initial session check failed", "error", err)
		session = nil
	}

	pendingPhone, err := p.pending.Get(ctx, p.clientID, SlotPendingPhone)
	if err != nil {
		p.logger.Warn("failed to read pending phone", "error", err)
		pendingPhone = ""
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		sub.Unsubscribe()
		return ErrProviderClosed
	}
	p.channelSub = sub
	// An event may have arrived while GetSession was in flight; it wins.
	if !p.resolved {
		p.session = session
		p.resolved = true
	}
	p.pendingPhone = pendingPhone
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.notify(snap)
	return nil
}

// Close releases the auth channel subscription and any channel resources.
func (p *Provider) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	sub := p.channelSub
	p.channelSub = nil
	p.subs = make(map[uint64]func(Snapshot))
	p.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	if closer, ok := p.channel.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Snapshot returns the current published state
func (p *Provider) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

// Session returns the active session or nil
func (p *Provider) Session() *model.Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.session
}

// Subscribe registers fn for every published state change and returns a
// function that removes it.
func (p *Provider) Subscribe(fn func(Snapshot)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// SignInWithPhone starts sign-in for an already formatted phone number. In
// development mode no code is delivered; the phone is only recorded as pending.
func (p *Provider) SignInWithPhone(ctx context.Context, phoneNumber string) error {
	p.begin()
	err := p.signIn(ctx, phoneNumber)
	p.finish("sign_in", phoneNumber, err)
	return err
}

func (p *Provider) signIn(ctx context.Context, phoneNumber string) error {
	if strings.TrimSpace(phoneNumber) == "" {
		return ErrPhoneRequired
	}
	if err := p.codes.RequestCode(ctx, phoneNumber); err != nil {
		return err
	}
	if err := p.pending.Put(ctx, p.clientID, SlotPendingPhone, phoneNumber); err != nil {
		return fmt.Errorf("record pending phone: %w", err)
	}
	if p.codes.Mode() == ModeDevelopment {
		if err := p.pending.Put(ctx, p.clientID, SlotDevMode, "true"); err != nil {
			return fmt.Errorf("record dev marker: %w", err)
		}
	}

	p.mu.Lock()
	p.pendingPhone = phoneNumber
	p.mu.Unlock()
	return nil
}

// VerifyOTP completes sign-in. An empty phoneNumber falls back to the pending one.
func (p *Provider) VerifyOTP(ctx context.Context, phoneNumber, code string) error {
	p.begin()
	if phoneNumber == "" {
		p.mu.RLock()
		phoneNumber = p.pendingPhone
		p.mu.RUnlock()
	}
	err := p.verify(ctx, phoneNumber, code)
	p.finish("verify", phoneNumber, err)
	return err
}

func (p *Provider) verify(ctx context.Context, phoneNumber, code string) error {
	if strings.TrimSpace(phoneNumber) == "" {
		return ErrPhoneRequired
	}
	session, err := p.codes.VerifyCode(ctx, phoneNumber, code)
	if err != nil {
		return err
	}

	if err := p.pending.Remove(ctx, p.clientID, SlotPendingPhone, SlotDevMode); err != nil {
		p.logger.Warn("failed to clear pending slots", "error", err)
	}

	p.mu.Lock()
	p.session = session
	p.resolved = true
	p.pendingPhone = ""
	p.mu.Unlock()
	return nil
}

// SignOut ends the session. A development session is dropped locally without
// any remote call. Otherwise the backend sign-out must succeed; if it fails
// the session is kept and the error is recorded.
func (p *Provider) SignOut(ctx context.Context) error {
	p.begin()
	err := p.signOut(ctx)
	p.finish("sign_out", "", err)
	return err
}

func (p *Provider) signOut(ctx context.Context) error {
	session := p.Session()

	if p.codes.Mode() == ModeDevelopment && session.IsDevelopment() {
		p.clearSession()
		if err := p.pending.Remove(ctx, p.clientID, SlotDevMode); err != nil {
			p.logger.Warn("failed to clear dev marker", "error", err)
		}
		return nil
	}

	if err := p.channel.SignOut(ctx); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	p.clearSession()
	if err := p.pending.Remove(ctx, p.clientID, SlotPendingPhone, SlotDevMode); err != nil {
		p.logger.Warn("failed to clear pending slots", "error", err)
	}
	return nil
}

func (p *Provider) clearSession() {
	p.mu.Lock()
	p.session = nil
	p.pendingPhone = ""
	p.mu.Unlock()
}

// applyEvent takes the channel's view of the session. Last write wins against
// any verify call in flight.
func (p *Provider) applyEvent(evt AuthEvent) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.session = evt.Session
	p.resolved = true
	p.loading = false
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.logger.Debug("auth state change", "event", evt.Type, "active", evt.Session != nil)
	p.notify(snap)
}

// begin resets the error slot and raises the loading flag for one operation
func (p *Provider) begin() {
	p.mu.Lock()
	p.loading = true
	p.lastErr = ""
	snap := p.snapshotLocked()
	p.mu.Unlock()
	p.notify(snap)
}

func (p *Provider) finish(operation, phoneNumber string, err error) {
	p.mu.Lock()
	p.loading = false
	if err != nil {
		p.lastErr = errorMessage(err)
	}
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.metrics.ObserveAuth(operation, err)
	if err != nil {
		p.logger.Warn("auth operation failed", "operation", operation, "phone", phone.Mask(phoneNumber), "error", err)
	} else {
		p.logger.Info("auth operation ok", "operation", operation, "phone", phone.Mask(phoneNumber))
	}
	p.notify(snap)
}

func (p *Provider) snapshotLocked() Snapshot {
	snap := Snapshot{
		Session:      p.session,
		PendingPhone: p.pendingPhone,
		Loading:      p.loading,
		Error:        p.lastErr,
	}
	switch {
	case !p.resolved:
		snap.State = StateUnknown
	case p.session != nil:
		snap.State = StateActive
	case p.pendingPhone != "":
		snap.State = StatePendingVerification
	default:
		snap.State = StateNoSession
	}
	return snap
}

func (p *Provider) notify(snap Snapshot) {
	p.mu.RLock()
	fns := make([]func(Snapshot), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.RUnlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// errorMessage flattens err to the single human-readable message shown on the auth screen
func errorMessage(err error) string {
	var msg interface{ UserMessage() string }
	if errors.As(err, &msg) {
		return msg.UserMessage()
	}
	return err.Error()
}
