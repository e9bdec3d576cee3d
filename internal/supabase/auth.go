package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/smarta/server/internal/auth"
	"github.com/smarta/server/internal/model"
)

// refreshMargin is how long before expiry the access token is refreshed
const refreshMargin = time.Minute

// AuthClient talks to the GoTrue auth API on behalf of one client instance.
// It keeps that instance's session, refreshes it before expiry and reports
// changes to subscribers.
type AuthClient struct {
	api *Client
	now func() time.Time

	mu       sync.Mutex
	session  *model.Session
	handlers map[uint64]func(auth.AuthEvent)
	nextID   uint64
	timer    *time.Timer
	closed   bool
}

func newAuthClient(api *Client) *AuthClient {
	return &AuthClient{
		api:      api,
		now:      time.Now,
		handlers: make(map[uint64]func(auth.AuthEvent)),
	}
}

type otpRequest struct {
	Phone   string `json:"phone"`
	Channel string `json:"channel"`
}

type verifyRequest struct {
	Type  string `json:"type"`
	Phone string `json:"phone"`
	Token string `json:"token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	User         *userResponse `json:"user"`
}

type userResponse struct {
	ID           string     `json:"id"`
	Phone        string     `json:"phone"`
	CreatedAt    time.Time  `json:"created_at"`
	LastSignInAt *time.Time `json:"last_sign_in_at"`
}

// SignInWithOTP asks GoTrue to text a one-time code to phone
func (a *AuthClient) SignInWithOTP(ctx context.Context, phone string) error {
	err := a.api.do(ctx, request{
		service: "auth",
		method:  http.MethodPost,
		path:    "/auth/v1/otp",
		body:    otpRequest{Phone: phone, Channel: "sms"},
	}, nil)
	if err != nil {
		return fmt.Errorf("send otp: %w", err)
	}
	return nil
}

// VerifyOTP exchanges (phone, code) for a session. A response without a user
// yields a nil session and nil error.
func (a *AuthClient) VerifyOTP(ctx context.Context, phone, code string) (*model.Session, error) {
	var resp tokenResponse
	err := a.api.do(ctx, request{
		service: "auth",
		method:  http.MethodPost,
		path:    "/auth/v1/verify",
		body:    verifyRequest{Type: "sms", Phone: phone, Token: code},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("verify otp: %w", err)
	}

	session := a.toSession(resp)
	if session == nil {
		return nil, nil
	}
	a.setSession(auth.EventSignedIn, session)
	return session, nil
}

// GetSession returns the current session, refreshing it first if it has expired
func (a *AuthClient) GetSession(ctx context.Context) (*model.Session, error) {
	a.mu.Lock()
	session := a.session
	a.mu.Unlock()

	if session == nil || !session.Expired(a.now()) {
		return session, nil
	}
	if err := a.refresh(ctx); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session, nil
}

// SignOut revokes the session on the backend. On failure the session is kept.
func (a *AuthClient) SignOut(ctx context.Context) error {
	a.mu.Lock()
	session := a.session
	a.mu.Unlock()
	if session == nil {
		return nil
	}

	err := a.api.do(ctx, request{
		service: "auth",
		method:  http.MethodPost,
		path:    "/auth/v1/logout",
		token:   session.AccessToken,
	}, nil)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	a.setSession(auth.EventSignedOut, nil)
	return nil
}

// OnAuthStateChange registers handler for SIGNED_IN, TOKEN_REFRESHED and SIGNED_OUT
func (a *AuthClient) OnAuthStateChange(handler func(auth.AuthEvent)) auth.Subscription {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.handlers[id] = handler
	a.mu.Unlock()

	return auth.SubscriptionFunc(func() {
		a.mu.Lock()
		delete(a.handlers, id)
		a.mu.Unlock()
	})
}

// Close stops the refresh timer and drops all subscribers
func (a *AuthClient) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.handlers = make(map[uint64]func(auth.AuthEvent))
	return nil
}

func (a *AuthClient) refresh(ctx context.Context) error {
	a.mu.Lock()
	session := a.session
	a.mu.Unlock()
	if session == nil || session.RefreshToken == "" {
		a.setSession(auth.EventSignedOut, nil)
		return auth.ErrNoSession
	}

	var resp tokenResponse
	err := a.api.do(ctx, request{
		service: "auth",
		method:  http.MethodPost,
		path:    "/auth/v1/token",
		query:   url.Values{"grant_type": {"refresh_token"}},
		body:    refreshRequest{RefreshToken: session.RefreshToken},
	}, &resp)
	if err != nil {
		a.api.logger.Warn("session refresh failed", "error", err)
		a.setSession(auth.EventSignedOut, nil)
		return fmt.Errorf("refresh session: %w", err)
	}

	refreshed := a.toSession(resp)
	if refreshed == nil {
		// GoTrue omits the user on some refresh paths.
		refreshed = &model.Session{
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			ExpiresAt:    a.expiry(resp),
			User:         session.User,
		}
	}
	a.setSession(auth.EventTokenRefreshed, refreshed)
	return nil
}

// setSession stores session, reschedules the refresh timer and notifies subscribers
func (a *AuthClient) setSession(evt auth.EventType, session *model.Session) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.session = session
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if session != nil && !session.ExpiresAt.IsZero() && session.RefreshToken != "" {
		wait := session.ExpiresAt.Sub(a.now()) - refreshMargin
		if wait < 0 {
			wait = 0
		}
		a.timer = time.AfterFunc(wait, a.refreshFromTimer)
	}
	handlers := make([]func(auth.AuthEvent), 0, len(a.handlers))
	for _, h := range a.handlers {
		handlers = append(handlers, h)
	}
	a.mu.Unlock()

	for _, h := range handlers {
		h(auth.AuthEvent{Type: evt, Session: session})
	}
}

func (a *AuthClient) refreshFromTimer() {
	ctx, cancel := context.WithTimeout(context.Background(), a.api.timeout)
	defer cancel()
	_ = a.refresh(ctx)
}

func (a *AuthClient) toSession(resp tokenResponse) *model.Session {
	if resp.User == nil || resp.User.ID == "" {
		return nil
	}
	return &model.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    a.expiry(resp),
		User: model.User{
			ID:           resp.User.ID,
			Phone:        withPlus(resp.User.Phone),
			CreatedAt:    resp.User.CreatedAt,
			LastSignInAt: resp.User.LastSignInAt,
		},
	}
}

// expiry prefers expires_at, then expires_in, then the access token's exp claim
func (a *AuthClient) expiry(resp tokenResponse) time.Time {
	switch {
	case resp.ExpiresAt > 0:
		return time.Unix(resp.ExpiresAt, 0)
	case resp.ExpiresIn > 0:
		return a.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return tokenExpiry(resp.AccessToken)
}

// tokenExpiry reads exp from an access token without verifying its signature
func tokenExpiry(accessToken string) time.Time {
	if accessToken == "" {
		return time.Time{}
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// GoTrue stores phones without the leading plus
func withPlus(phone string) string {
	if phone == "" || strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+" + phone
}
