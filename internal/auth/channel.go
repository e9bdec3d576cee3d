package auth

import (
	"context"

	"github.com/smarta/server/internal/model"
)

// EventType names an out-of-band session change reported by the auth backend
type EventType string

const (
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
)

// AuthEvent carries the session as it stands after the change (nil when signed out)
type AuthEvent struct {
	Type    EventType
	Session *model.Session
}

// Subscription is a handle returned by OnAuthStateChange
type Subscription interface {
	Unsubscribe()
}

// AuthChannel is the external auth provider: OTP delivery, verification and
// session lifecycle notifications.
type AuthChannel interface {
	SignInWithOTP(ctx context.Context, phone string) error
	VerifyOTP(ctx context.Context, phone, code string) (*model.Session, error)
	GetSession(ctx context.Context) (*model.Session, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(handler func(AuthEvent)) Subscription
}

// SubscriptionFunc adapts a function to Subscription
type SubscriptionFunc func()

// Unsubscribe implements Subscription
func (f SubscriptionFunc) Unsubscribe() { f() }

// OfflineChannel stands in for the auth backend when none is configured in
// development mode. It never holds a session and never emits events.
type OfflineChannel struct{}

func (OfflineChannel) SignInWithOTP(context.Context, string) error {
	return ErrChannelUnavailable
}

func (OfflineChannel) VerifyOTP(context.Context, string, string) (*model.Session, error) {
	return nil, ErrChannelUnavailable
}

func (OfflineChannel) GetSession(context.Context) (*model.Session, error) { return nil, nil }

func (OfflineChannel) SignOut(context.Context) error { return nil }

func (OfflineChannel) OnAuthStateChange(func(AuthEvent)) Subscription {
	return SubscriptionFunc(func() {})
}
