package auth

import (
	"context"
	"fmt"

	"github.com/smarta/server/internal/model"
)

// Mode selects which CodeProvider backs sign-in. It is fixed at startup.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// ParseMode maps a configuration value to a Mode
func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case ModeDevelopment, ModeProduction:
		return Mode(value), nil
	default:
		return "", fmt.Errorf("unknown mode %q (want %q or %q)", value, ModeDevelopment, ModeProduction)
	}
}

// CodeProvider defines the one-time code capability behind sign-in
type CodeProvider interface {
	Mode() Mode
	RequestCode(ctx context.Context, phone string) error
	VerifyCode(ctx context.Context, phone, code string) (*model.Session, error)
}

// NewCodeProvider returns the CodeProvider for mode. Production builds refuse
// ModeDevelopment with ErrDevModeUnavailable.
func NewCodeProvider(mode Mode, channel AuthChannel) (CodeProvider, error) {
	switch mode {
	case ModeProduction:
		return NewLiveCodes(channel), nil
	case ModeDevelopment:
		return newDevCodes()
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}

// LiveCodes sends real SMS codes through the auth backend
type LiveCodes struct {
	channel AuthChannel
}

// NewLiveCodes creates a CodeProvider backed by channel
func NewLiveCodes(channel AuthChannel) *LiveCodes {
	return &LiveCodes{channel: channel}
}

func (c *LiveCodes) Mode() Mode { return ModeProduction }

// RequestCode asks the backend to deliver a code to phone
func (c *LiveCodes) RequestCode(ctx context.Context, phone string) error {
	if err := c.channel.SignInWithOTP(ctx, phone); err != nil {
		return fmt.Errorf("request code: %w", err)
	}
	return nil
}

// VerifyCode submits (phone, code) to the backend verifier
func (c *LiveCodes) VerifyCode(ctx context.Context, phone, code string) (*model.Session, error) {
	session, err := c.channel.VerifyOTP(ctx, phone, code)
	if err != nil {
		return nil, fmt.Errorf("verify code: %w", err)
	}
	if session == nil || session.User.ID == "" {
		return nil, ErrCodeRejected
	}
	return session, nil
}
