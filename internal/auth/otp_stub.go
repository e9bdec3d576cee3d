//go:build !production

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/smarta/server/internal/model"
)

const otpLength = 6

// DevStubAvailable reports whether this build contains the development stub
const DevStubAvailable = true

// DevCodes implements CodeProvider without SMS delivery so the sign-in flow
// can be exercised end to end locally. Any six-digit code is accepted.
type DevCodes struct {
	now func() time.Time
}

// NewDevCodes creates the development stub
func NewDevCodes() *DevCodes {
	return &DevCodes{now: time.Now}
}

func newDevCodes() (CodeProvider, error) {
	return NewDevCodes(), nil
}

func (c *DevCodes) Mode() Mode { return ModeDevelopment }

// RequestCode skips delivery entirely
func (c *DevCodes) RequestCode(ctx context.Context, phone string) error {
	return ctx.Err()
}

// VerifyCode accepts exactly six ASCII digits and synthesizes a session whose
// user ID is derived from the current time.
func (c *DevCodes) VerifyCode(ctx context.Context, phone, code string) (*model.Session, error) {
	if !isSixDigits(code) {
		return nil, ErrInvalidCode
	}
	now := c.now()
	return &model.Session{
		User: model.User{
			ID:           fmt.Sprintf("%s%d", model.DevUserPrefix, now.UnixMilli()),
			Phone:        phone,
			CreatedAt:    now,
			LastSignInAt: &now,
		},
	}, nil
}

func isSixDigits(code string) bool {
	if len(code) != otpLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
