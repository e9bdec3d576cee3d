package auth

import "errors"

var (
	// ErrInvalidCode is returned by the development stub for anything but six ASCII digits
	ErrInvalidCode = errors.New("code must be 6 digits")
	// ErrCodeRejected is returned when the backend accepts the call but yields no user
	ErrCodeRejected = errors.New("invalid verification code")
	// ErrPhoneRequired is returned when sign-in or verification has no phone to work with
	ErrPhoneRequired = errors.New("phone number is required")
	// ErrNoSession is returned by operations that need an active session
	ErrNoSession = errors.New("no active session")
	// ErrChannelUnavailable is returned by OfflineChannel
	ErrChannelUnavailable = errors.New("auth backend is not configured")
	// ErrDevModeUnavailable is returned when development mode is requested from a production build
	ErrDevModeUnavailable = errors.New("development OTP stub is not compiled into this build")
	// ErrProviderClosed is returned by a provider after Close
	ErrProviderClosed = errors.New("session provider closed")
)
