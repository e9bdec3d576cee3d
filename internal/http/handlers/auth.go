package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/smarta/server/internal/auth"
	"github.com/smarta/server/internal/middleware"
	"github.com/smarta/server/internal/phone"
	"github.com/smarta/server/internal/supabase"
)

// DevModeNotice is shown on the sign-in screen while the OTP stub is active
const DevModeNotice = "SMS is disabled. Use any 6-digit code to verify."

// AuthHandler handles the sign-in endpoints of a client instance
type AuthHandler struct {
	logger          *slog.Logger
	ipLimiter       *middleware.RateLimiter
	verifyIPLimiter *middleware.RateLimiter
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(logger *slog.Logger) *AuthHandler {
	// IP rate limiters: 10 per 10min for sign_in, 20 per 10min for verify
	return &AuthHandler{
		logger:          logger,
		ipLimiter:       middleware.NewRateLimiter(10*time.Minute, 10),
		verifyIPLimiter: middleware.NewRateLimiter(10*time.Minute, 20),
	}
}

// Close stops the rate limiter janitors
func (h *AuthHandler) Close() {
	h.ipLimiter.Stop()
	h.verifyIPLimiter.Stop()
}

// signInRequest is the request body for POST /auth/sign_in
type signInRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,max=32"`
}

// verifyRequest is the request body for POST /auth/verify. An empty phone
// number falls back to the one pending verification.
type verifyRequest struct {
	PhoneNumber string `json:"phone_number" validate:"max=32"`
	OTP         string `json:"otp" validate:"required,max=16"`
}

// sessionResponse is the client's view of its session provider
type sessionResponse struct {
	auth.Snapshot
	Mode    auth.Mode `json:"mode"`
	DevMode bool      `json:"dev_mode"`
	Notice  string    `json:"notice,omitempty"`
}

func newSessionResponse(p *auth.Provider) sessionResponse {
	resp := sessionResponse{Snapshot: p.Snapshot(), Mode: p.Mode()}
	if resp.Mode == auth.ModeDevelopment {
		resp.DevMode = true
		resp.Notice = DevModeNotice
	}
	return resp
}

// HandleSignIn handles POST /auth/sign_in
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	provider, ok := middleware.GetProvider(r.Context())
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "no client instance")
		return
	}

	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	phoneNumber, err := phone.Parse(req.PhoneNumber)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, msgInvalidPhone)
		return
	}
	if !h.ipLimiter.Allow(middleware.GetIPKey(r)) {
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	if err := provider.SignInWithPhone(r.Context(), phoneNumber); err != nil {
		respondAuthError(w, provider, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, newSessionResponse(provider))
}

// HandleVerify handles POST /auth/verify
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	provider, ok := middleware.GetProvider(r.Context())
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "no client instance")
		return
	}

	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	// An empty phone falls back to the pending sign-in
	phoneNumber := ""
	if strings.TrimSpace(req.PhoneNumber) != "" {
		parsed, err := phone.Parse(req.PhoneNumber)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, msgInvalidPhone)
			return
		}
		phoneNumber = parsed
	}
	if !h.verifyIPLimiter.Allow(middleware.GetIPKey(r)) {
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	if err := provider.VerifyOTP(r.Context(), phoneNumber, strings.TrimSpace(req.OTP)); err != nil {
		respondAuthError(w, provider, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, newSessionResponse(provider))
}

// HandleSignOut handles POST /auth/sign_out. A failed remote sign-out keeps
// the session, and the response says so.
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	provider, ok := middleware.GetProvider(r.Context())
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "no client instance")
		return
	}
	if err := provider.SignOut(r.Context()); err != nil {
		respondAuthError(w, provider, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, newSessionResponse(provider))
}

// HandleSession handles GET /auth/session
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	provider, ok := middleware.GetProvider(r.Context())
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "no client instance")
		return
	}
	respondJSON(w, h.logger, http.StatusOK, newSessionResponse(provider))
}

// respondAuthError reports the provider's error message for a failed operation
func respondAuthError(w http.ResponseWriter, provider *auth.Provider, err error) {
	msg := provider.Snapshot().Error
	if msg == "" {
		msg = err.Error()
	}
	respondWithError(w, authErrorStatus(err), msg)
}

// authErrorStatus maps a provider failure to an HTTP status
func authErrorStatus(err error) int {
	var apiErr *supabase.APIError
	switch {
	case errors.Is(err, auth.ErrInvalidCode), errors.Is(err, auth.ErrPhoneRequired):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrCodeRejected):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrChannelUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		return apiErr.Status
	default:
		return http.StatusBadGateway
	}
}
