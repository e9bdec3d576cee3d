package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/smarta/server/internal/auth"
	"github.com/smarta/server/internal/model"
	"github.com/smarta/server/internal/supabase"
)

// ClientCookieName is the cookie carrying the signed client instance ID
const ClientCookieName = "smarta_client"

type contextKey string

const (
	clientIDKey contextKey = "client_id"
	providerKey contextKey = "provider"
	sessionKey  contextKey = "session"
)

// ClientOptions configures ClientMiddleware
type ClientOptions struct {
	Tokens   *auth.ClientTokens
	Registry *auth.Registry
	// Secure marks the cookie HTTPS-only
	Secure bool
	Logger *slog.Logger
}

// ClientMiddleware resolves the client instance from its cookie, issuing a
// new one when it is missing or invalid, and attaches the instance's session
// provider to the context.
func ClientMiddleware(opts ClientOptions) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID, err := clientFromCookie(r, opts.Tokens)
			if err != nil {
				logger.Debug("discarding invalid client cookie", "error", err)
			}

			if clientID == "" {
				clientID = opts.Tokens.NewClientID()
				token, err := opts.Tokens.Issue(clientID)
				if err != nil {
					logger.Error("failed to issue client cookie", "error", err)
					respondWithError(w, http.StatusInternalServerError, "internal error")
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     ClientCookieName,
					Value:    token,
					Path:     "/",
					MaxAge:   int(opts.Tokens.TTL().Seconds()),
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			provider, err := opts.Registry.Get(r.Context(), clientID)
			if err != nil {
				logger.Error("failed to get session provider", "client_id", clientID, "error", err)
				respondWithError(w, http.StatusServiceUnavailable, "session unavailable")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithProvider(r.Context(), provider)))
		})
	}
}

// clientFromCookie returns the verified client ID, or "" when the request
// carries no client cookie.
func clientFromCookie(r *http.Request, tokens *auth.ClientTokens) (string, error) {
	cookie, err := r.Cookie(ClientCookieName)
	if err != nil {
		return "", nil
	}
	id, err := tokens.Verify(cookie.Value)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ClientMintKey keys RateLimitMiddleware on the caller's IP for requests that
// would make ClientMiddleware issue a new client instance. Requests with a
// valid client cookie get "" and are not counted.
func ClientMintKey(tokens *auth.ClientTokens) func(*http.Request) string {
	return func(r *http.Request) string {
		if id, err := clientFromCookie(r, tokens); err == nil && id != "" {
			return ""
		}
		return GetIPKey(r)
	}
}

// RequireSession rejects requests whose client instance has no active
// session. The session's access token is forwarded to backend calls.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provider, ok := GetProvider(r.Context())
		if !ok {
			respondUnauthorized(w)
			return
		}
		session := provider.Session()
		if session == nil {
			respondUnauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, session)
		ctx = supabase.WithAccessToken(ctx, session.AccessToken)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetProvider returns the session provider attached by ClientMiddleware
func GetProvider(ctx context.Context) (*auth.Provider, bool) {
	p, ok := ctx.Value(providerKey).(*auth.Provider)
	return p, ok && p != nil
}

// GetClientID extracts the client instance ID from context
func GetClientID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(clientIDKey).(string)
	return id, ok
}

// GetSession returns the session attached by RequireSession
func GetSession(ctx context.Context) (*model.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*model.Session)
	return s, ok && s != nil
}

// WithProvider attaches provider and its client ID to ctx as
// ClientMiddleware does
func WithProvider(ctx context.Context, provider *auth.Provider) context.Context {
	ctx = context.WithValue(ctx, clientIDKey, provider.ClientID())
	return context.WithValue(ctx, providerKey, provider)
}

func respondUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "redirect": "/auth"})
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]string{"error": message}
	_ = json.NewEncoder(w).Encode(response)
}
