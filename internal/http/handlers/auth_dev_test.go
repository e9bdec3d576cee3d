//go:build !production

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarta/server/internal/auth"
	authmocks "github.com/smarta/server/internal/auth/mocks"
	"github.com/smarta/server/internal/model"
)

func TestDevMode_SignInFlow(t *testing.T) {
	channel := &authmocks.MockChannel{}
	router := authRouter(t, newProvider(t, auth.ModeDevelopment, channel))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/session", nil))
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["dev_mode"])
	assert.Equal(t, DevModeNotice, body["notice"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, postJSON("/auth/sign_in", map[string]string{"phone_number": "0712345678"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, channel.SignInPhones, "no SMS in development")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, postJSON("/auth/verify", map[string]string{"otp": "12345"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"code must be 6 digits"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, postJSON("/auth/verify", map[string]string{"otp": "424242"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decodeBody(t, rec)
	assert.Equal(t, string(auth.StateActive), body["state"])
	session := body["session"].(map[string]any)
	user := session["user"].(map[string]any)
	assert.True(t, strings.HasPrefix(user["id"].(string), model.DevUserPrefix))
	assert.Zero(t, channel.VerifyCalls)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, postJSON("/auth/sign_out", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(auth.StateNoSession), decodeBody(t, rec)["state"])
	assert.Zero(t, channel.SignOutCalls)
}
