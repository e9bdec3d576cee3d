//go:build !production

package tests

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarta/server/internal/auth"
	"github.com/smarta/server/internal/config"
	"github.com/smarta/server/internal/dashboard"
	"github.com/smarta/server/internal/db"
	httphandler "github.com/smarta/server/internal/http"
	"github.com/smarta/server/internal/http/handlers"
	"github.com/smarta/server/internal/metrics"
	"github.com/smarta/server/internal/model"
	"github.com/smarta/server/internal/repo"
	"github.com/smarta/server/internal/storage"
	"github.com/smarta/server/pkg/logging"
)

const devTenantUserID = "e2e-tenant-user"

func TestMain(m *testing.M) {
	// Do NOT set DATABASE_URL; the e2e tests skip if missing.
	for key, value := range map[string]string{
		"APP_MODE":           "development",
		"DATA_BACKEND":       "postgres",
		"CLIENT_SECRET":      "e2e-client-secret-at-least-32-characters",
		"DEV_TENANT_USER_ID": devTenantUserID,
	} {
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
	os.Exit(m.Run())
}

// testServer holds the server and DB for e2e tests
type testServer struct {
	Server *httptest.Server
	DB     *sql.DB
	client *http.Client
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set; skipping e2e test")
	}

	cfg, err := config.Load()
	require.NoError(t, err, "config load must succeed for e2e test")
	logger := logging.Discard()

	ctx := context.Background()
	database, err := db.Open(ctx, cfg.DatabaseURL, logger)
	require.NoError(t, err, "database open must succeed; check DATABASE_URL and that test DB exists")
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.Migrate(database), "migrations must run successfully")

	m := metrics.New(prometheus.NewRegistry())
	store := storage.NewMemoryStore()
	registry := auth.NewRegistry(func(clientID string) (*auth.Provider, error) {
		channel := auth.OfflineChannel{}
		codes, err := auth.NewCodeProvider(cfg.Mode, channel)
		if err != nil {
			return nil, err
		}
		return auth.NewProvider(auth.ProviderConfig{
			ClientID: clientID, Codes: codes, Channel: channel, Pending: store, Logger: logger, Metrics: m,
		}), nil
	}, cfg.ClientIdleTTL, logger, m)
	t.Cleanup(registry.Close)

	authHandler := handlers.NewAuthHandler(logger)
	t.Cleanup(authHandler.Close)

	service := dashboard.NewService(dashboard.Config{
		Backend:         repo.NewPostgresBackend(database),
		Logger:          logger,
		Metrics:         m,
		DevTenantUserID: cfg.DevTenantUserID,
	})
	router := httphandler.NewRouter(httphandler.RouterConfig{
		AuthHandler:      authHandler,
		DashboardHandler: handlers.NewDashboardHandler(service, logger),
		Tokens:           auth.NewClientTokens(cfg.ClientSecret, cfg.ClientCookieTTL),
		Registry:         registry,
		AllowedOrigins:   cfg.AllowedOrigins,
		Logger:           logger,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testServer{Server: server, DB: database, client: &http.Client{Jar: jar}}
}

func (s *testServer) Reset(t *testing.T) *Seed {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, TruncateTenantTables(ctx, s.DB))
	seed, err := SeedTenant(ctx, s.DB, devTenantUserID, time.Now())
	require.NoError(t, err)
	return seed
}

func (s *testServer) do(t *testing.T, method, path string, payload any) (int, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.Server.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

// TestDashboardE2E runs the development sign-in flow against Postgres and
// loads every gated view.
func TestDashboardE2E(t *testing.T) {
	ts := newTestServer(t)
	seed := ts.Reset(t)

	t.Run("A_Gated", func(t *testing.T) {
		status, _ := ts.do(t, http.MethodGet, "/home", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("B_SignIn", func(t *testing.T) {
		status, body := ts.do(t, http.MethodPost, "/auth/sign_in", map[string]string{"phone_number": "0712345678"})
		require.Equal(t, http.StatusOK, status, string(body))
		assert.Contains(t, string(body), handlers.DevModeNotice)

		status, body = ts.do(t, http.MethodPost, "/auth/verify", map[string]string{"otp": "123456"})
		require.Equal(t, http.StatusOK, status, string(body))
		assert.Contains(t, string(body), `"state":"active"`)
	})

	t.Run("C_Home", func(t *testing.T) {
		status, body := ts.do(t, http.MethodGet, "/home", nil)
		require.Equal(t, http.StatusOK, status, string(body))

		var view dashboard.HomeView
		require.NoError(t, json.Unmarshal(body, &view))
		assert.Equal(t, seed.TenantID, view.Tenant.ID)
		require.NotNil(t, view.Tenant.Property)
		assert.Equal(t, "Riverside Court", view.Tenant.Property.Name)
		require.NotNil(t, view.Meter)
		assert.Equal(t, "WM-0042", view.Meter.MeterNumber)

		assert.Equal(t, 1, view.Stats.PendingBills)
		assert.InDelta(t, 22.5, view.Stats.MonthlyUsage, 1e-9)
		assert.InDelta(t, 150, view.Stats.CurrentBalance, 1e-9)
		assert.Equal(t, "1250", view.Stats.TotalPaid.String())
		require.NotNil(t, view.Stats.LastPaymentDate)

		require.Len(t, view.Usage.Usage, 7)
		total := 0.0
		for _, u := range view.Usage.Usage {
			total += u
		}
		assert.InDelta(t, 14, total, 1e-9)
		require.Len(t, view.PendingBills, 1)
		assert.Equal(t, seed.PendingBill, view.PendingBills[0].ID)
	})

	t.Run("D_Bills", func(t *testing.T) {
		status, body := ts.do(t, http.MethodGet, "/bills?filter=paid", nil)
		require.Equal(t, http.StatusOK, status, string(body))

		var view dashboard.BillsView
		require.NoError(t, json.Unmarshal(body, &view))
		assert.Equal(t, dashboard.BillCounts{Total: 2, Pending: 1, Paid: 1}, view.Counts)
		require.Len(t, view.Bills, 1)
		assert.Equal(t, seed.PaidBill, view.Bills[0].ID)
		assert.Equal(t, model.BillPaid, view.Bills[0].DisplayStatus)
	})

	t.Run("E_Purchase", func(t *testing.T) {
		status, body := ts.do(t, http.MethodGet, "/purchase", nil)
		require.Equal(t, http.StatusOK, status, string(body))

		var view dashboard.PurchaseView
		require.NoError(t, json.Unmarshal(body, &view))
		require.Len(t, view.PaymentHistory, 1)
		assert.Equal(t, "Riverside Court-A4", view.PaymentHistory[0].Reference)
		assert.NotEmpty(t, view.PaymentHistory[0].BillPeriod)
	})

	t.Run("F_PayWithoutPaymentBackend", func(t *testing.T) {
		status, body := ts.do(t, http.MethodPost, "/purchase/pay", map[string]string{
			"bill_id":      seed.PendingBill.String(),
			"phone_number": "0712345678",
		})
		assert.Equal(t, http.StatusServiceUnavailable, status, string(body))
	})

	t.Run("G_SignOut", func(t *testing.T) {
		status, _ := ts.do(t, http.MethodPost, "/auth/sign_out", nil)
		require.Equal(t, http.StatusOK, status)
		status, _ = ts.do(t, http.MethodGet, "/bills", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}
