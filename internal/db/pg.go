package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Pool settings for the dashboard's read-heavy workload
const (
	maxOpenConns    = 20
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
	connMaxIdleTime = 5 * time.Minute
	dialTimeout     = 5 * time.Second
)

// target is the connection target named by DATABASE_URL
type target struct {
	url  *url.URL
	host string
	port string
	name string
	user string
}

func parseTarget(databaseURL string) (*target, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	t := &target{url: u, host: u.Hostname(), port: u.Port(), name: extractDBName(u)}
	if t.host == "" {
		t.host = "localhost"
	}
	if t.port == "" {
		t.port = "5432"
	}
	if u.User != nil {
		t.user = u.User.Username()
	}
	return t, nil
}

// redactDSN returns a copy of the DSN with password replaced by **** for logging.
func redactDSN(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "(invalid DATABASE_URL)"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}

// extractDBName returns the database name from URL path ("/smarta" -> "smarta").
func extractDBName(u *url.URL) string {
	if u == nil {
		return ""
	}
	name, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "?")
	return strings.TrimSpace(name)
}

// isDatabaseDoesNotExist reports Postgres invalid_catalog_name (3D000)
func isDatabaseDoesNotExist(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "3D000"
	}
	return strings.Contains(strings.ToLower(err.Error()), "does not exist")
}

// Open connects to the tenant database and configures the pool. Before
// dialing it logs the masked target and, on a best-effort basis, checks via
// the maintenance database that the named database exists.
func Open(ctx context.Context, databaseURL string, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	t, err := parseTarget(databaseURL)
	if err != nil {
		return nil, err
	}
	logger.Info("db connect target", "host", t.host, "port", t.port, "db", t.name, "user", t.user, "dsn", redactDSN(databaseURL))

	if t.name != "" {
		precheck(ctx, t, logger)
	}

	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	database.SetMaxOpenConns(maxOpenConns)
	database.SetMaxIdleConns(maxIdleConns)
	database.SetConnMaxLifetime(connMaxLifetime)
	database.SetConnMaxIdleTime(connMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := database.PingContext(pingCtx); err != nil {
		_ = database.Close()
		if isDatabaseDoesNotExist(err) {
			return nil, fmt.Errorf("database %q not found on host=%s port=%s; check DATABASE_URL: %w", t.name, t.host, t.port, err)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return database, nil
}

// precheck looks the database up in pg_database. It only logs.
func precheck(ctx context.Context, t *target, logger *slog.Logger) {
	maintenance := *t.url
	maintenance.Path = "/postgres"
	maintenance.RawPath = ""

	conn, err := sql.Open("postgres", maintenance.String())
	if err != nil {
		logger.Warn("db precheck: could not open maintenance connection", "error", err)
		return
	}
	defer conn.Close()

	checkCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	var found string
	err = conn.QueryRowContext(checkCtx, "SELECT datname FROM pg_database WHERE datname = $1", t.name).Scan(&found)
	switch {
	case err == nil:
		logger.Debug("db precheck: database exists", "db", found)
	case errors.Is(err, sql.ErrNoRows):
		logger.Warn("db precheck: database not found on this instance", "db", t.name)
	default:
		logger.Warn("db precheck: could not query pg_database", "error", err)
	}
}
