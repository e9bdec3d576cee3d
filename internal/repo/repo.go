package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/smarta/server/internal/model"
)

// ErrNotFound is returned by single-record lookups that match nothing
var ErrNotFound = errors.New("not found")

// TenantRepo defines the interface for tenant repository operations
type TenantRepo interface {
	// GetActiveByUserID returns the user's active lease with its property
	GetActiveByUserID(ctx context.Context, userID string) (model.Tenant, error)
}

// MeterRepo defines the interface for meter repository operations
type MeterRepo interface {
	GetActiveByTenant(ctx context.Context, tenantID uuid.UUID) (model.Meter, error)
	// ListReadings returns up to limit readings of the tenant's meters, oldest first
	ListReadings(ctx context.Context, tenantID uuid.UUID, limit int) ([]model.MeterReading, error)
}

// BillRepo defines the interface for bill repository operations
type BillRepo interface {
	// ListByTenant returns all bills with their meter, newest first
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.Bill, error)
	// ListPending returns pending bills with their meter, earliest due first
	ListPending(ctx context.Context, tenantID uuid.UUID) ([]model.Bill, error)
	CountOverdue(ctx context.Context, tenantID uuid.UUID, now time.Time) (int, error)
}

// PaymentRepo defines the interface for payment repository operations
type PaymentRepo interface {
	// ListByTenant returns payments with their bill and meter, newest first
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.Payment, error)
	ListCompleted(ctx context.Context, tenantID uuid.UUID) ([]model.Payment, error)
}

// Backend bundles the repositories of one data source
type Backend struct {
	Tenants  TenantRepo
	Meters   MeterRepo
	Bills    BillRepo
	Payments PaymentRepo
}
