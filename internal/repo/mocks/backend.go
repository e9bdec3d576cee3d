package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smarta/server/internal/model"
	"github.com/smarta/server/internal/repo"
)

// Backend is an in-memory repo.Backend for testing. Err, keyed by method
// name (e.g. "ListPending"), makes a method fail. When Block is set every
// method waits for it to close or for ctx to end.
type Backend struct {
	mu       sync.Mutex
	Tenants  map[string]model.Tenant // by user ID
	Meter    *model.Meter
	Readings []model.MeterReading
	Bills    []model.Bill
	Payments []model.Payment
	Err      map[string]error
	Block    chan struct{}
	Calls    map[string]int

	// ReadingLimits records the limit of each ListReadings call
	ReadingLimits []int
}

// NewBackend creates an empty Backend
func NewBackend() *Backend {
	return &Backend{
		Tenants: make(map[string]model.Tenant),
		Err:     make(map[string]error),
		Calls:   make(map[string]int),
	}
}

// Repos returns the repositories served by b
func (b *Backend) Repos() repo.Backend {
	return repo.Backend{Tenants: tenants{b}, Meters: meters{b}, Bills: bills{b}, Payments: payments{b}}
}

// CallCount returns how often method was called
func (b *Backend) CallCount(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Calls[method]
}

func (b *Backend) enter(ctx context.Context, method string) error {
	b.mu.Lock()
	b.Calls[method]++
	block := b.Block
	err := b.Err[method]
	b.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

type tenants struct{ b *Backend }

func (r tenants) GetActiveByUserID(ctx context.Context, userID string) (model.Tenant, error) {
	if err := r.b.enter(ctx, "GetActiveByUserID"); err != nil {
		return model.Tenant{}, err
	}
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	t, ok := r.b.Tenants[userID]
	if !ok {
		return model.Tenant{}, repo.ErrNotFound
	}
	return t, nil
}

type meters struct{ b *Backend }

func (r meters) GetActiveByTenant(ctx context.Context, tenantID uuid.UUID) (model.Meter, error) {
	if err := r.b.enter(ctx, "GetActiveByTenant"); err != nil {
		return model.Meter{}, err
	}
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if r.b.Meter == nil {
		return model.Meter{}, repo.ErrNotFound
	}
	return *r.b.Meter, nil
}

func (r meters) ListReadings(ctx context.Context, tenantID uuid.UUID, limit int) ([]model.MeterReading, error) {
	if err := r.b.enter(ctx, "ListReadings"); err != nil {
		return nil, err
	}
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	r.b.ReadingLimits = append(r.b.ReadingLimits, limit)
	readings := r.b.Readings
	if len(readings) > limit {
		readings = readings[:limit]
	}
	return append([]model.MeterReading(nil), readings...), nil
}

type bills struct{ b *Backend }

func (r bills) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.Bill, error) {
	if err := r.b.enter(ctx, "ListBills"); err != nil {
		return nil, err
	}
	return r.filter(tenantID, func(model.Bill) bool { return true }), nil
}

func (r bills) ListPending(ctx context.Context, tenantID uuid.UUID) ([]model.Bill, error) {
	if err := r.b.enter(ctx, "ListPending"); err != nil {
		return nil, err
	}
	return r.filter(tenantID, func(b model.Bill) bool { return b.Status == model.BillPending }), nil
}

func (r bills) CountOverdue(ctx context.Context, tenantID uuid.UUID, now time.Time) (int, error) {
	if err := r.b.enter(ctx, "CountOverdue"); err != nil {
		return 0, err
	}
	return len(r.filter(tenantID, func(b model.Bill) bool { return b.IsOverdue(now) })), nil
}

func (r bills) filter(tenantID uuid.UUID, keep func(model.Bill) bool) []model.Bill {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var out []model.Bill
	for _, b := range r.b.Bills {
		if b.TenantID == tenantID && keep(b) {
			out = append(out, b)
		}
	}
	return out
}

type payments struct{ b *Backend }

func (r payments) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.Payment, error) {
	if err := r.b.enter(ctx, "ListPayments"); err != nil {
		return nil, err
	}
	return r.filter(tenantID, func(model.Payment) bool { return true }), nil
}

func (r payments) ListCompleted(ctx context.Context, tenantID uuid.UUID) ([]model.Payment, error) {
	if err := r.b.enter(ctx, "ListCompleted"); err != nil {
		return nil, err
	}
	return r.filter(tenantID, func(p model.Payment) bool { return p.PaymentStatus == model.PaymentCompleted }), nil
}

func (r payments) filter(tenantID uuid.UUID, keep func(model.Payment) bool) []model.Payment {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	var out []model.Payment
	for _, p := range r.b.Payments {
		if p.TenantID == tenantID && keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// Gateway is a dashboard.PaymentGateway for testing
type Gateway struct {
	mu        sync.Mutex
	Response  *model.PaymentResponse
	Status    *model.PaymentStatusResponse
	Err       error
	Requests  []model.PaymentRequest
	StatusIDs []string
}

func (g *Gateway) InitiatePayment(ctx context.Context, req model.PaymentRequest) (*model.PaymentResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Requests = append(g.Requests, req)
	if g.Err != nil {
		return nil, g.Err
	}
	return g.Response, nil
}

func (g *Gateway) PaymentStatus(ctx context.Context, paymentID string) (*model.PaymentStatusResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.StatusIDs = append(g.StatusIDs, paymentID)
	if g.Err != nil {
		return nil, g.Err
	}
	return g.Status, nil
}
