// Package dashboard loads what the tenant views show: the lenient reads of
// the data access layer, derived statistics and chart data, and the payment
// writes that must surface their failures.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/smarta/server/internal/metrics"
	"github.com/smarta/server/internal/model"
	"github.com/smarta/server/internal/repo"
)

// ErrPaymentsUnavailable is returned by OfflinePayments
var ErrPaymentsUnavailable = errors.New("payments are not configured")

// PaymentGateway is the serverless payment function
type PaymentGateway interface {
	InitiatePayment(ctx context.Context, req model.PaymentRequest) (*model.PaymentResponse, error)
	PaymentStatus(ctx context.Context, paymentID string) (*model.PaymentStatusResponse, error)
}

// OfflinePayments stands in for the payment function when no hosted backend is configured
type OfflinePayments struct{}

func (OfflinePayments) InitiatePayment(context.Context, model.PaymentRequest) (*model.PaymentResponse, error) {
	return nil, ErrPaymentsUnavailable
}

func (OfflinePayments) PaymentStatus(context.Context, string) (*model.PaymentStatusResponse, error) {
	return nil, ErrPaymentsUnavailable
}

// Config wires a Service's collaborators
type Config struct {
	Backend  repo.Backend
	Payments PaymentGateway
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	// DevTenantUserID is the tenant identity used for development sessions
	DevTenantUserID string
}

// Service is the data access layer used by the views. Read methods never
// fail: errors are logged, counted and replaced by an empty default.
type Service struct {
	backend         repo.Backend
	payments        PaymentGateway
	logger          *slog.Logger
	metrics         *metrics.Metrics
	devTenantUserID string
	now             func() time.Time
}

// NewService creates a Service
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	payments := cfg.Payments
	if payments == nil {
		payments = OfflinePayments{}
	}
	return &Service{
		backend:         cfg.Backend,
		payments:        payments,
		logger:          logger,
		metrics:         cfg.Metrics,
		devTenantUserID: cfg.DevTenantUserID,
		now:             time.Now,
	}
}

// readFailed records a swallowed read error. Cancellation is the caller
// going away, not a backend failure, so it is not counted.
func (s *Service) readFailed(operation string, err error, args ...any) {
	args = append(args, "operation", operation, "error", err)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Debug("read abandoned", args...)
		return
	}
	s.metrics.ObserveReadFailure(operation)
	s.logger.Error("read failed, using empty default", args...)
}

// CurrentTenant returns the user's active tenant with its property, or nil
func (s *Service) CurrentTenant(ctx context.Context, userID string) *model.Tenant {
	tenant, err := s.backend.Tenants.GetActiveByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		s.logger.Debug("no active tenant", "user_id", userID)
		return nil
	}
	if err != nil {
		s.readFailed("current_tenant", err, "user_id", userID)
		return nil
	}
	return &tenant
}

// TenantMeter returns the tenant's active meter, or nil
func (s *Service) TenantMeter(ctx context.Context, tenantID uuid.UUID) *model.Meter {
	meter, err := s.backend.Meters.GetActiveByTenant(ctx, tenantID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.readFailed("tenant_meter", err, "tenant_id", tenantID)
		return nil
	}
	return &meter
}

// TenantBills returns all of the tenant's bills, newest first
func (s *Service) TenantBills(ctx context.Context, tenantID uuid.UUID) []model.Bill {
	bills, err := s.backend.Bills.ListByTenant(ctx, tenantID)
	if err != nil {
		s.readFailed("tenant_bills", err, "tenant_id", tenantID)
		return []model.Bill{}
	}
	return nonNil(bills)
}

// PendingBills returns the tenant's unpaid bills, earliest due first
func (s *Service) PendingBills(ctx context.Context, tenantID uuid.UUID) []model.Bill {
	bills, err := s.backend.Bills.ListPending(ctx, tenantID)
	if err != nil {
		s.readFailed("pending_bills", err, "tenant_id", tenantID)
		return []model.Bill{}
	}
	return nonNil(bills)
}

// PaymentHistory returns the tenant's payments with their bills, newest first
func (s *Service) PaymentHistory(ctx context.Context, tenantID uuid.UUID) []model.Payment {
	payments, err := s.backend.Payments.ListByTenant(ctx, tenantID)
	if err != nil {
		s.readFailed("payment_history", err, "tenant_id", tenantID)
		return []model.Payment{}
	}
	return nonNil(payments)
}

// OverdueBillsCount counts pending bills whose due date has passed
func (s *Service) OverdueBillsCount(ctx context.Context, tenantID uuid.UUID) int {
	n, err := s.backend.Bills.CountOverdue(ctx, tenantID, s.now())
	if err != nil {
		s.readFailed("overdue_bills", err, "tenant_id", tenantID)
		return 0
	}
	return n
}

// WaterUsage returns chart data for timeframe. On error every slot is zero.
func (s *Service) WaterUsage(ctx context.Context, tenantID uuid.UUID, timeframe Timeframe) model.WaterUsage {
	readings, err := s.backend.Meters.ListReadings(ctx, tenantID, timeframe.readingLimit())
	if err != nil {
		s.readFailed("water_usage", err, "tenant_id", tenantID, "timeframe", timeframe)
		return emptyUsage(timeframe)
	}
	return bucketUsage(readings, timeframe)
}

// TenantStats runs the bills, completed payments and meter queries
// concurrently and aggregates them. A failed query contributes nothing.
func (s *Service) TenantStats(ctx context.Context, tenantID uuid.UUID) model.TenantStats {
	var (
		bills    []model.Bill
		payments []model.Payment
		meter    *model.Meter
	)

	var g errgroup.Group
	g.Go(func() error {
		var err error
		if bills, err = s.backend.Bills.ListByTenant(ctx, tenantID); err != nil {
			s.readFailed("tenant_stats.bills", err, "tenant_id", tenantID)
			bills = nil
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if payments, err = s.backend.Payments.ListCompleted(ctx, tenantID); err != nil {
			s.readFailed("tenant_stats.payments", err, "tenant_id", tenantID)
			payments = nil
		}
		return nil
	})
	g.Go(func() error {
		meter = s.TenantMeter(ctx, tenantID)
		return nil
	})
	_ = g.Wait() // failures already fell back per query

	return computeStats(bills, payments, meter)
}

func computeStats(bills []model.Bill, payments []model.Payment, meter *model.Meter) model.TenantStats {
	var stats model.TenantStats

	for _, b := range bills {
		if b.Status == model.BillPending {
			stats.PendingBills++
		}
		if b.Status == model.BillPending || b.Status == model.BillPaid {
			stats.MonthlyUsage += b.Consumption()
		}
	}
	stats.DailyAverage = stats.MonthlyUsage / 30

	for _, p := range payments {
		stats.TotalPaid = stats.TotalPaid.Add(p.Amount)
		if p.PaymentDate.IsZero() {
			continue
		}
		if stats.LastPaymentDate == nil || p.PaymentDate.After(stats.LastPaymentDate.Time) {
			last := p.PaymentDate
			stats.LastPaymentDate = &last
		}
	}

	if meter != nil && meter.LastReadingValue != nil {
		stats.CurrentBalance = *meter.LastReadingValue
	}
	return stats
}

// InitiatePayment starts a mobile-money payment. Unlike reads it returns
// every failure, including a declined initiation.
func (s *Service) InitiatePayment(ctx context.Context, req model.PaymentRequest) (*model.PaymentResponse, error) {
	resp, err := s.payments.InitiatePayment(ctx, req)
	s.metrics.ObservePayment(err)
	if err != nil {
		s.logger.Warn("payment initiation failed", "tenant_id", req.TenantID, "billing_id", req.BillingID, "error", err)
		return nil, err
	}
	s.logger.Info("payment initiated", "tenant_id", req.TenantID, "billing_id", req.BillingID, "payment_id", resp.PaymentID)
	return resp, nil
}

// CheckPaymentStatus asks the payment function for the state of paymentID
func (s *Service) CheckPaymentStatus(ctx context.Context, paymentID string) (*model.PaymentStatusResponse, error) {
	if paymentID == "" {
		return nil, fmt.Errorf("payment id is required")
	}
	return s.payments.PaymentStatus(ctx, paymentID)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
