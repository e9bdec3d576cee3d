package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smarta/server/internal/model"
	"github.com/smarta/server/internal/supabase"
)

// NewRestBackend returns repositories that query the hosted backend through
// PostgREST. Row-level security applies to the access token carried by ctx.
func NewRestBackend(client *supabase.RestClient) Backend {
	r := &restRepo{client: client}
	return Backend{
		Tenants:  restTenants{r},
		Meters:   restMeters{r},
		Bills:    restBills{r},
		Payments: restPayments{r},
	}
}

type restRepo struct {
	client *supabase.RestClient
}

func (r *restRepo) single(ctx context.Context, q *supabase.Query, dest any, what string) error {
	err := q.Single().Execute(ctx, dest)
	if supabase.IsNoRows(err) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

type restTenants struct{ *restRepo }

func (r restTenants) GetActiveByUserID(ctx context.Context, userID string) (model.Tenant, error) {
	var tenant model.Tenant
	q := r.client.From("tenants").
		Select("*, property:properties(*)").
		Eq("user_id", userID).
		Eq("status", "active")
	if err := r.single(ctx, q, &tenant, "tenant for user "+userID); err != nil {
		return model.Tenant{}, err
	}
	return tenant, nil
}

type restMeters struct{ *restRepo }

func (r restMeters) GetActiveByTenant(ctx context.Context, tenantID uuid.UUID) (model.Meter, error) {
	var meter model.Meter
	q := r.client.From("meters").
		Select("*").
		Eq("tenant_id", tenantID).
		Eq("status", "active")
	if err := r.single(ctx, q, &meter, "meter for tenant "+tenantID.String()); err != nil {
		return model.Meter{}, err
	}
	return meter, nil
}

func (r restMeters) ListReadings(ctx context.Context, tenantID uuid.UUID, limit int) ([]model.MeterReading, error) {
	var readings []model.MeterReading
	err := r.client.From("meter_readings").
		Select("reading_value, reading_date, consumption, meter:meters!inner(tenant_id)").
		Eq("meter.tenant_id", tenantID).
		Order("reading_date", true).
		Limit(limit).
		Execute(ctx, &readings)
	return readings, err
}

type restBills struct{ *restRepo }

func (r restBills) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.Bill, error) {
	var bills []model.Bill
	err := r.client.From("billing").
		Select("*, meter:meters(*)").
		Eq("tenant_id", tenantID).
		Order("created_at", false).
		Execute(ctx, &bills)
	return bills, err
}

func (r restBills) ListPending(ctx context.Context, tenantID uuid.UUID) ([]model.Bill, error) {
	var bills []model.Bill
	err := r.client.From("billing").
		Select("*, meter:meters(*)").
		Eq("tenant_id", tenantID).
		Eq("status", model.BillPending).
		Order("due_date", true).
		Execute(ctx, &bills)
	return bills, err
}

func (r restBills) CountOverdue(ctx context.Context, tenantID uuid.UUID, now time.Time) (int, error) {
	var ids []struct {
		ID uuid.UUID `json:"id"`
	}
	err := r.client.From("billing").
		Select("id").
		Eq("tenant_id", tenantID).
		Eq("status", model.BillPending).
		Lt("due_date", now.UTC().Format(time.RFC3339)).
		Execute(ctx, &ids)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

type restPayments struct{ *restRepo }

func (r restPayments) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	err := r.client.From("payments").
		Select("*, billing:billing(*, meter:meters(*))").
		Eq("tenant_id", tenantID).
		Order("created_at", false).
		Execute(ctx, &payments)
	return payments, err
}

func (r restPayments) ListCompleted(ctx context.Context, tenantID uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	err := r.client.From("payments").
		Select("amount, payment_date, payment_status").
		Eq("tenant_id", tenantID).
		Eq("payment_status", model.PaymentCompleted).
		Execute(ctx, &payments)
	return payments, err
}
