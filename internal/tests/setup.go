package tests

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Seed describes the rows created by SeedTenant
type Seed struct {
	PropertyID  uuid.UUID
	TenantID    uuid.UUID
	MeterID     uuid.UUID
	PendingBill uuid.UUID
	PaidBill    uuid.UUID
}

// TruncateTenantTables empties the dashboard tables for a clean test state.
func TruncateTenantTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "TRUNCATE TABLE payments, billing, meter_readings, meters, tenants, properties CASCADE")
	if err != nil {
		return fmt.Errorf("truncate tenant tables: %w", err)
	}
	return nil
}

// SeedTenant creates an active tenant for userID with a meter, a week of
// readings ending at now, one pending and one paid bill, and a completed
// payment of the paid bill.
func SeedTenant(ctx context.Context, db *sql.DB, userID string, now time.Time) (*Seed, error) {
	s := &Seed{
		PropertyID:  uuid.New(),
		TenantID:    uuid.New(),
		MeterID:     uuid.New(),
		PendingBill: uuid.New(),
		PaidBill:    uuid.New(),
	}
	today := now.UTC().Truncate(24 * time.Hour)

	stmts := []struct {
		query string
		args  []any
	}{
		{`INSERT INTO properties (id, name, address, total_units) VALUES ($1, 'Riverside Court', 'Ngong Road', 12)`,
			[]any{s.PropertyID}},
		{`INSERT INTO tenants (id, property_id, user_id, unit_number, lease_start_date, monthly_rent) VALUES ($1, $2, $3, 'A4', $4, 25000)`,
			[]any{s.TenantID, s.PropertyID, userID, today.AddDate(-1, 0, 0)}},
		{`INSERT INTO meters (id, property_id, tenant_id, meter_number, last_reading_date, last_reading_value) VALUES ($1, $2, $3, 'WM-0042', $4, 150)`,
			[]any{s.MeterID, s.PropertyID, s.TenantID, today}},
		{`INSERT INTO billing (id, tenant_id, meter_id, billing_period_start, billing_period_end, water_consumption, rate_per_unit, water_charges, service_charges, total_amount, status, due_date)
			VALUES ($1, $2, $3, $4, $5, 12.5, 100, 1250, 250, 1500, 'pending', $6)`,
			[]any{s.PendingBill, s.TenantID, s.MeterID, today.AddDate(0, -1, 0), today.AddDate(0, 0, -1), today.AddDate(0, 0, 14)}},
		{`INSERT INTO billing (id, tenant_id, meter_id, billing_period_start, billing_period_end, water_consumption, rate_per_unit, water_charges, service_charges, total_amount, status, due_date, paid_date)
			VALUES ($1, $2, $3, $4, $5, 10, 100, 1000, 250, 1250, 'paid', $6, $7)`,
			[]any{s.PaidBill, s.TenantID, s.MeterID, today.AddDate(0, -2, 0), today.AddDate(0, -1, -1), today.AddDate(0, -1, 14), today.AddDate(0, -1, 10)}},
		{`INSERT INTO payments (billing_id, tenant_id, amount, payment_status, payment_reference, mpesa_transaction_id, payment_date)
			VALUES ($1, $2, 1250, 'completed', 'Riverside Court-A4', 'QGH7X2K9LM', $3)`,
			[]any{s.PaidBill, s.TenantID, today.AddDate(0, -1, 10)}},
	}
	for i := 0; i < 7; i++ {
		stmts = append(stmts, struct {
			query string
			args  []any
		}{
			`INSERT INTO meter_readings (meter_id, reading_value, reading_date, consumption) VALUES ($1, $2, $3, $4)`,
			[]any{s.MeterID, 100 + float64(i)*2, today.AddDate(0, 0, i-6), 2.0},
		})
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			return nil, fmt.Errorf("seed tenant: %w", err)
		}
	}
	return s, nil
}
