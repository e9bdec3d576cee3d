package repo

import (
	"database/sql"
	"fmt"

	"github.com/smarta/server/internal/model"
)

// NewPostgresBackend returns repositories that query PostgreSQL directly
func NewPostgresBackend(db *sql.DB) Backend {
	return Backend{
		Tenants:  NewTenantRepo(db),
		Meters:   NewMeterRepo(db),
		Bills:    NewBillRepo(db),
		Payments: NewPaymentRepo(db),
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

const (
	tenantColumns = `t.id, t.property_id, t.user_id, t.unit_number, t.lease_start_date,
		t.lease_end_date, t.monthly_rent, t.status, t.created_at, t.updated_at`

	propertyColumns = `p.id, p.landlord_id, p.name, p.address, p.property_type,
		p.total_units, p.created_at, p.updated_at`

	meterColumns = `m.id, m.property_id, m.tenant_id, m.meter_number, m.meter_type, m.location,
		m.installation_date, m.last_reading_date, m.last_reading_value, m.status,
		m.created_at, m.updated_at`

	billColumns = `b.id, b.tenant_id, b.meter_id, b.billing_period_start, b.billing_period_end,
		b.water_consumption, b.rate_per_unit, b.water_charges, b.service_charges,
		b.total_amount, b.status, b.due_date, b.paid_date, b.created_at, b.updated_at`

	paymentColumns = `pm.id, pm.billing_id, pm.tenant_id, pm.amount, pm.payment_method,
		pm.payment_status, pm.payment_reference, pm.mpesa_transaction_id, pm.payment_date,
		pm.confirmed_at, pm.created_at, pm.updated_at`
)

func tenantFields(t *model.Tenant) []any {
	return []any{
		&t.ID, &t.PropertyID, &t.UserID, &t.UnitNumber, &t.LeaseStartDate,
		&t.LeaseEndDate, &t.MonthlyRent, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	}
}

func propertyFields(p *model.Property) []any {
	return []any{
		&p.ID, &p.LandlordID, &p.Name, &p.Address, &p.PropertyType,
		&p.TotalUnits, &p.CreatedAt, &p.UpdatedAt,
	}
}

func meterFields(m *model.Meter) []any {
	return []any{
		&m.ID, &m.PropertyID, &m.TenantID, &m.MeterNumber, &m.MeterType, &m.Location,
		&m.InstallationDate, &m.LastReadingDate, &m.LastReadingValue, &m.Status,
		&m.CreatedAt, &m.UpdatedAt,
	}
}

func billFields(b *model.Bill) []any {
	return []any{
		&b.ID, &b.TenantID, &b.MeterID, &b.BillingPeriodStart, &b.BillingPeriodEnd,
		&b.WaterConsumption, &b.RatePerUnit, &b.WaterCharges, &b.ServiceCharges,
		&b.TotalAmount, &b.Status, &b.DueDate, &b.PaidDate, &b.CreatedAt, &b.UpdatedAt,
	}
}

func paymentFields(p *model.Payment) []any {
	return []any{
		&p.ID, &p.BillingID, &p.TenantID, &p.Amount, &p.PaymentMethod,
		&p.PaymentStatus, &p.PaymentReference, &p.MpesaTransactionID, &p.PaymentDate,
		&p.ConfirmedAt, &p.CreatedAt, &p.UpdatedAt,
	}
}

func concat(groups ...[]any) []any {
	var out []any
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// scanBillWithMeter reads a row of billColumns followed by meterColumns
func scanBillWithMeter(row rowScanner) (model.Bill, error) {
	var bill model.Bill
	var meter model.Meter
	if err := row.Scan(concat(billFields(&bill), meterFields(&meter))...); err != nil {
		return model.Bill{}, fmt.Errorf("failed to scan bill: %w", err)
	}
	bill.Meter = &meter
	return bill, nil
}
