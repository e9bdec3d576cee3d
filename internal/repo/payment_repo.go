package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/smarta/server/internal/model"
)

type paymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo creates a new PaymentRepo instance
func NewPaymentRepo(db *sql.DB) PaymentRepo {
	return &paymentRepo{db: db}
}

// ListByTenant retrieves a tenant's payments with bill and meter, newest first
func (r *paymentRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `, ` + billColumns + `, ` + meterColumns + `
		FROM payments pm
		JOIN billing b ON b.id = pm.billing_id
		JOIN meters m ON m.id = b.meter_id
		WHERE pm.tenant_id = $1
		ORDER BY pm.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		var payment model.Payment
		var bill model.Bill
		var meter model.Meter
		if err := rows.Scan(concat(paymentFields(&payment), billFields(&bill), meterFields(&meter))...); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		bill.Meter = &meter
		payment.Billing = &bill
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}

// ListCompleted retrieves a tenant's completed payments without joins
func (r *paymentRepo) ListCompleted(ctx context.Context, tenantID uuid.UUID) ([]model.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments pm
		WHERE pm.tenant_id = $1 AND pm.payment_status = 'completed'
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed payments: %w", err)
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		var payment model.Payment
		if err := rows.Scan(paymentFields(&payment)...); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}
