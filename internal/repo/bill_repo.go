package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smarta/server/internal/model"
)

type billRepo struct {
	db *sql.DB
}

// NewBillRepo creates a new BillRepo instance
func NewBillRepo(db *sql.DB) BillRepo {
	return &billRepo{db: db}
}

const billsWithMeter = `
	SELECT ` + billColumns + `, ` + meterColumns + `
	FROM billing b
	JOIN meters m ON m.id = b.meter_id
`

// ListByTenant retrieves all of a tenant's bills, newest first
func (r *billRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.Bill, error) {
	query := billsWithMeter + `
		WHERE b.tenant_id = $1
		ORDER BY b.created_at DESC
	`
	return r.list(ctx, query, tenantID)
}

// ListPending retrieves a tenant's pending bills, earliest due first
func (r *billRepo) ListPending(ctx context.Context, tenantID uuid.UUID) ([]model.Bill, error) {
	query := billsWithMeter + `
		WHERE b.tenant_id = $1 AND b.status = 'pending'
		ORDER BY b.due_date ASC
	`
	return r.list(ctx, query, tenantID)
}

// CountOverdue counts pending bills whose due date is before now
func (r *billRepo) CountOverdue(ctx context.Context, tenantID uuid.UUID, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM billing
		WHERE tenant_id = $1 AND status = 'pending' AND due_date < $2
	`
	var count int
	if err := r.db.QueryRowContext(ctx, query, tenantID, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count overdue bills: %w", err)
	}
	return count, nil
}

func (r *billRepo) list(ctx context.Context, query string, args ...any) ([]model.Bill, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bills: %w", err)
	}
	defer rows.Close()

	var bills []model.Bill
	for rows.Next() {
		bill, err := scanBillWithMeter(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bills: %w", err)
	}
	return bills, nil
}
