package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/smarta/server/internal/model"
)

type meterRepo struct {
	db *sql.DB
}

// NewMeterRepo creates a new MeterRepo instance
func NewMeterRepo(db *sql.DB) MeterRepo {
	return &meterRepo{db: db}
}

// GetActiveByTenant retrieves the tenant's active meter
func (r *meterRepo) GetActiveByTenant(ctx context.Context, tenantID uuid.UUID) (model.Meter, error) {
	query := `
		SELECT ` + meterColumns + `
		FROM meters m
		WHERE m.tenant_id = $1 AND m.status = 'active'
		LIMIT 1
	`
	var meter model.Meter
	err := r.db.QueryRowContext(ctx, query, tenantID).Scan(meterFields(&meter)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Meter{}, fmt.Errorf("meter for tenant %s: %w", tenantID, ErrNotFound)
		}
		return model.Meter{}, fmt.Errorf("failed to query meter: %w", err)
	}
	return meter, nil
}

// ListReadings retrieves the oldest limit readings across the tenant's meters
func (r *meterRepo) ListReadings(ctx context.Context, tenantID uuid.UUID, limit int) ([]model.MeterReading, error) {
	query := `
		SELECT r.reading_value, r.reading_date, r.consumption
		FROM meter_readings r
		JOIN meters m ON m.id = r.meter_id
		WHERE m.tenant_id = $1
		ORDER BY r.reading_date ASC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []model.MeterReading
	for rows.Next() {
		var reading model.MeterReading
		if err := rows.Scan(&reading.ReadingValue, &reading.ReadingDate, &reading.Consumption); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}
	return readings, nil
}
