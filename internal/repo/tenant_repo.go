package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/smarta/server/internal/model"
)

type tenantRepo struct {
	db *sql.DB
}

// NewTenantRepo creates a new TenantRepo instance
func NewTenantRepo(db *sql.DB) TenantRepo {
	return &tenantRepo{db: db}
}

// GetActiveByUserID retrieves the active tenant for a user, with its property
func (r *tenantRepo) GetActiveByUserID(ctx context.Context, userID string) (model.Tenant, error) {
	query := `
		SELECT ` + tenantColumns + `, ` + propertyColumns + `
		FROM tenants t
		JOIN properties p ON p.id = t.property_id
		WHERE t.user_id = $1 AND t.status = 'active'
		LIMIT 1
	`
	var tenant model.Tenant
	var property model.Property
	err := r.db.QueryRowContext(ctx, query, userID).Scan(concat(tenantFields(&tenant), propertyFields(&property))...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Tenant{}, fmt.Errorf("tenant for user %s: %w", userID, ErrNotFound)
		}
		return model.Tenant{}, fmt.Errorf("failed to query tenant: %w", err)
	}
	tenant.Property = &property
	return tenant, nil
}
