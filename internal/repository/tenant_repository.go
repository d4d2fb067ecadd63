package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/centerdesk/center-api/internal/models"
)

// TenantRepository reads the tenant directory.
type TenantRepository struct {
	db *sqlx.DB
}

// NewTenantRepository creates a new tenant repository.
func NewTenantRepository(db *sqlx.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// ListActive returns every active tenant ordered by name.
func (r *TenantRepository) ListActive(ctx context.Context) ([]models.Tenant, error) {
	const query = `SELECT id, name, timezone, active, created_at, updated_at FROM tenants WHERE active = TRUE ORDER BY name ASC`
	var tenants []models.Tenant
	if err := r.db.SelectContext(ctx, &tenants, query); err != nil {
		return nil, fmt.Errorf("list active tenants: %w", err)
	}
	return tenants, nil
}
