package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pedezap/pedezap/internal/domain"
)

// TenantStore reads and writes per-tenant settings.
type TenantStore struct {
	db *DB
}

// NewTenantStore creates a tenant store using the given database.
func NewTenantStore(db *DB) *TenantStore {
	return &TenantStore{db: db}
}

// TenantConfig returns the config for a tenant, or nil if the tenant is
// unknown. The router treats nil exactly like an inactive tenant.
func (s *TenantStore) TenantConfig(ctx context.Context, tenantID string) (*domain.TenantConfig, error) {
	var cfg domain.TenantConfig
	var active int
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT tenant_id, is_active, business_name, greeting, hours, address, phone, menu_url
		 FROM tenants WHERE tenant_id = ?`, tenantID,
	).Scan(&cfg.TenantID, &active, &cfg.BusinessName, &cfg.Greeting,
		&cfg.Hours, &cfg.Address, &cfg.Phone, &cfg.MenuURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading tenant %s: %w", tenantID, err)
	}
	cfg.IsActive = active != 0
	return &cfg, nil
}

// Upsert inserts or replaces a tenant's settings.
func (s *TenantStore) Upsert(ctx context.Context, cfg domain.TenantConfig) error {
	active := 0
	if cfg.IsActive {
		active = 1
	}
	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO tenants (tenant_id, is_active, business_name, greeting, hours, address, phone, menu_url, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(tenant_id) DO UPDATE SET
		   is_active = excluded.is_active,
		   business_name = excluded.business_name,
		   greeting = excluded.greeting,
		   hours = excluded.hours,
		   address = excluded.address,
		   phone = excluded.phone,
		   menu_url = excluded.menu_url,
		   updated_at = excluded.updated_at`,
		cfg.TenantID, active, cfg.BusinessName, cfg.Greeting, cfg.Hours,
		cfg.Address, cfg.Phone, cfg.MenuURL, time.Now().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("upserting tenant %s: %w", cfg.TenantID, err)
	}
	return nil
}
