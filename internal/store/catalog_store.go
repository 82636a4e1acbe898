package store

import (
	"context"
	"fmt"

	"github.com/pedezap/pedezap/internal/domain"
)

// CatalogStore reads a tenant's product list and price map.
type CatalogStore struct {
	db *DB
}

// NewCatalogStore creates a catalog store using the given database.
func NewCatalogStore(db *DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// Catalog returns all catalog items for a tenant, name-ordered.
func (s *CatalogStore) Catalog(ctx context.Context, tenantID string) ([]domain.CatalogItem, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT name, price FROM catalog_items WHERE tenant_id = ? ORDER BY name`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("loading catalog for %s: %w", tenantID, err)
	}
	defer rows.Close()

	var items []domain.CatalogItem
	for rows.Next() {
		var item domain.CatalogItem
		if err := rows.Scan(&item.Name, &item.Price); err != nil {
			return nil, fmt.Errorf("scanning catalog item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Replace swaps a tenant's entire catalog in one transaction. The admin
// dashboard re-imports full menus, so partial updates are not needed.
func (s *CatalogStore) Replace(ctx context.Context, tenantID string, items []domain.CatalogItem) error {
	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog replace: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_items WHERE tenant_id = ?`, tenantID); err != nil {
		tx.Rollback()
		return fmt.Errorf("clearing catalog: %w", err)
	}

	for _, item := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO catalog_items (tenant_id, name, price) VALUES (?, ?, ?)`,
			tenantID, item.Name, item.Price); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting catalog item %q: %w", item.Name, err)
		}
	}

	return tx.Commit()
}
