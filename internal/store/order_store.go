package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pedezap/pedezap/internal/domain"
)

// OrderStore persists finalized orders keyed by tracking code within a tenant.
type OrderStore struct {
	db *DB
}

// NewOrderStore creates an order store using the given database.
func NewOrderStore(db *DB) *OrderStore {
	return &OrderStore{db: db}
}

// CreateOrder persists a finalized order. The items list is stored as a JSON
// column; the dashboard reads orders whole, never item-by-item.
func (s *OrderStore) CreateOrder(ctx context.Context, order domain.FinalizedOrder) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("encoding order items: %w", err)
	}

	delivery := 0
	if order.Delivery {
		delivery = 1
	}

	_, err = s.db.sql.ExecContext(ctx,
		`INSERT INTO orders (id, tenant_id, tracking_code, customer_name, phone, address,
		   items, total, status, payment_method, source, sender, delivery, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), order.TenantID, order.TrackingCode, order.CustomerName,
		order.Phone, order.Address, string(itemsJSON), order.Total, order.Status,
		order.PaymentMethod, order.Source, order.Sender, delivery,
		order.CreatedAt.Format(time.DateTime), order.UpdatedAt.Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("inserting order %s: %w", order.TrackingCode, err)
	}
	return nil
}

// LastOrder returns a sender's most recent order for the tenant, or nil.
// The classifier uses it for personalization.
func (s *OrderStore) LastOrder(ctx context.Context, tenantID, sender string) (*domain.FinalizedOrder, error) {
	row := s.db.sql.QueryRowContext(ctx,
		`SELECT tenant_id, tracking_code, customer_name, phone, address, items, total,
		   status, payment_method, source, sender, delivery, created_at, updated_at
		 FROM orders WHERE tenant_id = ? AND sender = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`, tenantID, sender)

	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading last order for %s: %w", sender, err)
	}
	return order, nil
}

// ListOrders returns a tenant's most recent orders, newest first.
func (s *OrderStore) ListOrders(ctx context.Context, tenantID string, limit int) ([]domain.FinalizedOrder, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT tenant_id, tracking_code, customer_name, phone, address, items, total,
		   status, payment_method, source, sender, delivery, created_at, updated_at
		 FROM orders WHERE tenant_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %s: %w", tenantID, err)
	}
	defer rows.Close()

	var orders []domain.FinalizedOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.FinalizedOrder, error) {
	var order domain.FinalizedOrder
	var itemsJSON string
	var delivery int
	var createdAt, updatedAt string

	err := row.Scan(&order.TenantID, &order.TrackingCode, &order.CustomerName,
		&order.Phone, &order.Address, &itemsJSON, &order.Total, &order.Status,
		&order.PaymentMethod, &order.Source, &order.Sender, &delivery,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(itemsJSON), &order.Items); err != nil {
		return nil, fmt.Errorf("decoding order items: %w", err)
	}
	order.Delivery = delivery != 0
	order.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	order.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return &order, nil
}
