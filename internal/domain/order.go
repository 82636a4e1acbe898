package domain

import "time"

// CatalogItem is one product in a tenant's menu catalog.
type CatalogItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// OrderItem is one line of an order. UnitPrice and Total are enriched from
// the catalog locally, never trusted from the classifier.
type OrderItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size,omitempty"`
	UnitPrice float64 `json:"unitPrice"`
	Total     float64 `json:"total"`
}

// PendingOrder is a draft order extracted by the classifier, awaiting the
// customer's explicit confirmation.
type PendingOrder struct {
	CustomerName  string      `json:"customerName,omitempty"`
	Address       string      `json:"address,omitempty"`
	Items         []OrderItem `json:"items"`
	PaymentMethod string      `json:"paymentMethod,omitempty"`
	Total         float64     `json:"total"`
}

// Order status and source values.
const (
	OrderStatusNew = "new"
	OrderSourceBot = "chat"
)

// FinalizedOrder is a confirmed, persisted order. Its identity is the
// tracking code; only the status changes after creation (outside this core).
type FinalizedOrder struct {
	TrackingCode  string      `json:"trackingCode"`
	TenantID      string      `json:"tenantId"`
	CustomerName  string      `json:"customerName,omitempty"`
	Phone         string      `json:"phone,omitempty"`
	Address       string      `json:"address,omitempty"`
	Items         []OrderItem `json:"items"`
	Total         float64     `json:"total"`
	Status        string      `json:"status"`
	PaymentMethod string      `json:"paymentMethod,omitempty"`
	Source        string      `json:"source"`
	Sender        string      `json:"sender"`
	Delivery      bool        `json:"delivery"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}
