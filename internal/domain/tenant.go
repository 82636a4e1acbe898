package domain

// TenantConfig holds per-tenant settings read from the external store. They
// are mutable at runtime, so the router re-reads them on every message.
type TenantConfig struct {
	TenantID     string `json:"tenantId"`
	IsActive     bool   `json:"isActive"`
	BusinessName string `json:"businessName,omitempty"`
	Greeting     string `json:"greeting,omitempty"`
	Hours        string `json:"hours,omitempty"`
	Address      string `json:"address,omitempty"`
	Phone        string `json:"phone,omitempty"`
	MenuURL      string `json:"menuUrl,omitempty"`
}
