package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create tenants and catalog",
		SQL: `
			CREATE TABLE tenants (
				tenant_id     TEXT PRIMARY KEY,
				is_active     INTEGER NOT NULL DEFAULT 0,
				business_name TEXT NOT NULL DEFAULT '',
				greeting      TEXT NOT NULL DEFAULT '',
				hours         TEXT NOT NULL DEFAULT '',
				address       TEXT NOT NULL DEFAULT '',
				phone         TEXT NOT NULL DEFAULT '',
				menu_url      TEXT NOT NULL DEFAULT '',
				updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE TABLE catalog_items (
				tenant_id   TEXT NOT NULL,
				name        TEXT NOT NULL,
				price       REAL NOT NULL DEFAULT 0,
				PRIMARY KEY (tenant_id, name)
			);
		`,
	},
	{
		Version: 2,
		Name:    "create orders",
		SQL: `
			CREATE TABLE orders (
				id             TEXT PRIMARY KEY,
				tenant_id      TEXT NOT NULL,
				tracking_code  TEXT NOT NULL,
				customer_name  TEXT NOT NULL DEFAULT '',
				phone          TEXT NOT NULL DEFAULT '',
				address        TEXT NOT NULL DEFAULT '',
				items          TEXT NOT NULL,
				total          REAL NOT NULL DEFAULT 0,
				status         TEXT NOT NULL DEFAULT 'new',
				payment_method TEXT NOT NULL DEFAULT '',
				source         TEXT NOT NULL DEFAULT 'chat',
				sender         TEXT NOT NULL DEFAULT '',
				delivery       INTEGER NOT NULL DEFAULT 0,
				created_at     TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at     TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE UNIQUE INDEX idx_orders_tracking ON orders (tenant_id, tracking_code);
			CREATE INDEX idx_orders_sender ON orders (tenant_id, sender, created_at);
		`,
	},
}
