package repo

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

type Migration struct {
	Version string
	Up      string
}

// Migrations are applied in semver order; {{id}} and {{ts}} expand per dialect.
var Migrations = []Migration{
	{Version: "1.0.0", Up: schemaV1},
	{Version: "1.1.0", Up: schemaV1Indexes},
}

const schemaV1 = `
CREATE TABLE IF NOT EXISTS users (
	user_id {{id}},
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	type TEXT NOT NULL,
	ph_no TEXT,
	location TEXT,
	latitude DOUBLE PRECISION,
	longitude DOUBLE PRECISION,
	register_date {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
	product_id {{id}},
	name TEXT NOT NULL,
	category TEXT,
	price DOUBLE PRECISION NOT NULL,
	quantity INTEGER NOT NULL,
	freshness DOUBLE PRECISION,
	date_of_harvest {{ts}},
	image TEXT,
	farmer_id BIGINT NOT NULL REFERENCES users(user_id)
);

CREATE TABLE IF NOT EXISTS orders (
	order_id {{id}},
	user_id BIGINT NOT NULL REFERENCES users(user_id),
	order_date {{ts}} NOT NULL,
	total_amount DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS order_items (
	order_item_id {{id}},
	order_id BIGINT NOT NULL REFERENCES orders(order_id) ON DELETE CASCADE,
	product_id BIGINT NOT NULL,
	quantity INTEGER NOT NULL CHECK (quantity > 0),
	subtotal DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS payment (
	payment_id {{id}},
	order_id BIGINT NOT NULL UNIQUE REFERENCES orders(order_id) ON DELETE CASCADE,
	amount DOUBLE PRECISION NOT NULL,
	mode_of_pay TEXT NOT NULL,
	pay_gateway TEXT NOT NULL,
	transaction_id TEXT NOT NULL UNIQUE,
	pay_status TEXT NOT NULL,
	pay_date {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS delivery (
	del_id {{id}},
	order_id BIGINT NOT NULL UNIQUE REFERENCES orders(order_id) ON DELETE CASCADE,
	status TEXT NOT NULL,
	pickup_latitude DOUBLE PRECISION,
	pickup_longitude DOUBLE PRECISION,
	delivery_latitude DOUBLE PRECISION,
	delivery_longitude DOUBLE PRECISION,
	distance DOUBLE PRECISION,
	estimated_duration_minutes INTEGER,
	est_del_time {{ts}},
	actual_del_time {{ts}},
	del_person TEXT
);

CREATE TABLE IF NOT EXISTS login_history (
	login_id {{id}},
	user_id BIGINT REFERENCES users(user_id) ON DELETE SET NULL,
	email TEXT NOT NULL,
	login_date {{ts}} NOT NULL,
	ip_address TEXT,
	user_agent TEXT,
	login_status TEXT NOT NULL,
	failure_reason TEXT
);
`

const schemaV1Indexes = `
CREATE INDEX IF NOT EXISTS idx_products_farmer ON products(farmer_id);
CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id);
CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);
CREATE INDEX IF NOT EXISTS idx_login_history_email ON login_history(email);
`

func (d Dialect) expand(ddl string) string {
	id, ts := "BIGSERIAL PRIMARY KEY", "TIMESTAMPTZ"
	if d == SQLite {
		id, ts = "INTEGER PRIMARY KEY AUTOINCREMENT", "TIMESTAMP"
	}
	return strings.NewReplacer("{{id}}", id, "{{ts}}", ts).Replace(ddl)
}

// ApplyMigrations runs every migration newer than the recorded schema version.
func ApplyMigrations(ctx context.Context, db *sql.DB, d Dialect) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version TEXT PRIMARY KEY,
		applied_at `+d.expand("{{ts}}")+` NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}
	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}
	pending, err := sortedMigrations()
	if err != nil {
		return err
	}
	for _, m := range pending {
		if applied[m.Version] {
			continue
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, d.expand(m.Up)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %s: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, d.rebind(`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`), m.Version, time.Now().UTC()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", m.Version, err)
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration version, or "" if none.
func SchemaVersion(ctx context.Context, db *sql.DB) (string, error) {
	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return "", err
	}
	var best *semver.Version
	for v := range applied {
		sv, err := semver.NewVersion(v)
		if err != nil {
			return "", fmt.Errorf("schema_version %q: %w", v, err)
		}
		if best == nil || sv.GreaterThan(best) {
			best = sv
		}
	}
	if best == nil {
		return "", nil
	}
	return best.Original(), nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_version`)
	if err != nil {
		return nil, fmt.Errorf("read schema_version: %w", err)
	}
	defer rows.Close()
	out := map[string]bool{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = true
	}
	return out, rows.Err()
}

func sortedMigrations() ([]Migration, error) {
	type versioned struct {
		v *semver.Version
		m Migration
	}
	vs := make([]versioned, 0, len(Migrations))
	for _, m := range Migrations {
		v, err := semver.NewVersion(m.Version)
		if err != nil {
			return nil, fmt.Errorf("migration version %q: %w", m.Version, err)
		}
		vs = append(vs, versioned{v, m})
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i].v.LessThan(vs[j].v) })
	out := make([]Migration, len(vs))
	for i := range vs {
		out[i] = vs[i].m
	}
	return out, nil
}
