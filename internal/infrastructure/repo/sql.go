package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"harvesthub-backend/internal/domain"
	"harvesthub-backend/internal/usecase"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// rebind rewrites ? placeholders to $n for postgres.
func (d Dialect) rebind(q string) string {
	if d != Postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements every repository on postgres or sqlite.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects and migrates. driver is "postgres" or "sqlite".
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	s, err := Connect(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := ApplyMigrations(ctx, s.db, s.dialect); err != nil {
		_ = s.db.Close()
		return nil, err
	}
	return s, nil
}

// Connect opens the pool without touching the schema.
func Connect(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	var (
		d    Dialect
		name string
	)
	switch strings.ToLower(driver) {
	case "postgres", "postgresql":
		d, name = Postgres, "postgres"
	case "sqlite", "sqlite3":
		d, name = SQLite, sqliteDriver
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, err
	}
	if d == SQLite {
		// One connection keeps :memory: databases shared and serializes writers.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLStore{db: db, dialect: d}, nil
}

func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) Dialect() Dialect { return s.dialect }

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) q() queries { return queries{q: s.db, d: s.dialect} }

// queries holds statements shared by the pool and open transactions.
type queries struct {
	q querier
	d Dialect
}

func (x queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return x.q.ExecContext(ctx, x.d.rebind(query), args...)
}

func (x queries) row(ctx context.Context, query string, args ...any) *sql.Row {
	return x.q.QueryRowContext(ctx, x.d.rebind(query), args...)
}

func (x queries) insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	err := x.row(ctx, query, args...).Scan(&id)
	return id, err
}

// expectRow maps a zero-row update or delete to domain.ErrNotFound.
func expectRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// identities

const identityCols = `user_id, name, email, password, type, ph_no, location, latitude, longitude, register_date`

func scanIdentity(sc interface{ Scan(...any) error }) (*domain.Identity, error) {
	var (
		u               domain.Identity
		role            string
		phone, location sql.NullString
	)
	if err := sc.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &phone, &location, &u.Latitude, &u.Longitude, &u.RegisteredAt); err != nil {
		return nil, notFound(err)
	}
	u.Role = domain.Role(role)
	u.Phone, u.Location = phone.String, location.String
	return &u, nil
}

func (s *SQLStore) CreateIdentity(ctx context.Context, u *domain.Identity) error {
	if _, err := s.GetIdentityByEmail(ctx, u.Email); err == nil {
		return usecase.ErrValidation("user with this email already exists")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	id, err := s.q().insert(ctx, `INSERT INTO users (name, email, password, type, ph_no, location, latitude, longitude, register_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING user_id`,
		u.Name, strings.ToLower(u.Email), u.PasswordHash, string(u.Role), nullString(u.Phone), nullString(u.Location), u.Latitude, u.Longitude, u.RegisteredAt.UTC())
	if uniqueViolation(err) {
		// Lost a race with a concurrent sign-up for the same address.
		return usecase.ErrValidation("user with this email already exists")
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = id
	return nil
}

func uniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return sqliteUniqueViolation(err)
}

func (s *SQLStore) GetIdentity(ctx context.Context, id int64) (*domain.Identity, error) {
	return scanIdentity(s.q().row(ctx, `SELECT `+identityCols+` FROM users WHERE user_id = ?`, id))
}

func (s *SQLStore) GetIdentityByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return scanIdentity(s.q().row(ctx, `SELECT `+identityCols+` FROM users WHERE email = ?`, strings.ToLower(email)))
}

func (s *SQLStore) CreateLoginAttempt(ctx context.Context, a *domain.LoginAttempt) error {
	var reason sql.NullString
	if a.FailureReason != nil {
		reason = sql.NullString{String: *a.FailureReason, Valid: true}
	}
	id, err := s.q().insert(ctx, `INSERT INTO login_history (user_id, email, login_date, ip_address, user_agent, login_status, failure_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING login_id`,
		a.IdentityID, a.Email, a.At.UTC(), a.IP, a.UserAgent, string(a.Outcome), reason)
	if err != nil {
		return fmt.Errorf("insert login attempt: %w", err)
	}
	a.ID = id
	return nil
}

// LoginAttempts returns the audit trail for email, oldest first.
func (s *SQLStore) LoginAttempts(ctx context.Context, email string) ([]domain.LoginAttempt, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`SELECT login_id, user_id, email, login_date, ip_address, user_agent, login_status, failure_reason
		FROM login_history WHERE email = ? ORDER BY login_id`), strings.ToLower(email))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.LoginAttempt
	for rows.Next() {
		var (
			a       domain.LoginAttempt
			ip, ua  sql.NullString
			outcome string
			reason  sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.IdentityID, &a.Email, &a.At, &ip, &ua, &outcome, &reason); err != nil {
			return nil, err
		}
		a.IP, a.UserAgent, a.Outcome = ip.String, ua.String, domain.LoginOutcome(outcome)
		if reason.Valid {
			r := reason.String
			a.FailureReason = &r
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// listings

const listingCols = `product_id, name, category, price, quantity, freshness, date_of_harvest, image, farmer_id`

func scanListing(sc interface{ Scan(...any) error }) (*domain.Listing, error) {
	var (
		l               domain.Listing
		category, image sql.NullString
		freshness       sql.NullFloat64
	)
	if err := sc.Scan(&l.ID, &l.Name, &category, &l.Price, &l.Quantity, &freshness, &l.HarvestDate, &image, &l.OwnerID); err != nil {
		return nil, notFound(err)
	}
	l.Category, l.Image, l.Freshness = category.String, image.String, freshness.Float64
	return &l, nil
}

func (s *SQLStore) CreateListing(ctx context.Context, l *domain.Listing) error {
	id, err := s.q().insert(ctx, `INSERT INTO products (name, category, price, quantity, freshness, date_of_harvest, image, farmer_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING product_id`,
		l.Name, l.Category, l.Price, l.Quantity, l.Freshness, utcPtr(l.HarvestDate), l.Image, l.OwnerID)
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	l.ID = id
	return nil
}

func (s *SQLStore) GetListing(ctx context.Context, id int64) (*domain.Listing, error) {
	return s.q().getListing(ctx, id)
}

func (x queries) getListing(ctx context.Context, id int64) (*domain.Listing, error) {
	return scanListing(x.row(ctx, `SELECT `+listingCols+` FROM products WHERE product_id = ?`, id))
}

func (s *SQLStore) ListListings(ctx context.Context) ([]domain.Listing, error) {
	return s.listings(ctx, `SELECT `+listingCols+` FROM products ORDER BY product_id`)
}

func (s *SQLStore) ListListingsByOwner(ctx context.Context, ownerID int64) ([]domain.Listing, error) {
	return s.listings(ctx, `SELECT `+listingCols+` FROM products WHERE farmer_id = ? ORDER BY product_id`, ownerID)
}

func (s *SQLStore) listings(ctx context.Context, query string, args ...any) ([]domain.Listing, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateListing(ctx context.Context, l *domain.Listing) error {
	return expectRow(s.q().exec(ctx, `UPDATE products SET name = ?, category = ?, price = ?, quantity = ?, freshness = ?, date_of_harvest = ?, image = ?
		WHERE product_id = ?`,
		l.Name, l.Category, l.Price, l.Quantity, l.Freshness, utcPtr(l.HarvestDate), l.Image, l.ID))
}

func (s *SQLStore) DeleteListing(ctx context.Context, id int64) error {
	return expectRow(s.q().exec(ctx, `DELETE FROM products WHERE product_id = ?`, id))
}

// orders

func (s *SQLStore) WithOrderTx(ctx context.Context, fn func(tx usecase.OrderTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin order tx: %w", err)
	}
	if err := fn(sqlOrderTx{queries{q: tx, d: s.dialect}}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order tx: %w", err)
	}
	return nil
}

type sqlOrderTx struct {
	x queries
}

func (t sqlOrderTx) GetListing(ctx context.Context, id int64) (*domain.Listing, error) {
	return t.x.getListing(ctx, id)
}

func (t sqlOrderTx) CreateOrder(ctx context.Context, o *domain.Order) error {
	id, err := t.x.insert(ctx, `INSERT INTO orders (user_id, order_date, total_amount) VALUES (?, ?, ?) RETURNING order_id`,
		o.IdentityID, o.CreatedAt.UTC(), o.Total)
	if err != nil {
		return err
	}
	o.ID = id
	return nil
}

func (t sqlOrderTx) UpdateOrderTotal(ctx context.Context, id int64, total float64) error {
	return expectRow(t.x.exec(ctx, `UPDATE orders SET total_amount = ? WHERE order_id = ?`, total, id))
}

func (t sqlOrderTx) CreateOrderLine(ctx context.Context, l *domain.OrderLine) error {
	id, err := t.x.insert(ctx, `INSERT INTO order_items (order_id, product_id, quantity, subtotal) VALUES (?, ?, ?, ?) RETURNING order_item_id`,
		l.OrderID, l.ListingID, l.Quantity, l.Subtotal)
	if err != nil {
		return err
	}
	l.ID = id
	return nil
}

func (t sqlOrderTx) CreatePayment(ctx context.Context, p *domain.Payment) error {
	id, err := t.x.insert(ctx, `INSERT INTO payment (order_id, amount, mode_of_pay, pay_gateway, transaction_id, pay_status, pay_date)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING payment_id`,
		p.OrderID, p.Amount, p.Method, p.Gateway, p.TransactionID, string(p.Status), p.CreatedAt.UTC())
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (s *SQLStore) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	x := s.q()
	var o domain.Order
	err := x.row(ctx, `SELECT order_id, user_id, order_date, total_amount FROM orders WHERE order_id = ?`, id).
		Scan(&o.ID, &o.IdentityID, &o.CreatedAt, &o.Total)
	if err != nil {
		return nil, notFound(err)
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`SELECT order_item_id, order_id, product_id, quantity, subtotal
		FROM order_items WHERE order_id = ? ORDER BY order_item_id`), id)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ListingID, &l.Quantity, &l.Subtotal); err != nil {
			rows.Close()
			return nil, err
		}
		o.Lines = append(o.Lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	p, err := scanPayment(x.row(ctx, `SELECT `+paymentCols+` FROM payment WHERE order_id = ?`, id))
	switch {
	case err == nil:
		o.Payment = p
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	d, err := scanDelivery(x.row(ctx, `SELECT `+deliveryCols+` FROM delivery WHERE order_id = ?`, id))
	switch {
	case err == nil:
		o.Delivery = d
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	return &o, nil
}

// payments

const paymentCols = `payment_id, order_id, amount, mode_of_pay, pay_gateway, transaction_id, pay_status, pay_date`

func scanPayment(sc interface{ Scan(...any) error }) (*domain.Payment, error) {
	var (
		p      domain.Payment
		status string
	)
	if err := sc.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.Gateway, &p.TransactionID, &status, &p.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	p.Status = domain.PaymentStatus(status)
	return &p, nil
}

func (s *SQLStore) GetPayment(ctx context.Context, id int64) (*domain.Payment, error) {
	return scanPayment(s.q().row(ctx, `SELECT `+paymentCols+` FROM payment WHERE payment_id = ?`, id))
}

func (s *SQLStore) UpdatePayment(ctx context.Context, p *domain.Payment) error {
	return expectRow(s.q().exec(ctx, `UPDATE payment SET amount = ?, transaction_id = ?, pay_status = ? WHERE payment_id = ?`,
		p.Amount, p.TransactionID, string(p.Status), p.ID))
}

// deliveries

const deliveryCols = `del_id, order_id, status, pickup_latitude, pickup_longitude, delivery_latitude, delivery_longitude,
	distance, estimated_duration_minutes, est_del_time, actual_del_time, del_person`

func scanDelivery(sc interface{ Scan(...any) error }) (*domain.Delivery, error) {
	var (
		d          domain.Delivery
		status     string
		pLat, pLng *float64
		dLat, dLng *float64
		duration   *int64
		courier    sql.NullString
	)
	if err := sc.Scan(&d.ID, &d.OrderID, &status, &pLat, &pLng, &dLat, &dLng,
		&d.DistanceKm, &duration, &d.EstimatedArrival, &d.ActualArrival, &courier); err != nil {
		return nil, notFound(err)
	}
	d.Status = domain.DeliveryStatus(status)
	d.Pickup = coords(pLat, pLng)
	d.Dropoff = coords(dLat, dLng)
	if duration != nil {
		m := int(*duration)
		d.DurationMin = &m
	}
	if courier.Valid {
		c := courier.String
		d.Courier = &c
	}
	return &d, nil
}

func coords(lat, lng *float64) *domain.Coordinates {
	if lat == nil || lng == nil {
		return nil
	}
	return &domain.Coordinates{Lat: *lat, Lng: *lng}
}

func splitCoords(c *domain.Coordinates) (lat, lng *float64) {
	if c == nil {
		return nil, nil
	}
	return &c.Lat, &c.Lng
}

func (s *SQLStore) CreateDelivery(ctx context.Context, d *domain.Delivery) error {
	pLat, pLng := splitCoords(d.Pickup)
	dLat, dLng := splitCoords(d.Dropoff)
	id, err := s.q().insert(ctx, `INSERT INTO delivery (order_id, status, pickup_latitude, pickup_longitude, delivery_latitude, delivery_longitude,
		distance, estimated_duration_minutes, est_del_time, actual_del_time, del_person)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING del_id`,
		d.OrderID, string(d.Status), pLat, pLng, dLat, dLng,
		d.DistanceKm, d.DurationMin, utcPtr(d.EstimatedArrival), utcPtr(d.ActualArrival), d.Courier)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	d.ID = id
	return nil
}

func (s *SQLStore) GetDelivery(ctx context.Context, id int64) (*domain.Delivery, error) {
	return scanDelivery(s.q().row(ctx, `SELECT `+deliveryCols+` FROM delivery WHERE del_id = ?`, id))
}

func (s *SQLStore) UpdateDelivery(ctx context.Context, d *domain.Delivery) error {
	return expectRow(s.q().exec(ctx, `UPDATE delivery SET status = ?, actual_del_time = ?, del_person = ? WHERE del_id = ?`,
		string(d.Status), utcPtr(d.ActualArrival), d.Courier, d.ID))
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
