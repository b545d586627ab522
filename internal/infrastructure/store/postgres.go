package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/example/storefront/internal/domain/order"
)

// PostgresOrderStore persists orders in a single table. Status changes
// go through a conditional UPDATE keyed on the version column, never an
// unconditional write.
type PostgresOrderStore struct {
	db *sql.DB
}

func NewPostgresOrderStore(db *sql.DB) *PostgresOrderStore {
	return &PostgresOrderStore{db: db}
}

// ConnectPostgres opens and pings a PostgreSQL connection.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

func (s *PostgresOrderStore) Insert(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO orders (order_number, status, payment_status, payment_method,
		                     payment_screenshot, payment_screenshot_uploaded_at, payment_verified_at,
		                     items, shipping_address, total_amount, delivery_charges, created_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		o.OrderNumber, o.Status, o.PaymentStatus, o.PaymentMethod,
		nullString(o.PaymentScreenshot), o.PaymentScreenshotUploadedAt, o.PaymentVerifiedAt,
		items, addr, o.TotalAmount, o.DeliveryCharges, o.CreatedAt, o.Version,
	)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return order.ErrDuplicateOrderNumber
	}
	return err
}

func (s *PostgresOrderStore) Find(ctx context.Context, orderNumber string) (*order.Order, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT order_number, status, payment_status, payment_method,
		        payment_screenshot, payment_screenshot_uploaded_at, payment_verified_at,
		        items, shipping_address, total_amount, delivery_charges, created_at, version
		 FROM orders WHERE order_number = $1`,
		orderNumber,
	)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return o, true, nil
}

// Commit is the conditional-write primitive: the UPDATE matches on both
// order number and the version the writer read, so a concurrent commit
// makes it affect zero rows.
func (s *PostgresOrderStore) Commit(ctx context.Context, o *order.Order, expectedVersion int) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE orders
		 SET status = $1, payment_status = $2,
		     payment_screenshot = $3, payment_screenshot_uploaded_at = $4, payment_verified_at = $5,
		     version = version + 1
		 WHERE order_number = $6 AND version = $7`,
		o.Status, o.PaymentStatus,
		nullString(o.PaymentScreenshot), o.PaymentScreenshotUploadedAt, o.PaymentVerifiedAt,
		o.OrderNumber, expectedVersion,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Zero rows means either a lost race or a missing order.
		_, found, ferr := s.Find(ctx, o.OrderNumber)
		if ferr != nil {
			return ferr
		}
		if !found {
			return order.ErrOrderNotFound
		}
		return order.ErrConflict
	}
	o.Version = expectedVersion + 1
	return nil
}

func (s *PostgresOrderStore) List(ctx context.Context, f order.Filter) ([]*order.Order, error) {
	query := `SELECT order_number, status, payment_status, payment_method,
	                 payment_screenshot, payment_screenshot_uploaded_at, payment_verified_at,
	                 items, shipping_address, total_amount, delivery_charges, created_at, version
	          FROM orders WHERE 1=1`
	var args []any
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.PaymentStatus != "" {
		args = append(args, f.PaymentStatus)
		query += fmt.Sprintf(" AND payment_status = $%d", len(args))
	}
	if f.Email != "" {
		args = append(args, f.Email)
		query += fmt.Sprintf(" AND shipping_address->>'email' = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// EnsureSchema creates the orders table if it does not exist.
func (s *PostgresOrderStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS orders (
			order_number                    TEXT PRIMARY KEY,
			status                          TEXT NOT NULL,
			payment_status                  TEXT NOT NULL,
			payment_method                  TEXT NOT NULL,
			payment_screenshot              TEXT,
			payment_screenshot_uploaded_at  TIMESTAMPTZ,
			payment_verified_at             TIMESTAMPTZ,
			items                           JSONB NOT NULL,
			shipping_address                JSONB NOT NULL,
			total_amount                    INTEGER NOT NULL,
			delivery_charges                INTEGER NOT NULL,
			created_at                      TIMESTAMPTZ NOT NULL,
			version                         INTEGER NOT NULL
		)`)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var (
		o          order.Order
		screenshot sql.NullString
		items      []byte
		addr       []byte
	)
	err := row.Scan(
		&o.OrderNumber, &o.Status, &o.PaymentStatus, &o.PaymentMethod,
		&screenshot, &o.PaymentScreenshotUploadedAt, &o.PaymentVerifiedAt,
		&items, &addr, &o.TotalAmount, &o.DeliveryCharges, &o.CreatedAt, &o.Version,
	)
	if err != nil {
		return nil, err
	}
	o.PaymentScreenshot = screenshot.String
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
		return nil, err
	}
	return &o, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
