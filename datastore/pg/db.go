// Package pg persists snapshot and recovery point references in Postgres so
// that flows running on different hosts share one view of the backup
// catalog.
package pg

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// DB is the query surface the stores need. It is satisfied by both a raw
// connection and an open transaction.
type DB interface {
	Query(ctx context.Context, q string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, q string, args ...any) *sql.Row
	Exec(ctx context.Context, q string, args ...any) (sql.Result, error)
}

var _ DB = &dbController{}

// dbController routes statements through an open transaction when one has
// been started, and directly at the connection otherwise.
type dbController struct {
	tx   *sql.Tx
	base *sql.DB
}

func newDbController(db *sql.DB) *dbController {
	return &dbController{base: db}
}

func (d *dbController) Query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	if d.tx != nil {
		return d.tx.QueryContext(ctx, q, args...)
	}

	return d.base.QueryContext(ctx, q, args...)
}

func (d *dbController) QueryRow(ctx context.Context, q string, args ...any) *sql.Row {
	if d.tx != nil {
		return d.tx.QueryRowContext(ctx, q, args...)
	}

	return d.base.QueryRowContext(ctx, q, args...)
}

func (d *dbController) Exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	if d.tx != nil {
		return d.tx.ExecContext(ctx, q, args...)
	}

	return d.base.ExecContext(ctx, q, args...)
}

// Fixture performs an Exec but ignores the result, and is intended for
// schema and test setup.
func (d *dbController) Fixture(ctx context.Context, q string, args ...any) error {
	_, err := d.Exec(ctx, q, args...)

	return err
}

func (d *dbController) Begin() error {
	if d.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	tx, err := d.base.Begin()
	if err != nil {
		return err
	}
	d.tx = tx

	return nil
}

func (d *dbController) Commit() error {
	if d.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	defer func() {
		d.tx = nil
	}()

	return d.tx.Commit()
}

func (d *dbController) Rollback() error {
	if d.tx == nil {
		return fmt.Errorf("no transaction to roll back")
	}
	defer func() {
		d.tx = nil
	}()

	return d.tx.Rollback()
}
