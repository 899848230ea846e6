package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scoopworks/storefront/internal/domain/invoice"
)

const (
	saveInvoiceSQL = `INSERT INTO invoices (
			id, order_id, number, tax_id, legal_name, fiscal_address,
			subtotal, tax, total, issued_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	invoiceColumns = `id, order_id, number, tax_id, legal_name, fiscal_address,
		subtotal, tax, total, issued_at`

	getInvoiceByOrderSQL  = `SELECT ` + invoiceColumns + ` FROM invoices WHERE order_id = $1`
	getInvoiceByNumberSQL = `SELECT ` + invoiceColumns + ` FROM invoices WHERE number = $1`
	invoiceExistsSQL      = `SELECT EXISTS (SELECT 1 FROM invoices WHERE order_id = $1)`
	listInvoicesSQL       = `SELECT ` + invoiceColumns + ` FROM invoices ORDER BY issued_at`

	nextInvoiceNumberSQL = `INSERT INTO invoice_counters (day, value) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET value = invoice_counters.value + 1
		RETURNING value`
)

var (
	_ invoice.Repository = (*InvoiceRepository)(nil)
	_ invoice.Sequence   = (*InvoiceRepository)(nil)
)

// InvoiceRepository implements invoice.Repository and invoice.Sequence backed
// by PostgreSQL. The sequence is a per-day counter row incremented in a
// single atomic upsert, which serializes concurrent number assignment.
type InvoiceRepository struct {
	pool *pgxpool.Pool
}

// NewInvoiceRepository returns an InvoiceRepository that uses the given pool.
func NewInvoiceRepository(pool *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{pool: pool}
}

// Save persists a new invoice. Two racing generations for the same order can
// both pass the existence check; the unique index on order_id is the arbiter,
// and the loser gets ErrAlreadyExists.
func (r *InvoiceRepository) Save(ctx context.Context, inv *invoice.Invoice) error {
	_, err := r.pool.Exec(ctx, saveInvoiceSQL,
		inv.ID, inv.OrderID, inv.Number, inv.TaxID, inv.LegalName, inv.FiscalAddress,
		inv.Subtotal, inv.Tax, inv.Total, inv.IssuedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "invoices_order_id_key" {
			return invoice.ErrAlreadyExists
		}
		return errors.Wrapf(err, "saving invoice %q", inv.Number)
	}
	return nil
}

// FindByOrderID returns the invoice issued for an order.
func (r *InvoiceRepository) FindByOrderID(ctx context.Context, orderID string) (*invoice.Invoice, error) {
	return r.findOne(ctx, getInvoiceByOrderSQL, orderID)
}

// FindByNumber returns an invoice by its fiscal number.
func (r *InvoiceRepository) FindByNumber(ctx context.Context, number string) (*invoice.Invoice, error) {
	return r.findOne(ctx, getInvoiceByNumberSQL, number)
}

// ExistsForOrder reports whether an invoice has already been issued for the
// order.
func (r *InvoiceRepository) ExistsForOrder(ctx context.Context, orderID string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, invoiceExistsSQL, orderID).Scan(&exists); err != nil {
		return false, errors.Wrapf(err, "checking invoice for order %q", orderID)
	}
	return exists, nil
}

// ListAll returns every issued invoice ordered by emission time.
func (r *InvoiceRepository) ListAll(ctx context.Context) ([]invoice.Invoice, error) {
	rows, err := r.pool.Query(ctx, listInvoicesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing invoices")
	}
	return pgx.CollectRows(rows, scanInvoice)
}

// Next atomically increments and returns the invoice counter for the given
// day.
func (r *InvoiceRepository) Next(ctx context.Context, day time.Time) (int64, error) {
	var value int64
	if err := r.pool.QueryRow(ctx, nextInvoiceNumberSQL, day.Format("2006-01-02")).Scan(&value); err != nil {
		return 0, errors.Wrap(err, "incrementing invoice counter")
	}
	return value, nil
}

func (r *InvoiceRepository) findOne(ctx context.Context, sql, arg string) (*invoice.Invoice, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, errors.Wrapf(err, "getting invoice by %q", arg)
	}

	inv, err := pgx.CollectExactlyOneRow(rows, scanInvoice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invoice.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting invoice by %q", arg)
	}
	return &inv, nil
}

func scanInvoice(row pgx.CollectableRow) (invoice.Invoice, error) {
	var inv invoice.Invoice
	err := row.Scan(
		&inv.ID, &inv.OrderID, &inv.Number, &inv.TaxID, &inv.LegalName, &inv.FiscalAddress,
		&inv.Subtotal, &inv.Tax, &inv.Total, &inv.IssuedAt,
	)
	return inv, err
}
