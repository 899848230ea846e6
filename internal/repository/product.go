package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scoopworks/storefront/internal/domain/catalog"
)

const (
	productColumns = `id, name, description, price, stock, active, version, created_at, restocked_at`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	findActiveProductsSQL = `SELECT ` + productColumns + ` FROM products WHERE active ORDER BY name`

	findProductsByNameSQL = `SELECT ` + productColumns + `
		FROM products WHERE active AND name ILIKE '%' || $1 || '%' ORDER BY name`

	saveProductSQL = `UPDATE products
		SET name = $2, description = $3, price = $4, stock = $5, active = $6,
			restocked_at = $7, version = version + 1
		WHERE id = $1 AND version = $8`

	upsertProductSQL = `INSERT INTO products (id, name, description, price, stock, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description,
			price = EXCLUDED.price, stock = EXCLUDED.stock, active = EXCLUDED.active,
			restocked_at = now(), version = products.version + 1`

	decrementStockSQL = `UPDATE products
		SET stock = stock - $2, version = version + 1
		WHERE id = $1 AND version = $3 AND stock >= $2`

	incrementStockSQL = `UPDATE products
		SET stock = stock + $2, version = version + 1
		WHERE id = $1`
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// FindByID returns a single product by its identifier.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting product %q", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting product %q", id)
	}
	return &p, nil
}

// FindActive returns every product currently offered for sale.
func (r *ProductRepository) FindActive(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, findActiveProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing active products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// FindByNameContains returns active products whose name contains the query,
// case-insensitively.
func (r *ProductRepository) FindByNameContains(ctx context.Context, name string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, findProductsByNameSQL, name)
	if err != nil {
		return nil, errors.Wrapf(err, "searching products by %q", name)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Save writes product fields conditioned on the version the caller read, and
// fails with catalog.ErrVersionConflict when a concurrent writer got there
// first. The in-memory version counter is bumped on success.
func (r *ProductRepository) Save(ctx context.Context, p *catalog.Product) error {
	tag, err := r.pool.Exec(ctx, saveProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.Active, p.RestockedAt, p.Version,
	)
	if err != nil {
		return errors.Wrapf(err, "saving product %q", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrVersionConflict
	}
	p.Version++
	return nil
}

// Upsert inserts or replaces a product unconditionally. Used by the seed and
// feed-import tools, not by the order pipeline.
func (r *ProductRepository) Upsert(ctx context.Context, p *catalog.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.Active,
	)
	if err != nil {
		return errors.Wrapf(err, "upserting product %q", p.ID)
	}
	return nil
}

// DecrementStock applies a conditional stock decrement: it succeeds only when
// the stored version still matches and stock covers the quantity.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, qty int, version int64) error {
	tag, err := r.pool.Exec(ctx, decrementStockSQL, id, qty, version)
	if err != nil {
		return errors.Wrapf(err, "decrementing stock for product %q", id)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrVersionConflict
	}
	return nil
}

// IncrementStock adds quantity back unconditionally. Used to compensate a
// partially applied checkout reservation.
func (r *ProductRepository) IncrementStock(ctx context.Context, id string, qty int) error {
	tag, err := r.pool.Exec(ctx, incrementStockSQL, id, qty)
	if err != nil {
		return errors.Wrapf(err, "incrementing stock for product %q", id)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock,
		&p.Active, &p.Version, &p.CreatedAt, &p.RestockedAt,
	)
	return p, err
}
