package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"storefront/app/domain"
	"storefront/pkg"
)

type productRepository struct {
	conn *sql.DB
}

func NewProductRepository(db *sql.DB) domain.ProductRepository {
	return &productRepository{db}
}

func (r *productRepository) GetAll(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT id, name, description, price, image_url, created_at, updated_at
	FROM products ORDER BY id`

	rows, err := r.conn.QueryContext(ctx, query)
	if err != nil {
		slog.ErrorContext(ctx, "[productRepository] GetAll", "queryContext", err)
		return nil, err
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(&product.ID, &product.Name, &product.Description, &product.Price,
			&product.ImageURL, &product.CreatedAt, &product.UpdatedAt); err != nil {
			slog.ErrorContext(ctx, "[productRepository] GetAll", "scan", err)
			return nil, err
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		slog.ErrorContext(ctx, "[productRepository] GetAll", "rowError", err)
		return nil, err
	}

	return products, nil
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (domain.Product, error) {
	query := `SELECT id, name, description, price, image_url, created_at, updated_at
	FROM products WHERE id = $1`

	var product domain.Product
	err := r.conn.QueryRowContext(ctx, query, id).Scan(&product.ID, &product.Name, &product.Description,
		&product.Price, &product.ImageURL, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return product, domain.ErrNotFound
		}
		slog.ErrorContext(ctx, "[productRepository] GetByID", "queryRowContext", err)
		return product, err
	}

	return product, nil
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `INSERT INTO products (name, description, price, image_url)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created_at, updated_at`

	err := r.conn.QueryRowContext(ctx, query, product.Name, product.Description, product.Price, product.ImageURL).
		Scan(
			&product.ID,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
	if err != nil {
		slog.ErrorContext(ctx, "[productRepository] Create", "queryRowContext", err)
		return err
	}
	return nil
}

// Update writes name, description and price. image_url is only set on create.
func (r *productRepository) Update(ctx context.Context, product domain.Product, tx *sql.Tx) error {
	query := `UPDATE products SET name = $1, description = $2, price = $3, updated_at = NOW() WHERE id = $4`

	res, err := tx.ExecContext(ctx, query, product.Name, product.Description, product.Price, product.ID)
	if err != nil {
		slog.ErrorContext(ctx, "[productRepository] Update", "execContext", err)
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		slog.ErrorContext(ctx, "[productRepository] Update", "rowsAffected", err)
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: product %d", domain.ErrNotFound, product.ID)
	}

	return nil
}

func (r *productRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.conn.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		slog.ErrorContext(ctx, "[productRepository] Delete", "execContext", err)
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		slog.ErrorContext(ctx, "[productRepository] Delete", "rowsAffected", err)
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *productRepository) WithTransaction(ctx context.Context, fn func(context.Context, *sql.Tx) error) error {
	return pkg.WithTransaction(ctx, r.conn, "[productRepository] WithTransaction", fn)
}
