package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/storefront-system/internal/model"
)

// ListProducts возвращает каталог товаров, при непустой категории — только её товары.
func (r *PostgresRepository) ListProducts(ctx context.Context, category string) ([]model.Product, error) {
	query := `SELECT id, category, title, description, price, stock FROM products ORDER BY id`
	args := []any{}
	if category != "" {
		query = `SELECT id, category, title, description, price, stock FROM products WHERE category = $1 ORDER BY id`
		args = append(args, category)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Category, &p.Title, &p.Description, &p.PriceCents, &p.Stock); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// GetProductByID возвращает товар по идентификатору.
func (r *PostgresRepository) GetProductByID(ctx context.Context, id int64) (*model.Product, error) {
	var p model.Product
	err := r.pool.QueryRow(ctx,
		`SELECT id, category, title, description, price, stock FROM products WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Category, &p.Title, &p.Description, &p.PriceCents, &p.Stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("select product: %w", err)
	}
	return &p, nil
}

// CreateProduct добавляет товар в каталог.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (category, title, description, price, stock)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		p.Category, p.Title, p.Description, p.PriceCents, p.Stock,
	).Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return &p, nil
}

// UpdateProduct обновляет карточку товара целиком.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, p model.Product) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE products SET category = $2, title = $3, description = $4, price = $5, stock = $6 WHERE id = $1`,
		p.ID, p.Category, p.Title, p.Description, p.PriceCents, p.Stock,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}
