package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/maximzom/shoebot/internal/entity"
	"github.com/maximzom/shoebot/internal/usecase"
)

// MySQLCatalogRepo is the read-only catalog surface. Sizes are stored
// as a JSON array in a TEXT column, the way the admin panel writes them.
type MySQLCatalogRepo struct{ db *sql.DB }

func NewMySQLCatalogRepo(db *sql.DB) *MySQLCatalogRepo { return &MySQLCatalogRepo{db: db} }

func (r *MySQLCatalogRepo) GetItem(ctx context.Context, sku string) (*domain.Item, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT sku,name,description,price_cents,currency,sizes,category
FROM items WHERE sku = ?`, sku)
	return scanItem(row)
}

func (r *MySQLCatalogRepo) ListItems(ctx context.Context, category string) ([]domain.Item, error) {
	query := `
SELECT sku,name,description,price_cents,currency,sizes,category
FROM items`
	args := []any{}
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.Item, error) {
	var (
		item        domain.Item
		description sql.NullString
		sizes       string
	)
	if err := row.Scan(&item.SKU, &item.Name, &description, &item.PriceCents, &item.Currency, &sizes, &item.Category); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, usecase.ErrNotFound
		}
		return nil, err
	}
	item.Description = description.String
	if sizes != "" {
		if err := json.Unmarshal([]byte(sizes), &item.Sizes); err != nil {
			return nil, fmt.Errorf("decode sizes for %s: %w", item.SKU, err)
		}
	}
	return &item, nil
}

var _ usecase.CatalogReader = (*MySQLCatalogRepo)(nil)
