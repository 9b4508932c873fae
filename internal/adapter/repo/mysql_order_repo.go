package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/maximzom/shoebot/internal/entity"
	"github.com/maximzom/shoebot/internal/usecase"
)

type MySQLOrderRepo struct{ db *sql.DB }

func NewMySQLOrderRepo(db *sql.DB) *MySQLOrderRepo { return &MySQLOrderRepo{db: db} }

// CreateOrder commits the order, its lines, the promo usage increment
// and the owner's session reset in one transaction. The guarded UPDATE
// on promo_codes fails the whole commit with ErrPromoExhausted when the
// usage limit is already reached, so the counter and the order always
// move together.
func (r *MySQLOrderRepo) CreateOrder(ctx context.Context, o *domain.Order) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO orders (number,user_id,status,subtotal_cents,discount_cents,total_cents,currency,delivery_method,address,phone,promo_code,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
`, o.Number, o.UserID, o.Status, o.Subtotal.Cents, o.Discount.Cents, o.Total.Cents, o.Total.Currency,
			o.Delivery, nullable(o.Address), o.Phone, nullable(o.PromoCode), o.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		orderID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("order id: %w", err)
		}

		for _, l := range o.Lines {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO order_items (order_id,sku,name,size,quantity,unit_price_cents)
VALUES (?,?,?,?,?,?)
`, orderID, l.SKU, l.Name, l.Size, l.Quantity, l.UnitPriceCents); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}

		if o.PromoCode != "" {
			res, err := tx.ExecContext(ctx, `
UPDATE promo_codes
SET usage_count = usage_count + 1
WHERE code = ? AND is_active = 1 AND (usage_limit IS NULL OR usage_count < usage_limit)
`, o.PromoCode)
			if err != nil {
				return fmt.Errorf("bump promo usage: %w", err)
			}
			rows, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if rows == 0 {
				return usecase.ErrPromoExhausted
			}
		}

		// Same transaction: the dialog is over exactly when the order
		// exists, restarts included.
		if _, err := tx.ExecContext(ctx, `
INSERT INTO sessions (user_id,state,payload,updated_at)
VALUES (?,?,?,NOW())
ON DUPLICATE KEY UPDATE state = VALUES(state), payload = VALUES(payload), updated_at = NOW()
`, o.UserID, domain.StateIdle, "{}"); err != nil {
			return fmt.Errorf("reset session: %w", err)
		}

		return nil
	})
}

func (r *MySQLOrderRepo) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id,number,user_id,status,subtotal_cents,discount_cents,total_cents,currency,delivery_method,address,phone,promo_code,created_at
FROM orders WHERE number = ?`, number)

	var (
		id             int64
		o              domain.Order
		address, promo sql.NullString
	)
	if err := row.Scan(&id, &o.Number, &o.UserID, &o.Status, &o.Subtotal.Cents, &o.Discount.Cents,
		&o.Total.Cents, &o.Total.Currency, &o.Delivery, &address, &o.Phone, &promo, &o.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, usecase.ErrNotFound
		}
		return nil, err
	}
	o.Address = address.String
	o.PromoCode = promo.String
	o.Subtotal.Currency = o.Total.Currency
	o.Discount.Currency = o.Total.Currency

	lines, err := r.lines(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Lines = lines
	return &o, nil
}

func (r *MySQLOrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id,number,user_id,status,subtotal_cents,discount_cents,total_cents,currency,delivery_method,address,phone,promo_code,created_at
FROM orders WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	var ids []int64
	for rows.Next() {
		var (
			id             int64
			o              domain.Order
			address, promo sql.NullString
		)
		if err := rows.Scan(&id, &o.Number, &o.UserID, &o.Status, &o.Subtotal.Cents, &o.Discount.Cents,
			&o.Total.Cents, &o.Total.Currency, &o.Delivery, &address, &o.Phone, &promo, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Address = address.String
		o.PromoCode = promo.String
		o.Subtotal.Currency = o.Total.Currency
		o.Discount.Currency = o.Total.Currency
		out = append(out, o)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		lines, err := r.lines(ctx, id)
		if err != nil {
			return nil, err
		}
		out[i].Lines = lines
	}
	return out, nil
}

// UpdateStatusIf performs a guarded transition; rows == 0 means either
// the order is missing or it was no longer in fromStatus.
func (r *MySQLOrderRepo) UpdateStatusIf(ctx context.Context, number string, from, to domain.Status) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE orders
SET status = ?, updated_at = NOW()
WHERE number = ? AND status = ?`,
		to, number, from,
	)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *MySQLOrderRepo) lines(ctx context.Context, orderID int64) ([]domain.Line, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT sku,name,size,quantity,unit_price_cents
FROM order_items WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.Line
	for rows.Next() {
		var l domain.Line
		if err := rows.Scan(&l.SKU, &l.Name, &l.Size, &l.Quantity, &l.UnitPriceCents); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ usecase.OrderStore = (*MySQLOrderRepo)(nil)
