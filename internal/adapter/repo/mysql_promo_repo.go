package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	domain "github.com/maximzom/shoebot/internal/entity"
	"github.com/maximzom/shoebot/internal/usecase"
)

type MySQLPromoRepo struct{ db *sql.DB }

func NewMySQLPromoRepo(db *sql.DB) *MySQLPromoRepo { return &MySQLPromoRepo{db: db} }

// GetPromo looks a code up by its normalized (upper-case) form. The
// usage increment lives in the order repo's transaction, not here.
func (r *MySQLPromoRepo) GetPromo(ctx context.Context, code string) (*domain.Promo, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT code,discount_percent,valid_until,usage_limit,usage_count,is_active
FROM promo_codes WHERE code = ?`, code)

	var (
		p          domain.Promo
		percent    string
		validUntil sql.NullTime
		limit      sql.NullInt64
	)
	if err := row.Scan(&p.Code, &percent, &validUntil, &limit, &p.UsageCount, &p.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, usecase.ErrNotFound
		}
		return nil, err
	}

	d, err := decimal.NewFromString(percent)
	if err != nil {
		return nil, err
	}
	p.DiscountPercent = d
	if validUntil.Valid {
		t := validUntil.Time
		p.ValidUntil = &t
	}
	if limit.Valid {
		n := limit.Int64
		p.UsageLimit = &n
	}
	return &p, nil
}

var _ usecase.PromoReader = (*MySQLPromoRepo)(nil)
