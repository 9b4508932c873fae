package usecase

import (
	"github.com/shopspring/decimal"

	domain "github.com/maximzom/shoebot/internal/entity"
)

type Totals struct {
	Subtotal domain.Money
	Discount domain.Money
	Total    domain.Money
}

var oneHundred = decimal.NewFromInt(100)

// CartTotals prices a cart. Pure: captured unit prices only, no catalog
// re-reads, so an in-flight price change never moves an open dialog.
// Rounding happens once, half-up to the cent, when the discount is
// applied; never per line.
func CartTotals(lines []domain.Line, discountPercent decimal.Decimal, currency string) Totals {
	var subtotal int64
	for _, l := range lines {
		subtotal += l.UnitPriceCents * int64(l.Quantity)
	}

	var discount int64
	if discountPercent.IsPositive() {
		discount = decimal.NewFromInt(subtotal).
			Mul(discountPercent).
			Div(oneHundred).
			Round(0).
			IntPart()
	}

	total := subtotal - discount
	if total < 0 {
		total = 0
	}

	return Totals{
		Subtotal: domain.Money{Cents: subtotal, Currency: currency},
		Discount: domain.Money{Cents: discount, Currency: currency},
		Total:    domain.Money{Cents: total, Currency: currency},
	}
}
