package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Promo is a discount code. Usage is counted only when an order commits,
// so a code typed into an abandoned dialog reserves nothing.
type Promo struct {
	Code            string
	DiscountPercent decimal.Decimal
	ValidUntil      *time.Time // nil = never expires
	UsageLimit      *int64     // nil = unlimited
	UsageCount      int64
	Active          bool
}

func (p *Promo) Expired(now time.Time) bool {
	return p.ValidUntil != nil && now.After(*p.ValidUntil)
}

func (p *Promo) Exhausted() bool {
	return p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit
}
