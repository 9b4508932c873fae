package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type RejectReason string

const (
	ReasonUnknownCode   RejectReason = "unknown-code"
	ReasonExpired       RejectReason = "expired"
	ReasonUsageExceeded RejectReason = "usage-exceeded"
)

// PromoDecision is the validator's verdict. Accepting a code does not
// reserve or count anything; the usage counter moves when the order
// commits.
type PromoDecision struct {
	Accepted        bool
	Reason          RejectReason
	Code            string // normalized form, set when accepted
	DiscountPercent decimal.Decimal
}

type PromoValidator struct {
	promos PromoReader
}

func NewPromoValidator(promos PromoReader) *PromoValidator {
	return &PromoValidator{promos: promos}
}

// NormalizePromoCode trims and upper-cases a user-typed code.
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks a code against the rules at a given instant. The
// error return is infrastructure-only; every business rejection comes
// back as a decision.
func (v *PromoValidator) Validate(ctx context.Context, code string, now time.Time) (PromoDecision, error) {
	normalized := NormalizePromoCode(code)
	if normalized == "" {
		return PromoDecision{Reason: ReasonUnknownCode}, nil
	}

	promo, err := v.promos.GetPromo(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return PromoDecision{Reason: ReasonUnknownCode}, nil
		}
		return PromoDecision{}, err
	}

	// An admin-deactivated code reads the same as an expired one.
	if !promo.Active || promo.Expired(now) {
		return PromoDecision{Reason: ReasonExpired}, nil
	}
	if promo.Exhausted() {
		return PromoDecision{Reason: ReasonUsageExceeded}, nil
	}

	return PromoDecision{
		Accepted:        true,
		Code:            promo.Code,
		DiscountPercent: promo.DiscountPercent,
	}, nil
}
