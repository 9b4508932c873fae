// Package payment holds the gateway integration. Checkout currently
// runs against a stub; orders are collected and settled out of band.
package payment

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	domain "github.com/maximzom/shoebot/internal/entity"
	"github.com/maximzom/shoebot/internal/usecase"
)

// Stub approves (or declines) every charge based on config. It stands in
// for a real acquirer until one is connected.
type Stub struct {
	approve bool
	log     *slog.Logger
}

func NewStub(approve bool, log *slog.Logger) *Stub {
	return &Stub{approve: approve, log: log}
}

func (s *Stub) Charge(ctx context.Context, orderNumber, userID string, amount domain.Money) (usecase.PaymentResult, error) {
	ref := uuid.NewString()
	if s.log != nil {
		s.log.Info("stub charge",
			"order", orderNumber,
			"user", userID,
			"cents", amount.Cents,
			"currency", amount.Currency,
			"approved", s.approve,
			"ref", ref,
		)
	}
	return usecase.PaymentResult{Approved: s.approve, Reference: ref}, nil
}
