package queue

import (
	"context"
	"log/slog"

	domain "github.com/maximzom/shoebot/internal/entity"
	"github.com/maximzom/shoebot/internal/usecase"
)

// PaymentGateway is the port to the payment provider. The shipped
// implementation is a stub; swapping a real provider in changes nothing
// here.
type PaymentGateway interface {
	Charge(ctx context.Context, orderNumber, userID string, amount domain.Money) (usecase.PaymentResult, error)
}

// PaymentHandler picks up freshly placed orders and asks the gateway to
// charge them. The charge result travels back as a status-change event
// from the payment side, not through this handler.
type PaymentHandler struct {
	gw  PaymentGateway
	log *slog.Logger
}

func NewPaymentHandler(gw PaymentGateway, log *slog.Logger) *PaymentHandler {
	return &PaymentHandler{gw: gw, log: log}
}

// HandlePlaced is intended to be used with the JSON adapter
// (queue.JSONHandler[usecase.OrderPlacedMsg]).
func (h *PaymentHandler) HandlePlaced(ctx context.Context, msg usecase.OrderPlacedMsg) error {
	res, err := h.gw.Charge(ctx, msg.OrderNumber, msg.UserID, domain.Money{
		Cents:    msg.TotalCents,
		Currency: msg.Currency,
	})
	if err != nil {
		// NACK: the router requeues and we try again.
		return err
	}

	if !res.Approved {
		h.log.Warn("payment declined", "order", msg.OrderNumber, "ref", res.Reference)
		return nil
	}

	h.log.Info("payment approved", "order", msg.OrderNumber, "ref", res.Reference)
	return nil
}
