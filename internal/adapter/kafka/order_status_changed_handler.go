package kafka

import (
	"context"
	"fmt"
	"strings"

	domain "github.com/maximzom/shoebot/internal/entity"
	"github.com/maximzom/shoebot/internal/usecase"
)

// OrderStatusChangedHandler applies status updates coming from the admin
// panel or the payment callback topic.
type OrderStatusChangedHandler struct {
	Orders usecase.OrderStore
	Cache  usecase.OrderCache // optional
}

func NewOrderStatusChangedHandler(orders usecase.OrderStore, cache usecase.OrderCache) *OrderStatusChangedHandler {
	return &OrderStatusChangedHandler{Orders: orders, Cache: cache}
}

func (h *OrderStatusChangedHandler) Handle(ctx context.Context, ev usecase.OrderStatusChangedMsg) error {
	target, ok := parseStatus(ev.Status)
	if !ok {
		// Unknown status names are dropped, not retried.
		return nil
	}

	ord, err := h.Orders.GetByNumber(ctx, ev.OrderNumber)
	if err != nil {
		if err == usecase.ErrNotFound {
			return nil
		}
		return fmt.Errorf("load order %s: %w", ev.OrderNumber, err)
	}

	if !ord.Status.CanTransition(target) {
		// Stale or out-of-order event; current status wins.
		return nil
	}

	applied, err := h.Orders.UpdateStatusIf(ctx, ev.OrderNumber, ord.Status, target)
	if err != nil {
		return fmt.Errorf("update order %s: %w", ev.OrderNumber, err)
	}
	if !applied {
		// Lost a race with a concurrent update; the event is obsolete.
		return nil
	}

	// Cache best-effort
	if h.Cache != nil {
		_ = h.Cache.SetStatus(ctx, ev.OrderNumber, string(target))
	}
	return nil
}

func parseStatus(s string) (domain.Status, bool) {
	switch domain.Status(strings.ToUpper(strings.TrimSpace(s))) {
	case domain.StatusPending:
		return domain.StatusPending, true
	case domain.StatusConfirmed:
		return domain.StatusConfirmed, true
	case domain.StatusPaid:
		return domain.StatusPaid, true
	case domain.StatusShipped:
		return domain.StatusShipped, true
	case domain.StatusCancelled:
		return domain.StatusCancelled, true
	default:
		return "", false
	}
}
