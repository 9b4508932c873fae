package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/maximzom/shoebot/internal/entity"
)

// Finalizer turns a confirmed cart into a persisted order. The order
// row, its lines, the promo usage bump and the session reset commit in
// one transaction; the usage counter can never move without an order
// and vice versa.
type Finalizer struct {
	orders   OrderStore
	promos   *PromoValidator
	idem     IdempotencyStore
	notifier Notifier
	numbers  *NumberAllocator
	currency string
	clock    func() time.Time
	log      *slog.Logger
}

func NewFinalizer(orders OrderStore, promos *PromoValidator, idem IdempotencyStore, notifier Notifier, numbers *NumberAllocator, currency string, log *slog.Logger) *Finalizer {
	return &Finalizer{
		orders:   orders,
		promos:   promos,
		idem:     idem,
		notifier: notifier,
		numbers:  numbers,
		currency: currency,
		clock:    time.Now,
		log:      log,
	}
}

// Finalize creates the order for a session sitting in confirmation.
// eventID deduplicates double-submitted confirm buttons: the second
// attempt gets the order the first one created.
//
// On ErrPromoInvalid the caller should drop the code from the session
// and re-prompt; on any persistence error the session must not advance.
func (f *Finalizer) Finalize(ctx context.Context, sess *domain.Session, eventID string) (*domain.Order, error) {
	// Fast path: this exact confirmation already went through.
	if number, ok, _ := f.idem.Recall(ctx, sess.UserID, eventID); ok {
		return f.orders.GetByNumber(ctx, number)
	}

	locked, err := f.idem.TryLock(ctx, sess.UserID, eventID)
	if err != nil {
		return nil, fmt.Errorf("idempotency lock: %w", err)
	}
	if !locked {
		// Lost the race to a concurrent duplicate. If its order is
		// visible already, hand that back; otherwise report the dup.
		if number, ok, _ := f.idem.Recall(ctx, sess.UserID, eventID); ok {
			return f.orders.GetByNumber(ctx, number)
		}
		return nil, ErrDuplicate
	}

	now := f.clock()

	// Re-check the promo at commit time; it may have expired or been
	// exhausted since it was typed in.
	percent := decimal.Zero
	promoCode := ""
	if sess.Payload.PromoCode != "" {
		decision, err := f.promos.Validate(ctx, sess.Payload.PromoCode, now)
		if err != nil {
			return nil, fmt.Errorf("revalidate promo: %w", err)
		}
		if !decision.Accepted {
			return nil, ErrPromoInvalid
		}
		percent = decision.DiscountPercent
		promoCode = decision.Code
	}

	totals := CartTotals(sess.Payload.Cart, percent, f.currency)

	order := &domain.Order{
		Number:    f.numbers.Next(now),
		UserID:    sess.UserID,
		Lines:     sess.Payload.Cart,
		Subtotal:  totals.Subtotal,
		Discount:  totals.Discount,
		Total:     totals.Total,
		Delivery:  domain.DeliveryMethod(sess.Payload.Delivery),
		Address:   sess.Payload.Address,
		Phone:     sess.Payload.Phone,
		PromoCode: promoCode,
		Status:    domain.StatusPending,
		CreatedAt: now,
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}

	// Atomic commit, retried once on transient failure.
	if err := retryOnce(ctx, func(ctx context.Context) error {
		return f.orders.CreateOrder(ctx, order)
	}); err != nil {
		if errors.Is(err, ErrPromoExhausted) {
			return nil, ErrPromoInvalid
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := f.idem.Remember(ctx, sess.UserID, eventID, order.Number); err != nil {
		f.log.Warn("remember confirmation failed", "order", order.Number, "err", err)
	}

	// Fire-and-forget: a lost notification never fails an order.
	if err := f.notifier.OrderPlaced(ctx, OrderPlacedMsg{
		OrderNumber: order.Number,
		UserID:      order.UserID,
		TotalCents:  order.Total.Cents,
		Currency:    order.Total.Currency,
		Delivery:    string(order.Delivery),
	}); err != nil {
		f.log.Warn("order notification failed", "order", order.Number, "err", err)
	}

	f.log.Info("order created", "order", order.Number, "user", order.UserID, "total_cents", order.Total.Cents)
	return order, nil
}

// retryOnce runs fn and retries a single time on failure.
func retryOnce(ctx context.Context, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return fn(ctx)
	}
	return nil
}
