package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/maximzom/shoebot/internal/entity"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type finalizeEnv struct {
	promos   *fakePromos
	sessions *fakeSessions
	orders   *fakeOrders
	idem     *fakeIdem
	notifier *fakeNotifier
	fin      *Finalizer
}

func newFinalizeEnv(t *testing.T, promos ...*domain.Promo) *finalizeEnv {
	t.Helper()
	env := &finalizeEnv{
		promos:   newFakePromos(promos...),
		sessions: newFakeSessions(),
		idem:     newFakeIdem(),
		notifier: &fakeNotifier{},
	}
	env.orders = newFakeOrders(env.promos, env.sessions)
	validator := NewPromoValidator(env.promos)
	env.fin = NewFinalizer(env.orders, validator, env.idem, env.notifier, NewNumberAllocator(), "UAH", discardLogger())
	return env
}

func confirmingSession(userID, promo string) *domain.Session {
	sess := domain.NewSession(userID)
	sess.State = domain.StateConfirming
	sess.Payload = domain.Payload{
		Cart: []domain.Line{
			{SKU: "SKU-AIR", Name: "AirRunner", Size: "42", Quantity: 2, UnitPriceCents: 250000},
		},
		Delivery:  "pickup",
		Phone:     "+380501234567",
		PromoCode: promo,
	}
	return sess
}

func TestFinalizeCreatesOrder(t *testing.T) {
	env := newFinalizeEnv(t)
	sess := confirmingSession("u1", "")
	env.sessions.put(sess)

	order, err := env.fin.Finalize(context.Background(), sess, "ev-1")
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if order.Status != domain.StatusPending {
		t.Errorf("status = %v, want PENDING", order.Status)
	}
	if order.Total.Cents != 500000 {
		t.Errorf("total = %d, want 500000", order.Total.Cents)
	}
	if order.Number == "" {
		t.Errorf("empty order number")
	}

	// The persisted session was reset inside the same commit.
	if got := env.sessions.get("u1"); got == nil || got.State != domain.StateIdle {
		t.Errorf("session not reset: %+v", got)
	}

	if len(env.notifier.sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(env.notifier.sent))
	}
	if msg := env.notifier.sent[0]; msg.OrderNumber != order.Number || msg.TotalCents != 500000 {
		t.Errorf("notification = %+v", msg)
	}
}

func TestFinalizePromoCountsAtCommit(t *testing.T) {
	limit := int64(100)
	env := newFinalizeEnv(t, &domain.Promo{
		Code:            "WELCOME10",
		DiscountPercent: decimal.NewFromInt(10),
		UsageLimit:      &limit,
		UsageCount:      99,
		Active:          true,
	})

	// The last slot goes to whoever commits first.
	sess := confirmingSession("u1", "WELCOME10")
	order, err := env.fin.Finalize(context.Background(), sess, "ev-1")
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if order.Discount.Cents != 50000 {
		t.Errorf("discount = %d, want 50000", order.Discount.Cents)
	}
	if order.Total.Cents != 450000 {
		t.Errorf("total = %d, want 450000", order.Total.Cents)
	}

	p, _ := env.promos.GetPromo(context.Background(), "WELCOME10")
	if p.UsageCount != 100 {
		t.Fatalf("usage count = %d, want 100", p.UsageCount)
	}

	// The next confirmation finds the code exhausted.
	sess2 := confirmingSession("u2", "WELCOME10")
	if _, err := env.fin.Finalize(context.Background(), sess2, "ev-2"); !errors.Is(err, ErrPromoInvalid) {
		t.Fatalf("err = %v, want ErrPromoInvalid", err)
	}
	p, _ = env.promos.GetPromo(context.Background(), "WELCOME10")
	if p.UsageCount != 100 {
		t.Errorf("usage count moved on rejected order: %d", p.UsageCount)
	}
}

func TestFinalizeDuplicateConfirmation(t *testing.T) {
	env := newFinalizeEnv(t)

	sess := confirmingSession("u1", "")
	first, err := env.fin.Finalize(context.Background(), sess, "ev-1")
	if err != nil {
		t.Fatalf("first Finalize: %v", err)
	}

	// Same event replayed (double-tapped confirm): same order back, no
	// second commit.
	replay := confirmingSession("u1", "")
	second, err := env.fin.Finalize(context.Background(), replay, "ev-1")
	if err != nil {
		t.Fatalf("replayed Finalize: %v", err)
	}
	if second.Number != first.Number {
		t.Fatalf("replay created a new order: %s vs %s", second.Number, first.Number)
	}
	if env.orders.creates != 1 {
		t.Errorf("creates = %d, want 1", env.orders.creates)
	}
	if len(env.notifier.sent) != 1 {
		t.Errorf("notifications = %d, want 1", len(env.notifier.sent))
	}
}

func TestFinalizeLostLockRace(t *testing.T) {
	env := newFinalizeEnv(t)

	// Another process holds the lock but hasn't recorded its order yet.
	if ok, _ := env.idem.TryLock(context.Background(), "u1", "ev-1"); !ok {
		t.Fatal("setup lock failed")
	}

	sess := confirmingSession("u1", "")
	if _, err := env.fin.Finalize(context.Background(), sess, "ev-1"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
	if env.orders.creates != 0 {
		t.Errorf("creates = %d, want 0", env.orders.creates)
	}
}

func TestFinalizeNotifierFailureDoesNotFailOrder(t *testing.T) {
	env := newFinalizeEnv(t)
	env.notifier.err = errors.New("broker down")

	sess := confirmingSession("u1", "")
	order, err := env.fin.Finalize(context.Background(), sess, "ev-1")
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if _, err := env.orders.GetByNumber(context.Background(), order.Number); err != nil {
		t.Fatalf("order not stored: %v", err)
	}
}

func TestFinalizeRetriesTransientFailure(t *testing.T) {
	env := newFinalizeEnv(t)
	env.orders.createErr = errors.New("deadlock")
	env.orders.failures = 1 // first attempt fails, retry succeeds

	sess := confirmingSession("u1", "")
	if _, err := env.fin.Finalize(context.Background(), sess, "ev-1"); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if env.orders.creates != 2 {
		t.Errorf("creates = %d, want 2", env.orders.creates)
	}
}

func TestFinalizePersistentFailure(t *testing.T) {
	env := newFinalizeEnv(t)
	env.orders.createErr = errors.New("db down")

	sess := confirmingSession("u1", "")
	if _, err := env.fin.Finalize(context.Background(), sess, "ev-1"); err == nil {
		t.Fatal("expected error")
	}
	if env.orders.creates != 2 {
		t.Errorf("creates = %d, want 2 (one retry)", env.orders.creates)
	}
	if len(env.notifier.sent) != 0 {
		t.Errorf("notified about a failed order")
	}
}

func TestFinalizeEmptyCart(t *testing.T) {
	env := newFinalizeEnv(t)
	sess := domain.NewSession("u1")
	sess.State = domain.StateConfirming
	sess.Payload.Phone = "+380501234567"

	if _, err := env.fin.Finalize(context.Background(), sess, "ev-1"); !errors.Is(err, domain.ErrEmptyOrder) {
		t.Fatalf("err = %v, want ErrEmptyOrder", err)
	}
}

func TestNumberAllocator(t *testing.T) {
	a := NewNumberAllocator()
	now := time.Date(2025, 9, 1, 14, 30, 55, 0, time.UTC)

	first := a.Next(now)
	if first != "ORD-20250901-143055-001" {
		t.Fatalf("first = %q", first)
	}
	second := a.Next(now)
	if second == first {
		t.Fatalf("same number twice: %q", second)
	}

	// Sequence restarts on a new day.
	next := a.Next(now.Add(24 * time.Hour))
	if next != "ORD-20250902-143055-001" {
		t.Fatalf("next day = %q", next)
	}
}
