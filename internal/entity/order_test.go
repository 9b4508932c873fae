package domain

import (
	"errors"
	"testing"
	"time"
)

func TestStatusCanTransition(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusShipped, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusPaid, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusPaid, StatusShipped, true},

		// No backward moves.
		{StatusConfirmed, StatusPending, false},
		{StatusPaid, StatusConfirmed, false},
		{StatusShipped, StatusPaid, false},

		// No self-moves.
		{StatusPending, StatusPending, false},
		{StatusPaid, StatusPaid, false},

		// Paid and shipped orders can't be cancelled.
		{StatusPaid, StatusCancelled, false},
		{StatusShipped, StatusCancelled, false},

		// Cancelled is terminal.
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusCancelled, false},

		// Unknown statuses never transition.
		{Status("BOGUS"), StatusPaid, false},
		{StatusPending, Status("BOGUS"), false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func validOrder() *Order {
	return &Order{
		Number: "ORD-20250901-120000-001",
		UserID: "u1",
		Lines: []Line{
			{SKU: "SKU-AIR", Name: "AirRunner", Size: "42", Quantity: 1, UnitPriceCents: 250000},
		},
		Subtotal:  Money{Cents: 250000, Currency: "UAH"},
		Total:     Money{Cents: 250000, Currency: "UAH"},
		Delivery:  DeliveryPickup,
		Phone:     "+380501234567",
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

func TestOrderValidate(t *testing.T) {
	if err := validOrder().Validate(); err != nil {
		t.Fatalf("valid order rejected: %v", err)
	}

	t.Run("no lines", func(t *testing.T) {
		o := validOrder()
		o.Lines = nil
		if err := o.Validate(); !errors.Is(err, ErrEmptyOrder) {
			t.Errorf("err = %v, want ErrEmptyOrder", err)
		}
	})

	t.Run("negative total", func(t *testing.T) {
		o := validOrder()
		o.Total.Cents = -1
		if err := o.Validate(); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("err = %v, want ErrInvalidAmount", err)
		}
	})

	t.Run("missing currency", func(t *testing.T) {
		o := validOrder()
		o.Total.Currency = ""
		if err := o.Validate(); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("err = %v, want ErrInvalidAmount", err)
		}
	})

	t.Run("zero quantity line", func(t *testing.T) {
		o := validOrder()
		o.Lines[0].Quantity = 0
		if err := o.Validate(); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("err = %v, want ErrInvalidAmount", err)
		}
	})
}

func TestDeliveryMethod(t *testing.T) {
	if !DeliveryCourier.RequiresAddress() {
		t.Error("courier should require an address")
	}
	if DeliveryPickup.RequiresAddress() {
		t.Error("pickup should not require an address")
	}
	if !DeliveryCourier.Known() || !DeliveryPickup.Known() {
		t.Error("known methods reported unknown")
	}
	if DeliveryMethod("drone").Known() {
		t.Error("unknown method reported known")
	}
}
