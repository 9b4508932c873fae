package domain

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusPaid      Status = "PAID"
	StatusShipped   Status = "SHIPPED"
	StatusCancelled Status = "CANCELLED"
)

// statusRank orders the forward path. Cancellation sits outside it.
var statusRank = map[Status]int{
	StatusPending:   0,
	StatusConfirmed: 1,
	StatusPaid:      2,
	StatusShipped:   3,
}

// CanTransition reports whether an order may move from s to next.
// Forward moves only; cancellation is allowed while the order hasn't
// been paid yet.
func (s Status) CanTransition(next Status) bool {
	if next == StatusCancelled {
		return s == StatusPending || s == StatusConfirmed
	}
	from, ok := statusRank[s]
	to, ok2 := statusRank[next]
	return ok && ok2 && to > from
}

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyOrder    = errors.New("order has no lines")
)

type Money struct {
	Cents    int64
	Currency string
}

// Line is one (item, size, quantity) entry with the unit price captured
// at selection time. Later catalog edits never touch it.
type Line struct {
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	Size           string `json:"size"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type Order struct {
	Number    string
	UserID    string
	Lines     []Line
	Subtotal  Money
	Discount  Money
	Total     Money
	Delivery  DeliveryMethod
	Address   string
	Phone     string
	PromoCode string
	Status    Status
	CreatedAt time.Time
}

func (o *Order) Validate() error {
	if len(o.Lines) == 0 {
		return ErrEmptyOrder
	}
	if o.Total.Cents < 0 || o.Total.Currency == "" {
		return ErrInvalidAmount
	}
	for _, l := range o.Lines {
		if l.Quantity < 1 || l.UnitPriceCents < 0 {
			return ErrInvalidAmount
		}
	}
	return nil
}

type DeliveryMethod string

const (
	DeliveryCourier DeliveryMethod = "delivery"
	DeliveryPickup  DeliveryMethod = "pickup"
)

// RequiresAddress reports whether the method needs a delivery address;
// pickup orders skip the address step entirely.
func (m DeliveryMethod) RequiresAddress() bool { return m == DeliveryCourier }

func (m DeliveryMethod) Known() bool {
	return m == DeliveryCourier || m == DeliveryPickup
}
