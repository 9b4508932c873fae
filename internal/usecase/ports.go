package usecase

import (
	"context"
	"errors"
	"time"

	domain "github.com/maximzom/shoebot/internal/entity"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicate      = errors.New("duplicate confirmation")
	ErrPromoInvalid   = errors.New("promo code no longer valid")
	ErrPromoExhausted = errors.New("promo usage limit reached")
)

// CatalogReader is the read surface the dialog needs. Writes happen in
// the admin panel, outside this service.
type CatalogReader interface {
	GetItem(ctx context.Context, sku string) (*domain.Item, error)
	ListItems(ctx context.Context, category string) ([]domain.Item, error)
}

type PromoReader interface {
	GetPromo(ctx context.Context, code string) (*domain.Promo, error)
}

// SessionStore persists dialog state across restarts. Load returns a
// fresh idle session when the user has none yet.
type SessionStore interface {
	Load(ctx context.Context, userID string) (*domain.Session, error)
	Save(ctx context.Context, sess *domain.Session) error
}

// OrderStore persists finalized orders.
//
// CreateOrder must commit the order with its lines, the promo usage
// increment (when o.PromoCode is set), and the owner's session reset to
// idle in one transaction: either all of it lands or none of it does.
// A promo whose usage limit is already reached fails the whole commit
// with ErrPromoExhausted.
type OrderStore interface {
	CreateOrder(ctx context.Context, o *domain.Order) error
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	UpdateStatusIf(ctx context.Context, number string, from, to domain.Status) (bool, error)
}

// IdempotencyStore guards duplicate confirmations across process
// boundaries. TryLock wins exactly once per (scope, key); Remember/Recall
// map the key to the order number the winning attempt produced.
type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

// Notifier is the outbound admin-notification sink. Fire-and-forget:
// callers log failures and move on, an order never fails because a
// notification did.
type Notifier interface {
	OrderPlaced(ctx context.Context, msg OrderPlacedMsg) error
}

// RateLimiter gatekeeps how often a user may advance the pipeline.
type RateLimiter interface {
	Allow(userID string, now time.Time) bool
}

// PaymentResult is what the payment capability reports back. Approval
// or decline is a result, not an error; errors mean the attempt itself
// didn't happen.
type PaymentResult struct {
	Approved  bool
	Reference string
}

type OrderCache interface {
	SetStatus(ctx context.Context, orderNumber string, status string) error
	GetStatus(ctx context.Context, orderNumber string) (string, error)
}
