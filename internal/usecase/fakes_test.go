package usecase

import (
	"context"
	"sync"
	"time"

	domain "github.com/maximzom/shoebot/internal/entity"
)

type fakeCatalog struct {
	items map[string]domain.Item
}

func newFakeCatalog(items ...domain.Item) *fakeCatalog {
	m := map[string]domain.Item{}
	for _, it := range items {
		m[it.SKU] = it
	}
	return &fakeCatalog{items: m}
}

func (f *fakeCatalog) GetItem(_ context.Context, sku string) (*domain.Item, error) {
	it, ok := f.items[sku]
	if !ok {
		return nil, ErrNotFound
	}
	return &it, nil
}

func (f *fakeCatalog) ListItems(_ context.Context, category string) ([]domain.Item, error) {
	var out []domain.Item
	for _, it := range f.items {
		if category == "" || it.Category == category {
			out = append(out, it)
		}
	}
	return out, nil
}

type fakePromos struct {
	mu     sync.Mutex
	promos map[string]*domain.Promo
}

func newFakePromos(promos ...*domain.Promo) *fakePromos {
	m := map[string]*domain.Promo{}
	for _, p := range promos {
		m[p.Code] = p
	}
	return &fakePromos{promos: m}
}

func (f *fakePromos) GetPromo(_ context.Context, code string) (*domain.Promo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.promos[code]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

type fakeSessions struct {
	mu       sync.Mutex
	byUser   map[string]*domain.Session
	saveErr  error
	saveErrs int // fail this many saves, then succeed
	saves    int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byUser: map[string]*domain.Session{}}
}

func (f *fakeSessions) Load(_ context.Context, userID string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.byUser[userID]; ok {
		return s.Clone(), nil
	}
	return domain.NewSession(userID), nil
}

func (f *fakeSessions) Save(_ context.Context, sess *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil && (f.saveErrs == 0 || f.saves <= f.saveErrs) {
		return f.saveErr
	}
	f.byUser[sess.UserID] = sess.Clone()
	return nil
}

func (f *fakeSessions) get(userID string) *domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.byUser[userID]; ok {
		return s.Clone()
	}
	return nil
}

func (f *fakeSessions) put(sess *domain.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byUser[sess.UserID] = sess.Clone()
}

// fakeOrders mirrors the transactional contract of the real store: the
// promo bump, the order insert and the session reset land together or
// not at all.
type fakeOrders struct {
	mu        sync.Mutex
	orders    map[string]*domain.Order
	promos    *fakePromos
	sessions  *fakeSessions
	createErr error
	failures  int // fail this many creates, then succeed
	creates   int
}

func newFakeOrders(promos *fakePromos, sessions *fakeSessions) *fakeOrders {
	return &fakeOrders{orders: map[string]*domain.Order{}, promos: promos, sessions: sessions}
}

func (f *fakeOrders) CreateOrder(_ context.Context, o *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil && (f.failures == 0 || f.creates <= f.failures) {
		return f.createErr
	}

	if o.PromoCode != "" && f.promos != nil {
		f.promos.mu.Lock()
		p, ok := f.promos.promos[o.PromoCode]
		if !ok || !p.Active || p.Exhausted() {
			f.promos.mu.Unlock()
			return ErrPromoExhausted
		}
		p.UsageCount++
		f.promos.mu.Unlock()
	}

	cp := *o
	f.orders[o.Number] = &cp

	if f.sessions != nil {
		reset := domain.NewSession(o.UserID)
		f.sessions.put(reset)
	}
	return nil
}

func (f *fakeOrders) GetByNumber(_ context.Context, number string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[number]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrders) UpdateStatusIf(_ context.Context, number string, from, to domain.Status) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[number]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

type fakeIdem struct {
	mu     sync.Mutex
	locked map[string]bool
	known  map[string]string
}

func newFakeIdem() *fakeIdem {
	return &fakeIdem{locked: map[string]bool{}, known: map[string]string{}}
}

func (f *fakeIdem) TryLock(_ context.Context, scope, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := scope + ":" + key
	if f.locked[k] {
		return false, nil
	}
	f.locked[k] = true
	return true, nil
}

func (f *fakeIdem) Remember(_ context.Context, scope, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.known[scope+":"+key] = value
	return nil
}

func (f *fakeIdem) Recall(_ context.Context, scope, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.known[scope+":"+key]
	return v, ok, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []OrderPlacedMsg
	err  error
}

func (f *fakeNotifier) OrderPlaced(_ context.Context, msg OrderPlacedMsg) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(string, time.Time) bool { return true }

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(string, time.Time) bool { return false }
