package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domain "github.com/maximzom/shoebot/internal/entity"
)

// Pipeline is the single entry point the messaging collaborator calls.
// It rate-limits, serializes per user, loads the session, steps the
// dialog machine, finalizes confirmed carts and saves the session back.
type Pipeline struct {
	limiter   RateLimiter
	sessions  SessionStore
	machine   *Machine
	finalizer *Finalizer

	storeTimeout time.Duration
	clock        func() time.Time
	log          *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewPipeline(limiter RateLimiter, sessions SessionStore, machine *Machine, finalizer *Finalizer, storeTimeout time.Duration, log *slog.Logger) *Pipeline {
	if storeTimeout <= 0 {
		storeTimeout = 3 * time.Second
	}
	return &Pipeline{
		limiter:      limiter,
		sessions:     sessions,
		machine:      machine,
		finalizer:    finalizer,
		storeTimeout: storeTimeout,
		clock:        time.Now,
		log:          log,
		locks:        map[string]*sync.Mutex{},
	}
}

// HandleEvent processes one inbound event for one user.
//
// Events for the same user run strictly one at a time in arrival order;
// different users proceed in parallel. A throttled event touches
// nothing. A failed session save rolls the transition back in memory so
// the user's next attempt starts from the last saved state.
func (p *Pipeline) HandleEvent(ctx context.Context, userID string, ev Event) (Outcome, error) {
	if userID == "" {
		return Outcome{}, errors.New("empty user id")
	}

	if !p.limiter.Allow(userID, p.clock()) {
		return Outcome{
			Kind:    OutcomeThrottled,
			Message: "Too many messages, please wait a minute and try again.",
		}, nil
	}

	lock := p.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	loaded, err := p.loadSession(ctx, userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load session: %w", err)
	}

	// Step a copy; the loaded session stays pristine for rollback.
	sess := loaded.Clone()
	out, err := p.machine.Step(ctx, sess, ev)
	if err != nil {
		return Outcome{}, err
	}

	if out.Kind == OutcomeOrderConfirmation {
		return p.finalize(ctx, sess, ev)
	}

	sess.UpdatedAt = p.clock()
	if err := p.saveSession(ctx, sess); err != nil {
		// Transition rolled back: nothing advanced, user retries clean.
		p.log.Error("session save failed", "user", userID, "state", sess.State, "err", err)
		return Outcome{}, fmt.Errorf("save session: %w", err)
	}

	return out, nil
}

func (p *Pipeline) finalize(ctx context.Context, sess *domain.Session, ev Event) (Outcome, error) {
	order, err := p.finalizer.Finalize(ctx, sess, ev.ID)
	if err != nil {
		if errors.Is(err, ErrPromoInvalid) {
			// The code went bad between entry and confirm. Drop it,
			// stay in confirmation so the user can just confirm again.
			sess.Payload.PromoCode = ""
			if saveErr := p.saveSession(ctx, sess); saveErr != nil {
				return Outcome{}, fmt.Errorf("save session: %w", saveErr)
			}
			return Outcome{
				Kind:    OutcomeValidationError,
				State:   sess.State,
				Message: "Your promo code is no longer valid; it was removed. Confirm to order without it.",
			}, nil
		}
		if errors.Is(err, ErrDuplicate) {
			return Outcome{
				Kind:    OutcomeValidationError,
				State:   sess.State,
				Message: "That confirmation is already being processed.",
			}, nil
		}
		// Session not advanced; the user can retry the confirmation.
		return Outcome{}, err
	}

	// The order store reset the persisted session in the same
	// transaction; mirror it in memory.
	sess.Reset()

	return Outcome{
		Kind:    OutcomeOrderConfirmation,
		State:   sess.State,
		Message: fmt.Sprintf("Order %s placed! Total: %s. We will contact you shortly.", order.Number, formatMoney(order.Total.Cents, order.Total.Currency)),
		Order:   order,
	}, nil
}

func (p *Pipeline) loadSession(ctx context.Context, userID string) (*domain.Session, error) {
	var sess *domain.Session
	err := retryOnce(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, p.storeTimeout)
		defer cancel()
		var err error
		sess, err = p.sessions.Load(ctx, userID)
		return err
	})
	return sess, err
}

func (p *Pipeline) saveSession(ctx context.Context, sess *domain.Session) error {
	return retryOnce(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, p.storeTimeout)
		defer cancel()
		return p.sessions.Save(ctx, sess)
	})
}

func (p *Pipeline) userLock(userID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		p.locks[userID] = l
	}
	return l
}
