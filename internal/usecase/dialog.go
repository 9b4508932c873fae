package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/maximzom/shoebot/internal/entity"
)

// Machine drives one user's order dialog. Step mutates the session it
// is handed and reports what to send back; it never touches storage
// beyond read-only catalog and promo lookups.
//
// Transitions live in an explicit (state, action) table. Anything the
// table doesn't know - a size reply while browsing, a stray button from
// an old message - re-prompts the current state without mutating data.
type Machine struct {
	catalog CatalogReader
	promos  *PromoValidator

	maxQuantity int
	phoneRe     *regexp.Regexp
	currency    string
	clock       func() time.Time

	steps map[transitionKey]stepFn
}

type transitionKey struct {
	state domain.DialogState
	act   action
}

type stepFn func(ctx context.Context, sess *domain.Session, arg string) (Outcome, error)

type MachineConfig struct {
	MaxQuantity  int
	PhonePattern string
	Currency     string
	Clock        func() time.Time
}

func NewMachine(catalog CatalogReader, promos *PromoValidator, cfg MachineConfig) *Machine {
	if cfg.MaxQuantity <= 0 {
		cfg.MaxQuantity = 99
	}
	if cfg.PhonePattern == "" {
		cfg.PhonePattern = `^\+?\d{9,15}$`
	}
	if cfg.Currency == "" {
		cfg.Currency = "UAH"
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	m := &Machine{
		catalog:     catalog,
		promos:      promos,
		maxQuantity: cfg.MaxQuantity,
		phoneRe:     regexp.MustCompile(cfg.PhonePattern),
		currency:    cfg.Currency,
		clock:       cfg.Clock,
	}

	m.steps = map[transitionKey]stepFn{
		{domain.StateIdle, actionStart}:                      m.stepStart,
		{domain.StateBrowsing, actionSelectItem}:             m.stepSelectItem,
		{domain.StateSizeSelected, actionSelectSize}:         m.stepSelectSize,
		{domain.StateQtySelected, actionReply}:               m.stepQuantity,
		{domain.StateDeliverySelected, actionSelectDelivery}: m.stepSelectDelivery,
		{domain.StateDeliverySelected, actionAddMore}:        m.stepAddMore,
		{domain.StateAddressEntered, actionReply}:            m.stepAddress,
		{domain.StatePhoneEntered, actionReply}:              m.stepPhone,
		{domain.StateConfirming, actionReply}:                m.stepPromoCode,
		{domain.StateConfirming, actionConfirm}:              m.stepConfirm,
	}

	return m
}

// Step applies one event to the session. Cancel works from any non-idle
// state; everything else goes through the transition table.
func (m *Machine) Step(ctx context.Context, sess *domain.Session, ev Event) (Outcome, error) {
	act, arg := parseAction(ev)

	if act == actionCancel {
		if sess.State == domain.StateIdle {
			return m.reprompt(sess, "Nothing to cancel.")
		}
		sess.Reset()
		return Outcome{
			Kind:    OutcomeCancelled,
			State:   sess.State,
			Message: "Order cancelled. Send /start to shop again.",
		}, nil
	}

	fn, ok := m.steps[transitionKey{sess.State, act}]
	if !ok {
		return m.outOfSequence(sess)
	}
	return fn(ctx, sess, arg)
}

func (m *Machine) stepStart(ctx context.Context, sess *domain.Session, _ string) (Outcome, error) {
	items, err := m.catalog.ListItems(ctx, "")
	if err != nil {
		return Outcome{}, fmt.Errorf("list items: %w", err)
	}

	sess.State = domain.StateBrowsing

	var b strings.Builder
	b.WriteString("Welcome! Pick a model:\n")
	for _, it := range items {
		fmt.Fprintf(&b, "- %s — %s (item:%s)\n", it.Name, formatMoney(it.PriceCents, it.Currency), it.SKU)
	}
	return Outcome{Kind: OutcomePrompt, State: sess.State, Message: b.String()}, nil
}

func (m *Machine) stepSelectItem(ctx context.Context, sess *domain.Session, sku string) (Outcome, error) {
	item, err := m.catalog.GetItem(ctx, sku)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return m.validationError(sess, "That model is no longer available, please pick another.")
		}
		return Outcome{}, fmt.Errorf("get item %q: %w", sku, err)
	}

	// Capture the price now; the cart keeps this number even if the
	// catalog changes mid-dialog.
	sess.Payload.ItemSKU = item.SKU
	sess.Payload.ItemName = item.Name
	sess.Payload.UnitPriceCents = item.PriceCents
	sess.State = domain.StateSizeSelected

	return Outcome{
		Kind:  OutcomePrompt,
		State: sess.State,
		Message: fmt.Sprintf("%s — %s. Available sizes: %s",
			item.Name, formatMoney(item.PriceCents, item.Currency), strings.Join(item.Sizes, ", ")),
	}, nil
}

func (m *Machine) stepSelectSize(ctx context.Context, sess *domain.Session, size string) (Outcome, error) {
	item, err := m.catalog.GetItem(ctx, sess.Payload.ItemSKU)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Item vanished mid-dialog: back to browsing, cart intact.
			sess.Payload.ClearSelection()
			sess.State = domain.StateBrowsing
			return Outcome{
				Kind:    OutcomeValidationError,
				State:   sess.State,
				Message: "That model is no longer available. Please pick another.",
			}, nil
		}
		return Outcome{}, fmt.Errorf("get item %q: %w", sess.Payload.ItemSKU, err)
	}

	if !item.HasSize(size) {
		return m.validationError(sess,
			fmt.Sprintf("Size %s is not available for %s. Available: %s", size, item.Name, strings.Join(item.Sizes, ", ")))
	}

	sess.Payload.Size = size
	sess.State = domain.StateQtySelected
	return Outcome{Kind: OutcomePrompt, State: sess.State, Message: "How many pairs?"}, nil
}

func (m *Machine) stepQuantity(_ context.Context, sess *domain.Session, text string) (Outcome, error) {
	qty, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || qty < 1 || qty > m.maxQuantity {
		return m.validationError(sess,
			fmt.Sprintf("Please send a whole number between 1 and %d.", m.maxQuantity))
	}

	sess.Payload.Cart = append(sess.Payload.Cart, domain.Line{
		SKU:            sess.Payload.ItemSKU,
		Name:           sess.Payload.ItemName,
		Size:           sess.Payload.Size,
		Quantity:       qty,
		UnitPriceCents: sess.Payload.UnitPriceCents,
	})
	sess.Payload.ClearSelection()
	sess.State = domain.StateDeliverySelected

	return Outcome{
		Kind:    OutcomePrompt,
		State:   sess.State,
		Message: "Added to cart. Choose delivery (delivery:delivery or delivery:pickup), or add another item (more).",
	}, nil
}

func (m *Machine) stepAddMore(ctx context.Context, sess *domain.Session, _ string) (Outcome, error) {
	// Back to browsing for another pair; cart lines stay put.
	return m.stepStart(ctx, sess, "")
}

func (m *Machine) stepSelectDelivery(_ context.Context, sess *domain.Session, method string) (Outcome, error) {
	dm := domain.DeliveryMethod(method)
	if !dm.Known() {
		return m.validationError(sess, "Unknown delivery method, choose delivery or pickup.")
	}

	sess.Payload.Delivery = string(dm)
	if dm.RequiresAddress() {
		sess.State = domain.StateAddressEntered
		return Outcome{Kind: OutcomePrompt, State: sess.State, Message: "Please send the delivery address."}, nil
	}

	// Pickup needs no address.
	sess.State = domain.StatePhoneEntered
	return Outcome{Kind: OutcomePrompt, State: sess.State, Message: "Please send a contact phone number."}, nil
}

func (m *Machine) stepAddress(_ context.Context, sess *domain.Session, text string) (Outcome, error) {
	addr := strings.TrimSpace(text)
	if len(addr) < 5 {
		return m.validationError(sess, "That address looks too short, please send the full one.")
	}

	sess.Payload.Address = addr
	sess.State = domain.StatePhoneEntered
	return Outcome{Kind: OutcomePrompt, State: sess.State, Message: "Please send a contact phone number."}, nil
}

func (m *Machine) stepPhone(_ context.Context, sess *domain.Session, text string) (Outcome, error) {
	phone := strings.TrimSpace(text)
	if !m.phoneRe.MatchString(phone) {
		return m.validationError(sess, "That doesn't look like a phone number (e.g. +380501234567).")
	}

	sess.Payload.Phone = phone
	sess.State = domain.StateConfirming
	return Outcome{
		Kind:    OutcomePrompt,
		State:   sess.State,
		Message: m.summary(sess) + "\nSend a promo code, or confirm / cancel.",
	}, nil
}

// stepPromoCode treats a free-text reply while confirming as a promo
// code attempt. A rejected code changes nothing.
func (m *Machine) stepPromoCode(ctx context.Context, sess *domain.Session, text string) (Outcome, error) {
	decision, err := m.promos.Validate(ctx, text, m.clock())
	if err != nil {
		return Outcome{}, fmt.Errorf("validate promo: %w", err)
	}

	if !decision.Accepted {
		var msg string
		switch decision.Reason {
		case ReasonExpired:
			msg = "That promo code has expired."
		case ReasonUsageExceeded:
			msg = "That promo code has been used up."
		default:
			msg = "Unknown promo code."
		}
		return m.validationError(sess, msg)
	}

	sess.Payload.PromoCode = decision.Code
	return Outcome{
		Kind:    OutcomePrompt,
		State:   sess.State,
		Message: fmt.Sprintf("Promo %s applied (-%s%%).\n%s\nConfirm or cancel.", decision.Code, decision.DiscountPercent, m.summary(sess)),
	}, nil
}

// stepConfirm only checks preconditions; the pipeline runs finalization
// when it sees this outcome.
func (m *Machine) stepConfirm(_ context.Context, sess *domain.Session, _ string) (Outcome, error) {
	if len(sess.Payload.Cart) == 0 {
		return m.validationError(sess, "Your cart is empty.")
	}
	return Outcome{Kind: OutcomeOrderConfirmation, State: sess.State}, nil
}

// summary renders the cart with current totals for the confirm prompt.
func (m *Machine) summary(sess *domain.Session) string {
	percent := decimal.Zero
	if sess.Payload.PromoCode != "" {
		if d, err := m.promos.Validate(context.Background(), sess.Payload.PromoCode, m.clock()); err == nil && d.Accepted {
			percent = d.DiscountPercent
		}
	}
	totals := CartTotals(sess.Payload.Cart, percent, m.currency)

	var b strings.Builder
	b.WriteString("Your order:\n")
	for _, l := range sess.Payload.Cart {
		fmt.Fprintf(&b, "- %s (size %s) x %d = %s\n",
			l.Name, l.Size, l.Quantity, formatMoney(l.UnitPriceCents*int64(l.Quantity), m.currency))
	}
	fmt.Fprintf(&b, "Subtotal: %s\n", formatMoney(totals.Subtotal.Cents, m.currency))
	if totals.Discount.Cents > 0 {
		fmt.Fprintf(&b, "Discount: -%s\n", formatMoney(totals.Discount.Cents, m.currency))
	}
	fmt.Fprintf(&b, "Total: %s", formatMoney(totals.Total.Cents, m.currency))
	return b.String()
}

func (m *Machine) validationError(sess *domain.Session, msg string) (Outcome, error) {
	return Outcome{Kind: OutcomeValidationError, State: sess.State, Message: msg}, nil
}

func (m *Machine) reprompt(sess *domain.Session, msg string) (Outcome, error) {
	return Outcome{Kind: OutcomePrompt, State: sess.State, Message: msg}, nil
}

func (m *Machine) outOfSequence(sess *domain.Session) (Outcome, error) {
	msg := "I didn't understand that."
	switch sess.State {
	case domain.StateIdle:
		msg = "Send /start to begin shopping."
	case domain.StateBrowsing:
		msg = "Please pick a model from the list."
	case domain.StateSizeSelected:
		msg = "Please pick one of the listed sizes."
	case domain.StateQtySelected:
		msg = "Please send a quantity."
	case domain.StateDeliverySelected:
		msg = "Please choose a delivery method."
	case domain.StateAddressEntered:
		msg = "Please send the delivery address."
	case domain.StatePhoneEntered:
		msg = "Please send a contact phone number."
	case domain.StateConfirming:
		msg = "Send a promo code, or confirm / cancel."
	}
	return Outcome{Kind: OutcomeValidationError, State: sess.State, Message: msg}, nil
}

func formatMoney(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, currency)
}
