package domain

import "time"

// DialogState tags where a user's order dialog currently stands.
// The names describe what has already been collected; each state waits
// for exactly one kind of input.
type DialogState string

const (
	StateIdle             DialogState = "idle"
	StateBrowsing         DialogState = "browsing"
	StateSizeSelected     DialogState = "size_selected"
	StateQtySelected      DialogState = "qty_selected"
	StateDeliverySelected DialogState = "delivery_selected"
	StateAddressEntered   DialogState = "address_entered"
	StatePhoneEntered     DialogState = "phone_entered"
	StateConfirming       DialogState = "confirming"
)

// Payload accumulates the data a dialog has collected so far. It is
// serialized as JSON into the session row; fields added later decode as
// zero values from old payloads, and keys this version doesn't know are
// dropped silently, so restarts across deploys keep working.
type Payload struct {
	// In-progress selection, cleared once the line lands in Cart.
	ItemSKU        string `json:"item_sku,omitempty"`
	ItemName       string `json:"item_name,omitempty"`
	UnitPriceCents int64  `json:"unit_price_cents,omitempty"`
	Size           string `json:"size,omitempty"`

	Cart      []Line `json:"cart,omitempty"`
	Delivery  string `json:"delivery,omitempty"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
	PromoCode string `json:"promo_code,omitempty"`
}

// ClearSelection drops the half-picked item without touching the cart.
func (p *Payload) ClearSelection() {
	p.ItemSKU, p.ItemName, p.Size = "", "", ""
	p.UnitPriceCents = 0
}

// Session is the persisted (state, payload) pair for one user. One user
// owns exactly one session; it is the unit of per-user serialization.
type Session struct {
	UserID    string
	State     DialogState
	Payload   Payload
	UpdatedAt time.Time
}

func NewSession(userID string) *Session {
	return &Session{UserID: userID, State: StateIdle}
}

// Reset returns the session to idle with an empty payload, as after a
// completed or cancelled dialog.
func (s *Session) Reset() {
	s.State = StateIdle
	s.Payload = Payload{}
}

// Clone returns a deep copy. The pipeline steps a copy so that a failed
// save leaves the loaded session untouched.
func (s *Session) Clone() *Session {
	cp := *s
	if s.Payload.Cart != nil {
		cp.Payload.Cart = make([]Line, len(s.Payload.Cart))
		copy(cp.Payload.Cart, s.Payload.Cart)
	}
	return &cp
}
