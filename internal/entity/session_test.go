package domain

import (
	"encoding/json"
	"testing"
)

func TestPayloadDecodeForwardCompat(t *testing.T) {
	// A payload written by a newer deploy: it carries keys this version
	// has never heard of. They must decode without error and without
	// touching the fields we do know.
	raw := `{
		"cart": [{"sku":"SKU-AIR","name":"AirRunner","size":"42","quantity":2,"unit_price_cents":250000}],
		"delivery": "pickup",
		"phone": "+380501234567",
		"gift_wrap": true,
		"loyalty_tier": "gold"
	}`

	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(p.Cart) != 1 || p.Cart[0].SKU != "SKU-AIR" || p.Cart[0].Quantity != 2 {
		t.Fatalf("cart = %+v", p.Cart)
	}
	if p.Delivery != "pickup" || p.Phone != "+380501234567" {
		t.Fatalf("payload = %+v", p)
	}
}

func TestPayloadDecodeOldPayload(t *testing.T) {
	// A payload written before promo codes existed: missing keys come
	// back as zero values.
	var p Payload
	if err := json.Unmarshal([]byte(`{"delivery":"delivery","address":"Khreshchatyk St 1"}`), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.PromoCode != "" || p.Cart != nil {
		t.Fatalf("payload = %+v", p)
	}
	if p.Address != "Khreshchatyk St 1" {
		t.Fatalf("address = %q", p.Address)
	}
}

func TestPayloadClearSelection(t *testing.T) {
	p := Payload{
		ItemSKU:        "SKU-AIR",
		ItemName:       "AirRunner",
		UnitPriceCents: 250000,
		Size:           "42",
		Cart:           []Line{{SKU: "SKU-TRL", Quantity: 1}},
		PromoCode:      "WELCOME10",
	}
	p.ClearSelection()

	if p.ItemSKU != "" || p.ItemName != "" || p.Size != "" || p.UnitPriceCents != 0 {
		t.Fatalf("selection not cleared: %+v", p)
	}
	if len(p.Cart) != 1 || p.PromoCode != "WELCOME10" {
		t.Fatalf("cleared too much: %+v", p)
	}
}

func TestSessionReset(t *testing.T) {
	s := NewSession("u1")
	s.State = StateConfirming
	s.Payload.Cart = []Line{{SKU: "SKU-AIR", Quantity: 1}}
	s.Payload.Phone = "+380501234567"

	s.Reset()

	if s.State != StateIdle {
		t.Fatalf("state = %v", s.State)
	}
	if s.Payload.Cart != nil || s.Payload.Phone != "" {
		t.Fatalf("payload = %+v", s.Payload)
	}
	if s.UserID != "u1" {
		t.Fatalf("user id lost: %q", s.UserID)
	}
}

func TestSessionCloneIsDeep(t *testing.T) {
	s := NewSession("u1")
	s.State = StateDeliverySelected
	s.Payload.Cart = []Line{{SKU: "SKU-AIR", Quantity: 1}}

	cp := s.Clone()
	cp.State = StateIdle
	cp.Payload.Cart[0].Quantity = 99
	cp.Payload.Cart = append(cp.Payload.Cart, Line{SKU: "SKU-TRL"})

	if s.State != StateDeliverySelected {
		t.Errorf("original state changed: %v", s.State)
	}
	if s.Payload.Cart[0].Quantity != 1 {
		t.Errorf("original cart line changed: %+v", s.Payload.Cart[0])
	}
	if len(s.Payload.Cart) != 1 {
		t.Errorf("original cart grew: %+v", s.Payload.Cart)
	}
}
