package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/maximzom/shoebot/internal/adapter/http/middleware"
	domain "github.com/maximzom/shoebot/internal/entity"
	"github.com/maximzom/shoebot/internal/usecase"
)

type stubPipeline struct {
	out  usecase.Outcome
	err  error
	got  usecase.Event
	user string
}

func (s *stubPipeline) HandleEvent(_ context.Context, userID string, ev usecase.Event) (usecase.Outcome, error) {
	s.user = userID
	s.got = ev
	return s.out, s.err
}

func newTestRouter(p EventProcessor, token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewEventHandler(p)
	if token != "" {
		r.POST("/v1/events", middleware.WebhookToken(token), h.HandleEvent)
	} else {
		r.POST("/v1/events", h.HandleEvent)
	}
	return r
}

func postEvent(t *testing.T, r *gin.Engine, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Webhook-Token", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleEvent(t *testing.T) {
	stub := &stubPipeline{out: usecase.Outcome{
		Kind:    usecase.OutcomePrompt,
		State:   domain.StateBrowsing,
		Message: "Pick a model",
	}}
	r := newTestRouter(stub, "")

	w := postEvent(t, r, `{"userId":"u1","eventId":"42","kind":"callback","text":"item:SKU-AIR"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	if stub.user != "u1" {
		t.Errorf("user = %q", stub.user)
	}
	if stub.got.ID != "42" || stub.got.Kind != usecase.EventCallback || stub.got.Text != "item:SKU-AIR" {
		t.Errorf("event = %+v", stub.got)
	}

	var resp struct {
		Outcome string `json:"outcome"`
		State   string `json:"state"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Outcome != "prompt" || resp.State != "browsing" || resp.Message != "Pick a model" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHandleEventThrottled(t *testing.T) {
	stub := &stubPipeline{out: usecase.Outcome{
		Kind:    usecase.OutcomeThrottled,
		Message: "Too many messages",
	}}
	r := newTestRouter(stub, "")

	w := postEvent(t, r, `{"userId":"u1","eventId":"1","kind":"reply","text":"hi"}`, "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
}

func TestHandleEventBadRequests(t *testing.T) {
	stub := &stubPipeline{}
	r := newTestRouter(stub, "")

	tests := []struct {
		name string
		body string
	}{
		{"not json", "not-json"},
		{"missing user", `{"eventId":"1","kind":"reply","text":"hi"}`},
		{"missing event id", `{"userId":"u1","kind":"reply","text":"hi"}`},
		{"bad kind", `{"userId":"u1","eventId":"1","kind":"telepathy","text":"hi"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := postEvent(t, r, tt.body, ""); w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestHandleEventDuplicate(t *testing.T) {
	stub := &stubPipeline{err: usecase.ErrDuplicate}
	r := newTestRouter(stub, "")

	w := postEvent(t, r, `{"userId":"u1","eventId":"1","kind":"callback","text":"confirm"}`, "")
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}

func TestHandleEventOrderConfirmation(t *testing.T) {
	stub := &stubPipeline{out: usecase.Outcome{
		Kind:    usecase.OutcomeOrderConfirmation,
		State:   domain.StateIdle,
		Message: "Order placed",
		Order: &domain.Order{
			Number: "ORD-20250901-120000-001",
			UserID: "u1",
			Lines:  []domain.Line{{SKU: "SKU-AIR", Quantity: 1, UnitPriceCents: 250000}},
			Total:  domain.Money{Cents: 250000, Currency: "UAH"},
			Status: domain.StatusPending,
		},
	}}
	r := newTestRouter(stub, "")

	w := postEvent(t, r, `{"userId":"u1","eventId":"1","kind":"callback","text":"confirm"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Order *orderView `json:"order"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Order == nil || resp.Order.Number != "ORD-20250901-120000-001" || resp.Order.TotalCents != 250000 {
		t.Errorf("order view = %+v", resp.Order)
	}
}

func TestWebhookToken(t *testing.T) {
	stub := &stubPipeline{out: usecase.Outcome{Kind: usecase.OutcomePrompt}}
	r := newTestRouter(stub, "secret-token")
	body := `{"userId":"u1","eventId":"1","kind":"command","text":"/start"}`

	if w := postEvent(t, r, body, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status = %d, want 401", w.Code)
	}
	if w := postEvent(t, r, body, "wrong"); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: status = %d, want 401", w.Code)
	}
	if w := postEvent(t, r, body, "secret-token"); w.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d, want 200", w.Code)
	}
}
