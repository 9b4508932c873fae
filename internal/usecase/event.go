package usecase

import (
	"strings"

	domain "github.com/maximzom/shoebot/internal/entity"
)

type EventKind string

const (
	EventCommand  EventKind = "command"  // e.g. "/start", "/cancel"
	EventReply    EventKind = "reply"    // free-text answer to a prompt
	EventCallback EventKind = "callback" // button payload, e.g. "size:42"
)

// Event is one inbound user interaction as the messaging collaborator
// hands it over. ID is the transport's update id and doubles as the
// idempotency key for confirmations.
type Event struct {
	ID   string
	Kind EventKind
	Text string
}

// action is what the event means to the state machine, independent of
// which transport surface produced it.
type action string

const (
	actionStart          action = "start"
	actionCancel         action = "cancel"
	actionSelectItem     action = "select_item"
	actionSelectSize     action = "select_size"
	actionSelectDelivery action = "select_delivery"
	actionAddMore        action = "add_more"
	actionConfirm        action = "confirm"
	actionReply          action = "reply"
	actionUnknown        action = "unknown"
)

// parseAction maps an event onto (action, argument). Unknown payloads
// become actionUnknown and are rejected by the transition table.
func parseAction(ev Event) (action, string) {
	switch ev.Kind {
	case EventCommand:
		switch strings.TrimSpace(ev.Text) {
		case "/start", "/shop":
			return actionStart, ""
		case "/cancel":
			return actionCancel, ""
		}
		return actionUnknown, ""
	case EventCallback:
		data := strings.TrimSpace(ev.Text)
		if name, arg, ok := strings.Cut(data, ":"); ok {
			switch name {
			case "item":
				return actionSelectItem, arg
			case "size":
				return actionSelectSize, arg
			case "delivery":
				return actionSelectDelivery, arg
			}
			return actionUnknown, ""
		}
		switch data {
		case "confirm":
			return actionConfirm, ""
		case "cancel":
			return actionCancel, ""
		case "more":
			return actionAddMore, ""
		}
		return actionUnknown, ""
	case EventReply:
		return actionReply, ev.Text
	}
	return actionUnknown, ""
}

type OutcomeKind string

const (
	OutcomePrompt            OutcomeKind = "prompt"
	OutcomeValidationError   OutcomeKind = "validation_error"
	OutcomeOrderConfirmation OutcomeKind = "order_confirmation"
	OutcomeCancelled         OutcomeKind = "cancelled"
	OutcomeThrottled         OutcomeKind = "throttled"
)

// Outcome is what the caller (the messaging collaborator) renders back
// to the user after one event.
type Outcome struct {
	Kind    OutcomeKind
	State   domain.DialogState
	Message string
	Order   *domain.Order // set for order confirmations only
}
