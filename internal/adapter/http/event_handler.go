package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/maximzom/shoebot/internal/usecase"
)

// EventProcessor is the slice of the pipeline the webhook needs.
type EventProcessor interface {
	HandleEvent(ctx context.Context, userID string, ev usecase.Event) (usecase.Outcome, error)
}

type EventHandler struct {
	pipeline EventProcessor
}

func NewEventHandler(pipeline EventProcessor) *EventHandler {
	return &EventHandler{pipeline: pipeline}
}

type eventReq struct {
	UserID  string `json:"userId" binding:"required"`
	EventID string `json:"eventId" binding:"required"`
	Kind    string `json:"kind" binding:"required,oneof=command reply callback"`
	Text    string `json:"text"`
}

type eventResp struct {
	Outcome string     `json:"outcome"`
	State   string     `json:"state"`
	Message string     `json:"message,omitempty"`
	Order   *orderView `json:"order,omitempty"`
}

// HandleEvent translates a transport update into a pipeline event.
func (h *EventHandler) HandleEvent(c *gin.Context) {
	var req eventReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	out, err := h.pipeline.HandleEvent(ctx, req.UserID, usecase.Event{
		ID:   req.EventID,
		Kind: usecase.EventKind(req.Kind),
		Text: req.Text,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, usecase.ErrDuplicate) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if out.Kind == usecase.OutcomeThrottled {
		c.JSON(http.StatusTooManyRequests, eventResp{
			Outcome: string(out.Kind),
			State:   string(out.State),
			Message: out.Message,
		})
		return
	}

	resp := eventResp{
		Outcome: string(out.Kind),
		State:   string(out.State),
		Message: out.Message,
	}
	if out.Order != nil {
		resp.Order = newOrderView(out.Order)
	}
	c.JSON(http.StatusOK, resp)
}
