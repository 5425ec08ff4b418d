package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/appcourier/appcourier/internal/app"
	"github.com/appcourier/appcourier/internal/domain"
	"github.com/labstack/echo/v5"
)

type WebhookController struct {
	App *app.Context
}

// Handle accepts one gateway event and dispatches it to the broker. The
// gateway gets a 202 immediately; the delivery run proceeds in the
// background and reports back over the chat itself.
func (ctrl *WebhookController) Handle(c *echo.Context) error {
	var payload inboundPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed payload"})
	}

	if payload.ConversationID == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "conversation_id is required"})
	}

	ev := domain.InboundEvent{
		ConversationID: payload.ConversationID,
		Text:           payload.Text,
		FromSelf:       payload.FromSelf,
	}
	if payload.Vote != nil {
		ev.Vote = &domain.VoteUpdate{
			PollMessageID: payload.Vote.PollMessageID,
			OptionLabel:   payload.Vote.OptionLabel,
		}
	}

	// drop echoes of our own messages and empty bodies before spawning
	if ev.FromSelf || (ev.Vote == nil && strings.TrimSpace(ev.Text) == "") {
		return c.JSON(http.StatusAccepted, acceptedResponse{Status: "ignored"})
	}

	// the request context dies with the 202; the run gets its own
	go ctrl.App.Broker.HandleEvent(context.Background(), ev)

	return c.JSON(http.StatusAccepted, acceptedResponse{Status: "accepted"})
}

func (ctrl *WebhookController) Health(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
