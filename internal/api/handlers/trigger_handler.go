package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/andresuchdata/permitvault/backend-go/internal/cache"
	"github.com/andresuchdata/permitvault/backend-go/internal/cleanup"
	"github.com/andresuchdata/permitvault/backend-go/internal/events"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const maxEventBytes = 1 << 20

// TriggerHandler receives document-deleted events pushed by the document
// store and runs the cleanup handler bound to the route.
type TriggerHandler struct {
	cleaner *cleanup.Cleaner
	targets []cleanup.Target
	ledger  cache.DeliveryLedger
	log     zerolog.Logger
}

func NewTriggerHandler(cleaner *cleanup.Cleaner, targets []cleanup.Target, ledger cache.DeliveryLedger, log zerolog.Logger) *TriggerHandler {
	if ledger == nil {
		ledger = cache.NewNoopDeliveryLedger()
	}
	return &TriggerHandler{cleaner: cleaner, targets: targets, ledger: ledger, log: log}
}

// RegisterRoutes mounts one POST route per target, named after it.
func (h *TriggerHandler) RegisterRoutes(group *gin.RouterGroup) {
	for _, t := range h.targets {
		group.POST("/"+t.Name, h.handle(t, h.cleaner.MakeHandler(t)))
	}
}

func (h *TriggerHandler) handle(t cleanup.Target, react cleanup.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unreadable event body"})
			return
		}

		ev, err := events.DecodeDeletion(body, eventID(c))
		if err != nil {
			h.log.Warn().Err(err).Str("target", t.Name).Msg("invalid deletion event")
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid event payload"})
			return
		}

		// Cleanup runs to completion even if the pusher hangs up.
		ctx := context.WithoutCancel(c.Request.Context())

		seen, err := h.ledger.Seen(ctx, t.Name, ev.ID)
		if err != nil {
			h.log.Warn().Err(err).Str("event_id", ev.ID).Msg("delivery ledger unavailable")
		}
		if seen {
			h.log.Debug().Str("event_id", ev.ID).Str("target", t.Name).Msg("duplicate delivery, skipping")
			c.Status(http.StatusNoContent)
			return
		}

		res := react(ctx, ev)
		if err := h.ledger.MarkDelivered(ctx, t.Name, ev.ID); err != nil {
			h.log.Warn().Err(err).Str("event_id", ev.ID).Msg("could not mark delivery")
		}
		h.log.Debug().
			Str("target", t.Name).
			Str("document", ev.DocumentID).
			Str("outcome", res.Outcome.String()).
			Msg("deletion event handled")
		c.Status(http.StatusNoContent)
	}
}

func eventID(c *gin.Context) string {
	if id := c.GetHeader("Ce-Id"); id != "" {
		return id
	}
	return c.GetHeader("X-Event-Id")
}
