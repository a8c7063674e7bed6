package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/mmdatafocus/brokerage_backend/utils"
)

const (
	EscrowEventCreated          = "escrow.created"
	EscrowEventChecklistUpdated = "escrow.checklist_updated"

	escrowEventTimeout = 5 * time.Second
)

// swapped in tests
var (
	escrowEventsEnabled  = config.EventsEnabled
	escrowEventPublisher = config.PublishEscrowEvent
)

// publishEscrowEvent is called after commit. A failed publish is logged and
// never fails the write that triggered it.
func publishEscrowEvent(ctx context.Context, eventType string, escrow *Escrow, payload any) {
	if !escrowEventsEnabled() {
		return
	}
	logger := config.GetLogger()

	msg := config.EscrowEventMessage{
		Type:       eventType,
		EscrowId:   escrow.NumericId,
		DisplayId:  escrow.DisplayId,
		OccurredAt: timeNow().UTC(),
		Actor:      utils.ActorFromContext(ctx),
	}
	if correlationId, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		msg.CorrelationId = correlationId
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			config.LogWarn(logger, "EscrowEvents", "publishEscrowEvent", "encoding payload", eventType, err)
			return
		}
		msg.Payload = raw
	}

	// the request may already be finishing; keep its values, drop its deadline
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), escrowEventTimeout)
	defer cancel()
	if _, err := escrowEventPublisher(pubCtx, msg); err != nil {
		config.LogWarn(logger, "EscrowEvents", "publishEscrowEvent", "publishing "+eventType, escrow.DisplayId, err)
	}
}
