package websocket

import (
	"context"
	"strings"

	appevents "priomatrix-backend/application/events"
	"priomatrix-backend/application/store"
	"priomatrix-backend/domain/events"

	"go.uber.org/zap"
)

// Broadcaster bridges domain events onto the WebSocket hub so every
// collaborator watching a project sees card moves, locks and conflicts live
type Broadcaster struct {
	hub    *Hub
	store  *store.CardStore
	logger *zap.Logger
}

// NewBroadcaster creates a broadcaster and subscribes it to the dispatcher
func NewBroadcaster(hub *Hub, cardStore *store.CardStore, dispatcher *appevents.Dispatcher, logger *zap.Logger) *Broadcaster {
	b := &Broadcaster{
		hub:    hub,
		store:  cardStore,
		logger: logger,
	}
	dispatcher.Subscribe(b)
	return b
}

// HandleEvent implements the dispatcher listener
func (b *Broadcaster) HandleEvent(ctx context.Context, event events.DomainEvent) error {
	projectID := b.projectIDFor(event)
	if projectID == "" {
		// Card already gone from the store; nobody left to notify.
		return nil
	}

	messageType := strings.ToUpper(strings.ReplaceAll(event.GetEventType(), ".", "_"))
	if err := b.hub.BroadcastToProject(projectID, messageType, event); err != nil {
		b.logger.Warn("failed to broadcast event",
			zap.String("eventType", event.GetEventType()),
			zap.String("projectID", projectID),
			zap.Error(err),
		)
	}
	return nil
}

// projectIDFor resolves the project a domain event belongs to. Lock events
// only carry the card ID, so those are resolved through the store.
func (b *Broadcaster) projectIDFor(event events.DomainEvent) string {
	switch e := event.(type) {
	case events.CardCreated:
		return e.ProjectID
	case events.CardMoved:
		return e.ProjectID
	case events.CardContentUpdated:
		return e.ProjectID
	case events.CardRemoved:
		return e.ProjectID
	case events.CardSyncedFromRemote:
		return e.ProjectID
	case events.DragConflicted:
		return e.ProjectID
	default:
		c, err := b.store.Get(event.GetAggregateID())
		if err != nil {
			return ""
		}
		return c.ProjectID()
	}
}
