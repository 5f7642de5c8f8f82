package events

import (
	"time"

	"priomatrix-backend/domain/matrix"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

// Card events

// CardCreated is raised when a new idea card is placed on the matrix
type CardCreated struct {
	BaseEvent
	CardID    string          `json:"card_id"`
	ProjectID string          `json:"project_id"`
	Position  matrix.Position `json:"-"`
	X         float64         `json:"x"`
	Y         float64         `json:"y"`
}

// NewCardCreated creates a CardCreated event
func NewCardCreated(cardID, projectID string, pos matrix.Position, timestamp time.Time) CardCreated {
	return CardCreated{
		BaseEvent: BaseEvent{
			AggregateID: cardID,
			EventType:   "card.created",
			Timestamp:   timestamp,
		},
		CardID:    cardID,
		ProjectID: projectID,
		Position:  pos,
		X:         pos.X(),
		Y:         pos.Y(),
	}
}

// CardMoved is raised when a drag commit lands a card on a new position
type CardMoved struct {
	BaseEvent
	CardID      string          `json:"card_id"`
	ProjectID   string          `json:"project_id"`
	OldPosition matrix.Position `json:"-"`
	NewPosition matrix.Position `json:"-"`
	X           float64         `json:"x"`
	Y           float64         `json:"y"`
	Quadrant    string          `json:"quadrant"`
	MovedBy     string          `json:"moved_by"`
}

// NewCardMoved creates a CardMoved event
func NewCardMoved(cardID, projectID string, oldPos, newPos matrix.Position, quadrant matrix.Quadrant, movedBy string, timestamp time.Time) CardMoved {
	return CardMoved{
		BaseEvent: BaseEvent{
			AggregateID: cardID,
			EventType:   "card.moved",
			Timestamp:   timestamp,
		},
		CardID:      cardID,
		ProjectID:   projectID,
		OldPosition: oldPos,
		NewPosition: newPos,
		X:           newPos.X(),
		Y:           newPos.Y(),
		Quadrant:    quadrant.String(),
		MovedBy:     movedBy,
	}
}

// CardContentUpdated is raised when a card's text fields change
type CardContentUpdated struct {
	BaseEvent
	CardID    string `json:"card_id"`
	ProjectID string `json:"project_id"`
}

// NewCardContentUpdated creates a CardContentUpdated event
func NewCardContentUpdated(cardID, projectID string, timestamp time.Time) CardContentUpdated {
	return CardContentUpdated{
		BaseEvent: BaseEvent{
			AggregateID: cardID,
			EventType:   "card.content_updated",
			Timestamp:   timestamp,
		},
		CardID:    cardID,
		ProjectID: projectID,
	}
}

// CardRemoved is raised when a card is deleted from its project
type CardRemoved struct {
	BaseEvent
	CardID    string `json:"card_id"`
	ProjectID string `json:"project_id"`
}

// NewCardRemoved creates a CardRemoved event
func NewCardRemoved(cardID, projectID string, timestamp time.Time) CardRemoved {
	return CardRemoved{
		BaseEvent: BaseEvent{
			AggregateID: cardID,
			EventType:   "card.removed",
			Timestamp:   timestamp,
		},
		CardID:    cardID,
		ProjectID: projectID,
	}
}

// CardSyncedFromRemote is raised when another collaborator's commit is
// applied to the local store
type CardSyncedFromRemote struct {
	BaseEvent
	CardID        string  `json:"card_id"`
	ProjectID     string  `json:"project_id"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	StaleDragFlag bool    `json:"stale_drag"`
}

// NewCardSyncedFromRemote creates a CardSyncedFromRemote event
func NewCardSyncedFromRemote(cardID, projectID string, pos matrix.Position, staleDrag bool, timestamp time.Time) CardSyncedFromRemote {
	return CardSyncedFromRemote{
		BaseEvent: BaseEvent{
			AggregateID: cardID,
			EventType:   "card.synced_from_remote",
			Timestamp:   timestamp,
		},
		CardID:        cardID,
		ProjectID:     projectID,
		X:             pos.X(),
		Y:             pos.Y(),
		StaleDragFlag: staleDrag,
	}
}

// Lock events

// CardLocked is raised when a collaborator acquires a card lock
type CardLocked struct {
	BaseEvent
	CardID   string `json:"card_id"`
	LockedBy string `json:"locked_by"`
}

// NewCardLocked creates a CardLocked event
func NewCardLocked(cardID, lockedBy string, timestamp time.Time) CardLocked {
	return CardLocked{
		BaseEvent: BaseEvent{
			AggregateID: cardID,
			EventType:   "card.locked",
			Timestamp:   timestamp,
		},
		CardID:   cardID,
		LockedBy: lockedBy,
	}
}

// CardUnlocked is raised when a card lock is released or expires
type CardUnlocked struct {
	BaseEvent
	CardID     string `json:"card_id"`
	UnlockedBy string `json:"unlocked_by"`
	Expired    bool   `json:"expired"`
}

// NewCardUnlocked creates a CardUnlocked event
func NewCardUnlocked(cardID, unlockedBy string, expired bool, timestamp time.Time) CardUnlocked {
	return CardUnlocked{
		BaseEvent: BaseEvent{
			AggregateID: cardID,
			EventType:   "card.unlocked",
			Timestamp:   timestamp,
		},
		CardID:     cardID,
		UnlockedBy: unlockedBy,
		Expired:    expired,
	}
}

// Drag events

// DragConflicted is raised when a commit is rejected because the card
// changed remotely since the drag began. The local drag was discarded.
type DragConflicted struct {
	BaseEvent
	CardID         string `json:"card_id"`
	ProjectID      string `json:"project_id"`
	CollaboratorID string `json:"collaborator_id"`
}

// NewDragConflicted creates a DragConflicted event
func NewDragConflicted(cardID, projectID, collaboratorID string, timestamp time.Time) DragConflicted {
	return DragConflicted{
		BaseEvent: BaseEvent{
			AggregateID: cardID,
			EventType:   "drag.conflicted",
			Timestamp:   timestamp,
		},
		CardID:         cardID,
		ProjectID:      projectID,
		CollaboratorID: collaboratorID,
	}
}
