package drag

import (
	"time"

	"priomatrix-backend/domain/events"
	"priomatrix-backend/domain/matrix"
)

func newLockedEvent(cardID, collaboratorID string) events.CardLocked {
	return events.NewCardLocked(cardID, collaboratorID, time.Now())
}

func newUnlockedEvent(cardID, collaboratorID string, expired bool) events.CardUnlocked {
	return events.NewCardUnlocked(cardID, collaboratorID, expired, time.Now())
}

func newConflictEvent(cardID, projectID, collaboratorID string) events.DragConflicted {
	return events.NewDragConflicted(cardID, projectID, collaboratorID, time.Now())
}

func newSyncedEvent(cardID, projectID string, pos matrix.Position, stale bool) events.CardSyncedFromRemote {
	return events.NewCardSyncedFromRemote(cardID, projectID, pos, stale, time.Now())
}
