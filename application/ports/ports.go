package ports

import (
	"context"
	"time"

	"priomatrix-backend/domain/events"
)

// CardSnapshot is the boundary representation of an idea card. It crosses
// the persistence and transport boundaries; inside the application the rich
// card.IdeaCard entity is used instead.
type CardSnapshot struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	Content     string    `json:"content"`
	Details     string    `json:"details"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Priority    string    `json:"priority"`
	IsCollapsed bool      `json:"isCollapsed"`
	LockedBy    string    `json:"lockedBy,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CardCommit is the payload of a drag commit: the clamped final position and
// the optimistic-concurrency precondition observed before the drag began.
type CardCommit struct {
	CardID         string
	ProjectID      string
	X              float64
	Y              float64
	Priority       string
	PriorUpdatedAt time.Time
}

// SaveStatus distinguishes the three outcomes of a commit save.
// Only SaveTransientFailure may be retried; SaveConflict is terminal and
// makes the caller revert the local drag.
type SaveStatus int

const (
	SaveCommitted SaveStatus = iota
	SaveConflict
	SaveTransientFailure
)

// String returns the status name
func (s SaveStatus) String() string {
	switch s {
	case SaveCommitted:
		return "committed"
	case SaveConflict:
		return "conflict"
	case SaveTransientFailure:
		return "transient_failure"
	default:
		return "unknown"
	}
}

// SaveResult is the outcome of SyncAdapter.SaveCommit
type SaveResult struct {
	Status       SaveStatus
	NewUpdatedAt time.Time // set only when Status is SaveCommitted
	Err          error     // underlying cause for SaveTransientFailure
}

// SyncAdapter is the boundary the engine calls to durably persist card state.
// Implementations must report a stale PriorUpdatedAt as SaveConflict, not as
// an error: conflicts are expected control flow.
type SyncAdapter interface {
	// SaveCommit persists a drag commit guarded by the updatedAt precondition
	SaveCommit(ctx context.Context, commit CardCommit) (SaveResult, error)

	// PutCard persists a full card record (create or content update)
	PutCard(ctx context.Context, snapshot CardSnapshot) error

	// DeleteCard removes a card record
	DeleteCard(ctx context.Context, projectID, cardID string) error
}

// RemoteFeed delivers other collaborators' committed card records. The
// channel is closed when the feed shuts down.
type RemoteFeed interface {
	Changes() <-chan CardSnapshot
}

// IdeaDraft is a generated idea suggestion. Coordinates are suggestions and
// are validated and clamped exactly like user-placed ones.
type IdeaDraft struct {
	Content  string  `json:"content"`
	Details  string  `json:"details"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Priority string  `json:"priority"`
}

// IdeaSource produces idea drafts for a project. The text fields are opaque
// to the engine.
type IdeaSource interface {
	GenerateDrafts(ctx context.Context, projectID, prompt string, count int) ([]IdeaDraft, error)
}

// EventPublisher fans domain events out to in-process listeners
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent)
	PublishBatch(ctx context.Context, batch []events.DomainEvent)
}
