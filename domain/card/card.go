package card

import (
	"strings"
	"time"
	"unicode/utf8"

	"priomatrix-backend/domain/config"
	"priomatrix-backend/domain/events"
	"priomatrix-backend/domain/matrix"
	pkgerrors "priomatrix-backend/pkg/errors"
)

// IdeaCard is the positionable unit of work on the priority matrix.
// This is a rich domain model with encapsulated business logic: coordinates
// are only mutated through MoveTo and ApplyRemote, both of which enforce the
// canvas bounds, so a committed card can never hold an out-of-range position.
type IdeaCard struct {
	// Private fields ensure encapsulation
	id          CardID
	projectID   string
	content     string
	details     string
	position    matrix.Position
	priority    Priority
	isCollapsed bool
	lockedBy    string
	createdAt   time.Time
	updatedAt   time.Time

	// Domain events that occurred during this aggregate's lifetime
	events []events.DomainEvent
}

// NewCard creates a new idea card with full business rule validation.
// The initial position is clamped like any commit; AI-suggested and
// user-placed coordinates go through the same path.
func NewCard(projectID, content, details string, pos matrix.Position, priority Priority, cfg *config.DomainConfig) (*IdeaCard, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if projectID == "" {
		return nil, pkgerrors.NewValidationError("projectID cannot be empty")
	}

	content = strings.TrimSpace(content)
	if content == "" && !cfg.AllowEmptyContent {
		return nil, pkgerrors.NewValidationError("content cannot be empty")
	}
	if utf8.RuneCountInString(content) > cfg.MaxContentLength {
		return nil, pkgerrors.NewValidationError("content exceeds maximum length")
	}
	if utf8.RuneCountInString(details) > cfg.MaxDetailsLength {
		return nil, pkgerrors.NewValidationError("details exceed maximum length")
	}

	if !priority.Valid() {
		return nil, pkgerrors.NewValidationError("unknown priority: " + priority.String())
	}

	now := time.Now()
	c := &IdeaCard{
		id:        NewCardID(),
		projectID: projectID,
		content:   content,
		details:   details,
		position:  pos.Clamp(cfg.MatrixMax),
		priority:  priority,
		createdAt: now,
		updatedAt: now,
		events:    []events.DomainEvent{},
	}

	c.addEvent(events.NewCardCreated(c.id.String(), projectID, c.position, now))

	return c, nil
}

// ReconstructCard rebuilds a card from persisted data with preserved timestamps
func ReconstructCard(
	id CardID,
	projectID, content, details string,
	pos matrix.Position,
	priority Priority,
	isCollapsed bool,
	lockedBy string,
	createdAt, updatedAt time.Time,
) (*IdeaCard, error) {
	if projectID == "" {
		return nil, pkgerrors.NewValidationError("projectID cannot be empty")
	}
	if !priority.Valid() {
		return nil, pkgerrors.NewValidationError("unknown priority: " + priority.String())
	}

	return &IdeaCard{
		id:          id,
		projectID:   projectID,
		content:     content,
		details:     details,
		position:    pos,
		priority:    priority,
		isCollapsed: isCollapsed,
		lockedBy:    lockedBy,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
		events:      []events.DomainEvent{},
	}, nil
}

// ID returns the card's unique identifier
func (c *IdeaCard) ID() CardID {
	return c.id
}

// ProjectID returns the owning project. Cards never move between projects.
func (c *IdeaCard) ProjectID() string {
	return c.projectID
}

// Content returns the card's headline text
func (c *IdeaCard) Content() string {
	return c.content
}

// Details returns the card's free-form details
func (c *IdeaCard) Details() string {
	return c.details
}

// Position returns the card's committed position
func (c *IdeaCard) Position() matrix.Position {
	return c.position
}

// Priority returns the card's priority tag
func (c *IdeaCard) Priority() Priority {
	return c.priority
}

// IsCollapsed returns the display-state flag, orthogonal to position
func (c *IdeaCard) IsCollapsed() bool {
	return c.isCollapsed
}

// LockedBy returns the collaborator holding the card's lock, or empty
func (c *IdeaCard) LockedBy() string {
	return c.lockedBy
}

// CreatedAt returns when the card was created
func (c *IdeaCard) CreatedAt() time.Time {
	return c.createdAt
}

// UpdatedAt returns the last successful commit timestamp. It strictly
// increases on every commit and doubles as the optimistic-concurrency token.
func (c *IdeaCard) UpdatedAt() time.Time {
	return c.updatedAt
}

// MoveTo commits a new position with the matching commit timestamp.
// The position must already be clamped; a caller handing an out-of-range
// position in here is a programming defect, not a user mistake.
func (c *IdeaCard) MoveTo(pos matrix.Position, committedAt time.Time, movedBy string, quadrant matrix.Quadrant, max float64) error {
	if !pos.InBounds(max) {
		return pkgerrors.NewInternalError("position out of bounds after clamp", nil)
	}

	oldPos := c.position
	c.position = pos
	c.touch(committedAt)

	c.addEvent(events.NewCardMoved(c.id.String(), c.projectID, oldPos, pos, quadrant, movedBy, c.updatedAt))

	return nil
}

// UpdateContent updates the card's text fields with validation
func (c *IdeaCard) UpdateContent(content, details string, cfg *config.DomainConfig) error {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	content = strings.TrimSpace(content)
	if content == "" && !cfg.AllowEmptyContent {
		return pkgerrors.NewValidationError("content cannot be empty")
	}
	if utf8.RuneCountInString(content) > cfg.MaxContentLength {
		return pkgerrors.NewValidationError("content exceeds maximum length")
	}
	if utf8.RuneCountInString(details) > cfg.MaxDetailsLength {
		return pkgerrors.NewValidationError("details exceed maximum length")
	}

	if content == c.content && details == c.details {
		return nil // No change needed
	}

	c.content = content
	c.details = details
	c.touch(time.Now())

	c.addEvent(events.NewCardContentUpdated(c.id.String(), c.projectID, c.updatedAt))

	return nil
}

// SetCollapsed updates the display-state flag without touching the
// commit timestamp; collapsing is not a commit.
func (c *IdeaCard) SetCollapsed(collapsed bool) {
	c.isCollapsed = collapsed
}

// SetLockedBy records the advisory lock owner on the card
func (c *IdeaCard) SetLockedBy(collaboratorID string) {
	c.lockedBy = collaboratorID
}

// ClearLock clears the advisory lock owner
func (c *IdeaCard) ClearLock() {
	c.lockedBy = ""
}

// ApplyRemote overwrites the card's state with a remote collaborator's
// committed record. The remote timestamp wins even if the local clock is
// ahead; updatedAt still never moves backwards.
func (c *IdeaCard) ApplyRemote(content, details string, pos matrix.Position, priority Priority, isCollapsed bool, remoteUpdatedAt time.Time, max float64) error {
	if !pos.InBounds(max) {
		return pkgerrors.NewInternalError("remote position out of bounds", nil)
	}
	if !priority.Valid() {
		return pkgerrors.NewValidationError("unknown priority: " + priority.String())
	}

	c.content = content
	c.details = details
	c.position = pos
	c.priority = priority
	c.isCollapsed = isCollapsed
	c.touch(remoteUpdatedAt)

	return nil
}

// GetUncommittedEvents returns all uncommitted domain events
func (c *IdeaCard) GetUncommittedEvents() []events.DomainEvent {
	return c.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (c *IdeaCard) MarkEventsAsCommitted() {
	c.events = []events.DomainEvent{}
}

// touch advances updatedAt, keeping it strictly increasing even when the
// wall clock stands still between two commits.
func (c *IdeaCard) touch(at time.Time) {
	if !at.After(c.updatedAt) {
		at = c.updatedAt.Add(time.Nanosecond)
	}
	c.updatedAt = at
}

// addEvent adds a domain event to the uncommitted list
func (c *IdeaCard) addEvent(event events.DomainEvent) {
	c.events = append(c.events, event)
}
