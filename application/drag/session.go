package drag

import (
	"time"

	"priomatrix-backend/domain/matrix"
)

// State is the lifecycle state of a drag session
type State int

const (
	StateIdle State = iota
	StateActive
	StateCommitting
	StateCommitted
	StateCancelled
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateCommitting:
		return "committing"
	case StateCommitted:
		return "committed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Session is the ephemeral state of one in-progress pointer-driven move.
// Delta arithmetic is pinned to the immutable start position: each move
// accumulates the raw pointer delta and the current position is always
// start + total, never a previously-rounded intermediate. Rounding happens
// exactly once, when the commit clamps.
type Session struct {
	cardID         string
	projectID      string
	collaboratorID string
	start          matrix.Position
	totalDX        float64
	totalDY        float64
	priorUpdatedAt time.Time
	state          State
	stale          bool
	startedAt      time.Time
}

func newSession(cardID, projectID, collaboratorID string, start matrix.Position, priorUpdatedAt time.Time) *Session {
	return &Session{
		cardID:         cardID,
		projectID:      projectID,
		collaboratorID: collaboratorID,
		start:          start,
		priorUpdatedAt: priorUpdatedAt,
		state:          StateActive,
		startedAt:      time.Now(),
	}
}

// CardID returns the card being dragged
func (s *Session) CardID() string {
	return s.cardID
}

// CollaboratorID returns the collaborator driving the drag
func (s *Session) CollaboratorID() string {
	return s.collaboratorID
}

// State returns the session's lifecycle state
func (s *Session) State() State {
	return s.state
}

// Stale reports whether a remote update landed on this card mid-drag.
// The UI uses this to warn before the commit-time conflict check fires.
func (s *Session) Stale() bool {
	return s.stale
}

// StartPosition returns the committed position the drag started from
func (s *Session) StartPosition() matrix.Position {
	return s.start
}

// CurrentPosition returns start + accumulated deltas, unclamped
func (s *Session) CurrentPosition() matrix.Position {
	pos, err := s.start.Translate(s.totalDX, s.totalDY)
	if err != nil {
		// Deltas are validated on the way in; reaching here means a
		// non-finite total, fall back to the start position.
		return s.start
	}
	return pos
}

// applyDelta accumulates a pointer-move delta
func (s *Session) applyDelta(dx, dy float64) {
	s.totalDX += dx
	s.totalDY += dy
}

// markStale flags the session after a remote update raced it
func (s *Session) markStale() {
	s.stale = true
}
