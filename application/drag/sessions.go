package drag

import (
	"sync"

	pkgerrors "priomatrix-backend/pkg/errors"
)

// sessionTable owns every live drag session, one per card at most.
// All transitions go through the table so state checks and mutations stay
// atomic; its lock is never held across the adapter save.
type sessionTable struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func newSessionTable() *sessionTable {
	return &sessionTable{sessions: make(map[string]*Session)}
}

// tryPut installs a fresh session unless the card already has a live one.
// A session still Committing must settle before the next drag starts, even
// for the same collaborator, so a finishing commit can never tear down a
// session it does not own.
func (t *sessionTable) tryPut(s *Session) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.sessions[s.cardID]; ok &&
		(existing.state == StateActive || existing.state == StateCommitting) {
		return existing.collaboratorID, false
	}
	t.sessions[s.cardID] = s
	return "", true
}

// withActive runs fn against the card's session if it is Active and owned
// by the collaborator
func (t *sessionTable) withActive(cardID, collaboratorID string, fn func(*Session) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[cardID]
	if !ok || s.state != StateActive {
		return pkgerrors.NewValidationError("no active drag session for card " + cardID)
	}
	if s.collaboratorID != collaboratorID {
		return pkgerrors.NewValidationError("drag session belongs to another collaborator")
	}
	return fn(s)
}

// beginCommit transitions Active -> Committing and hands the session back
func (t *sessionTable) beginCommit(cardID, collaboratorID string) (*Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[cardID]
	if !ok || s.state != StateActive {
		return nil, pkgerrors.NewValidationError("no active drag session for card " + cardID)
	}
	if s.collaboratorID != collaboratorID {
		return nil, pkgerrors.NewValidationError("drag session belongs to another collaborator")
	}

	s.state = StateCommitting
	return s, nil
}

// finishCommit transitions Committing -> Committed. Returns false when the
// session was cancelled while the save was in flight.
func (t *sessionTable) finishCommit(s *Session) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch s.state {
	case StateCommitting:
		s.state = StateCommitted
		if t.sessions[s.cardID] == s {
			delete(t.sessions, s.cardID)
		}
		return true, nil
	case StateCancelled:
		return false, nil
	default:
		return false, pkgerrors.NewInternalError("commit finalized from state "+s.state.String(), nil)
	}
}

// takeForCancel fetches an Active or Committing session owned by the
// collaborator for cancellation
func (t *sessionTable) takeForCancel(cardID, collaboratorID string) (*Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[cardID]
	if !ok || (s.state != StateActive && s.state != StateCommitting) {
		return nil, pkgerrors.NewValidationError("no drag session to cancel for card " + cardID)
	}
	if s.collaboratorID != collaboratorID {
		return nil, pkgerrors.NewValidationError("drag session belongs to another collaborator")
	}
	return s, nil
}

// cancel marks a session terminal and removes it from the table
func (t *sessionTable) cancel(s *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s.state == StateActive || s.state == StateCommitting {
		s.state = StateCancelled
	}
	if t.sessions[s.cardID] == s {
		delete(t.sessions, s.cardID)
	}
}

// markStale flags the card's in-flight session after a remote update.
// Returns whether a live session was flagged.
func (t *sessionTable) markStale(cardID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[cardID]
	if !ok || (s.state != StateActive && s.state != StateCommitting) {
		return false
	}
	s.markStale()
	return true
}

// info reports the session state for a card
func (t *sessionTable) info(cardID string) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[cardID]
	if !ok {
		return StateIdle, false
	}
	return s.state, true
}

// stale reports the staleness flag for a card's session
func (t *sessionTable) stale(cardID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[cardID]
	return ok && s.stale
}
