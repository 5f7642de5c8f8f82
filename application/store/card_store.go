package store

import (
	"sync"

	"priomatrix-backend/application/ports"
	"priomatrix-backend/domain/card"
	"priomatrix-backend/domain/config"
	"priomatrix-backend/domain/matrix"
	pkgerrors "priomatrix-backend/pkg/errors"

	"go.uber.org/zap"
)

// CardStore is the authoritative in-memory collection of idea cards.
// It is the single shared mutable resource of the engine: coordinate
// mutation funnels through ApplyCommit and UpsertFromRemote only, so the
// "last writer wins with explicit conflict detection" policy stays auditable.
type CardStore struct {
	mu     sync.RWMutex
	cards  map[string]*card.IdeaCard
	cfg    *config.DomainConfig
	logger *zap.Logger
}

// NewCardStore creates an empty card store
func NewCardStore(cfg *config.DomainConfig, logger *zap.Logger) *CardStore {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &CardStore{
		cards:  make(map[string]*card.IdeaCard),
		cfg:    cfg,
		logger: logger,
	}
}

// Add inserts a newly created card
func (s *CardStore) Add(c *card.IdeaCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := c.ID().String()
	if _, exists := s.cards[id]; exists {
		return pkgerrors.NewConflictError("card already exists: " + id)
	}

	count := 0
	for _, existing := range s.cards {
		if existing.ProjectID() == c.ProjectID() {
			count++
		}
	}
	if count >= s.cfg.MaxCardsPerProject {
		return pkgerrors.NewValidationError("project card limit reached")
	}

	s.cards[id] = c
	return nil
}

// Get retrieves a card by ID
func (s *CardStore) Get(id string) (*card.IdeaCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cards[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("card")
	}
	return c, nil
}

// List returns all cards in a project
func (s *CardStore) List(projectID string) []*card.IdeaCard {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*card.IdeaCard
	for _, c := range s.cards {
		if c.ProjectID() == projectID {
			out = append(out, c)
		}
	}
	return out
}

// ListByQuadrant groups a project's cards by their derived quadrant
func (s *CardStore) ListByQuadrant(projectID string) map[matrix.Quadrant][]*card.IdeaCard {
	grouped := make(map[matrix.Quadrant][]*card.IdeaCard)
	for _, c := range s.List(projectID) {
		q := matrix.Classify(c.Position(), s.cfg.MatrixMax)
		grouped[q] = append(grouped[q], c)
	}
	return grouped
}

// ApplyCommit records a successful drag commit on the stored card. This and
// UpsertFromRemote are the only paths that move a committed position.
func (s *CardStore) ApplyCommit(id string, pos matrix.Position, result ports.SaveResult, movedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[id]
	if !ok {
		return pkgerrors.NewNotFoundError("card")
	}

	// A remote record newer than this commit may have landed while the save
	// was in flight. The remote writer committed after us, so its state is
	// the durable one; overwriting it here would fork local from durable
	// until the next remote write.
	if c.UpdatedAt().After(result.NewUpdatedAt) {
		s.logger.Debug("commit superseded by a newer remote record",
			zap.String("cardID", id),
			zap.Time("committed", result.NewUpdatedAt),
			zap.Time("stored", c.UpdatedAt()),
		)
		return nil
	}

	quadrant := matrix.Classify(pos, s.cfg.MatrixMax)
	return c.MoveTo(pos, result.NewUpdatedAt, movedBy, quadrant, s.cfg.MatrixMax)
}

// UpdateContent updates a card's text fields through the store gateway
func (s *CardStore) UpdateContent(id, content, details string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[id]
	if !ok {
		return pkgerrors.NewNotFoundError("card")
	}
	return c.UpdateContent(content, details, s.cfg)
}

// SetCollapsed flips a card's display-state flag
func (s *CardStore) SetCollapsed(id string, collapsed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[id]
	if !ok {
		return pkgerrors.NewNotFoundError("card")
	}
	c.SetCollapsed(collapsed)
	return nil
}

// SetLockOwner records the advisory lock owner on the stored card
func (s *CardStore) SetLockOwner(id, collaboratorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.cards[id]; ok {
		c.SetLockedBy(collaboratorID)
	}
}

// ClearLockOwner clears the advisory lock owner on the stored card
func (s *CardStore) ClearLockOwner(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.cards[id]; ok {
		c.ClearLock()
	}
}

// UpsertFromRemote applies a remote collaborator's committed record to the
// stored card, creating it if unknown. A remote record older than the local
// one is dropped: our commit for that card already won.
func (s *CardStore) UpsertFromRemote(snapshot ports.CardSnapshot) (*card.IdeaCard, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, err := matrix.NewPosition(snapshot.X, snapshot.Y)
	if err != nil {
		return nil, false, err
	}
	pos = pos.Clamp(s.cfg.MatrixMax)

	priority, err := card.ParsePriority(snapshot.Priority)
	if err != nil {
		return nil, false, err
	}

	if existing, ok := s.cards[snapshot.ID]; ok {
		if !snapshot.UpdatedAt.After(existing.UpdatedAt()) {
			return existing, false, nil
		}
		err := existing.ApplyRemote(snapshot.Content, snapshot.Details, pos, priority, snapshot.IsCollapsed, snapshot.UpdatedAt, s.cfg.MatrixMax)
		if err != nil {
			return nil, false, err
		}
		return existing, true, nil
	}

	cardID, err := card.NewCardIDFromString(snapshot.ID)
	if err != nil {
		return nil, false, err
	}

	created, err := card.ReconstructCard(
		cardID,
		snapshot.ProjectID,
		snapshot.Content,
		snapshot.Details,
		pos,
		priority,
		snapshot.IsCollapsed,
		snapshot.LockedBy,
		snapshot.CreatedAt,
		snapshot.UpdatedAt,
	)
	if err != nil {
		return nil, false, err
	}

	s.cards[snapshot.ID] = created
	return created, true, nil
}

// Remove deletes a card and returns it so the caller can release any lock
// it still holds
func (s *CardStore) Remove(id string) (*card.IdeaCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("card")
	}
	delete(s.cards, id)
	return c, nil
}

// Snapshot converts a card entity into its boundary representation
func Snapshot(c *card.IdeaCard) ports.CardSnapshot {
	return ports.CardSnapshot{
		ID:          c.ID().String(),
		ProjectID:   c.ProjectID(),
		Content:     c.Content(),
		Details:     c.Details(),
		X:           c.Position().X(),
		Y:           c.Position().Y(),
		Priority:    c.Priority().String(),
		IsCollapsed: c.IsCollapsed(),
		LockedBy:    c.LockedBy(),
		UpdatedAt:   c.UpdatedAt(),
		CreatedAt:   c.CreatedAt(),
	}
}
