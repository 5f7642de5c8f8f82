package ideas

import (
	"context"
	"time"

	"priomatrix-backend/application/lock"
	"priomatrix-backend/application/ports"
	"priomatrix-backend/application/store"
	"priomatrix-backend/domain/card"
	"priomatrix-backend/domain/config"
	domainevents "priomatrix-backend/domain/events"
	"priomatrix-backend/domain/matrix"
	pkgerrors "priomatrix-backend/pkg/errors"

	"go.uber.org/zap"
)

// Service owns the card lifecycle outside of dragging: creation (user-placed
// or AI-drafted), content edits, collapse state and deletion. AI drafts go
// through exactly the same validation and clamping as user-placed cards; the
// engine performs no interpretation of the generated text.
type Service struct {
	store     *store.CardStore
	locks     *lock.Manager
	adapter   ports.SyncAdapter
	publisher ports.EventPublisher
	source    ports.IdeaSource
	cfg       *config.DomainConfig
	logger    *zap.Logger
}

// NewService creates the idea card service
func NewService(
	cardStore *store.CardStore,
	locks *lock.Manager,
	adapter ports.SyncAdapter,
	publisher ports.EventPublisher,
	source ports.IdeaSource,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *Service {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &Service{
		store:     cardStore,
		locks:     locks,
		adapter:   adapter,
		publisher: publisher,
		source:    source,
		cfg:       cfg,
		logger:    logger,
	}
}

// CreateCard places a new card on the matrix
func (s *Service) CreateCard(ctx context.Context, projectID, content, details string, x, y float64, rawPriority string) (*card.IdeaCard, error) {
	priority, err := card.ParsePriority(rawPriority)
	if err != nil {
		return nil, err
	}

	pos, err := matrix.NewPosition(x, y)
	if err != nil {
		return nil, err
	}

	c, err := card.NewCard(projectID, content, details, pos, priority, s.cfg)
	if err != nil {
		return nil, err
	}

	if err := s.store.Add(c); err != nil {
		return nil, err
	}

	if err := s.adapter.PutCard(ctx, store.Snapshot(c)); err != nil {
		// Keep local and durable state consistent: undo the local insert
		if _, rmErr := s.store.Remove(c.ID().String()); rmErr != nil {
			s.logger.Error("failed to roll back card after persist failure",
				zap.String("cardID", c.ID().String()),
				zap.Error(rmErr),
			)
		}
		return nil, pkgerrors.NewUnavailableError("failed to persist card", err)
	}

	s.publisher.PublishBatch(ctx, c.GetUncommittedEvents())
	c.MarkEventsAsCommitted()

	s.logger.Info("card created",
		zap.String("cardID", c.ID().String()),
		zap.String("projectID", projectID),
	)

	return c, nil
}

// GenerateIdeas asks the idea source for drafts and places the usable ones
// as ordinary cards. Unusable drafts are skipped, not fatal: the batch is
// best-effort.
func (s *Service) GenerateIdeas(ctx context.Context, projectID, prompt string, count int) ([]*card.IdeaCard, error) {
	if s.source == nil {
		return nil, pkgerrors.NewValidationError("idea generation is not configured")
	}
	if count <= 0 {
		count = 1
	}
	if count > s.cfg.MaxDraftsPerRequest {
		count = s.cfg.MaxDraftsPerRequest
	}

	drafts, err := s.source.GenerateDrafts(ctx, projectID, prompt, count)
	if err != nil {
		return nil, pkgerrors.NewUnavailableError("idea generation failed", err)
	}

	var created []*card.IdeaCard
	for _, draft := range drafts {
		priority := draft.Priority
		if _, err := card.ParsePriority(priority); err != nil {
			// Generated priorities are suggestions; fall back instead of
			// rejecting the whole draft
			priority = card.PriorityModerate.String()
		}

		c, err := s.CreateCard(ctx, projectID, draft.Content, draft.Details, draft.X, draft.Y, priority)
		if err != nil {
			s.logger.Warn("skipping unusable idea draft",
				zap.String("projectID", projectID),
				zap.Error(err),
			)
			continue
		}
		created = append(created, c)
	}

	return created, nil
}

// UpdateContent edits a card's text fields
func (s *Service) UpdateContent(ctx context.Context, cardID, content, details string) error {
	if err := s.store.UpdateContent(cardID, content, details); err != nil {
		return err
	}

	c, err := s.store.Get(cardID)
	if err != nil {
		return err
	}

	if err := s.adapter.PutCard(ctx, store.Snapshot(c)); err != nil {
		return pkgerrors.NewUnavailableError("failed to persist card", err)
	}

	s.publisher.PublishBatch(ctx, c.GetUncommittedEvents())
	c.MarkEventsAsCommitted()

	return nil
}

// SetCollapsed flips a card's display flag. Collapse state is orthogonal to
// position and never bumps the commit timestamp.
func (s *Service) SetCollapsed(ctx context.Context, cardID string, collapsed bool) error {
	if err := s.store.SetCollapsed(cardID, collapsed); err != nil {
		return err
	}

	c, err := s.store.Get(cardID)
	if err != nil {
		return err
	}
	if err := s.adapter.PutCard(ctx, store.Snapshot(c)); err != nil {
		return pkgerrors.NewUnavailableError("failed to persist card", err)
	}
	return nil
}

// RemoveCard deletes a card, releasing any lock it still holds
func (s *Service) RemoveCard(ctx context.Context, cardID string) error {
	c, err := s.store.Remove(cardID)
	if err != nil {
		return err
	}

	if owner := c.LockedBy(); owner != "" {
		s.locks.Release(cardID, owner)
		s.publisher.Publish(ctx, domainevents.NewCardUnlocked(cardID, owner, false, time.Now()))
	}

	if err := s.adapter.DeleteCard(ctx, c.ProjectID(), cardID); err != nil {
		s.logger.Error("failed to delete persisted card",
			zap.String("cardID", cardID),
			zap.Error(err),
		)
		return pkgerrors.NewUnavailableError("failed to delete card", err)
	}

	s.publisher.Publish(ctx, domainevents.NewCardRemoved(cardID, c.ProjectID(), time.Now()))

	return nil
}
