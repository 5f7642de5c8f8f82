package drag

import (
	"context"
	"math"
	"math/rand"
	"time"

	"priomatrix-backend/application/lock"
	"priomatrix-backend/application/ports"
	"priomatrix-backend/application/store"
	"priomatrix-backend/domain/config"
	"priomatrix-backend/domain/matrix"
	pkgerrors "priomatrix-backend/pkg/errors"
	"priomatrix-backend/pkg/observability"

	"go.uber.org/zap"
)

// BeginResult reports the outcome of a pointer-down. A refused begin is a
// normal outcome (the card is simply not draggable right now), not an error.
type BeginResult struct {
	Started bool
	HeldBy  string // set when refused because another collaborator holds the lock
}

// CommitStatus distinguishes the outcomes of a drag commit
type CommitStatus int

const (
	// CommitCommitted means the position was durably saved
	CommitCommitted CommitStatus = iota
	// CommitConflict means the card changed remotely since the drag began;
	// the drag was discarded and the store holds the remote value
	CommitConflict
	// CommitUnavailable means the save kept failing transiently; the drag
	// was reverted and may be retried by the user
	CommitUnavailable
)

// CommitResult reports the outcome of a drag commit
type CommitResult struct {
	Status       CommitStatus
	Position     matrix.Position
	Quadrant     matrix.Quadrant
	NewUpdatedAt time.Time
}

// Engine coordinates drag sessions, the card store, the lock manager and
// the persistence sync adapter. One session exists per card at most; the
// committing card is the only state blocked on a pending save, every other
// card's events keep flowing.
type Engine struct {
	// sessions is guarded by the store-independent session lock so a save
	// in flight never blocks pointer moves for other cards
	sessions *sessionTable

	store     *store.CardStore
	locks     *lock.Manager
	adapter   ports.SyncAdapter
	publisher ports.EventPublisher
	metrics   *observability.Metrics
	cfg       *config.DomainConfig
	logger    *zap.Logger
}

// NewEngine creates the drag engine
func NewEngine(
	cardStore *store.CardStore,
	locks *lock.Manager,
	adapter ports.SyncAdapter,
	publisher ports.EventPublisher,
	metrics *observability.Metrics,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *Engine {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &Engine{
		sessions:  newSessionTable(),
		store:     cardStore,
		locks:     locks,
		adapter:   adapter,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
	}
}

// BeginDrag starts a drag session on pointer-down. The session starts only
// if the lock manager grants (or the collaborator already holds) the card's
// lock; a denial leaves everything unchanged.
func (e *Engine) BeginDrag(ctx context.Context, cardID, collaboratorID string) (BeginResult, error) {
	c, err := e.store.Get(cardID)
	if err != nil {
		// Dragging a card that no longer exists is a refusal, not a fault
		return BeginResult{Started: false}, err
	}

	res := e.locks.Acquire(cardID, collaboratorID)
	if !res.Granted {
		e.metrics.LocksDenied.Inc()
		return BeginResult{Started: false, HeldBy: res.HeldBy}, nil
	}

	session := newSession(cardID, c.ProjectID(), collaboratorID, c.Position(), c.UpdatedAt())
	if heldBy, ok := e.sessions.tryPut(session); !ok {
		// The card's previous drop is still settling (or a drag is already
		// live). The Acquire above only renewed the holder's own lease, so
		// nothing needs rolling back.
		return BeginResult{Started: false, HeldBy: heldBy}, nil
	}

	e.store.SetLockOwner(cardID, collaboratorID)
	e.publisher.Publish(ctx, newLockedEvent(cardID, collaboratorID))
	e.metrics.DragsStarted.Inc()

	e.logger.Debug("drag started",
		zap.String("cardID", cardID),
		zap.String("collaboratorID", collaboratorID),
	)

	return BeginResult{Started: true}, nil
}

// UpdateDrag applies a pointer-move delta to the active session. The pending
// position may overshoot the canvas; nothing durable is touched and no
// rounding is applied.
func (e *Engine) UpdateDrag(cardID, collaboratorID string, dx, dy float64) error {
	if math.IsNaN(dx) || math.IsNaN(dy) || math.IsInf(dx, 0) || math.IsInf(dy, 0) {
		return pkgerrors.NewValidationError("pointer delta must be finite")
	}

	return e.sessions.withActive(cardID, collaboratorID, func(s *Session) error {
		s.applyDelta(dx, dy)
		return nil
	})
}

// PendingPosition returns the unclamped in-flight position of an active
// drag, for rendering
func (e *Engine) PendingPosition(cardID, collaboratorID string) (matrix.Position, error) {
	var pos matrix.Position
	err := e.sessions.withActive(cardID, collaboratorID, func(s *Session) error {
		pos = s.CurrentPosition()
		return nil
	})
	return pos, err
}

// CommitDrag clamps the pending position, re-classifies the quadrant and
// saves through the sync adapter on pointer-up. Conflicts cancel and revert;
// transient failures are retried with backoff before giving up.
func (e *Engine) CommitDrag(ctx context.Context, cardID, collaboratorID string) (CommitResult, error) {
	session, err := e.sessions.beginCommit(cardID, collaboratorID)
	if err != nil {
		return CommitResult{}, err
	}

	// Confirm lock ownership before touching storage. Losing the lease
	// mid-drag means another editor may have taken over; treat it like any
	// other race and discard the drag.
	if res := e.locks.Acquire(cardID, collaboratorID); !res.Granted {
		e.cancelSession(ctx, session, false)
		e.metrics.DragConflicts.Inc()
		return CommitResult{Status: CommitConflict}, nil
	}

	clamped := session.CurrentPosition().Clamp(e.cfg.MatrixMax)
	quadrant := matrix.Classify(clamped, e.cfg.MatrixMax)

	commit := ports.CardCommit{
		CardID:         cardID,
		ProjectID:      session.projectID,
		X:              clamped.X(),
		Y:              clamped.Y(),
		PriorUpdatedAt: session.priorUpdatedAt,
	}
	if c, err := e.store.Get(cardID); err == nil {
		commit.Priority = c.Priority().String()
	}

	// The only suspension point: the save runs without holding any engine
	// lock, so other cards keep processing moves and remote updates.
	result := e.saveWithRetry(ctx, commit)

	switch result.Status {
	case ports.SaveCommitted:
		return e.finalizeCommit(ctx, session, clamped, quadrant, result)

	case ports.SaveConflict:
		e.cancelSession(ctx, session, false)
		e.metrics.DragConflicts.Inc()
		e.publisher.Publish(ctx, newConflictEvent(cardID, session.projectID, collaboratorID))
		e.logger.Info("drag commit conflicted",
			zap.String("cardID", cardID),
			zap.String("collaboratorID", collaboratorID),
		)
		pos := clamped
		if c, err := e.store.Get(cardID); err == nil {
			pos = c.Position()
		}
		return CommitResult{Status: CommitConflict, Position: pos}, nil

	default:
		e.cancelSession(ctx, session, false)
		e.metrics.SaveFailures.Inc()
		e.logger.Warn("drag commit failed after retries",
			zap.String("cardID", cardID),
			zap.Error(result.Err),
		)
		return CommitResult{Status: CommitUnavailable},
			pkgerrors.NewUnavailableError("failed to save, your change was not applied", result.Err)
	}
}

// CancelDrag discards the session on escape or an invalid drop. The stored
// position is left exactly as it was before the drag; the lock is released
// before control returns.
func (e *Engine) CancelDrag(ctx context.Context, cardID, collaboratorID string) error {
	session, err := e.sessions.takeForCancel(cardID, collaboratorID)
	if err != nil {
		return err
	}
	e.cancelSession(ctx, session, true)
	return nil
}

// HandleRemoteUpdate applies a remote collaborator's committed record. If a
// local drag on the same card is in flight, its session is flagged stale so
// the UI can warn and the commit-time precondition is guaranteed to fire.
func (e *Engine) HandleRemoteUpdate(ctx context.Context, snapshot ports.CardSnapshot) error {
	_, applied, err := e.store.UpsertFromRemote(snapshot)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	stale := e.sessions.markStale(snapshot.ID)
	e.metrics.RemoteUpdates.Inc()

	pos, err := matrix.NewPosition(snapshot.X, snapshot.Y)
	if err != nil {
		return err
	}
	e.publisher.Publish(ctx, newSyncedEvent(snapshot.ID, snapshot.ProjectID, pos.Clamp(e.cfg.MatrixMax), stale))

	return nil
}

// ConsumeRemote pumps a remote feed into HandleRemoteUpdate until ctx is
// cancelled or the feed closes. A single goroutine preserves arrival order.
func (e *Engine) ConsumeRemote(ctx context.Context, feed ports.RemoteFeed) {
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-feed.Changes():
			if !ok {
				return
			}
			if err := e.HandleRemoteUpdate(ctx, snapshot); err != nil {
				e.logger.Warn("failed to apply remote update",
					zap.String("cardID", snapshot.ID),
					zap.Error(err),
				)
			}
		}
	}
}

// HandleExpiredLocks reacts to the lease sweeper removing abandoned locks
func (e *Engine) HandleExpiredLocks(ctx context.Context, expired []lock.ExpiredLock) {
	for _, ex := range expired {
		e.store.ClearLockOwner(ex.CardID)
		e.metrics.LocksExpired.Inc()
		e.publisher.Publish(ctx, newUnlockedEvent(ex.CardID, ex.Owner, true))
	}
}

// GetQuadrant derives the quadrant of a card's committed position
func (e *Engine) GetQuadrant(cardID string) (matrix.Quadrant, error) {
	c, err := e.store.Get(cardID)
	if err != nil {
		return "", err
	}
	return matrix.Classify(c.Position(), e.cfg.MatrixMax), nil
}

// IsLocked returns the collaborator currently holding a card's lock
func (e *Engine) IsLocked(cardID string) (string, bool) {
	return e.locks.IsLocked(cardID)
}

// SessionInfo reports a card's session state for the presentation layer
func (e *Engine) SessionInfo(cardID string) (State, bool) {
	return e.sessions.info(cardID)
}

// SessionStale reports whether the card's active session was raced by a
// remote update
func (e *Engine) SessionStale(cardID string) bool {
	return e.sessions.stale(cardID)
}

func (e *Engine) finalizeCommit(ctx context.Context, session *Session, clamped matrix.Position, quadrant matrix.Quadrant, result ports.SaveResult) (CommitResult, error) {
	done, err := e.sessions.finishCommit(session)
	if err != nil {
		return CommitResult{}, err
	}
	if !done {
		// Cancelled while the save was in flight. The write landed remotely
		// and will flow back through the remote feed; locally the cancel
		// already reverted and released, so report the conflict-style outcome.
		return CommitResult{Status: CommitConflict, Position: session.start}, nil
	}

	if err := e.store.ApplyCommit(session.cardID, clamped, result, session.collaboratorID); err != nil {
		return CommitResult{}, err
	}

	e.releaseLock(ctx, session.cardID, session.collaboratorID, false)
	e.metrics.DragsCommitted.Inc()

	if c, err := e.store.Get(session.cardID); err == nil {
		e.publisher.PublishBatch(ctx, c.GetUncommittedEvents())
		c.MarkEventsAsCommitted()
	}

	e.logger.Debug("drag committed",
		zap.String("cardID", session.cardID),
		zap.Float64("x", clamped.X()),
		zap.Float64("y", clamped.Y()),
		zap.String("quadrant", quadrant.String()),
	)

	return CommitResult{
		Status:       CommitCommitted,
		Position:     clamped,
		Quadrant:     quadrant,
		NewUpdatedAt: result.NewUpdatedAt,
	}, nil
}

// cancelSession shares the one cancellation path between user cancels,
// conflicts and exhausted saves: session terminal, lock fully released.
func (e *Engine) cancelSession(ctx context.Context, session *Session, userInitiated bool) {
	e.sessions.cancel(session)
	e.releaseLock(ctx, session.cardID, session.collaboratorID, false)
	if userInitiated {
		e.metrics.DragsCancelled.Inc()
	}
}

func (e *Engine) releaseLock(ctx context.Context, cardID, collaboratorID string, expired bool) {
	e.locks.Release(cardID, collaboratorID)
	e.store.ClearLockOwner(cardID)
	e.publisher.Publish(ctx, newUnlockedEvent(cardID, collaboratorID, expired))
}

// saveWithRetry calls the adapter with the same precondition on every
// attempt. Only transient failures retry; conflicts return immediately.
func (e *Engine) saveWithRetry(ctx context.Context, commit ports.CardCommit) ports.SaveResult {
	delay := e.cfg.CommitInitialDelay
	var last ports.SaveResult

	for attempt := 0; attempt <= e.cfg.CommitMaxRetries; attempt++ {
		if attempt > 0 {
			e.metrics.SaveRetries.Inc()
			select {
			case <-ctx.Done():
				last.Status = ports.SaveTransientFailure
				last.Err = ctx.Err()
				return last
			case <-time.After(e.jitter(delay)):
			}
			delay = time.Duration(float64(delay) * e.cfg.CommitBackoffFactor)
			if delay > e.cfg.CommitMaxDelay {
				delay = e.cfg.CommitMaxDelay
			}
		}

		result, err := e.adapter.SaveCommit(ctx, commit)
		if err != nil {
			result = ports.SaveResult{Status: ports.SaveTransientFailure, Err: err}
		}
		last = result

		if result.Status != ports.SaveTransientFailure {
			return result
		}

		e.logger.Debug("transient save failure",
			zap.String("cardID", commit.CardID),
			zap.Int("attempt", attempt+1),
			zap.Error(result.Err),
		)
	}

	return last
}

// jitter spreads retry delays out. Commits for different cards retry
// concurrently, so this uses the process-wide locked source.
func (e *Engine) jitter(d time.Duration) time.Duration {
	if e.cfg.CommitJitterFactor <= 0 {
		return d
	}
	j := 1 + e.cfg.CommitJitterFactor*(2*rand.Float64()-1)
	return time.Duration(float64(d) * j)
}
