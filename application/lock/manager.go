package lock

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AcquireResult reports the outcome of a lock acquisition attempt.
// A denial is a normal, expected outcome, not an error.
type AcquireResult struct {
	Granted bool
	HeldBy  string // set when Granted is false
}

// ReleaseStatus reports the outcome of a lock release
type ReleaseStatus int

const (
	// Released means the caller held the lock and it is now free
	Released ReleaseStatus = iota
	// NotHeldByYou means the lock was free or held by someone else; the
	// release was a no-op
	NotHeldByYou
)

type entry struct {
	owner      string
	acquiredAt time.Time
	expiresAt  time.Time
}

// ExpiredLock describes a lock removed by the lease sweeper
type ExpiredLock struct {
	CardID string
	Owner  string
}

// Manager tracks which collaborator currently owns each card for editing.
// Locks are advisory and scoped to a single card. Every lock carries a lease
// so a crashed client cannot leave a card locked forever; re-acquiring an
// already-held lock renews the lease.
type Manager struct {
	mu     sync.Mutex
	locks  map[string]entry
	lease  time.Duration
	logger *zap.Logger

	// now is swappable for lease-expiry tests
	now func() time.Time
}

// NewManager creates a lock manager with the given lease duration
func NewManager(lease time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		locks:  make(map[string]entry),
		lease:  lease,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the manager's clock. Test hook.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Acquire attempts to take the lock on a card for a collaborator.
// Idempotent: re-acquiring a lock you already hold succeeds and renews
// the lease.
func (m *Manager) Acquire(cardID, collaboratorID string) AcquireResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.locks[cardID]; ok && now.Before(e.expiresAt) && e.owner != collaboratorID {
		m.logger.Debug("lock denied",
			zap.String("cardID", cardID),
			zap.String("collaboratorID", collaboratorID),
			zap.String("heldBy", e.owner),
		)
		return AcquireResult{Granted: false, HeldBy: e.owner}
	}

	m.locks[cardID] = entry{
		owner:      collaboratorID,
		acquiredAt: now,
		expiresAt:  now.Add(m.lease),
	}

	m.logger.Debug("lock acquired",
		zap.String("cardID", cardID),
		zap.String("collaboratorID", collaboratorID),
		zap.Duration("lease", m.lease),
	)

	return AcquireResult{Granted: true}
}

// Release frees the lock if the collaborator holds it. Releasing a lock you
// do not hold is reported, not fatal.
func (m *Manager) Release(cardID, collaboratorID string) ReleaseStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.locks[cardID]
	if !ok || e.owner != collaboratorID {
		return NotHeldByYou
	}

	delete(m.locks, cardID)

	m.logger.Debug("lock released",
		zap.String("cardID", cardID),
		zap.String("collaboratorID", collaboratorID),
	)

	return Released
}

// IsLocked returns the current lock owner, if any. An expired lease reads
// as unlocked even before the sweeper removes it.
func (m *Manager) IsLocked(cardID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.locks[cardID]
	if !ok || !m.now().Before(e.expiresAt) {
		return "", false
	}
	return e.owner, true
}

// Sweep removes expired locks and returns them so the caller can publish
// unlock events for abandoned sessions.
func (m *Manager) Sweep() []ExpiredLock {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var expired []ExpiredLock
	for cardID, e := range m.locks {
		if !now.Before(e.expiresAt) {
			expired = append(expired, ExpiredLock{CardID: cardID, Owner: e.owner})
			delete(m.locks, cardID)
		}
	}

	if len(expired) > 0 {
		m.logger.Info("swept expired locks", zap.Int("count", len(expired)))
	}

	return expired
}

// RunSweeper periodically sweeps expired locks until ctx is cancelled,
// reporting each batch through onExpired.
func (m *Manager) RunSweeper(ctx context.Context, every time.Duration, onExpired func([]ExpiredLock)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if expired := m.Sweep(); len(expired) > 0 && onExpired != nil {
				onExpired(expired)
			}
		}
	}
}
