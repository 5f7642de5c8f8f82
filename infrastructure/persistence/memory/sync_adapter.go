package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"priomatrix-backend/application/ports"
	"priomatrix-backend/infrastructure/persistence/feed"

	"go.uber.org/zap"
)

// SyncAdapter is an in-memory implementation of the persistence sync
// adapter, used for local development and tests. It enforces the same
// updatedAt precondition a real backend would, so conflict behavior is
// identical to production.
type SyncAdapter struct {
	mu       sync.Mutex
	records  map[string]ports.CardSnapshot
	failNext int

	feed   *feed.ChannelFeed
	logger *zap.Logger
}

// NewSyncAdapter creates an empty in-memory adapter
func NewSyncAdapter(logger *zap.Logger) *SyncAdapter {
	return &SyncAdapter{
		records: make(map[string]ports.CardSnapshot),
		feed:    feed.NewChannelFeed(256),
		logger:  logger,
	}
}

// SaveCommit persists a drag commit guarded by the updatedAt precondition
func (a *SyncAdapter) SaveCommit(ctx context.Context, commit ports.CardCommit) (ports.SaveResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.failNext > 0 {
		a.failNext--
		return ports.SaveResult{
			Status: ports.SaveTransientFailure,
			Err:    fmt.Errorf("simulated storage failure"),
		}, nil
	}

	rec, ok := a.records[commit.CardID]
	if ok && !rec.UpdatedAt.Equal(commit.PriorUpdatedAt) {
		a.logger.Debug("commit conflict",
			zap.String("cardID", commit.CardID),
			zap.Time("prior", commit.PriorUpdatedAt),
			zap.Time("stored", rec.UpdatedAt),
		)
		return ports.SaveResult{Status: ports.SaveConflict}, nil
	}

	newUpdatedAt := time.Now()
	if !newUpdatedAt.After(commit.PriorUpdatedAt) {
		newUpdatedAt = commit.PriorUpdatedAt.Add(time.Nanosecond)
	}

	rec.ID = commit.CardID
	rec.ProjectID = commit.ProjectID
	rec.X = commit.X
	rec.Y = commit.Y
	if commit.Priority != "" {
		rec.Priority = commit.Priority
	}
	rec.UpdatedAt = newUpdatedAt
	a.records[commit.CardID] = rec

	return ports.SaveResult{Status: ports.SaveCommitted, NewUpdatedAt: newUpdatedAt}, nil
}

// PutCard persists a full card record
func (a *SyncAdapter) PutCard(ctx context.Context, snapshot ports.CardSnapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records[snapshot.ID] = snapshot
	return nil
}

// DeleteCard removes a card record
func (a *SyncAdapter) DeleteCard(ctx context.Context, projectID, cardID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.records, cardID)
	return nil
}

// GetRecord returns the persisted record for a card. Test helper.
func (a *SyncAdapter) GetRecord(cardID string) (ports.CardSnapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.records[cardID]
	return rec, ok
}

// FailNext makes the next n SaveCommit calls fail transiently. Test hook.
func (a *SyncAdapter) FailNext(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failNext = n
}

// Changes implements ports.RemoteFeed
func (a *SyncAdapter) Changes() <-chan ports.CardSnapshot {
	return a.feed.Changes()
}

// PushRemote simulates another collaborator's commit arriving: the record is
// stored (bumping updatedAt so local preconditions go stale) and delivered
// on the remote feed.
func (a *SyncAdapter) PushRemote(snapshot ports.CardSnapshot) {
	a.mu.Lock()
	a.records[snapshot.ID] = snapshot
	a.mu.Unlock()

	a.feed.Push(snapshot)
}

// Close shuts down the remote feed
func (a *SyncAdapter) Close() {
	a.feed.Close()
}
