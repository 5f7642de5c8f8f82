package drag

import (
	"context"
	"math"
	"testing"
	"time"

	appevents "priomatrix-backend/application/events"
	"priomatrix-backend/application/lock"
	"priomatrix-backend/application/ports"
	"priomatrix-backend/application/store"
	"priomatrix-backend/domain/card"
	"priomatrix-backend/domain/config"
	"priomatrix-backend/domain/matrix"
	"priomatrix-backend/infrastructure/persistence/memory"
	pkgerrors "priomatrix-backend/pkg/errors"
	"priomatrix-backend/pkg/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	engine  *Engine
	store   *store.CardStore
	locks   *lock.Manager
	adapter *memory.SyncAdapter
	cfg     *config.DomainConfig
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.DefaultDomainConfig()
	// Keep retry backoff out of the test's critical path
	cfg.CommitInitialDelay = time.Millisecond
	cfg.CommitMaxDelay = 2 * time.Millisecond
	cfg.CommitJitterFactor = 0

	logger := zap.NewNop()
	cardStore := store.NewCardStore(cfg, logger)
	locks := lock.NewManager(cfg.LockLease, logger)
	adapter := memory.NewSyncAdapter(logger)
	dispatcher := appevents.NewDispatcher(logger)
	metrics := observability.NewMetrics()

	return &testEnv{
		engine:  NewEngine(cardStore, locks, adapter, dispatcher, metrics, cfg, logger),
		store:   cardStore,
		locks:   locks,
		adapter: adapter,
		cfg:     cfg,
	}
}

// seedCard puts a card in the store and mirrors it into persistence so the
// stored record's updatedAt matches what a drag session will capture.
func (env *testEnv) seedCard(t *testing.T, x, y float64) *card.IdeaCard {
	t.Helper()

	pos, err := matrix.NewPosition(x, y)
	require.NoError(t, err)
	c, err := card.NewCard("proj-1", "seed card", "", pos, card.PriorityModerate, env.cfg)
	require.NoError(t, err)
	c.MarkEventsAsCommitted()

	require.NoError(t, env.store.Add(c))
	require.NoError(t, env.adapter.PutCard(context.Background(), store.Snapshot(c)))
	return c
}

func TestDragLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.seedCard(t, 50, 50)
	id := c.ID().String()

	begin, err := env.engine.BeginDrag(ctx, id, "alice")
	require.NoError(t, err)
	require.True(t, begin.Started)

	require.NoError(t, env.engine.UpdateDrag(id, "alice", 200, 100))
	require.NoError(t, env.engine.UpdateDrag(id, "alice", 150, 250))

	pending, err := env.engine.PendingPosition(id, "alice")
	require.NoError(t, err)
	assert.Equal(t, 400.0, pending.X())
	assert.Equal(t, 400.0, pending.Y())

	result, err := env.engine.CommitDrag(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, CommitCommitted, result.Status)
	assert.Equal(t, 400.0, result.Position.X())
	assert.Equal(t, 400.0, result.Position.Y())
	assert.Equal(t, matrix.QuadrantQuickWins, result.Quadrant)
	assert.True(t, result.NewUpdatedAt.After(c.CreatedAt()))

	// Store and persistence both hold the committed position
	got, err := env.store.Get(id)
	require.NoError(t, err)
	assert.True(t, got.Position().Equals(result.Position))

	rec, ok := env.adapter.GetRecord(id)
	require.True(t, ok)
	assert.Equal(t, 400.0, rec.X)

	// Lock is gone after commit
	_, held := env.engine.IsLocked(id)
	assert.False(t, held)

	// Session is gone too
	_, active := env.engine.SessionInfo(id)
	assert.False(t, active)
}

func TestCommitClampsOvershoot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("overshoot high side", func(t *testing.T) {
		c := env.seedCard(t, 500, 500)
		id := c.ID().String()

		_, err := env.engine.BeginDrag(ctx, id, "alice")
		require.NoError(t, err)
		require.NoError(t, env.engine.UpdateDrag(id, "alice", 200, 200))

		pending, err := env.engine.PendingPosition(id, "alice")
		require.NoError(t, err)
		assert.Equal(t, 700.0, pending.X(), "pending position stays unclamped")

		result, err := env.engine.CommitDrag(ctx, id, "alice")
		require.NoError(t, err)
		assert.Equal(t, CommitCommitted, result.Status)
		assert.Equal(t, 520.0, result.Position.X())
		assert.Equal(t, 520.0, result.Position.Y())
		assert.Equal(t, matrix.QuadrantQuickWins, result.Quadrant)
	})

	t.Run("overshoot low side", func(t *testing.T) {
		c := env.seedCard(t, 20, 20)
		id := c.ID().String()

		_, err := env.engine.BeginDrag(ctx, id, "alice")
		require.NoError(t, err)
		require.NoError(t, env.engine.UpdateDrag(id, "alice", -300, -300))

		result, err := env.engine.CommitDrag(ctx, id, "alice")
		require.NoError(t, err)
		assert.Equal(t, CommitCommitted, result.Status)
		assert.Equal(t, 0.0, result.Position.X())
		assert.Equal(t, 0.0, result.Position.Y())
		assert.Equal(t, matrix.QuadrantThankless, result.Quadrant)
	})
}

func TestDeltasPinToStartPosition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.seedCard(t, 100, 100)
	id := c.ID().String()

	_, err := env.engine.BeginDrag(ctx, id, "alice")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, env.engine.UpdateDrag(id, "alice", 10, 0))
	}

	result, err := env.engine.CommitDrag(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, CommitCommitted, result.Status)
	assert.Equal(t, 200.0, result.Position.X())
	assert.Equal(t, 100.0, result.Position.Y())
}

func TestUpdateDragRejectsNonFiniteDelta(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.seedCard(t, 100, 100)
	id := c.ID().String()

	_, err := env.engine.BeginDrag(ctx, id, "alice")
	require.NoError(t, err)

	err = env.engine.UpdateDrag(id, "alice", math.NaN(), 0)
	assert.True(t, pkgerrors.IsValidation(err))

	// Session state is untouched by the refusal
	pending, err := env.engine.PendingPosition(id, "alice")
	require.NoError(t, err)
	assert.Equal(t, 100.0, pending.X())
}

func TestLockContention(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.seedCard(t, 100, 100)
	id := c.ID().String()

	beginA, err := env.engine.BeginDrag(ctx, id, "alice")
	require.NoError(t, err)
	require.True(t, beginA.Started)

	beginB, err := env.engine.BeginDrag(ctx, id, "bob")
	require.NoError(t, err)
	assert.False(t, beginB.Started)
	assert.Equal(t, "alice", beginB.HeldBy)

	// Bob has no session, so his moves are refused
	err = env.engine.UpdateDrag(id, "bob", 10, 10)
	assert.Error(t, err)

	// Alice's drag is unaffected
	require.NoError(t, env.engine.UpdateDrag(id, "alice", 10, 10))
	result, err := env.engine.CommitDrag(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, CommitCommitted, result.Status)

	// Once released, bob can start
	beginB, err = env.engine.BeginDrag(ctx, id, "bob")
	require.NoError(t, err)
	assert.True(t, beginB.Started)
}

func TestCancelReverts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.seedCard(t, 100, 100)
	id := c.ID().String()
	before := c.Position()
	beforeUpdated := c.UpdatedAt()

	_, err := env.engine.BeginDrag(ctx, id, "alice")
	require.NoError(t, err)
	require.NoError(t, env.engine.UpdateDrag(id, "alice", 300, 300))

	require.NoError(t, env.engine.CancelDrag(ctx, id, "alice"))

	got, err := env.store.Get(id)
	require.NoError(t, err)
	assert.True(t, got.Position().Equals(before))
	assert.Equal(t, beforeUpdated, got.UpdatedAt())

	_, held := env.engine.IsLocked(id)
	assert.False(t, held)

	_, active := env.engine.SessionInfo(id)
	assert.False(t, active)

	t.Run("cancel without a session errors", func(t *testing.T) {
		assert.Error(t, env.engine.CancelDrag(ctx, id, "alice"))
	})
}

func TestRemoteUpdateConflictsActiveDrag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.seedCard(t, 100, 100)
	id := c.ID().String()

	_, err := env.engine.BeginDrag(ctx, id, "alice")
	require.NoError(t, err)
	require.NoError(t, env.engine.UpdateDrag(id, "alice", 50, 50))

	// Another collaborator commits the same card remotely
	remote := store.Snapshot(c)
	remote.X = 480
	remote.Y = 40
	remote.Priority = "high"
	remote.UpdatedAt = c.UpdatedAt().Add(time.Second)
	env.adapter.PushRemote(remote)
	require.NoError(t, env.engine.HandleRemoteUpdate(ctx, remote))

	assert.True(t, env.engine.SessionStale(id))

	result, err := env.engine.CommitDrag(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, CommitConflict, result.Status)

	// The store reflects the remote value, not the dragged one
	got, err := env.store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 480.0, got.Position().X())
	assert.Equal(t, 40.0, got.Position().Y())
	assert.Equal(t, 480.0, result.Position.X())

	// Conflict tears down the session and releases the lock
	_, held := env.engine.IsLocked(id)
	assert.False(t, held)
	_, active := env.engine.SessionInfo(id)
	assert.False(t, active)
}

func TestStaleRemoteUpdateIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.seedCard(t, 100, 100)
	id := c.ID().String()

	remote := store.Snapshot(c)
	remote.X = 5
	remote.UpdatedAt = c.UpdatedAt().Add(-time.Minute)
	require.NoError(t, env.engine.HandleRemoteUpdate(ctx, remote))

	got, err := env.store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Position().X())
}

func TestTransientFailureRetries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.seedCard(t, 100, 100)
	id := c.ID().String()

	_, err := env.engine.BeginDrag(ctx, id, "alice")
	require.NoError(t, err)
	require.NoError(t, env.engine.UpdateDrag(id, "alice", 50, 50))

	// Two failures, then the retry succeeds within the budget of three
	env.adapter.FailNext(2)

	result, err := env.engine.CommitDrag(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, CommitCommitted, result.Status)
	assert.Equal(t, 150.0, result.Position.X())
}

func TestRetryExhaustionReverts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.seedCard(t, 100, 100)
	id := c.ID().String()
	before := c.Position()

	_, err := env.engine.BeginDrag(ctx, id, "alice")
	require.NoError(t, err)
	require.NoError(t, env.engine.UpdateDrag(id, "alice", 50, 50))

	// More failures than the initial attempt plus all retries
	env.adapter.FailNext(10)

	result, err := env.engine.CommitDrag(ctx, id, "alice")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsUnavailable(err))
	assert.Equal(t, CommitUnavailable, result.Status)

	// Position reverted, lock released
	got, err := env.store.Get(id)
	require.NoError(t, err)
	assert.True(t, got.Position().Equals(before))

	_, held := env.engine.IsLocked(id)
	assert.False(t, held)
}

func TestCommitWithoutSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.seedCard(t, 100, 100)
	id := c.ID().String()

	_, err := env.engine.CommitDrag(ctx, id, "alice")
	assert.Error(t, err)

	err = env.engine.UpdateDrag(id, "alice", 10, 10)
	assert.Error(t, err)
}

func TestBeginDragUnknownCard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	begin, err := env.engine.BeginDrag(ctx, "00000000-0000-0000-0000-000000000000", "alice")
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.False(t, begin.Started)
}

// gatedAdapter blocks SaveCommit until the test releases it, so commits can
// be held open mid-save.
type gatedAdapter struct {
	inner   ports.SyncAdapter
	entered chan struct{}
	release chan struct{}
}

func newGatedAdapter(inner ports.SyncAdapter) *gatedAdapter {
	return &gatedAdapter{
		inner:   inner,
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (g *gatedAdapter) SaveCommit(ctx context.Context, commit ports.CardCommit) (ports.SaveResult, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.inner.SaveCommit(ctx, commit)
}

func (g *gatedAdapter) PutCard(ctx context.Context, snapshot ports.CardSnapshot) error {
	return g.inner.PutCard(ctx, snapshot)
}

func (g *gatedAdapter) DeleteCard(ctx context.Context, projectID, cardID string) error {
	return g.inner.DeleteCard(ctx, projectID, cardID)
}

func TestBeginDragRefusedWhileCommitSettles(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	logger := zap.NewNop()
	cardStore := store.NewCardStore(cfg, logger)
	locks := lock.NewManager(cfg.LockLease, logger)
	mem := memory.NewSyncAdapter(logger)
	gated := newGatedAdapter(mem)
	engine := NewEngine(cardStore, locks, gated, appevents.NewDispatcher(logger), observability.NewMetrics(), cfg, logger)

	ctx := context.Background()
	pos, err := matrix.NewPosition(100, 100)
	require.NoError(t, err)
	c, err := card.NewCard("proj-1", "seed card", "", pos, card.PriorityModerate, cfg)
	require.NoError(t, err)
	c.MarkEventsAsCommitted()
	require.NoError(t, cardStore.Add(c))
	require.NoError(t, mem.PutCard(ctx, store.Snapshot(c)))
	id := c.ID().String()

	begin, err := engine.BeginDrag(ctx, id, "alice")
	require.NoError(t, err)
	require.True(t, begin.Started)
	require.NoError(t, engine.UpdateDrag(id, "alice", 50, 50))

	done := make(chan CommitResult, 1)
	go func() {
		result, _ := engine.CommitDrag(ctx, id, "alice")
		done <- result
	}()

	// Hold the save open; a new pointer-down on the same card must be
	// refused until the commit settles, or the finishing commit would tear
	// down the freshly granted session and its lock.
	<-gated.entered
	begin, err = engine.BeginDrag(ctx, id, "alice")
	require.NoError(t, err)
	assert.False(t, begin.Started)
	assert.Equal(t, "alice", begin.HeldBy)

	close(gated.release)
	result := <-done
	assert.Equal(t, CommitCommitted, result.Status)

	// With the commit settled, the next drag starts cleanly and survives
	begin, err = engine.BeginDrag(ctx, id, "alice")
	require.NoError(t, err)
	require.True(t, begin.Started)
	require.NoError(t, engine.UpdateDrag(id, "alice", 10, 10))

	owner, held := engine.IsLocked(id)
	assert.True(t, held)
	assert.Equal(t, "alice", owner)
}

func TestConcurrentCommitsWithJitter(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.CommitJitterFactor = 0.1
	ctx := context.Background()

	ids := make([]string, 4)
	for i := range ids {
		c := env.seedCard(t, 100, 100)
		ids[i] = c.ID().String()

		begin, err := env.engine.BeginDrag(ctx, ids[i], "alice")
		require.NoError(t, err)
		require.True(t, begin.Started)
		require.NoError(t, env.engine.UpdateDrag(ids[i], "alice", 50, 50))
	}

	// Spread transient failures across the concurrent commits so every
	// retry path runs the jittered backoff at the same time
	env.adapter.FailNext(3)

	results := make(chan CommitResult, len(ids))
	for _, id := range ids {
		go func(cardID string) {
			result, err := env.engine.CommitDrag(ctx, cardID, "alice")
			assert.NoError(t, err)
			results <- result
		}(id)
	}

	for range ids {
		result := <-results
		assert.Equal(t, CommitCommitted, result.Status)
		assert.Equal(t, 150.0, result.Position.X())
	}
}

func TestExpiredLockTeardown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.seedCard(t, 100, 100)
	id := c.ID().String()

	_, err := env.engine.BeginDrag(ctx, id, "alice")
	require.NoError(t, err)

	env.engine.HandleExpiredLocks(ctx, []lock.ExpiredLock{{CardID: id, Owner: "alice"}})

	got, err := env.store.Get(id)
	require.NoError(t, err)
	assert.Empty(t, got.LockedBy())
}
