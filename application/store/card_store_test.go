package store

import (
	"testing"
	"time"

	"priomatrix-backend/application/ports"
	"priomatrix-backend/domain/card"
	"priomatrix-backend/domain/config"
	"priomatrix-backend/domain/matrix"
	pkgerrors "priomatrix-backend/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore() *CardStore {
	return NewCardStore(config.DefaultDomainConfig(), zap.NewNop())
}

func newTestCard(t *testing.T, projectID string, x, y float64) *card.IdeaCard {
	t.Helper()
	pos, err := matrix.NewPosition(x, y)
	require.NoError(t, err)
	c, err := card.NewCard(projectID, "an idea", "", pos, card.PriorityModerate, config.DefaultDomainConfig())
	require.NoError(t, err)
	c.MarkEventsAsCommitted()
	return c
}

func TestAddAndGet(t *testing.T) {
	s := newTestStore()
	c := newTestCard(t, "proj-1", 100, 100)

	require.NoError(t, s.Add(c))

	got, err := s.Get(c.ID().String())
	require.NoError(t, err)
	assert.Equal(t, c.ID().String(), got.ID().String())

	t.Run("duplicate add conflicts", func(t *testing.T) {
		err := s.Add(c)
		assert.True(t, pkgerrors.IsConflict(err))
	})

	t.Run("unknown card is not found", func(t *testing.T) {
		_, err := s.Get(uuid.New().String())
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

func TestListByQuadrant(t *testing.T) {
	s := newTestStore()
	quick := newTestCard(t, "proj-1", 400, 400)
	bet := newTestCard(t, "proj-1", 100, 400)
	other := newTestCard(t, "proj-2", 400, 400)

	require.NoError(t, s.Add(quick))
	require.NoError(t, s.Add(bet))
	require.NoError(t, s.Add(other))

	grouped := s.ListByQuadrant("proj-1")
	assert.Len(t, grouped[matrix.QuadrantQuickWins], 1)
	assert.Len(t, grouped[matrix.QuadrantBigBets], 1)
	assert.Empty(t, grouped[matrix.QuadrantThankless])

	assert.Len(t, s.List("proj-1"), 2)
	assert.Len(t, s.List("proj-2"), 1)
}

func TestApplyCommit(t *testing.T) {
	s := newTestStore()
	c := newTestCard(t, "proj-1", 100, 100)
	require.NoError(t, s.Add(c))

	newPos, _ := matrix.NewPosition(300, 420)
	result := ports.SaveResult{Status: ports.SaveCommitted, NewUpdatedAt: time.Now().Add(time.Second)}

	require.NoError(t, s.ApplyCommit(c.ID().String(), newPos, result, "alice"))

	got, _ := s.Get(c.ID().String())
	assert.True(t, got.Position().Equals(newPos))
	assert.Equal(t, result.NewUpdatedAt, got.UpdatedAt())

	t.Run("superseded by a newer remote record", func(t *testing.T) {
		// A remote collaborator's record lands while our save is in flight,
		// with a timestamp past our commit's. The remote state is the
		// durable one and must survive the late ApplyCommit.
		remoteAt := got.UpdatedAt().Add(time.Minute)
		snap := ports.CardSnapshot{
			ID:        c.ID().String(),
			ProjectID: c.ProjectID(),
			Content:   "remote content",
			X:         480,
			Y:         40,
			Priority:  "high",
			UpdatedAt: remoteAt,
			CreatedAt: c.CreatedAt(),
		}
		_, applied, err := s.UpsertFromRemote(snap)
		require.NoError(t, err)
		require.True(t, applied)

		lateCommit := ports.SaveResult{Status: ports.SaveCommitted, NewUpdatedAt: remoteAt.Add(-time.Second)}
		latePos, _ := matrix.NewPosition(10, 10)
		require.NoError(t, s.ApplyCommit(c.ID().String(), latePos, lateCommit, "alice"))

		current, _ := s.Get(c.ID().String())
		assert.Equal(t, 480.0, current.Position().X())
		assert.Equal(t, remoteAt, current.UpdatedAt())
	})
}

func TestUpsertFromRemote(t *testing.T) {
	s := newTestStore()
	local := newTestCard(t, "proj-1", 100, 100)
	require.NoError(t, s.Add(local))

	snapshotFor := func(c *card.IdeaCard, x, y float64, at time.Time) ports.CardSnapshot {
		return ports.CardSnapshot{
			ID:        c.ID().String(),
			ProjectID: c.ProjectID(),
			Content:   "remote content",
			X:         x,
			Y:         y,
			Priority:  "high",
			UpdatedAt: at,
			CreatedAt: c.CreatedAt(),
		}
	}

	t.Run("newer remote record wins", func(t *testing.T) {
		snap := snapshotFor(local, 450, 60, local.UpdatedAt().Add(time.Second))
		got, applied, err := s.UpsertFromRemote(snap)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, 450.0, got.Position().X())
		assert.Equal(t, "remote content", got.Content())
	})

	t.Run("stale remote record is dropped", func(t *testing.T) {
		current, _ := s.Get(local.ID().String())
		before := current.Position()

		snap := snapshotFor(local, 10, 10, current.UpdatedAt().Add(-time.Minute))
		_, applied, err := s.UpsertFromRemote(snap)
		require.NoError(t, err)
		assert.False(t, applied)
		assert.True(t, current.Position().Equals(before))
	})

	t.Run("equal timestamp is dropped too", func(t *testing.T) {
		current, _ := s.Get(local.ID().String())
		snap := snapshotFor(local, 10, 10, current.UpdatedAt())
		_, applied, err := s.UpsertFromRemote(snap)
		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("unknown card is created", func(t *testing.T) {
		id := uuid.New().String()
		snap := ports.CardSnapshot{
			ID:        id,
			ProjectID: "proj-1",
			Content:   "brand new",
			X:         600, // out of bounds, must be clamped on entry
			Y:         -5,
			Priority:  "low",
			UpdatedAt: time.Now(),
			CreatedAt: time.Now(),
		}
		got, applied, err := s.UpsertFromRemote(snap)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, 520.0, got.Position().X())
		assert.Equal(t, 0.0, got.Position().Y())

		_, err = s.Get(id)
		assert.NoError(t, err)
	})
}

func TestRemove(t *testing.T) {
	s := newTestStore()
	c := newTestCard(t, "proj-1", 100, 100)
	c.SetLockedBy("alice")
	require.NoError(t, s.Add(c))

	removed, err := s.Remove(c.ID().String())
	require.NoError(t, err)
	assert.Equal(t, "alice", removed.LockedBy())

	_, err = s.Get(c.ID().String())
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = s.Remove(c.ID().String())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore()
	c := newTestCard(t, "proj-1", 123, 456)
	require.NoError(t, s.Add(c))

	snap := Snapshot(c)
	assert.Equal(t, c.ID().String(), snap.ID)
	assert.Equal(t, 123.0, snap.X)
	assert.Equal(t, 456.0, snap.Y)
	assert.Equal(t, "moderate", snap.Priority)
	assert.Equal(t, c.UpdatedAt(), snap.UpdatedAt)
}
