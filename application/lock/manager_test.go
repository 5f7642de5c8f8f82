package lock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(lease time.Duration) *Manager {
	return NewManager(lease, zap.NewNop())
}

func TestAcquireAndRelease(t *testing.T) {
	m := newTestManager(90 * time.Second)

	t.Run("first acquire wins", func(t *testing.T) {
		res := m.Acquire("card-1", "alice")
		assert.True(t, res.Granted)

		owner, locked := m.IsLocked("card-1")
		assert.True(t, locked)
		assert.Equal(t, "alice", owner)
	})

	t.Run("second collaborator is denied with the holder's identity", func(t *testing.T) {
		res := m.Acquire("card-1", "bob")
		assert.False(t, res.Granted)
		assert.Equal(t, "alice", res.HeldBy)
	})

	t.Run("re-acquire by holder is idempotent", func(t *testing.T) {
		res := m.Acquire("card-1", "alice")
		assert.True(t, res.Granted)
	})

	t.Run("release by non-holder is a no-op", func(t *testing.T) {
		assert.Equal(t, NotHeldByYou, m.Release("card-1", "bob"))
		_, locked := m.IsLocked("card-1")
		assert.True(t, locked)
	})

	t.Run("release by holder frees the lock", func(t *testing.T) {
		assert.Equal(t, Released, m.Release("card-1", "alice"))
		_, locked := m.IsLocked("card-1")
		assert.False(t, locked)
	})

	t.Run("release of an unheld lock is a no-op", func(t *testing.T) {
		assert.Equal(t, NotHeldByYou, m.Release("card-2", "alice"))
	})
}

func TestLocksAreIndependentPerCard(t *testing.T) {
	m := newTestManager(90 * time.Second)

	require.True(t, m.Acquire("card-1", "alice").Granted)
	require.True(t, m.Acquire("card-2", "bob").Granted)

	assert.False(t, m.Acquire("card-1", "bob").Granted)
	assert.False(t, m.Acquire("card-2", "alice").Granted)
}

func TestMutualExclusionUnderContention(t *testing.T) {
	m := newTestManager(90 * time.Second)

	const goroutines = 32
	granted := make([]bool, goroutines)
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			granted[i] = m.Acquire("card-1", string(rune('a'+i))).Granted
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, g := range granted {
		if g {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one collaborator may hold the lock")
}

func TestLeaseExpiry(t *testing.T) {
	m := newTestManager(90 * time.Second)

	now := time.Now()
	m.SetClock(func() time.Time { return now })

	require.True(t, m.Acquire("card-1", "alice").Granted)

	t.Run("expired lease reads unlocked", func(t *testing.T) {
		now = now.Add(91 * time.Second)
		_, locked := m.IsLocked("card-1")
		assert.False(t, locked)
	})

	t.Run("another collaborator can take an expired lock", func(t *testing.T) {
		res := m.Acquire("card-1", "bob")
		assert.True(t, res.Granted)
	})

	t.Run("re-acquire renews the lease", func(t *testing.T) {
		now = now.Add(60 * time.Second)
		require.True(t, m.Acquire("card-1", "bob").Granted)

		// Another minute passes; without the renewal the original lease
		// would have expired by now.
		now = now.Add(60 * time.Second)
		owner, locked := m.IsLocked("card-1")
		assert.True(t, locked)
		assert.Equal(t, "bob", owner)
	})
}

func TestSweep(t *testing.T) {
	m := newTestManager(90 * time.Second)

	now := time.Now()
	m.SetClock(func() time.Time { return now })

	require.True(t, m.Acquire("card-1", "alice").Granted)
	require.True(t, m.Acquire("card-2", "bob").Granted)

	now = now.Add(45 * time.Second)
	require.True(t, m.Acquire("card-2", "bob").Granted) // renews card-2 only

	now = now.Add(50 * time.Second) // card-1 lease is gone, card-2 still live
	expired := m.Sweep()

	require.Len(t, expired, 1)
	assert.Equal(t, "card-1", expired[0].CardID)
	assert.Equal(t, "alice", expired[0].Owner)

	_, locked := m.IsLocked("card-2")
	assert.True(t, locked)
}
