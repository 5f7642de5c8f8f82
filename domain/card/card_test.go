package card

import (
	"strings"
	"testing"
	"time"

	"priomatrix-backend/domain/config"
	"priomatrix-backend/domain/matrix"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPosition(t *testing.T, x, y float64) matrix.Position {
	t.Helper()
	p, err := matrix.NewPosition(x, y)
	require.NoError(t, err)
	return p
}

func TestNewCard(t *testing.T) {
	cfg := config.DefaultDomainConfig()

	t.Run("creates card with clamped position", func(t *testing.T) {
		c, err := NewCard("proj-1", "Ship the thing", "", mustPosition(t, 600, -20), PriorityModerate, cfg)
		require.NoError(t, err)
		assert.Equal(t, 520.0, c.Position().X())
		assert.Equal(t, 0.0, c.Position().Y())
		assert.False(t, c.ID().IsZero())
		assert.Equal(t, "proj-1", c.ProjectID())
	})

	t.Run("raises created event", func(t *testing.T) {
		c, err := NewCard("proj-1", "An idea", "", mustPosition(t, 10, 10), PriorityHigh, cfg)
		require.NoError(t, err)
		events := c.GetUncommittedEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "card.created", events[0].GetEventType())
	})

	t.Run("rejects empty project", func(t *testing.T) {
		_, err := NewCard("", "content", "", mustPosition(t, 0, 0), PriorityModerate, cfg)
		assert.Error(t, err)
	})

	t.Run("rejects empty content", func(t *testing.T) {
		_, err := NewCard("proj-1", "   ", "", mustPosition(t, 0, 0), PriorityModerate, cfg)
		assert.Error(t, err)
	})

	t.Run("rejects oversized content", func(t *testing.T) {
		long := strings.Repeat("x", cfg.MaxContentLength+1)
		_, err := NewCard("proj-1", long, "", mustPosition(t, 0, 0), PriorityModerate, cfg)
		assert.Error(t, err)
	})

	t.Run("rejects unknown priority", func(t *testing.T) {
		_, err := NewCard("proj-1", "content", "", mustPosition(t, 0, 0), Priority("urgent"), cfg)
		assert.Error(t, err)
	})
}

func TestMoveTo(t *testing.T) {
	cfg := config.DefaultDomainConfig()

	t.Run("commits an in-bounds position", func(t *testing.T) {
		c, _ := NewCard("proj-1", "content", "", mustPosition(t, 100, 100), PriorityModerate, cfg)
		c.MarkEventsAsCommitted()

		target := mustPosition(t, 300, 400)
		err := c.MoveTo(target, time.Now(), "collab-1", matrix.QuadrantQuickWins, cfg.MatrixMax)
		require.NoError(t, err)
		assert.True(t, c.Position().Equals(target))

		events := c.GetUncommittedEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "card.moved", events[0].GetEventType())
	})

	t.Run("refuses an out-of-bounds position", func(t *testing.T) {
		c, _ := NewCard("proj-1", "content", "", mustPosition(t, 100, 100), PriorityModerate, cfg)
		err := c.MoveTo(mustPosition(t, 521, 0), time.Now(), "collab-1", matrix.QuadrantIncremental, cfg.MatrixMax)
		assert.Error(t, err)
		assert.Equal(t, 100.0, c.Position().X())
	})
}

func TestUpdatedAtStrictlyIncreases(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	c, _ := NewCard("proj-1", "content", "", mustPosition(t, 100, 100), PriorityModerate, cfg)

	prev := c.UpdatedAt()
	stalled := prev // a commit timestamp not ahead of the current one
	for i := 0; i < 5; i++ {
		err := c.MoveTo(mustPosition(t, 100+float64(i), 100), stalled, "collab-1", matrix.QuadrantThankless, cfg.MatrixMax)
		require.NoError(t, err)
		assert.True(t, c.UpdatedAt().After(prev), "updatedAt must advance even with a stalled clock")
		prev = c.UpdatedAt()
	}
}

func TestUpdateContent(t *testing.T) {
	cfg := config.DefaultDomainConfig()

	t.Run("no-op when unchanged", func(t *testing.T) {
		c, _ := NewCard("proj-1", "same", "details", mustPosition(t, 0, 0), PriorityModerate, cfg)
		c.MarkEventsAsCommitted()
		before := c.UpdatedAt()

		require.NoError(t, c.UpdateContent("same", "details", cfg))
		assert.Equal(t, before, c.UpdatedAt())
		assert.Empty(t, c.GetUncommittedEvents())
	})

	t.Run("bumps timestamp on change", func(t *testing.T) {
		c, _ := NewCard("proj-1", "old", "", mustPosition(t, 0, 0), PriorityModerate, cfg)
		before := c.UpdatedAt()

		require.NoError(t, c.UpdateContent("new", "", cfg))
		assert.True(t, c.UpdatedAt().After(before))
	})
}

func TestSetCollapsedDoesNotTouchTimestamp(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	c, _ := NewCard("proj-1", "content", "", mustPosition(t, 0, 0), PriorityModerate, cfg)
	before := c.UpdatedAt()

	c.SetCollapsed(true)
	assert.True(t, c.IsCollapsed())
	assert.Equal(t, before, c.UpdatedAt())
}

func TestApplyRemote(t *testing.T) {
	cfg := config.DefaultDomainConfig()

	t.Run("overwrites state with remote record", func(t *testing.T) {
		c, _ := NewCard("proj-1", "local", "", mustPosition(t, 100, 100), PriorityModerate, cfg)
		remoteAt := time.Now().Add(time.Second)

		err := c.ApplyRemote("remote", "details", mustPosition(t, 480, 30), PriorityStrategic, true, remoteAt, cfg.MatrixMax)
		require.NoError(t, err)
		assert.Equal(t, "remote", c.Content())
		assert.Equal(t, PriorityStrategic, c.Priority())
		assert.True(t, c.IsCollapsed())
		assert.Equal(t, remoteAt, c.UpdatedAt())
	})

	t.Run("timestamp never moves backwards", func(t *testing.T) {
		c, _ := NewCard("proj-1", "local", "", mustPosition(t, 100, 100), PriorityModerate, cfg)
		before := c.UpdatedAt()

		err := c.ApplyRemote("remote", "", mustPosition(t, 10, 10), PriorityLow, false, before.Add(-time.Hour), cfg.MatrixMax)
		require.NoError(t, err)
		assert.True(t, c.UpdatedAt().After(before))
	})

	t.Run("rejects out-of-bounds remote position", func(t *testing.T) {
		c, _ := NewCard("proj-1", "local", "", mustPosition(t, 100, 100), PriorityModerate, cfg)
		err := c.ApplyRemote("remote", "", mustPosition(t, -1, 0), PriorityLow, false, time.Now(), cfg.MatrixMax)
		assert.Error(t, err)
	})
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityModerate, p)

	p, err = ParsePriority("innovation")
	require.NoError(t, err)
	assert.Equal(t, PriorityInnovation, p)

	_, err = ParsePriority("urgent")
	assert.Error(t, err)
}
