package feed

import (
	"sync"

	"priomatrix-backend/application/ports"
)

// ChannelFeed is a RemoteFeed backed by a buffered channel. Whatever
// transport delivers other collaborators' commits (the sync webhook route,
// the in-memory adapter in tests) pushes into it; the engine consumes it
// from a single goroutine so arrival order is preserved.
type ChannelFeed struct {
	mu      sync.Mutex
	changes chan ports.CardSnapshot
	closed  bool
}

// NewChannelFeed creates a feed with the given buffer size
func NewChannelFeed(buffer int) *ChannelFeed {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChannelFeed{changes: make(chan ports.CardSnapshot, buffer)}
}

// Changes implements ports.RemoteFeed
func (f *ChannelFeed) Changes() <-chan ports.CardSnapshot {
	return f.changes
}

// Push delivers a remote record to the consumer. Returns false if the feed
// is closed or full; a full feed drops the record rather than blocking the
// transport.
func (f *ChannelFeed) Push(snapshot ports.CardSnapshot) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	select {
	case f.changes <- snapshot:
		return true
	default:
		return false
	}
}

// Close shuts the feed down
func (f *ChannelFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.closed {
		f.closed = true
		close(f.changes)
	}
}
