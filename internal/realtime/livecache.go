package realtime

import (
	"encoding/json"
	"sync"

	"github.com/velora/nightpulse/internal/model"
)

// FeedEntry is a feed item as held in live memory. RelativeTime is a
// display-only label; realtime inserts arrive as "just now".
type FeedEntry struct {
	model.FeedItem
	RelativeTime string `json:"relative_time,omitempty"`
}

// LiveCache is the in-memory, query-keyed state a session renders from.
// Change notifications patch it incrementally (insert/update/delete)
// instead of forcing a full refetch. All methods are safe for
// concurrent use; the bridge goroutine writes while handlers read.
type LiveCache struct {
	mu        sync.RWMutex
	venues    []model.Venue
	feed      []FeedEntry
	chatStale bool
}

// NewLiveCache returns an empty cache.
func NewLiveCache() *LiveCache {
	return &LiveCache{}
}

// SetVenues replaces the venue list wholesale (initial load).
func (lc *LiveCache) SetVenues(venues []model.Venue) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.venues = append([]model.Venue(nil), venues...)
}

// Venues returns a copy of the current venue list.
func (lc *LiveCache) Venues() []model.Venue {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return append([]model.Venue(nil), lc.venues...)
}

// ApplyVenueInsert prepends the venue unless an entry with the same id
// is already present, so redelivered notifications cannot duplicate.
func (lc *LiveCache) ApplyVenueInsert(row json.RawMessage) error {
	var v model.Venue
	if err := json.Unmarshal(row, &v); err != nil {
		return err
	}
	lc.mu.Lock()
	defer lc.mu.Unlock()
	for i := range lc.venues {
		if lc.venues[i].ID == v.ID {
			return nil
		}
	}
	lc.venues = append([]model.Venue{v}, lc.venues...)
	return nil
}

// ApplyVenueUpdate shallow-merges the payload into the matching entry
// by id: unmarshalling onto a copy of the stored struct overwrites only
// the fields present in the payload, so absent fields are never
// removed. Applying the same payload twice is a no-op the second time.
func (lc *LiveCache) ApplyVenueUpdate(row json.RawMessage) error {
	var partial struct {
		ID uint64 `json:"id"`
	}
	if err := json.Unmarshal(row, &partial); err != nil {
		return err
	}
	lc.mu.Lock()
	defer lc.mu.Unlock()
	for i := range lc.venues {
		if lc.venues[i].ID == partial.ID {
			merged := lc.venues[i]
			if err := json.Unmarshal(row, &merged); err != nil {
				return err
			}
			lc.venues[i] = merged
			return nil
		}
	}
	return nil
}

// ApplyVenueDelete removes the matching entry by id.
func (lc *LiveCache) ApplyVenueDelete(row json.RawMessage) error {
	var partial struct {
		ID uint64 `json:"id"`
	}
	if err := json.Unmarshal(row, &partial); err != nil {
		return err
	}
	lc.mu.Lock()
	defer lc.mu.Unlock()
	for i := range lc.venues {
		if lc.venues[i].ID == partial.ID {
			lc.venues = append(lc.venues[:i], lc.venues[i+1:]...)
			return nil
		}
	}
	return nil
}

// SetFeed replaces the feed wholesale (initial load).
func (lc *LiveCache) SetFeed(items []FeedEntry) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.feed = append([]FeedEntry(nil), items...)
}

// Feed returns a copy of the current feed.
func (lc *LiveCache) Feed() []FeedEntry {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return append([]FeedEntry(nil), lc.feed...)
}

// ApplyFeedInsert prepends a normalized entry with a "just now"
// relative timestamp, deduplicated by id.
func (lc *LiveCache) ApplyFeedInsert(row json.RawMessage) error {
	var f model.FeedItem
	if err := json.Unmarshal(row, &f); err != nil {
		return err
	}
	lc.mu.Lock()
	defer lc.mu.Unlock()
	for i := range lc.feed {
		if lc.feed[i].ID == f.ID {
			return nil
		}
	}
	lc.feed = append([]FeedEntry{{FeedItem: f, RelativeTime: "just now"}}, lc.feed...)
	return nil
}

// MarkChatsStale flags the chat list for refresh on next read.
func (lc *LiveCache) MarkChatsStale() {
	lc.mu.Lock()
	lc.chatStale = true
	lc.mu.Unlock()
}

// ChatsStale reports and clears the staleness flag.
func (lc *LiveCache) ChatsStale() bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	stale := lc.chatStale
	lc.chatStale = false
	return stale
}
