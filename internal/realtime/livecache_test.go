package realtime

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/velora/nightpulse/internal/model"
)

func TestApplyVenueUpdateShallowMerge(t *testing.T) {
	lc := NewLiveCache()
	lc.SetVenues([]model.Venue{{
		ID:                 1,
		Name:               "Klub Ost",
		PeopleCount:        40,
		CapacityPercentage: 80,
		Tags:               []string{"techno", "dark"},
	}})

	// Partial payload: only the counters move, everything else stays.
	row := json.RawMessage(`{"id":1,"people_count":55,"capacity_percentage":91}`)
	assert.Equal(t, lc.ApplyVenueUpdate(row), nil)

	got := lc.Venues()[0]
	assert.Equal(t, got.Name, "Klub Ost")
	assert.Equal(t, got.PeopleCount, 55)
	assert.Equal(t, got.CapacityPercentage, 91)
	assert.Equal(t, got.Tags, []string{"techno", "dark"})

	// Redelivery of the same payload is a no-op.
	assert.Equal(t, lc.ApplyVenueUpdate(row), nil)
	assert.Equal(t, lc.Venues()[0], got)
}

func TestApplyVenueUpdateUnknownIDIgnored(t *testing.T) {
	lc := NewLiveCache()
	lc.SetVenues([]model.Venue{{ID: 1, Name: "Klub Ost"}})

	assert.Equal(t, lc.ApplyVenueUpdate(json.RawMessage(`{"id":99,"name":"Ghost"}`)), nil)
	assert.Equal(t, len(lc.Venues()), 1)
	assert.Equal(t, lc.Venues()[0].Name, "Klub Ost")
}

func TestApplyVenueInsertDeduplicates(t *testing.T) {
	lc := NewLiveCache()
	lc.SetVenues([]model.Venue{{ID: 1, Name: "Klub Ost"}})

	row := json.RawMessage(`{"id":2,"name":"Bar Neon"}`)
	assert.Equal(t, lc.ApplyVenueInsert(row), nil)
	assert.Equal(t, len(lc.Venues()), 2)
	// New venues land at the front.
	assert.Equal(t, lc.Venues()[0].Name, "Bar Neon")

	// Redelivered insert does not duplicate.
	assert.Equal(t, lc.ApplyVenueInsert(row), nil)
	assert.Equal(t, len(lc.Venues()), 2)
}

func TestApplyVenueDelete(t *testing.T) {
	lc := NewLiveCache()
	lc.SetVenues([]model.Venue{{ID: 1}, {ID: 2}})

	assert.Equal(t, lc.ApplyVenueDelete(json.RawMessage(`{"id":1}`)), nil)
	assert.Equal(t, len(lc.Venues()), 1)
	assert.Equal(t, lc.Venues()[0].ID, uint64(2))

	// Deleting an absent id is a no-op.
	assert.Equal(t, lc.ApplyVenueDelete(json.RawMessage(`{"id":1}`)), nil)
	assert.Equal(t, len(lc.Venues()), 1)
}

func TestApplyFeedInsert(t *testing.T) {
	lc := NewLiveCache()
	lc.SetFeed([]FeedEntry{{FeedItem: model.FeedItem{ID: 1, Action: "older"}}})

	row := json.RawMessage(`{"id":2,"user_name":"Nina","action":"checked in at Klub Ost"}`)
	assert.Equal(t, lc.ApplyFeedInsert(row), nil)

	feed := lc.Feed()
	assert.Equal(t, len(feed), 2)
	assert.Equal(t, feed[0].ID, uint64(2))
	assert.Equal(t, feed[0].RelativeTime, "just now")
	assert.Equal(t, feed[1].Action, "older")

	// Deduplicated by id.
	assert.Equal(t, lc.ApplyFeedInsert(row), nil)
	assert.Equal(t, len(lc.Feed()), 2)
}

func TestChatsStaleClearsOnRead(t *testing.T) {
	lc := NewLiveCache()
	assert.Equal(t, lc.ChatsStale(), false)

	lc.MarkChatsStale()
	assert.Equal(t, lc.ChatsStale(), true)
	assert.Equal(t, lc.ChatsStale(), false)
}

func TestApplyVenueUpdateBadPayload(t *testing.T) {
	lc := NewLiveCache()
	assert.Equal(t, lc.ApplyVenueUpdate(json.RawMessage(`{`)) == nil, false)
}
