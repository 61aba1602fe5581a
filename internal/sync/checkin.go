package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/velora/nightpulse/internal/localcache"
	"github.com/velora/nightpulse/internal/model"
	"github.com/velora/nightpulse/internal/realtime"
)

// CheckInResult is what a confirmed check-in hands back to the caller.
type CheckInResult struct {
	Profile   *model.Profile `json:"profile"`
	Venue     *model.Venue   `json:"venue"`
	XPAwarded int            `json:"xp_awarded"`
	LeveledUp bool           `json:"leveled_up"`
}

// capacityStepPerCheckIn is how many percentage points one check-in
// adds to a venue's occupancy. The SQL clamp keeps the column at 100.
const capacityStepPerCheckIn = 1

// CheckIn is the representative optimistic mutation: the new points,
// level and history entry are computed client-side first, then the four
// writes (profile, feed item, venue counters, business log) land in one
// transaction. On failure the optimistic result is discarded and the
// error propagates; nothing is left half-applied. Afterwards the venue
// and feed snapshots are invalidated so the next read reflects the new
// state, and change events fan out to live sessions.
func (g *Gateway) CheckIn(ctx context.Context, userID, venueID uint64) (*CheckInResult, error) {
	p, err := g.stores.Profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	v, err := g.stores.Places.GetByID(ctx, venueID)
	if err != nil {
		return nil, err
	}

	// Optimistic computation on copies; the stored rows stay untouched
	// until the transaction commits.
	updated := *p
	oldLevel := model.LevelFor(updated.Points)
	updated.Points += model.XPPerCheckIn
	updated.Level = model.LevelFor(updated.Points)
	updated.History = append([]model.CheckInRecord{{
		PlaceID:   v.ID,
		PlaceName: v.Name,
		XP:        model.XPPerCheckIn,
		At:        time.Now().UTC(),
	}}, updated.History...)

	item := &model.FeedItem{
		UserID:     updated.ID,
		UserName:   updated.Name,
		UserAvatar: updated.Avatar,
		Action:     fmt.Sprintf("checked in at %s", v.Name),
		PlaceName:  v.Name,
	}

	if err := g.stores.CheckIns.Apply(ctx, &updated, item, v.ID, capacityStepPerCheckIn); err != nil {
		return nil, err
	}

	// Reconcile via invalidation: the next read refetches.
	g.cache.Remove(ctx, localcache.KeyVenues)
	g.cache.Remove(ctx, localcache.KeyFeed)
	g.saveSnapshot(ctx, localcache.Key(localcache.KeyProfile, userID), &updated)

	if fresh, err := g.stores.Places.GetByID(ctx, venueID); err == nil {
		v = fresh
	} else {
		// Mirror the counters locally when the re-read is unavailable.
		v.PeopleCount++
		v.CapacityPercentage = model.ClampCapacity(v.CapacityPercentage + capacityStepPerCheckIn)
	}

	g.publish(ctx, realtime.TableFeed, realtime.KindInsert, item)
	g.publish(ctx, realtime.TablePlaces, realtime.KindUpdate, v)

	leveled := updated.Level > oldLevel
	if leveled {
		g.notify(realtime.LevelUp{UserID: updated.ID, Level: updated.Level})
	}
	return &CheckInResult{
		Profile:   &updated,
		Venue:     v,
		XPAwarded: model.XPPerCheckIn,
		LeveledUp: leveled,
	}, nil
}
