package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/velora/nightpulse/internal/localcache"
	"github.com/velora/nightpulse/internal/model"
	"github.com/velora/nightpulse/internal/realtime"
	"github.com/velora/nightpulse/internal/repository"
)

func checkInFixture(points int) (*fakeProfiles, *fakePlaces) {
	profiles := &fakeProfiles{
		get: func(_ context.Context, id uint64) (*model.Profile, error) {
			return &model.Profile{ID: id, Name: "Nina", Points: points, Level: model.LevelFor(points)}, nil
		},
	}
	places := &fakePlaces{
		getByID: func(_ context.Context, id uint64) (*model.Venue, error) {
			return &model.Venue{ID: id, Name: "Klub Ost", PeopleCount: 40, CapacityPercentage: 80}, nil
		},
	}
	return profiles, places
}

func TestCheckInAwardsXPAndLevelsUp(t *testing.T) {
	ctx := context.Background()
	profiles, places := checkInFixture(480)

	var applied *model.Profile
	checkIns := &fakeCheckIns{
		apply: func(_ context.Context, p *model.Profile, item *model.FeedItem, placeID uint64, step int) error {
			applied = p
			item.ID = 11
			assert.Equal(t, placeID, uint64(1))
			assert.Equal(t, step, 1)
			return nil
		},
	}
	g, _, sink, notes := testGateway(Stores{Profiles: profiles, Places: places, CheckIns: checkIns})

	res, err := g.CheckIn(ctx, 7, 1)
	assert.Equal(t, err, nil)
	assert.Equal(t, res.XPAwarded, 50)
	assert.Equal(t, res.Profile.Points, 530)
	assert.Equal(t, res.Profile.Level, 2)
	assert.Equal(t, res.LeveledUp, true)

	// Latest check-in lands at the front of the history.
	assert.Equal(t, len(res.Profile.History), 1)
	assert.Equal(t, res.Profile.History[0].PlaceName, "Klub Ost")
	assert.Equal(t, res.Profile.History[0].XP, 50)

	// The transaction saw the already-computed optimistic profile.
	assert.Equal(t, applied.Points, 530)

	// Exactly one level-up notification.
	ups := 0
	for _, n := range notes.notes {
		if _, ok := n.(realtime.LevelUp); ok {
			ups++
		}
	}
	assert.Equal(t, ups, 1)

	// Feed insert and venue update fan out to live sessions.
	assert.Equal(t, len(sink.events), 2)
	assert.Equal(t, sink.events[0].Table, realtime.TableFeed)
	assert.Equal(t, sink.events[0].Kind, realtime.KindInsert)
	assert.Equal(t, sink.events[1].Table, realtime.TablePlaces)
	assert.Equal(t, sink.events[1].Kind, realtime.KindUpdate)
}

func TestCheckInNoLevelUpMidLevel(t *testing.T) {
	ctx := context.Background()
	profiles, places := checkInFixture(100)
	checkIns := &fakeCheckIns{
		apply: func(context.Context, *model.Profile, *model.FeedItem, uint64, int) error { return nil },
	}
	g, _, _, notes := testGateway(Stores{Profiles: profiles, Places: places, CheckIns: checkIns})

	res, err := g.CheckIn(ctx, 7, 1)
	assert.Equal(t, err, nil)
	assert.Equal(t, res.Profile.Points, 150)
	assert.Equal(t, res.Profile.Level, 1)
	assert.Equal(t, res.LeveledUp, false)
	assert.Equal(t, len(notes.notes), 0)
}

func TestCheckInDiscardsOptimisticResultOnFailure(t *testing.T) {
	ctx := context.Background()
	profiles, places := checkInFixture(480)
	checkIns := &fakeCheckIns{
		apply: func(context.Context, *model.Profile, *model.FeedItem, uint64, int) error {
			return errors.New("deadlock")
		},
	}
	g, cache, sink, notes := testGateway(Stores{Profiles: profiles, Places: places, CheckIns: checkIns})

	// Pre-existing snapshots must survive a failed check-in untouched.
	cache.Save(ctx, localcache.KeyVenues, []byte(`[{"id":1}]`))
	cache.Save(ctx, localcache.KeyFeed, []byte(`[]`))

	res, err := g.CheckIn(ctx, 7, 1)
	assert.Equal(t, res, (*CheckInResult)(nil))
	assert.Equal(t, err == nil, false)

	assert.Equal(t, len(sink.events), 0)
	assert.Equal(t, len(notes.notes), 0)
	assert.Equal(t, cache.Get(ctx, localcache.KeyVenues, nil), []byte(`[{"id":1}]`))
	assert.Equal(t, cache.Get(ctx, localcache.KeyFeed, nil), []byte(`[]`))
}

func TestCheckInMirrorsCountersWhenReReadFails(t *testing.T) {
	ctx := context.Background()
	profiles, _ := checkInFixture(0)

	reads := 0
	places := &fakePlaces{
		getByID: func(_ context.Context, id uint64) (*model.Venue, error) {
			reads++
			if reads > 1 {
				return nil, errors.New("down")
			}
			return &model.Venue{ID: id, Name: "Klub Ost", PeopleCount: 40, CapacityPercentage: 99}, nil
		},
	}
	checkIns := &fakeCheckIns{
		apply: func(context.Context, *model.Profile, *model.FeedItem, uint64, int) error { return nil },
	}
	g, _, _, _ := testGateway(Stores{Profiles: profiles, Places: places, CheckIns: checkIns})

	res, err := g.CheckIn(ctx, 7, 1)
	assert.Equal(t, err, nil)
	assert.Equal(t, res.Venue.PeopleCount, 41)
	// The local mirror clamps like the SQL does.
	assert.Equal(t, res.Venue.CapacityPercentage, 100)
}

func TestCheckInUnknownVenue(t *testing.T) {
	ctx := context.Background()
	profiles, _ := checkInFixture(0)
	places := &fakePlaces{
		getByID: func(context.Context, uint64) (*model.Venue, error) {
			return nil, repository.ErrPlaceNotFound
		},
	}
	g, _, _, _ := testGateway(Stores{Profiles: profiles, Places: places})

	_, err := g.CheckIn(ctx, 7, 99)
	assert.Equal(t, errors.Is(err, repository.ErrPlaceNotFound), true)
}
