package sync

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/velora/nightpulse/internal/localcache"
	"github.com/velora/nightpulse/internal/model"
	"github.com/velora/nightpulse/internal/repository"
)

func venueWithCall(status string) *model.Venue {
	return &model.Venue{
		ID:   1,
		Name: "Klub Ost",
		ActiveCalls: []model.StaffCall{
			{ID: "c1", UserID: 7, UserName: "Nina", Category: model.CallOrder, Status: status},
		},
	}
}

func TestRaiseCallAppendsPending(t *testing.T) {
	ctx := context.Background()
	var appended model.StaffCall
	places := &fakePlaces{
		appendCall: func(_ context.Context, id uint64, call model.StaffCall) error {
			assert.Equal(t, id, uint64(1))
			appended = call
			return nil
		},
		getByID: func(_ context.Context, id uint64) (*model.Venue, error) { return venueWithCall(model.CallPending), nil },
		list:    func(context.Context) ([]*model.Venue, error) { return nil, errors.New("skip refresh") },
	}
	g, _, _, _ := testGateway(Stores{Places: places})

	call, err := g.RaiseCall(ctx, 1, model.Profile{ID: 7, Name: "Nina"}, model.CallBill, "c9")
	assert.Equal(t, err, nil)
	assert.Equal(t, call.ID, "c9")
	assert.Equal(t, call.Status, model.CallPending)
	assert.Equal(t, appended.UserID, uint64(7))
	assert.Equal(t, appended.Category, model.CallBill)
	assert.Equal(t, appended.CreatedAt.IsZero(), false)
}

func TestTransitionCallRejectsInvalidJump(t *testing.T) {
	ctx := context.Background()
	remoteWrites := 0
	places := &fakePlaces{
		getByIDAndOwner: func(context.Context, uint64, uint64) (*model.Venue, error) {
			return venueWithCall(model.CallPending), nil
		},
		updateCalls: func(context.Context, uint64, uint64, []model.StaffCall) error {
			remoteWrites++
			return nil
		},
	}
	g, _, _, _ := testGateway(Stores{Places: places})

	_, err := g.TransitionCall(ctx, 1, 2, "c1", model.CallReady)
	assert.Equal(t, errors.Is(err, ErrInvalidTransition), true)
	assert.Equal(t, remoteWrites, 0)

	_, err = g.TransitionCall(ctx, 1, 2, "missing", model.CallPreparing)
	assert.Equal(t, errors.Is(err, ErrCallNotFound), true)
}

func TestTransitionCallRevertsSnapshotOnRemoteFailure(t *testing.T) {
	ctx := context.Background()
	places := &fakePlaces{
		getByIDAndOwner: func(context.Context, uint64, uint64) (*model.Venue, error) {
			return venueWithCall(model.CallPending), nil
		},
		updateCalls: func(context.Context, uint64, uint64, []model.StaffCall) error {
			return errors.New("down")
		},
	}
	g, cache, _, _ := testGateway(Stores{Places: places})

	// Seed the snapshot the optimistic patch will touch.
	seedBytes, _ := json.Marshal([]model.Venue{*venueWithCall(model.CallPending)})
	cache.Save(ctx, localcache.KeyVenues, seedBytes)

	_, err := g.TransitionCall(ctx, 1, 2, "c1", model.CallPreparing)
	assert.Equal(t, err == nil, false)

	var venues []model.Venue
	assert.Equal(t, json.Unmarshal(cache.Get(ctx, localcache.KeyVenues, nil), &venues), nil)
	assert.Equal(t, venues[0].ActiveCalls[0].Status, model.CallPending)
}

func TestTransitionCallHappyPath(t *testing.T) {
	ctx := context.Background()
	var written []model.StaffCall
	places := &fakePlaces{
		getByIDAndOwner: func(context.Context, uint64, uint64) (*model.Venue, error) {
			return venueWithCall(model.CallPreparing), nil
		},
		updateCalls: func(_ context.Context, _, _ uint64, calls []model.StaffCall) error {
			written = calls
			return nil
		},
	}
	g, cache, sink, _ := testGateway(Stores{Places: places})

	seedBytes, _ := json.Marshal([]model.Venue{*venueWithCall(model.CallPreparing)})
	cache.Save(ctx, localcache.KeyVenues, seedBytes)

	v, err := g.TransitionCall(ctx, 1, 2, "c1", model.CallReady)
	assert.Equal(t, err, nil)
	assert.Equal(t, v.ActiveCalls[0].Status, model.CallReady)
	assert.Equal(t, written[0].Status, model.CallReady)
	assert.Equal(t, len(sink.events), 1)

	var venues []model.Venue
	assert.Equal(t, json.Unmarshal(cache.Get(ctx, localcache.KeyVenues, nil), &venues), nil)
	assert.Equal(t, venues[0].ActiveCalls[0].Status, model.CallReady)
}

func TestTransitionCallOwnerScoped(t *testing.T) {
	ctx := context.Background()
	places := &fakePlaces{
		getByIDAndOwner: func(context.Context, uint64, uint64) (*model.Venue, error) {
			return nil, repository.ErrPlaceNotFound
		},
	}
	g, _, _, _ := testGateway(Stores{Places: places})

	_, err := g.TransitionCall(ctx, 1, 99, "c1", model.CallPreparing)
	assert.Equal(t, errors.Is(err, repository.ErrPlaceNotFound), true)
}

func TestDeleteCallRules(t *testing.T) {
	ctx := context.Background()
	current := venueWithCall(model.CallPending)
	var patched *model.VenuePatch
	places := &fakePlaces{
		getByID: func(context.Context, uint64) (*model.Venue, error) { return current, nil },
		patch: func(_ context.Context, _ uint64, p model.VenuePatch) error {
			patched = &p
			return nil
		},
		list: func(context.Context) ([]*model.Venue, error) { return nil, errors.New("skip refresh") },
	}
	g, _, _, _ := testGateway(Stores{Places: places})

	// Not done yet.
	err := g.DeleteCall(ctx, 1, 7, "c1")
	assert.Equal(t, errors.Is(err, ErrCallNotDone), true)

	// Someone else's call.
	current = venueWithCall(model.CallDone)
	err = g.DeleteCall(ctx, 1, 8, "c1")
	assert.Equal(t, errors.Is(err, repository.ErrForbidden), true)

	// Unknown id.
	err = g.DeleteCall(ctx, 1, 7, "nope")
	assert.Equal(t, errors.Is(err, ErrCallNotFound), true)

	// Requester deleting a done call succeeds and empties the list.
	err = g.DeleteCall(ctx, 1, 7, "c1")
	assert.Equal(t, err, nil)
	assert.Equal(t, len(*patched.ActiveCalls), 0)
}
