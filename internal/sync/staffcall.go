package sync

import (
	"context"
	"time"

	"github.com/velora/nightpulse/internal/localcache"
	"github.com/velora/nightpulse/internal/model"
	"github.com/velora/nightpulse/internal/realtime"
	"github.com/velora/nightpulse/internal/repository"
)

// RaiseCall appends a guest's service request to the venue and notifies
// live sessions.
func (g *Gateway) RaiseCall(ctx context.Context, venueID uint64, requester model.Profile, category, callID string) (*model.StaffCall, error) {
	call := model.StaffCall{
		ID:        callID,
		UserID:    requester.ID,
		UserName:  requester.Name,
		Category:  category,
		Status:    model.CallPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := g.stores.Places.AppendCall(ctx, venueID, call); err != nil {
		return nil, err
	}
	g.refreshVenueSnapshot(ctx)
	if v, err := g.stores.Places.GetByID(ctx, venueID); err == nil {
		g.publish(ctx, realtime.TablePlaces, realtime.KindUpdate, v)
	}
	return &call, nil
}

// TransitionCall moves a staff call along pending→preparing→ready→done
// on behalf of the venue owner. The local venue snapshot is patched
// optimistically before the remote write; if the write fails, the
// snapshot is rolled back to the pre-transition value and the error
// surfaces, so the dashboard never shows a status the remote store
// rejected.
func (g *Gateway) TransitionCall(ctx context.Context, venueID, ownerID uint64, callID, to string) (*model.Venue, error) {
	v, err := g.stores.Places.GetByIDAndOwner(ctx, venueID, ownerID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range v.ActiveCalls {
		if v.ActiveCalls[i].ID == callID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrCallNotFound
	}
	if !model.ValidCallTransition(v.ActiveCalls[idx].Status, to) {
		return nil, ErrInvalidTransition
	}

	newCalls := append([]model.StaffCall(nil), v.ActiveCalls...)
	newCalls[idx].Status = to

	// Optimistic local update: patch the snapshot now, keep the old
	// bytes so a failed remote write can restore them.
	prev := g.cache.Get(ctx, localcache.KeyVenues, nil)
	patched := *v
	patched.ActiveCalls = newCalls
	g.patchVenueSnapshot(ctx, patched)

	if err := g.stores.Places.UpdateCalls(ctx, venueID, ownerID, newCalls); err != nil {
		if prev != nil {
			g.cache.Save(ctx, localcache.KeyVenues, prev)
		} else {
			g.cache.Remove(ctx, localcache.KeyVenues)
		}
		return nil, err
	}

	v.ActiveCalls = newCalls
	g.publish(ctx, realtime.TablePlaces, realtime.KindUpdate, v)
	return v, nil
}

// DeleteCall removes a finished call. Only the requester may delete it,
// and only once it reached done.
func (g *Gateway) DeleteCall(ctx context.Context, venueID, userID uint64, callID string) error {
	v, err := g.stores.Places.GetByID(ctx, venueID)
	if err != nil {
		return err
	}
	remaining := make([]model.StaffCall, 0, len(v.ActiveCalls))
	found := false
	for _, c := range v.ActiveCalls {
		if c.ID == callID {
			found = true
			if c.UserID != userID {
				return repository.ErrForbidden
			}
			if c.Status != model.CallDone {
				return ErrCallNotDone
			}
			continue
		}
		remaining = append(remaining, c)
	}
	if !found {
		return ErrCallNotFound
	}
	if err := g.stores.Places.Patch(ctx, venueID, model.VenuePatch{ActiveCalls: &remaining}); err != nil {
		return err
	}
	g.refreshVenueSnapshot(ctx)
	v.ActiveCalls = remaining
	g.publish(ctx, realtime.TablePlaces, realtime.KindUpdate, v)
	return nil
}

// patchVenueSnapshot replaces one venue inside the cached venue list.
func (g *Gateway) patchVenueSnapshot(ctx context.Context, v model.Venue) {
	var venues []model.Venue
	if !g.loadSnapshot(ctx, localcache.KeyVenues, &venues) {
		return
	}
	for i := range venues {
		if venues[i].ID == v.ID {
			venues[i] = v
			g.saveSnapshot(ctx, localcache.KeyVenues, venues)
			return
		}
	}
}
