package sync

import (
	"context"
	"encoding/json"
	"log"

	"github.com/velora/nightpulse/internal/localcache"
	"github.com/velora/nightpulse/internal/model"
	"github.com/velora/nightpulse/internal/realtime"
	"github.com/velora/nightpulse/internal/seed"
)

// The gateway depends on narrow store interfaces rather than the
// concrete repositories, so tests can substitute fakes for the remote
// store without a database and without any global state.

type IdentityStore interface {
	Create(ctx context.Context, email, password, role string, cost int, name, avatar string, ownedPlaceID *uint64) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

type ProfileStore interface {
	Get(ctx context.Context, id uint64) (*model.Profile, error)
	Upsert(ctx context.Context, p *model.Profile) error
	Insert(ctx context.Context, p *model.Profile) error
}

type PlaceStore interface {
	ListByOccupancy(ctx context.Context) ([]*model.Venue, error)
	GetByID(ctx context.Context, id uint64) (*model.Venue, error)
	GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*model.Venue, error)
	Patch(ctx context.Context, id uint64, patch model.VenuePatch) error
	UpdateCalls(ctx context.Context, id, ownerID uint64, calls []model.StaffCall) error
	AppendCall(ctx context.Context, id uint64, call model.StaffCall) error
}

type FeedStore interface {
	ListRecent(ctx context.Context, limit int) ([]*model.FeedItem, error)
	Insert(ctx context.Context, f *model.FeedItem) error
}

type ChatStore interface {
	ListForUser(ctx context.Context, userID uint64) ([]*model.Chat, error)
	Upsert(ctx context.Context, c *model.Chat) error
	Messages(ctx context.Context, chatID string) ([]*model.Message, error)
	SendMessage(ctx context.Context, m *model.Message) error
	MarkRead(ctx context.Context, chatID string, readerID uint64) error
}

type FriendStore interface {
	Insert(ctx context.Context, fr *model.FriendRequest) error
	Accept(ctx context.Context, id, receiverID uint64) error
	ListPendingFor(ctx context.Context, receiverID uint64) ([]*model.FriendRequest, error)
}

type CheckInStore interface {
	Apply(ctx context.Context, p *model.Profile, f *model.FeedItem, placeID uint64, capacityStep int) error
}

type LogStore interface {
	VisitsByHour(ctx context.Context, placeID uint64) ([]model.VisitBucket, error)
}

// EventSink receives row-level change events for live sessions. The
// realtime Publisher implements it; tests use a recording fake.
type EventSink interface {
	Publish(ctx context.Context, ev realtime.ChangeEvent) error
}

// Notifier receives session-local typed notifications (level-ups).
type Notifier interface {
	Notify(n realtime.Notification)
}

// Stores bundles the remote store dependencies of a Gateway.
type Stores struct {
	Identities IdentityStore
	Profiles   ProfileStore
	Places     PlaceStore
	Feed       FeedStore
	Chats      ChatStore
	Friends    FriendStore
	CheckIns   CheckInStore
	Logs       LogStore
}

// Gateway unifies reads and writes across the entity namespaces.
type Gateway struct {
	stores   Stores
	cache    *localcache.Cache
	events   EventSink
	notifier Notifier
	retry    RetryPolicy
	bcrypt   int
}

// New constructs a Gateway. events and notifier may be nil; the gateway
// then skips change publishing / notifications.
func New(stores Stores, cache *localcache.Cache, events EventSink, notifier Notifier, retry RetryPolicy, bcryptCost int) *Gateway {
	return &Gateway{
		stores:   stores,
		cache:    cache,
		events:   events,
		notifier: notifier,
		retry:    retry,
		bcrypt:   bcryptCost,
	}
}

// publish sends a change event for live sessions. Publishing is a
// side channel: failures are logged and never fail the write that
// triggered them.
func (g *Gateway) publish(ctx context.Context, table, kind string, row any) {
	if g.events == nil {
		return
	}
	b, err := json.Marshal(row)
	if err != nil {
		log.Printf("sync: marshal change row failed: %v", err)
		return
	}
	if err := g.events.Publish(ctx, realtime.ChangeEvent{Table: table, Kind: kind, Row: b}); err != nil {
		log.Printf("sync: publish %s %s failed: %v", table, kind, err)
	}
}

func (g *Gateway) notify(n realtime.Notification) {
	if g.notifier != nil {
		g.notifier.Notify(n)
	}
}

// ---- Venues ----

// Venues reads the venue list: remote first (ordered by descending
// occupancy), snapshot to cache on success, cache on failure, bundled
// defaults when the cache was never populated. Never returns an error.
func (g *Gateway) Venues(ctx context.Context) []model.Venue {
	remote, err := g.stores.Places.ListByOccupancy(ctx)
	if err == nil {
		out := deref(remote)
		g.saveSnapshot(ctx, localcache.KeyVenues, out)
		return out
	}
	log.Printf("sync: remote venue read failed, serving cache: %v", err)
	var cached []model.Venue
	if g.loadSnapshot(ctx, localcache.KeyVenues, &cached) {
		return cached
	}
	return seed.DefaultVenues()
}

// Venue reads a single venue from the remote store.
func (g *Gateway) Venue(ctx context.Context, id uint64) (*model.Venue, error) {
	return g.stores.Places.GetByID(ctx, id)
}

// OwnerVenue reads a venue scoped to its owner. Returns ErrForbidden
// when the venue belongs to someone else.
func (g *Gateway) OwnerVenue(ctx context.Context, id, ownerID uint64) (*model.Venue, error) {
	return g.stores.Places.GetByIDAndOwner(ctx, id, ownerID)
}

// PatchVenue applies a partial venue update on behalf of its owner and
// publishes the change. Only fields present in the patch are written.
func (g *Gateway) PatchVenue(ctx context.Context, id, ownerID uint64, patch model.VenuePatch) (*model.Venue, error) {
	if _, err := g.stores.Places.GetByIDAndOwner(ctx, id, ownerID); err != nil {
		return nil, err
	}
	if patch.CapacityPercentage != nil {
		clamped := model.ClampCapacity(*patch.CapacityPercentage)
		patch.CapacityPercentage = &clamped
	}
	if err := g.stores.Places.Patch(ctx, id, patch); err != nil {
		return nil, err
	}
	v, err := g.stores.Places.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	g.refreshVenueSnapshot(ctx)
	g.publish(ctx, realtime.TablePlaces, realtime.KindUpdate, v)
	return v, nil
}

// VisitsByHour aggregates check-in events for the owner dashboard.
func (g *Gateway) VisitsByHour(ctx context.Context, placeID uint64) ([]model.VisitBucket, error) {
	return g.stores.Logs.VisitsByHour(ctx, placeID)
}

// ---- Feed ----

// Feed reads the feed, most recent first, with the same degrade-to-
// cache contract as Venues. An empty feed is a valid result.
func (g *Gateway) Feed(ctx context.Context, limit int) []model.FeedItem {
	remote, err := g.stores.Feed.ListRecent(ctx, limit)
	if err == nil {
		out := deref(remote)
		g.saveSnapshot(ctx, localcache.KeyFeed, out)
		return out
	}
	log.Printf("sync: remote feed read failed, serving cache: %v", err)
	var cached []model.FeedItem
	if g.loadSnapshot(ctx, localcache.KeyFeed, &cached) {
		return cached
	}
	return []model.FeedItem{}
}

// ---- Chats ----

// Chats reads the identity's chat list with cache fallback.
func (g *Gateway) Chats(ctx context.Context, userID uint64) []model.Chat {
	key := localcache.Key(localcache.KeyChats, userID)
	remote, err := g.stores.Chats.ListForUser(ctx, userID)
	if err == nil {
		out := deref(remote)
		g.saveSnapshot(ctx, key, out)
		return out
	}
	log.Printf("sync: remote chat read failed, serving cache: %v", err)
	var cached []model.Chat
	if g.loadSnapshot(ctx, key, &cached) {
		return cached
	}
	return []model.Chat{}
}

// StartChat upserts the chat row for the identity pair. Both sides
// derive the same deterministic id, so whichever side calls first
// creates the row and the other converges on it.
func (g *Gateway) StartChat(ctx context.Context, me, them model.Profile) (*model.Chat, error) {
	a, b := me, them
	if b.ID < a.ID {
		a, b = b, a
	}
	c := &model.Chat{
		ID:           model.ChatID(me.ID, them.ID),
		UserID:       a.ID,
		TargetID:     b.ID,
		UserName:     a.Name,
		UserAvatar:   a.Avatar,
		TargetName:   b.Name,
		TargetAvatar: b.Avatar,
	}
	if err := g.stores.Chats.Upsert(ctx, c); err != nil {
		return nil, err
	}
	g.cache.Remove(ctx, localcache.Key(localcache.KeyChats, me.ID))
	return c, nil
}

// Messages reads a conversation oldest first.
func (g *Gateway) Messages(ctx context.Context, chatID string) ([]*model.Message, error) {
	return g.stores.Chats.Messages(ctx, chatID)
}

// SendMessage persists the message and the parent chat summary
// atomically, then publishes a chat insert event carrying the sender so
// the counterpart's session can raise its new-message notification.
func (g *Gateway) SendMessage(ctx context.Context, chatID string, senderID uint64, content string) (*model.Message, error) {
	m := &model.Message{ChatID: chatID, SenderID: senderID, Content: content}
	if err := g.stores.Chats.SendMessage(ctx, m); err != nil {
		return nil, err
	}
	g.cache.Remove(ctx, localcache.Key(localcache.KeyChats, senderID))
	low, high := model.SplitChatID(chatID)
	g.publish(ctx, realtime.TableChats, realtime.KindInsert, chatChangeRow{
		ID:          chatID,
		UserID:      low,
		TargetID:    high,
		LastMessage: content,
		SenderID:    senderID,
	})
	return m, nil
}

// MarkChatRead clears the unread state for the reader.
func (g *Gateway) MarkChatRead(ctx context.Context, chatID string, readerID uint64) error {
	if err := g.stores.Chats.MarkRead(ctx, chatID, readerID); err != nil {
		return err
	}
	g.cache.Remove(ctx, localcache.Key(localcache.KeyChats, readerID))
	return nil
}

// ---- Friend requests ----

// SendFriendRequest inserts a pending request and publishes the change
// so the receiver's session raises its notification.
func (g *Gateway) SendFriendRequest(ctx context.Context, senderID, receiverID uint64) (*model.FriendRequest, error) {
	fr := &model.FriendRequest{SenderID: senderID, ReceiverID: receiverID}
	if err := g.stores.Friends.Insert(ctx, fr); err != nil {
		return nil, err
	}
	g.publish(ctx, realtime.TableFriendRequests, realtime.KindInsert, fr)
	return fr, nil
}

// AcceptFriendRequest flips a pending request to accepted on behalf of
// its receiver.
func (g *Gateway) AcceptFriendRequest(ctx context.Context, id, receiverID uint64) error {
	if err := g.stores.Friends.Accept(ctx, id, receiverID); err != nil {
		return err
	}
	g.publish(ctx, realtime.TableFriendRequests, realtime.KindUpdate, model.FriendRequest{
		ID: id, ReceiverID: receiverID, Status: model.RequestAccepted,
	})
	return nil
}

// PendingFriendRequests lists requests awaiting the identity's answer.
func (g *Gateway) PendingFriendRequests(ctx context.Context, receiverID uint64) ([]*model.FriendRequest, error) {
	return g.stores.Friends.ListPendingFor(ctx, receiverID)
}

// ---- snapshot helpers ----

func (g *Gateway) saveSnapshot(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("sync: marshal snapshot %s failed: %v", key, err)
		return
	}
	g.cache.Save(ctx, key, b)
}

func (g *Gateway) loadSnapshot(ctx context.Context, key string, out any) bool {
	b := g.cache.Get(ctx, key, nil)
	if b == nil {
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		log.Printf("sync: corrupt snapshot %s dropped: %v", key, err)
		g.cache.Remove(ctx, key)
		return false
	}
	return true
}

// refreshVenueSnapshot re-reads the venue list so the snapshot follows
// a successful write. Best effort.
func (g *Gateway) refreshVenueSnapshot(ctx context.Context) {
	if remote, err := g.stores.Places.ListByOccupancy(ctx); err == nil {
		g.saveSnapshot(ctx, localcache.KeyVenues, deref(remote))
	}
}

func deref[T any](in []*T) []T {
	out := make([]T, 0, len(in))
	for _, p := range in {
		out = append(out, *p)
	}
	return out
}

// chatChangeRow is the wire shape of a chat change event: the chat row
// fields the bridge needs plus the sender for self-authored filtering.
type chatChangeRow struct {
	ID          string `json:"id"`
	UserID      uint64 `json:"user_id"`
	TargetID    uint64 `json:"target_id"`
	LastMessage string `json:"last_message"`
	SenderID    uint64 `json:"sender_id"`
}
