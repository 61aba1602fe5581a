package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/velora/nightpulse/internal/model"
)

func drain(b *Bridge) []Notification {
	var out []Notification
	for {
		select {
		case n := <-b.Notifications():
			out = append(out, n)
		default:
			return out
		}
	}
}

func chatEvent(t *testing.T, kind string, c model.Chat, senderID uint64) ChangeEvent {
	t.Helper()
	raw, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal chat: %v", err)
	}
	// Splice in the sender the way the gateway's change row carries it.
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal chat: %v", err)
	}
	m["sender_id"] = senderID
	raw, err = json.Marshal(m)
	if err != nil {
		t.Fatalf("remarshal chat: %v", err)
	}
	return ChangeEvent{Table: TableChats, Kind: kind, Row: raw}
}

func TestApplyChatInsertNotifiesCounterpart(t *testing.T) {
	b := NewBridge(2, NewLiveCache())
	chat := model.Chat{ID: "2_9", UserID: 2, TargetID: 9, LastMessage: "see you there"}

	assert.Equal(t, b.Apply(chatEvent(t, KindInsert, chat, 9)), nil)
	assert.Equal(t, b.cache.ChatsStale(), true)

	notes := drain(b)
	assert.Equal(t, len(notes), 2)
	_, isListChange := notes[0].(ChatListChanged)
	assert.Equal(t, isListChange, true)
	msg, isMsg := notes[1].(NewMessage)
	assert.Equal(t, isMsg, true)
	assert.Equal(t, msg.ChatID, "2_9")
	assert.Equal(t, msg.SenderID, uint64(9))
	assert.Equal(t, msg.Preview, "see you there")
}

func TestApplyChatInsertSelfAuthored(t *testing.T) {
	b := NewBridge(2, NewLiveCache())
	chat := model.Chat{ID: "2_9", UserID: 2, TargetID: 9, LastMessage: "on my way"}

	assert.Equal(t, b.Apply(chatEvent(t, KindInsert, chat, 2)), nil)

	// Own messages refresh the list but never raise NewMessage.
	notes := drain(b)
	assert.Equal(t, len(notes), 1)
	_, isListChange := notes[0].(ChatListChanged)
	assert.Equal(t, isListChange, true)
}

func TestApplyChatChangeForOtherPairIgnored(t *testing.T) {
	b := NewBridge(2, NewLiveCache())
	chat := model.Chat{ID: "5_9", UserID: 5, TargetID: 9}

	assert.Equal(t, b.Apply(chatEvent(t, KindUpdate, chat, 9)), nil)
	assert.Equal(t, b.cache.ChatsStale(), false)
	assert.Equal(t, len(drain(b)), 0)
}

func TestApplyFriendRequestInsert(t *testing.T) {
	b := NewBridge(2, NewLiveCache())
	row, _ := json.Marshal(model.FriendRequest{ID: 4, SenderID: 9, ReceiverID: 2, Status: model.RequestPending})

	assert.Equal(t, b.Apply(ChangeEvent{Table: TableFriendRequests, Kind: KindInsert, Row: row}), nil)
	notes := drain(b)
	assert.Equal(t, len(notes), 1)
	fr, ok := notes[0].(FriendRequestReceived)
	assert.Equal(t, ok, true)
	assert.Equal(t, fr.RequestID, uint64(4))
	assert.Equal(t, fr.SenderID, uint64(9))

	// Requests addressed to someone else stay silent.
	row, _ = json.Marshal(model.FriendRequest{ID: 5, SenderID: 9, ReceiverID: 3})
	assert.Equal(t, b.Apply(ChangeEvent{Table: TableFriendRequests, Kind: KindInsert, Row: row}), nil)
	assert.Equal(t, len(drain(b)), 0)
}

func TestApplyPlaceUpdateToastsOwnReadyCall(t *testing.T) {
	b := NewBridge(7, NewLiveCache())
	b.cache.SetVenues([]model.Venue{{ID: 1, Name: "Klub Ost"}})

	venue := model.Venue{
		ID:   1,
		Name: "Klub Ost",
		ActiveCalls: []model.StaffCall{
			{ID: "c1", UserID: 7, Category: model.CallOrder, Status: model.CallReady},
			{ID: "c2", UserID: 9, Category: model.CallBill, Status: model.CallReady},
		},
	}
	row, _ := json.Marshal(venue)
	ev := ChangeEvent{Table: TablePlaces, Kind: KindUpdate, Row: row}

	assert.Equal(t, b.Apply(ev), nil)
	notes := drain(b)
	// Only the session's own call toasts; the other guest's does not.
	assert.Equal(t, len(notes), 1)
	toast, ok := notes[0].(ToastAlert)
	assert.Equal(t, ok, true)
	assert.Equal(t, toast.Message, "your order request at Klub Ost is ready")

	// Redelivery of the same status does not re-toast.
	assert.Equal(t, b.Apply(ev), nil)
	assert.Equal(t, len(drain(b)), 0)

	// The next status change toasts again.
	venue.ActiveCalls[0].Status = model.CallDone
	row, _ = json.Marshal(venue)
	assert.Equal(t, b.Apply(ChangeEvent{Table: TablePlaces, Kind: KindUpdate, Row: row}), nil)
	assert.Equal(t, len(drain(b)), 1)
}

func TestApplyUnknownTableIgnored(t *testing.T) {
	b := NewBridge(2, NewLiveCache())
	assert.Equal(t, b.Apply(ChangeEvent{Table: "unknown", Kind: KindInsert, Row: json.RawMessage(`{}`)}), nil)
}

func TestCloseInterruptsReconnectWait(t *testing.T) {
	b := NewBridge(1, NewLiveCache())
	b.Close()

	start := time.Now()
	assert.Equal(t, b.pause(time.Hour), false)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("pause did not return promptly after close: %s", elapsed)
	}
}
