// Package realtime bridges backend change notifications into live
// in-memory state. Writers publish row-level ChangeEvents to a fanout
// exchange; every active session runs a Bridge that consumes them and
// incrementally patches its LiveCache instead of refetching, raising
// typed Notifications for cross-cutting effects.
package realtime

import "encoding/json"

// Change kinds.
const (
	KindInsert = "insert"
	KindUpdate = "update"
	KindDelete = "delete"
)

// Tables carried over the change channel.
const (
	TablePlaces         = "places"
	TableFeed           = "feed"
	TableChats          = "chats"
	TableFriendRequests = "friend_requests"
)

// ChangeEvent is one row-level change notification. Row carries the
// changed row (or, for updates, at least the changed fields plus the
// id) as JSON; consumers shallow-merge it so absent fields are never
// removed.
type ChangeEvent struct {
	Table string          `json:"table"`
	Kind  string          `json:"kind"` // insert | update | delete
	Row   json.RawMessage `json:"row"`
}

// Notification is the closed set of decoupled cross-cutting effects a
// bridge can raise. Each variant carries a strongly typed payload;
// there is no generic named-event bus.
type Notification interface {
	notification()
}

// ToastAlert asks the UI to show a transient message.
type ToastAlert struct {
	Message string `json:"message"`
}

// NewMessage signals an incoming chat message authored by someone else.
type NewMessage struct {
	ChatID   string `json:"chat_id"`
	SenderID uint64 `json:"sender_id"`
	Preview  string `json:"preview"`
}

// FriendRequestReceived signals a friend request addressed to the
// session identity.
type FriendRequestReceived struct {
	RequestID uint64 `json:"request_id"`
	SenderID  uint64 `json:"sender_id"`
}

// ChatListChanged signals that the session's chat list is stale and
// should be refreshed (badge updates ride on this).
type ChatListChanged struct{}

// LevelUp is the celebratory notification raised when a check-in
// crosses a level boundary. Distinct from the check-in confirmation.
type LevelUp struct {
	UserID uint64 `json:"user_id"`
	Level  int    `json:"level"`
}

func (ToastAlert) notification()            {}
func (NewMessage) notification()            {}
func (FriendRequestReceived) notification() {}
func (ChatListChanged) notification()       {}
func (LevelUp) notification()               {}
