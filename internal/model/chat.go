package model

import (
	"fmt"
	"time"
)

// ChatID derives the deterministic chat identifier for a pair of
// identities. Both participants must arrive at the same id no matter
// which side initiates, so the pair is sorted before formatting. This
// guarantees at most one chat row per pair.
func ChatID(a, b uint64) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%d_%d", a, b)
}

// SplitChatID recovers the identity pair from a chat id. The zero pair
// is returned for malformed ids.
func SplitChatID(id string) (low, high uint64) {
	var a, b uint64
	if _, err := fmt.Sscanf(id, "%d_%d", &a, &b); err != nil {
		return 0, 0
	}
	return a, b
}

// Chat is a row in the `chats` table: a two-party conversation with
// denormalized counterpart display fields so each side can render the
// chat list without extra lookups.
//
// Fields:
//  ID           – deterministic pair id (see ChatID).
//  UserID       – the lower identity of the pair.
//  TargetID     – the higher identity of the pair.
//  UserName     – display name of UserID.
//  UserAvatar   – avatar of UserID.
//  TargetName   – display name of TargetID.
//  TargetAvatar – avatar of TargetID.
//  LastMessage  – text of the most recent message.
//  UnreadCount  – unread messages for the side that did not send last.
//  UpdatedAt    – bumped on every message send.
type Chat struct {
	ID           string    `json:"id"`
	UserID       uint64    `json:"user_id"`
	TargetID     uint64    `json:"target_id"`
	UserName     string    `json:"user_name"`
	UserAvatar   string    `json:"user_avatar"`
	TargetName   string    `json:"target_name"`
	TargetAvatar string    `json:"target_avatar"`
	LastMessage  string    `json:"last_message"`
	UnreadCount  int       `json:"unread_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Involves reports whether the given identity participates in the chat.
func (c Chat) Involves(id uint64) bool {
	return c.UserID == id || c.TargetID == id
}

// Message belongs to exactly one chat. Rows are ordered by CreatedAt
// ascending when a conversation is read.
type Message struct {
	ID        uint64    `json:"id"`
	ChatID    string    `json:"chat_id"`
	SenderID  uint64    `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	IsRead    bool      `json:"is_read"`
}
