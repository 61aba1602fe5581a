package model

import "time"

// Friend request statuses.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
)

// FriendRequest is a row in the `friend_requests` table. Inserts drive a
// notification side effect on the receiver's session (see realtime).
type FriendRequest struct {
	ID         uint64    `json:"id"`
	SenderID   uint64    `json:"sender_id"`
	ReceiverID uint64    `json:"receiver_id"`
	Status     string    `json:"status"` // pending | accepted
	CreatedAt  time.Time `json:"created_at"`
}
