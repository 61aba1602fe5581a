package model

import "time"

// FeedItem is a row in the `feed` table. Feed entries are append-only
// from the client's perspective; there is no edit operation. Author
// name/avatar are denormalized so the feed renders without a join.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – author identity.
//  UserName      – denormalized author display name.
//  UserAvatar    – denormalized author avatar URL.
//  Action        – human-readable action text ("checked in at ...").
//  PlaceName     – venue the action refers to.
//  LikesCount    – like counter.
//  CommentsCount – comment counter.
//  CreatedAt     – creation order; feed reads are most recent first.
type FeedItem struct {
	ID            uint64    `json:"id"`
	UserID        uint64    `json:"user_id"`
	UserName      string    `json:"user_name"`
	UserAvatar    string    `json:"user_avatar"`
	Action        string    `json:"action"`
	PlaceName     string    `json:"place_name"`
	LikesCount    int       `json:"likes_count"`
	CommentsCount int       `json:"comments_count"`
	CreatedAt     time.Time `json:"created_at"`
}
