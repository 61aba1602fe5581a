package model

import "time"

// Business log event types.
const (
	EventCheckIn = "check_in"
)

// BusinessLog is an append-only event record in the `business_logs`
// table. It is written on check-in and only ever read back aggregated
// (visits by hour) for the owner dashboard.
type BusinessLog struct {
	ID        uint64    `json:"id"`
	PlaceID   uint64    `json:"place_id"`
	UserID    uint64    `json:"user_id"`
	EventType string    `json:"event_type"`
	CreatedAt time.Time `json:"created_at"`
}

// VisitBucket is one hour of aggregated visits for a venue.
type VisitBucket struct {
	Hour   int `json:"hour"` // 0..23
	Visits int `json:"visits"`
}
