package model

import "time"

// XPPerCheckIn is the fixed amount of experience awarded for a single
// venue check-in.
const XPPerCheckIn = 50

// XPPerLevel is the amount of cumulative experience required per level.
// Every computation of a level anywhere in the codebase must go through
// LevelFor so the formula stays consistent across screens and mutations.
const XPPerLevel = 500

// LevelFor derives the level from cumulative points. Levels start at 1
// and advance every XPPerLevel points.
func LevelFor(points int) int {
	if points < 0 {
		points = 0
	}
	return points/XPPerLevel + 1
}

// Profile is the durable record of a user identity as stored in the
// `profiles` table. It is created at registration (or repaired after it,
// see the sync package) and mutated by check-ins, profile edits and
// settings changes. Profiles are never hard-deleted.
//
// Fields:
//  ID           – primary key, equal to the identity (users.id).
//  Name         – display name shown on the feed and in chats.
//  Avatar       – avatar image URL.
//  Points       – cumulative XP; non-decreasing under normal operation.
//  Level        – derived from Points via LevelFor.
//  History      – append-only check-in history, most recent first (JSON column).
//  OwnedPlaceID – optional 1:1 link to the venue this identity administers.
//  Bio          – free-form profile text.
//  Theme        – UI theme preference.
//  AppMode      – consumer vs business mode toggle.
type Profile struct {
	ID           uint64          // profiles.id
	Name         string          // profiles.name
	Avatar       string          // profiles.avatar
	Points       int             // profiles.points
	Level        int             // profiles.level
	History      []CheckInRecord // profiles.history (JSON)
	OwnedPlaceID *uint64         // profiles.owned_place_id (nullable)
	Bio          string          // profiles.bio
	Theme        string          // profiles.theme
	AppMode      string          // profiles.app_mode
	CreatedAt    time.Time       // profiles.created_at
	UpdatedAt    time.Time       // profiles.updated_at
}

// CheckInRecord is a single entry in a profile's check-in history.
// History is prepended, so index 0 is always the latest check-in.
type CheckInRecord struct {
	PlaceID   uint64    `json:"place_id"`
	PlaceName string    `json:"place_name"`
	XP        int       `json:"xp"`
	At        time.Time `json:"at"`
}
