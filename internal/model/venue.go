package model

import "time"

// Staff call statuses form a small state machine driven by the venue
// owner's dashboard:
//
//	pending -> preparing -> ready -> done
//
// and a terminal user-initiated delete which is only legal from done.
const (
	CallPending   = "pending"
	CallPreparing = "preparing"
	CallReady     = "ready"
	CallDone      = "done"
)

// Staff call categories.
const (
	CallOrder = "order"
	CallBill  = "bill"
	CallHelp  = "help"
)

// ValidCallTransition reports whether a staff call may move from one
// status to another. Deleting a call is handled separately and is only
// allowed once the call reached done.
func ValidCallTransition(from, to string) bool {
	switch from {
	case CallPending:
		return to == CallPreparing
	case CallPreparing:
		return to == CallReady
	case CallReady:
		return to == CallDone
	}
	return false
}

// ClampCapacity keeps a venue's capacity percentage inside [0,100].
// Every write path that touches capacity_percentage must pass through
// this helper; repeated check-in increments must never push it past 100.
func ClampCapacity(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Venue represents a nightlife business as stored in the `places` table.
// It is mutated by check-ins (people count / capacity), by the owning
// identity's dashboard (menu edits, call transitions) and by seed data
// at first run when the remote store is empty.
//
// Fields:
//  ID                 – primary key identifier.
//  Name               – venue display name.
//  Type               – category (club, bar, lounge, ...).
//  PeopleCount        – current number of checked-in people.
//  CapacityPercentage – occupancy in percent, clamped to [0,100].
//  ImageURL           – cover image.
//  IsTrending         – featured flag for the feed/map.
//  Lat, Lng           – geocoordinates.
//  Address            – street address.
//  Tags               – free-form labels (JSON).
//  Menu               – ordered menu items (JSON).
//  ActiveCalls        – open staff calls (JSON).
//  OwnerID            – identity administering this venue (nullable).
type Venue struct {
	ID                 uint64      `json:"id"`
	Name               string      `json:"name"`
	Type               string      `json:"type"`
	PeopleCount        int         `json:"people_count"`
	CapacityPercentage int         `json:"capacity_percentage"`
	ImageURL           string      `json:"image_url"`
	IsTrending         bool        `json:"is_trending"`
	Lat                float64     `json:"lat"`
	Lng                float64     `json:"lng"`
	Address            string      `json:"address"`
	Tags               []string    `json:"tags"`
	Menu               []MenuItem  `json:"menu"`
	ActiveCalls        []StaffCall `json:"active_calls"`
	OwnerID            *uint64     `json:"owner_id,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// MenuItem is one entry of a venue's ordered menu (JSON column).
type MenuItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
	Category   string `json:"category"`
}

// StaffCall is a service request raised by a guest at a venue and worked
// by the owner's dashboard. Stored inside places.active_calls.
type StaffCall struct {
	ID        string    `json:"id"`
	UserID    uint64    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Category  string    `json:"category"` // order | bill | help
	Status    string    `json:"status"`   // pending | preparing | ready | done
	CreatedAt time.Time `json:"created_at"`
}

// VenuePatch carries a partial venue update. Only non-nil fields are
// written to the remote store; callers must not assume unset fields are
// cleared.
type VenuePatch struct {
	Name               *string      `json:"name,omitempty"`
	Type               *string      `json:"type,omitempty"`
	PeopleCount        *int         `json:"people_count,omitempty"`
	CapacityPercentage *int         `json:"capacity_percentage,omitempty"`
	ImageURL           *string      `json:"image_url,omitempty"`
	IsTrending         *bool        `json:"is_trending,omitempty"`
	Address            *string      `json:"address,omitempty"`
	Tags               *[]string    `json:"tags,omitempty"`
	Menu               *[]MenuItem  `json:"menu,omitempty"`
	ActiveCalls        *[]StaffCall `json:"active_calls,omitempty"`
}
