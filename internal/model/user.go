package model

import "time"

// User represents an authentication identity as stored in the `users`
// table. Besides credentials it carries the registration metadata
// (name, avatar, owned place) that the sync layer needs to synthesize a
// profile row when asynchronous profile provisioning lags behind
// registration (see the profile repair loop in the sync package).
//
// Fields:
//  ID           – primary key identifier of the identity.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – USER or OWNER.
//  Name         – display name captured at registration.
//  Avatar       – avatar URL captured at registration.
//  OwnedPlaceID – venue link captured at registration (nullable).
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	Name         string    // users.name
	Avatar       string    // users.avatar
	OwnedPlaceID *uint64   // users.owned_place_id (nullable)
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
