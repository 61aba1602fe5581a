// Package repository contains data access logic separated from HTTP handlers
// and the sync gateway. Each repository owns one table; the explicit column
// lists in the SQL strings together with the typed scan targets form the
// snake_case-on-the-wire to camelCase-in-memory mapping for that entity, so
// no runtime key transformation happens anywhere.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/velora/nightpulse/internal/model"
)

// ErrProfileNotFound is returned when no profile row exists for an
// identity. Registration provisions the row asynchronously, so callers
// (the sync gateway's repair loop) treat this as possibly-transient.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepo encapsulates all database queries against the `profiles`
// table.
type ProfileRepo struct {
	db *sql.DB
}

// NewProfileRepo constructs a ProfileRepo with the provided DB handle.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

const profileCols = "id, name, avatar, points, level, history, owned_place_id, bio, theme, app_mode, created_at, updated_at"

func scanProfile(row *sql.Row) (*model.Profile, error) {
	var (
		p       model.Profile
		history []byte
	)
	err := row.Scan(&p.ID, &p.Name, &p.Avatar, &p.Points, &p.Level, &history,
		&p.OwnedPlaceID, &p.Bio, &p.Theme, &p.AppMode, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &p.History); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// Get fetches a profile by identity id. Returns ErrProfileNotFound when
// the row has not been provisioned yet.
func (r *ProfileRepo) Get(ctx context.Context, id uint64) (*model.Profile, error) {
	const q = "SELECT " + profileCols + " FROM profiles WHERE id = ?"
	return scanProfile(r.db.QueryRowContext(ctx, q, id))
}

// Upsert writes the full profile row, inserting it when missing and
// merging over an existing one otherwise. Registration calls this right
// after the identity is created to close the race with the server-side
// provisioning trigger; the merge form keeps the call idempotent.
func (r *ProfileRepo) Upsert(ctx context.Context, p *model.Profile) error {
	history, err := json.Marshal(p.History)
	if err != nil {
		return err
	}
	const q = `INSERT INTO profiles (id, name, avatar, points, level, history, owned_place_id, bio, theme, app_mode)
	           VALUES (?,?,?,?,?,?,?,?,?,?)
	           ON DUPLICATE KEY UPDATE
	             name = VALUES(name), avatar = VALUES(avatar), points = VALUES(points),
	             level = VALUES(level), history = VALUES(history),
	             owned_place_id = VALUES(owned_place_id), bio = VALUES(bio),
	             theme = VALUES(theme), app_mode = VALUES(app_mode),
	             updated_at = CURRENT_TIMESTAMP`
	_, err = r.db.ExecContext(ctx, q, p.ID, p.Name, p.Avatar, p.Points, p.Level,
		history, p.OwnedPlaceID, p.Bio, p.Theme, p.AppMode)
	return err
}

// Insert writes a new profile row without merge semantics. The login
// repair path uses this after all retries failed to find a row; a
// failure here is fatal for the login.
func (r *ProfileRepo) Insert(ctx context.Context, p *model.Profile) error {
	history, err := json.Marshal(p.History)
	if err != nil {
		return err
	}
	const q = `INSERT INTO profiles (id, name, avatar, points, level, history, owned_place_id, bio, theme, app_mode)
	           VALUES (?,?,?,?,?,?,?,?,?,?)`
	_, err = r.db.ExecContext(ctx, q, p.ID, p.Name, p.Avatar, p.Points, p.Level,
		history, p.OwnedPlaceID, p.Bio, p.Theme, p.AppMode)
	return err
}
