package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/velora/nightpulse/internal/model"
)

// ErrPlaceNotFound is returned when a venue cannot be found.
var ErrPlaceNotFound = errors.New("place not found")

// PlaceRepo encapsulates all database queries against the `places` table.
// The JSON columns (tags, menu, active_calls) round-trip through the
// typed structs in the model package.
type PlaceRepo struct {
	db *sql.DB
}

// NewPlaceRepo constructs a PlaceRepo with the provided DB handle.
func NewPlaceRepo(db *sql.DB) *PlaceRepo {
	return &PlaceRepo{db: db}
}

const placeCols = "id, name, type, people_count, capacity_percentage, image_url, is_trending, lat, lng, address, tags, menu, active_calls, owner_id, created_at, updated_at"

type rowScanner interface{ Scan(dest ...any) error }

func scanPlace(row rowScanner) (*model.Venue, error) {
	var (
		v                 model.Venue
		tags, menu, calls []byte
	)
	err := row.Scan(&v.ID, &v.Name, &v.Type, &v.PeopleCount, &v.CapacityPercentage,
		&v.ImageURL, &v.IsTrending, &v.Lat, &v.Lng, &v.Address,
		&tags, &menu, &calls, &v.OwnerID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &v.Tags); err != nil {
			return nil, err
		}
	}
	if len(menu) > 0 {
		if err := json.Unmarshal(menu, &v.Menu); err != nil {
			return nil, err
		}
	}
	if len(calls) > 0 {
		if err := json.Unmarshal(calls, &v.ActiveCalls); err != nil {
			return nil, err
		}
	}
	return &v, nil
}

// ListByOccupancy returns all venues ordered by descending occupancy,
// the order the feed/map expects.
func (r *PlaceRepo) ListByOccupancy(ctx context.Context) ([]*model.Venue, error) {
	const q = "SELECT " + placeCols + " FROM places ORDER BY people_count DESC, id"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Venue
	for rows.Next() {
		v, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches a venue by id. Returns ErrPlaceNotFound if no row exists.
func (r *PlaceRepo) GetByID(ctx context.Context, id uint64) (*model.Venue, error) {
	const q = "SELECT " + placeCols + " FROM places WHERE id = ?"
	v, err := scanPlace(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlaceNotFound
	}
	return v, err
}

// GetByIDAndOwner fetches a venue by id but only if it belongs to the
// specified owner. Dashboard writes go through this so ownership is
// enforced at the row level.
func (r *PlaceRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*model.Venue, error) {
	const q = "SELECT " + placeCols + " FROM places WHERE id = ? AND owner_id = ?"
	v, err := scanPlace(r.db.QueryRowContext(ctx, q, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlaceNotFound
	}
	return v, err
}

// Patch applies a partial update: only fields present in the patch are
// written, and capacity is clamped to [0,100] before it hits the wire.
// Returns sql.ErrNoRows when no row was affected.
func (r *PlaceRepo) Patch(ctx context.Context, id uint64, patch model.VenuePatch) error {
	q := "UPDATE places SET updated_at = CURRENT_TIMESTAMP"
	var args []any
	if patch.Name != nil {
		q += ", name = ?"
		args = append(args, *patch.Name)
	}
	if patch.Type != nil {
		q += ", type = ?"
		args = append(args, *patch.Type)
	}
	if patch.PeopleCount != nil {
		q += ", people_count = ?"
		args = append(args, *patch.PeopleCount)
	}
	if patch.CapacityPercentage != nil {
		q += ", capacity_percentage = ?"
		args = append(args, model.ClampCapacity(*patch.CapacityPercentage))
	}
	if patch.ImageURL != nil {
		q += ", image_url = ?"
		args = append(args, *patch.ImageURL)
	}
	if patch.IsTrending != nil {
		q += ", is_trending = ?"
		args = append(args, *patch.IsTrending)
	}
	if patch.Address != nil {
		q += ", address = ?"
		args = append(args, *patch.Address)
	}
	if patch.Tags != nil {
		b, err := json.Marshal(*patch.Tags)
		if err != nil {
			return err
		}
		q += ", tags = ?"
		args = append(args, b)
	}
	if patch.Menu != nil {
		b, err := json.Marshal(*patch.Menu)
		if err != nil {
			return err
		}
		q += ", menu = ?"
		args = append(args, b)
	}
	if patch.ActiveCalls != nil {
		b, err := json.Marshal(*patch.ActiveCalls)
		if err != nil {
			return err
		}
		q += ", active_calls = ?"
		args = append(args, b)
	}
	q += " WHERE id = ?"
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateCalls replaces a venue's active_calls column, scoped to the
// owning identity. Used by the staff-call transition path.
func (r *PlaceRepo) UpdateCalls(ctx context.Context, id, ownerID uint64, calls []model.StaffCall) error {
	b, err := json.Marshal(calls)
	if err != nil {
		return err
	}
	const q = `UPDATE places SET active_calls = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND owner_id = ?`
	res, err := r.db.ExecContext(ctx, q, b, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrForbidden
	}
	return nil
}

// AppendCall adds a guest's staff call to a venue's active_calls. Unlike
// UpdateCalls this is not owner-scoped; any authenticated guest may raise
// a call.
func (r *PlaceRepo) AppendCall(ctx context.Context, id uint64, call model.StaffCall) error {
	v, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	calls := append(v.ActiveCalls, call)
	b, err := json.Marshal(calls)
	if err != nil {
		return err
	}
	const q = "UPDATE places SET active_calls = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	_, err = r.db.ExecContext(ctx, q, b, id)
	return err
}

// Count returns the number of venue rows; the seeder uses it to decide
// whether the remote store is empty at first run.
func (r *PlaceRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM places").Scan(&n)
	return n, err
}

// CreateBulk inserts multiple venues in one statement. Used only for
// first-run seeding; explicit ids keep the rows addressable by the same
// ids the bundled fallback list carries.
func (r *PlaceRepo) CreateBulk(ctx context.Context, venues []model.Venue) error {
	if len(venues) == 0 {
		return nil
	}
	query := `INSERT INTO places (id, name, type, people_count, capacity_percentage, image_url, is_trending, lat, lng, address, tags, menu, active_calls) VALUES `
	args := make([]any, 0, len(venues)*13)
	for i, v := range venues {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		tags, err := json.Marshal(v.Tags)
		if err != nil {
			return err
		}
		menu, err := json.Marshal(v.Menu)
		if err != nil {
			return err
		}
		calls, err := json.Marshal(v.ActiveCalls)
		if err != nil {
			return err
		}
		args = append(args, v.ID, v.Name, v.Type, v.PeopleCount, model.ClampCapacity(v.CapacityPercentage),
			v.ImageURL, v.IsTrending, v.Lat, v.Lng, v.Address, tags, menu, calls)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}
