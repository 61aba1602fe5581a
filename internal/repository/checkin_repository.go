package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/velora/nightpulse/internal/model"
)

// CheckInRepo executes the multi-table write behind a check-in. The
// four writes (profile, feed, venue counters, business log) all target
// the same MySQL instance, so they run in a single transaction instead
// of the original fire-and-forget parallel calls: either every effect
// of a check-in lands or none does.
type CheckInRepo struct {
	db *sql.DB
}

func NewCheckInRepo(db *sql.DB) *CheckInRepo { return &CheckInRepo{db: db} }

// Apply persists a computed check-in. The venue's people count is
// incremented and its capacity bumped with a clamp at 100 enforced in
// SQL, so repeated increments can never overflow the percentage.
func (r *CheckInRepo) Apply(ctx context.Context, p *model.Profile, f *model.FeedItem, placeID uint64, capacityStep int) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	history, err := json.Marshal(p.History)
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE profiles SET points = ?, level = ?, history = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		p.Points, p.Level, history, p.ID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO feed (user_id, user_name, user_avatar, action, place_name, likes_count, comments_count)
		 VALUES (?,?,?,?,?,0,0)`,
		f.UserID, f.UserName, f.UserAvatar, f.Action, f.PlaceName)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = uint64(id)

	if _, err = tx.ExecContext(ctx,
		`UPDATE places SET people_count = people_count + 1,
		        capacity_percentage = LEAST(capacity_percentage + ?, 100),
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		capacityStep, placeID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO business_logs (place_id, user_id, event_type) VALUES (?,?,?)",
		placeID, p.ID, model.EventCheckIn)
	return err
}
