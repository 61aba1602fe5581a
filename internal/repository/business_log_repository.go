package repository

import (
	"context"
	"database/sql"

	"github.com/velora/nightpulse/internal/model"
)

// BusinessLogRepo encapsulates the append-only `business_logs` table.
// Rows are only ever read back aggregated for the owner dashboard.
type BusinessLogRepo struct {
	db *sql.DB
}

func NewBusinessLogRepo(db *sql.DB) *BusinessLogRepo {
	return &BusinessLogRepo{db: db}
}

// Insert appends one event row.
func (r *BusinessLogRepo) Insert(ctx context.Context, l *model.BusinessLog) error {
	const q = "INSERT INTO business_logs (place_id, user_id, event_type) VALUES (?,?,?)"
	_, err := r.db.ExecContext(ctx, q, l.PlaceID, l.UserID, l.EventType)
	return err
}

// VisitsByHour aggregates check-in events per hour of day for a venue.
// Hours with no visits are filled in so the dashboard always gets 24
// buckets.
func (r *BusinessLogRepo) VisitsByHour(ctx context.Context, placeID uint64) ([]model.VisitBucket, error) {
	const q = `SELECT HOUR(created_at) AS h, COUNT(*) AS visits
	           FROM business_logs
	           WHERE place_id = ? AND event_type = ?
	           GROUP BY h ORDER BY h`
	rows, err := r.db.QueryContext(ctx, q, placeID, model.EventCheckIn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byHour := make(map[int]int, 24)
	for rows.Next() {
		var h, n int
		if err := rows.Scan(&h, &n); err != nil {
			return nil, err
		}
		byHour[h] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]model.VisitBucket, 24)
	for h := 0; h < 24; h++ {
		out[h] = model.VisitBucket{Hour: h, Visits: byHour[h]}
	}
	return out, nil
}
