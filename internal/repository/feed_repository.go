package repository

import (
	"context"
	"database/sql"

	"github.com/velora/nightpulse/internal/model"
)

// FeedRepo encapsulates queries against the append-only `feed` table.
type FeedRepo struct {
	db *sql.DB
}

func NewFeedRepo(db *sql.DB) *FeedRepo { return &FeedRepo{db: db} }

const feedCols = "id, user_id, user_name, user_avatar, action, place_name, likes_count, comments_count, created_at"

// ListRecent returns feed items most recent first.
func (r *FeedRepo) ListRecent(ctx context.Context, limit int) ([]*model.FeedItem, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = "SELECT " + feedCols + " FROM feed ORDER BY created_at DESC, id DESC LIMIT ?"
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.FeedItem
	for rows.Next() {
		f := new(model.FeedItem)
		if err := rows.Scan(&f.ID, &f.UserID, &f.UserName, &f.UserAvatar, &f.Action,
			&f.PlaceName, &f.LikesCount, &f.CommentsCount, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Insert appends a feed item and populates its ID.
func (r *FeedRepo) Insert(ctx context.Context, f *model.FeedItem) error {
	const q = `INSERT INTO feed (user_id, user_name, user_avatar, action, place_name, likes_count, comments_count)
	           VALUES (?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q, f.UserID, f.UserName, f.UserAvatar, f.Action,
		f.PlaceName, f.LikesCount, f.CommentsCount)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = uint64(id)
	return nil
}
