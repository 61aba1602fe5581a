package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/velora/nightpulse/internal/model"
)

// ErrRequestNotFound is returned when a friend request does not exist
// or is not addressed to the caller.
var ErrRequestNotFound = errors.New("friend request not found")

// FriendRequestRepo encapsulates queries against the `friend_requests`
// table.
type FriendRequestRepo struct {
	db *sql.DB
}

func NewFriendRequestRepo(db *sql.DB) *FriendRequestRepo {
	return &FriendRequestRepo{db: db}
}

// Insert creates a pending request and populates its ID.
func (r *FriendRequestRepo) Insert(ctx context.Context, fr *model.FriendRequest) error {
	const q = "INSERT INTO friend_requests (sender_id, receiver_id, status) VALUES (?,?,?)"
	res, err := r.db.ExecContext(ctx, q, fr.SenderID, fr.ReceiverID, model.RequestPending)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	fr.ID = uint64(id)
	fr.Status = model.RequestPending
	return nil
}

// Accept flips a pending request to accepted, but only when the caller
// is its receiver. Returns ErrRequestNotFound otherwise.
func (r *FriendRequestRepo) Accept(ctx context.Context, id, receiverID uint64) error {
	const q = `UPDATE friend_requests SET status = ?
	           WHERE id = ? AND receiver_id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, model.RequestAccepted, id, receiverID, model.RequestPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// ListPendingFor returns pending requests addressed to the identity.
func (r *FriendRequestRepo) ListPendingFor(ctx context.Context, receiverID uint64) ([]*model.FriendRequest, error) {
	const q = `SELECT id, sender_id, receiver_id, status, created_at
	           FROM friend_requests WHERE receiver_id = ? AND status = ? ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, q, receiverID, model.RequestPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.FriendRequest
	for rows.Next() {
		fr := new(model.FriendRequest)
		if err := rows.Scan(&fr.ID, &fr.SenderID, &fr.ReceiverID, &fr.Status, &fr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, fr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
