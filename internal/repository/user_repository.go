package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/velora/nightpulse/internal/model"
	"github.com/velora/nightpulse/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// Create inserts an identity together with its registration metadata and
// returns the new ID. The metadata columns (name, avatar, owned_place_id)
// are what the login repair path falls back on when the profile row is
// missing.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int, name, avatar string, ownedPlaceID *uint64) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, name, avatar, owned_place_id) VALUES (?,?,?,?,?,?)",
		email, hash, role, name, avatar, ownedPlaceID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches an identity by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,name,avatar,owned_place_id,is_active,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Name, &u.Avatar, &u.OwnedPlaceID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByID fetches an identity by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,name,avatar,owned_place_id,is_active,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Name, &u.Avatar, &u.OwnedPlaceID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
