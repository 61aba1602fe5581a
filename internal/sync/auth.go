package sync

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"

	"github.com/velora/nightpulse/internal/localcache"
	"github.com/velora/nightpulse/internal/model"
	"github.com/velora/nightpulse/internal/repository"
	"github.com/velora/nightpulse/internal/utils"
)

// RegisterInput carries everything registration needs. The profile
// fields double as the identity's registration metadata, which the
// login repair path reads back when the profile row is missing.
type RegisterInput struct {
	Email        string
	Password     string
	Role         string // USER | OWNER
	Name         string
	Avatar       string
	OwnedPlaceID *uint64
}

// Session is the authenticated identity plus its (possibly repaired)
// profile, returned from Register and Login.
type Session struct {
	User    model.User
	Profile *model.Profile
}

// Register creates the identity and immediately upserts the profile row
// itself. The backend provisions the row asynchronously, so the upsert
// closes the race instead of waiting on the trigger; the merge form
// keeps it idempotent if the trigger fired first.
//
// If the email is already registered, a prior attempt may have
// partially succeeded, so registration falls through to Login with the
// same credentials: matching credentials recover the account, wrong
// ones fail with a clear message.
func (g *Gateway) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	role := strings.ToUpper(strings.TrimSpace(in.Role))
	if role != "OWNER" {
		role = "USER"
	}

	uid, err := g.stores.Identities.Create(ctx, email, in.Password, role, g.bcrypt, in.Name, in.Avatar, in.OwnedPlaceID)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			// Idempotent re-registration: recover via login.
			sess, lerr := g.Login(ctx, email, in.Password)
			if lerr != nil {
				var authErr *AuthError
				if errors.As(lerr, &authErr) {
					return nil, &AuthError{Message: "email already registered and password does not match"}
				}
				return nil, lerr
			}
			return sess, nil
		}
		return nil, err
	}

	p := &model.Profile{
		ID:           uid,
		Name:         in.Name,
		Avatar:       in.Avatar,
		Points:       0,
		Level:        model.LevelFor(0),
		History:      []model.CheckInRecord{},
		OwnedPlaceID: in.OwnedPlaceID,
	}
	if err := g.stores.Profiles.Upsert(ctx, p); err != nil {
		// Not fatal here: login's retry loop repairs the row. Worth a
		// log line because it means the race window stayed open.
		log.Printf("sync: post-register profile upsert failed for user %d: %v", uid, err)
	}

	user, err := g.stores.Identities.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	g.saveSnapshot(ctx, localcache.Key(localcache.KeyProfile, uid), p)
	return &Session{User: user, Profile: p}, nil
}

// Login verifies credentials, then fetches the profile row with bounded
// retry to tolerate provisioning-trigger latency. If the row still does
// not exist, a profile is synthesized from the identity's registration
// metadata and inserted manually; if that insert also fails, login
// fails with ProfileRaceError rather than proceeding with a phantom
// profile.
func (g *Gateway) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := g.stores.Identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.VerifyPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	p, err := g.profileWithRepair(ctx, user)
	if err != nil {
		return nil, err
	}
	g.saveSnapshot(ctx, localcache.Key(localcache.KeyProfile, user.ID), p)
	return &Session{User: user, Profile: p}, nil
}

// profileWithRepair runs the bounded retry loop and, on exhaustion, the
// manual repair insert.
func (g *Gateway) profileWithRepair(ctx context.Context, user model.User) (*model.Profile, error) {
	var p *model.Profile
	err := g.retry.Do(func() error {
		var err error
		p, err = g.stores.Profiles.Get(ctx, user.ID)
		return err
	})
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrProfileNotFound) {
		return nil, err
	}

	// Synthesize from the registration metadata carried on the identity.
	p = &model.Profile{
		ID:           user.ID,
		Name:         user.Name,
		Avatar:       user.Avatar,
		Points:       0,
		Level:        model.LevelFor(0),
		History:      []model.CheckInRecord{},
		OwnedPlaceID: user.OwnedPlaceID,
	}
	if err := g.stores.Profiles.Insert(ctx, p); err != nil {
		return nil, &ProfileRaceError{UserID: user.ID, Err: err}
	}
	log.Printf("sync: repaired missing profile row for user %d", user.ID)
	return p, nil
}

// Profile reads a profile: remote with snapshot on success, snapshot on
// failure. Returns repository.ErrProfileNotFound only when neither side
// has the row.
func (g *Gateway) Profile(ctx context.Context, id uint64) (*model.Profile, error) {
	key := localcache.Key(localcache.KeyProfile, id)
	p, err := g.stores.Profiles.Get(ctx, id)
	if err == nil {
		g.saveSnapshot(ctx, key, p)
		return p, nil
	}
	if errors.Is(err, repository.ErrProfileNotFound) {
		return nil, err
	}
	log.Printf("sync: remote profile read failed, serving cache: %v", err)
	var cached model.Profile
	if g.loadSnapshot(ctx, key, &cached) {
		return &cached, nil
	}
	return nil, err
}

// UpdateProfile writes profile edits (bio, theme, settings) through the
// idempotent upsert and mirrors the result into the snapshot.
func (g *Gateway) UpdateProfile(ctx context.Context, p *model.Profile) error {
	p.Level = model.LevelFor(p.Points)
	if err := g.stores.Profiles.Upsert(ctx, p); err != nil {
		return err
	}
	g.saveSnapshot(ctx, localcache.Key(localcache.KeyProfile, p.ID), p)
	return nil
}

// Logout drops the session-scoped snapshots. Token revocation is the
// HTTP layer's concern.
func (g *Gateway) Logout(ctx context.Context, userID uint64) {
	g.cache.Remove(ctx, localcache.Key(localcache.KeyProfile, userID))
	g.cache.Remove(ctx, localcache.Key(localcache.KeyChats, userID))
}
