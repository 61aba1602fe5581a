package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/velora/nightpulse/internal/model"
	"github.com/velora/nightpulse/internal/repository"
	"github.com/velora/nightpulse/internal/utils"
)

func hashed(t *testing.T, plain string) string {
	t.Helper()
	h, err := utils.HashPassword(plain, 4)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return h
}

func TestLoginRetriesUntilProfileAppears(t *testing.T) {
	ctx := context.Background()
	user := model.User{ID: 7, Email: "nina@example.com", PasswordHash: hashed(t, "pw"), Role: "USER", Name: "Nina"}

	attempts := 0
	profiles := &fakeProfiles{
		get: func(_ context.Context, id uint64) (*model.Profile, error) {
			attempts++
			if attempts < 3 {
				return nil, repository.ErrProfileNotFound
			}
			return &model.Profile{ID: id, Name: "Nina"}, nil
		},
	}
	identities := &fakeIdentities{
		getByEmail: func(_ context.Context, email string) (model.User, error) { return user, nil },
	}
	g, _, _, _ := testGateway(Stores{Identities: identities, Profiles: profiles})

	var slept int
	g.retry = RetryPolicy{Attempts: 3, Delay: 500 * time.Millisecond, Sleep: func(time.Duration) { slept++ }}

	sess, err := g.Login(ctx, "nina@example.com", "pw")
	assert.Equal(t, err, nil)
	assert.Equal(t, sess.Profile.Name, "Nina")
	assert.Equal(t, attempts, 3)
	assert.Equal(t, slept, 2)
}

func TestLoginRepairsMissingProfile(t *testing.T) {
	ctx := context.Background()
	ownedID := uint64(4)
	user := model.User{
		ID: 7, Email: "nina@example.com", PasswordHash: hashed(t, "pw"),
		Role: "OWNER", Name: "Nina", Avatar: "https://cdn.example.com/nina.png", OwnedPlaceID: &ownedID,
	}

	var inserted *model.Profile
	profiles := &fakeProfiles{
		get: func(context.Context, uint64) (*model.Profile, error) {
			return nil, repository.ErrProfileNotFound
		},
		insert: func(_ context.Context, p *model.Profile) error { inserted = p; return nil },
	}
	identities := &fakeIdentities{
		getByEmail: func(context.Context, string) (model.User, error) { return user, nil },
	}
	g, _, _, _ := testGateway(Stores{Identities: identities, Profiles: profiles})

	sess, err := g.Login(ctx, "nina@example.com", "pw")
	assert.Equal(t, err, nil)

	// The repaired row is synthesized from the identity's registration
	// metadata.
	assert.Equal(t, inserted.ID, uint64(7))
	assert.Equal(t, inserted.Name, "Nina")
	assert.Equal(t, inserted.Avatar, "https://cdn.example.com/nina.png")
	assert.Equal(t, *inserted.OwnedPlaceID, uint64(4))
	assert.Equal(t, inserted.Points, 0)
	assert.Equal(t, inserted.Level, 1)
	assert.Equal(t, sess.Profile.ID, uint64(7))
}

func TestLoginFailsWhenRepairInsertFails(t *testing.T) {
	ctx := context.Background()
	user := model.User{ID: 7, Email: "nina@example.com", PasswordHash: hashed(t, "pw")}

	profiles := &fakeProfiles{
		get: func(context.Context, uint64) (*model.Profile, error) {
			return nil, repository.ErrProfileNotFound
		},
		insert: func(context.Context, *model.Profile) error { return errors.New("duplicate key") },
	}
	identities := &fakeIdentities{
		getByEmail: func(context.Context, string) (model.User, error) { return user, nil },
	}
	g, _, _, _ := testGateway(Stores{Identities: identities, Profiles: profiles})

	_, err := g.Login(ctx, "nina@example.com", "pw")
	var raceErr *ProfileRaceError
	assert.Equal(t, errors.As(err, &raceErr), true)
	assert.Equal(t, raceErr.UserID, uint64(7))
}

func TestLoginWrongPassword(t *testing.T) {
	ctx := context.Background()
	user := model.User{ID: 7, Email: "nina@example.com", PasswordHash: hashed(t, "pw")}
	identities := &fakeIdentities{
		getByEmail: func(context.Context, string) (model.User, error) { return user, nil },
	}
	g, _, _, _ := testGateway(Stores{Identities: identities})

	_, err := g.Login(ctx, "nina@example.com", "wrong")
	assert.Equal(t, errors.Is(err, ErrInvalidCredentials), true)
}

func TestLoginNonRetryableProfileError(t *testing.T) {
	ctx := context.Background()
	user := model.User{ID: 7, Email: "nina@example.com", PasswordHash: hashed(t, "pw")}

	var inserted bool
	profiles := &fakeProfiles{
		get:    func(context.Context, uint64) (*model.Profile, error) { return nil, errors.New("connection reset") },
		insert: func(context.Context, *model.Profile) error { inserted = true; return nil },
	}
	identities := &fakeIdentities{
		getByEmail: func(context.Context, string) (model.User, error) { return user, nil },
	}
	g, _, _, _ := testGateway(Stores{Identities: identities, Profiles: profiles})

	_, err := g.Login(ctx, "nina@example.com", "pw")
	assert.Equal(t, err == nil, false)
	// Only a missing row triggers the repair insert.
	assert.Equal(t, inserted, false)
}

func TestRegisterDuplicateEmailRecoversWithMatchingPassword(t *testing.T) {
	ctx := context.Background()
	user := model.User{ID: 7, Email: "nina@example.com", PasswordHash: hashed(t, "pw"), Name: "Nina"}

	identities := &fakeIdentities{
		create: func(context.Context, string, string, string, int, string, string, *uint64) (uint64, error) {
			return 0, repository.ErrEmailExists
		},
		getByEmail: func(context.Context, string) (model.User, error) { return user, nil },
	}
	profiles := &fakeProfiles{
		get: func(_ context.Context, id uint64) (*model.Profile, error) {
			return &model.Profile{ID: id, Name: "Nina"}, nil
		},
	}
	g, _, _, _ := testGateway(Stores{Identities: identities, Profiles: profiles})

	sess, err := g.Register(ctx, RegisterInput{Email: "nina@example.com", Password: "pw", Name: "Nina"})
	assert.Equal(t, err, nil)
	assert.Equal(t, sess.User.ID, uint64(7))
}

func TestRegisterDuplicateEmailWrongPassword(t *testing.T) {
	ctx := context.Background()
	user := model.User{ID: 7, Email: "nina@example.com", PasswordHash: hashed(t, "pw")}

	identities := &fakeIdentities{
		create: func(context.Context, string, string, string, int, string, string, *uint64) (uint64, error) {
			return 0, repository.ErrEmailExists
		},
		getByEmail: func(context.Context, string) (model.User, error) { return user, nil },
	}
	g, _, _, _ := testGateway(Stores{Identities: identities})

	_, err := g.Register(ctx, RegisterInput{Email: "nina@example.com", Password: "other", Name: "Nina"})
	var authErr *AuthError
	assert.Equal(t, errors.As(err, &authErr), true)
	assert.Equal(t, authErr.Message, "email already registered and password does not match")
}

func TestRegisterNormalizesRole(t *testing.T) {
	ctx := context.Background()
	var gotRole string
	identities := &fakeIdentities{
		create: func(_ context.Context, _, _, role string, _ int, _, _ string, _ *uint64) (uint64, error) {
			gotRole = role
			return 7, nil
		},
		getByID: func(_ context.Context, id uint64) (model.User, error) {
			return model.User{ID: id, Role: gotRole}, nil
		},
	}
	profiles := &fakeProfiles{
		upsert: func(context.Context, *model.Profile) error { return nil },
	}
	g, _, _, _ := testGateway(Stores{Identities: identities, Profiles: profiles})

	_, err := g.Register(ctx, RegisterInput{Email: "a@b.c", Password: "pw", Role: "customer", Name: "A"})
	assert.Equal(t, err, nil)
	assert.Equal(t, gotRole, "USER")

	_, err = g.Register(ctx, RegisterInput{Email: "a@b.c", Password: "pw", Role: "owner", Name: "A"})
	assert.Equal(t, err, nil)
	assert.Equal(t, gotRole, "OWNER")
}

func TestProfileServedFromSnapshotWhenRemoteDown(t *testing.T) {
	ctx := context.Background()
	healthy := true
	profiles := &fakeProfiles{
		get: func(_ context.Context, id uint64) (*model.Profile, error) {
			if !healthy {
				return nil, errors.New("down")
			}
			return &model.Profile{ID: id, Name: "Nina", Points: 120}, nil
		},
	}
	g, _, _, _ := testGateway(Stores{Profiles: profiles})

	p, err := g.Profile(ctx, 7)
	assert.Equal(t, err, nil)
	assert.Equal(t, p.Points, 120)

	healthy = false
	p, err = g.Profile(ctx, 7)
	assert.Equal(t, err, nil)
	assert.Equal(t, p.Name, "Nina")
	assert.Equal(t, p.Points, 120)
}

func TestProfileNotFoundPassesThrough(t *testing.T) {
	ctx := context.Background()
	profiles := &fakeProfiles{
		get: func(context.Context, uint64) (*model.Profile, error) {
			return nil, repository.ErrProfileNotFound
		},
	}
	g, _, _, _ := testGateway(Stores{Profiles: profiles})

	_, err := g.Profile(ctx, 7)
	assert.Equal(t, errors.Is(err, repository.ErrProfileNotFound), true)
}
