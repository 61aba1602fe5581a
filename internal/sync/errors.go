// Package sync is the façade unifying reads and writes across the
// profile, venue, feed, chat and friend-request namespaces. Reads try
// the remote store first and degrade to the local snapshot cache (or a
// bundled default) so callers always receive a value; writes go to the
// remote store, mirror into the cache and publish a change event for
// live sessions.
package sync

import (
	"errors"
	"fmt"
)

// AuthError is a credential or registration failure surfaced to the
// caller with a human-readable message. Known backend error strings are
// normalized into it; it never wraps a profile-repair failure.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// ErrInvalidCredentials is the normalized invalid email/password failure.
var ErrInvalidCredentials = &AuthError{Message: "invalid credentials"}

// ProfileRaceError is fatal for login: the profile row was not found
// after the bounded retries and the manual repair insert failed too.
// Proceeding would hand the session a phantom profile.
type ProfileRaceError struct {
	UserID uint64
	Err    error
}

func (e *ProfileRaceError) Error() string {
	return fmt.Sprintf("profile repair failed for user %d: %v", e.UserID, e.Err)
}

func (e *ProfileRaceError) Unwrap() error { return e.Err }

// ErrInvalidTransition is returned when a staff call is asked to move
// to a status its state machine does not allow.
var ErrInvalidTransition = errors.New("invalid call transition")

// ErrCallNotFound is returned when a staff call id does not exist on
// the venue.
var ErrCallNotFound = errors.New("staff call not found")

// ErrCallNotDone is returned when a delete is attempted on a call that
// has not reached done, the only status a delete is legal from.
var ErrCallNotDone = errors.New("staff call not done")
