package state

import (
	"context"
	"errors"

	"github.com/m3rciful/formbot/core/form"
)

var (
	// ErrInvalidTransition reports a field recorded out of order or twice.
	ErrInvalidTransition = errors.New("state: invalid transition")
	// ErrIncompleteSession reports finalization with unanswered fields.
	ErrIncompleteSession = errors.New("state: incomplete session")
	// ErrProfileNotFound reports a user without a finalized profile.
	ErrProfileNotFound = errors.New("state: profile not found")
)

// Stats summarizes the store for diagnostics.
type Stats struct {
	ActiveSessions int
	Profiles       int
}

// Store keeps questionnaire sessions and profiles keyed by user.
// Callers serialize events of one user with Lock; different users may be
// handled concurrently.
type Store interface {
	// State returns the user's position, StateIdle when no session exists.
	State(ctx context.Context, user form.UserID) form.State
	// RunID returns the identifier of the user's current run, if any.
	RunID(user form.UserID) string
	// StartSequence discards any buffered answers and moves to StateAwaitingName.
	StartSequence(ctx context.Context, user form.UserID) string
	// RecordField buffers an answer and takes its edge. The final field's
	// edge is taken by Finalize, so its state is returned unchanged.
	RecordField(ctx context.Context, user form.UserID, field form.Field, value any) (form.State, error)
	// Finalize stores the buffered answers as the user's profile and moves to StateCompleted.
	Finalize(ctx context.Context, user form.UserID) (form.Profile, error)
	// Cancel drops the session. Cancelling without a session is a no-op.
	Cancel(ctx context.Context, user form.UserID)
	// Profile returns the last finalized profile or ErrProfileNotFound.
	Profile(ctx context.Context, user form.UserID) (form.Profile, error)
	Stats(ctx context.Context) (Stats, error)
	// Lock blocks until the caller owns the user's lock and returns the release func.
	Lock(user form.UserID) (unlock func())
}

// ProfileRepository persists finalized profiles; Save replaces the user's previous profile.
type ProfileRepository interface {
	Save(ctx context.Context, p form.Profile) error
	Get(ctx context.Context, user form.UserID) (form.Profile, error)
	Count(ctx context.Context) (int, error)
}
