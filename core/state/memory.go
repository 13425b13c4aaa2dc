package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/m3rciful/formbot/core/form"
	"github.com/m3rciful/formbot/core/logger"
)

type session struct {
	machine *fsm.FSM
	buffer  form.Buffer
	runID   string
}

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[form.UserID]*session
	profiles ProfileRepository
	locks    *userLocks
	now      func() time.Time
}

// Option customizes the in-memory store.
type Option func(*memoryStore)

// WithProfiles replaces the in-memory profile repository.
func WithProfiles(repo ProfileRepository) Option {
	return func(s *memoryStore) {
		if repo != nil {
			s.profiles = repo
		}
	}
}

// WithClock overrides the clock used for profile completion timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *memoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore constructs a Store keeping sessions in process memory.
// Profiles stay in memory too unless WithProfiles is given.
func NewMemoryStore(opts ...Option) Store {
	s := &memoryStore{
		sessions: make(map[form.UserID]*session),
		profiles: NewMemoryProfiles(),
		locks:    newUserLocks(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state of a user, or StateIdle if none exists.
func (m *memoryStore) State(_ context.Context, user form.UserID) form.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.sessions[user]; ok {
		return form.State(sess.machine.Current())
	}
	return form.StateIdle
}

// RunID returns the run identifier of the user's session.
func (m *memoryStore) RunID(user form.UserID) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.sessions[user]; ok {
		return sess.runID
	}
	return ""
}

// StartSequence gives the user an empty buffer awaiting the name. A
// completed session takes the restart edge; from any other state the
// session is replaced.
func (m *memoryStore) StartSequence(ctx context.Context, user form.UserID) string {
	sess := &session{runID: uuid.NewString()}

	m.mu.Lock()
	prev := form.StateIdle
	edge := "new"
	if old, ok := m.sessions[user]; ok {
		prev = form.State(old.machine.Current())
		if old.machine.Can(form.EdgeRestart) && old.machine.Event(ctx, form.EdgeRestart) == nil {
			sess.machine = old.machine
			edge = form.EdgeRestart
		}
	}
	if sess.machine == nil {
		sess.machine = form.NewFSM(form.StateAwaitingName)
	}
	m.sessions[user] = sess
	m.mu.Unlock()

	logger.Debug(ctx, "form.store", "session.start",
		slog.Int64("user_id", int64(user)),
		slog.String("run_id", sess.runID),
		slog.String("from", string(prev)),
		slog.String("edge", edge),
	)
	return sess.runID
}

// RecordField buffers value and advances the machine by the field's edge.
func (m *memoryStore) RecordField(ctx context.Context, user form.UserID, field form.Field, value any) (form.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[user]
	if !ok {
		return form.StateIdle, fmt.Errorf("%w: %s without session", ErrInvalidTransition, field)
	}
	current := form.State(sess.machine.Current())
	if !sess.machine.Can(string(field)) {
		return current, fmt.Errorf("%w: %s at %s", ErrInvalidTransition, field, current)
	}
	next, _ := form.Next(current, string(field))
	if next == form.StateCompleted {
		// A failed Finalize leaves the final answer buffered; the retry replaces it.
		sess.buffer.Unset(field)
	}
	if err := sess.buffer.Set(field, value); err != nil {
		return current, fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}
	if next == form.StateCompleted {
		return current, nil
	}
	if err := sess.machine.Event(ctx, string(field)); err != nil {
		return current, fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}
	return next, nil
}

// Finalize saves the profile and completes the session. On repository
// failure the session keeps its state and buffer.
func (m *memoryStore) Finalize(ctx context.Context, user form.UserID) (form.Profile, error) {
	m.mu.RLock()
	sess, ok := m.sessions[user]
	var (
		profile form.Profile
		err     error
	)
	if ok {
		profile, err = sess.buffer.Profile(user, m.now().UTC())
	}
	m.mu.RUnlock()

	if !ok {
		return form.Profile{}, fmt.Errorf("%w: no session", ErrIncompleteSession)
	}
	if err != nil {
		return form.Profile{}, fmt.Errorf("%w: %w", ErrIncompleteSession, err)
	}
	if !sess.machine.Can(string(form.FieldWishNews)) {
		return form.Profile{}, fmt.Errorf("%w: finalize at %s", ErrInvalidTransition, sess.machine.Current())
	}

	if err := m.profiles.Save(ctx, profile); err != nil {
		return form.Profile{}, fmt.Errorf("state: save profile: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[user] != sess {
		return profile, fmt.Errorf("%w: session replaced during finalize", ErrInvalidTransition)
	}
	if err := sess.machine.Event(ctx, string(form.FieldWishNews)); err != nil {
		return profile, fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}
	sess.buffer = form.Buffer{}
	return profile, nil
}

// Cancel removes the session for a user.
func (m *memoryStore) Cancel(ctx context.Context, user form.UserID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[user]
	if !ok {
		return
	}
	if sess.machine.Can(form.EdgeCancel) {
		_ = sess.machine.Event(ctx, form.EdgeCancel)
	}
	delete(m.sessions, user)
}

// Profile returns the stored profile for a user.
func (m *memoryStore) Profile(ctx context.Context, user form.UserID) (form.Profile, error) {
	return m.profiles.Get(ctx, user)
}

// Stats counts in-progress sessions and stored profiles.
func (m *memoryStore) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	active := 0
	for _, sess := range m.sessions {
		if form.State(sess.machine.Current()).Awaiting() {
			active++
		}
	}
	m.mu.RUnlock()

	profiles, err := m.profiles.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("state: count profiles: %w", err)
	}
	return Stats{ActiveSessions: active, Profiles: profiles}, nil
}

// Lock acquires the per-user lock.
func (m *memoryStore) Lock(user form.UserID) func() {
	return m.locks.lock(user)
}
