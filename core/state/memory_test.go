package state

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/formbot/core/form"
)

var answers = []struct {
	field form.Field
	value any
}{
	{form.FieldName, "Anna"},
	{form.FieldAge, 15},
	{form.FieldGender, form.GenderFemale},
	{form.FieldPhoto, form.PhotoRef{ID: "photo-id", UniqueID: "photo-uniq"}},
	{form.FieldEducation, form.EducationHigher},
	{form.FieldWishNews, true},
}

func fillAll(t *testing.T, s Store, user form.UserID) {
	t.Helper()
	ctx := context.Background()
	for _, a := range answers {
		_, err := s.RecordField(ctx, user, a.field, a.value)
		require.NoError(t, err, a.field)
	}
}

func TestUnknownUserIsIdle(t *testing.T) {
	s := NewMemoryStore()
	assert.Equal(t, form.StateIdle, s.State(context.Background(), 42))
	assert.Empty(t, s.RunID(42))
}

func TestStartSequenceAwaitsName(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	run := s.StartSequence(ctx, 1)
	assert.NotEmpty(t, run)
	assert.Equal(t, run, s.RunID(1))
	assert.Equal(t, form.StateAwaitingName, s.State(ctx, 1))
}

func TestRecordFieldAdvancesInOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.StartSequence(ctx, 1)

	want := []form.State{
		form.StateAwaitingAge,
		form.StateAwaitingGender,
		form.StateAwaitingPhoto,
		form.StateAwaitingEducation,
		form.StateAwaitingNewsOptIn,
		form.StateAwaitingNewsOptIn,
	}
	for i, a := range answers {
		next, err := s.RecordField(ctx, 1, a.field, a.value)
		require.NoError(t, err)
		assert.Equal(t, want[i], next)
		assert.Equal(t, want[i], s.State(ctx, 1))
	}
}

func TestRecordFieldOutOfOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.RecordField(ctx, 1, form.FieldName, "Anna")
	require.ErrorIs(t, err, ErrInvalidTransition)

	s.StartSequence(ctx, 1)
	_, err = s.RecordField(ctx, 1, form.FieldAge, 15)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, form.StateAwaitingName, s.State(ctx, 1))

	_, err = s.RecordField(ctx, 1, form.FieldName, 15)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.ErrorIs(t, err, form.ErrFieldType)
}

func TestRecordFinalFieldReplacesPendingAnswer(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.StartSequence(ctx, 1)
	fillAll(t, s, 1)

	_, err := s.RecordField(ctx, 1, form.FieldWishNews, false)
	require.NoError(t, err)
	p, err := s.Finalize(ctx, 1)
	require.NoError(t, err)
	assert.False(t, p.WishNews)

	_, err = s.RecordField(ctx, 1, form.FieldWishNews, true)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestFinalizeStoresProfile(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	s := NewMemoryStore(WithClock(func() time.Time { return at }))
	s.StartSequence(ctx, 1)
	fillAll(t, s, 1)

	p, err := s.Finalize(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, form.StateCompleted, s.State(ctx, 1))
	assert.Equal(t, form.Profile{
		UserID:      1,
		Name:        "Anna",
		Age:         15,
		Gender:      form.GenderFemale,
		Photo:       form.PhotoRef{ID: "photo-id", UniqueID: "photo-uniq"},
		Education:   form.EducationHigher,
		WishNews:    true,
		CompletedAt: at,
	}, p)

	stored, err := s.Profile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, p, stored)
}

func TestFinalizeIncomplete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Finalize(ctx, 1)
	require.ErrorIs(t, err, ErrIncompleteSession)

	s.StartSequence(ctx, 1)
	_, err = s.RecordField(ctx, 1, form.FieldName, "Anna")
	require.NoError(t, err)
	_, err = s.Finalize(ctx, 1)
	require.ErrorIs(t, err, ErrIncompleteSession)
	assert.Equal(t, form.StateAwaitingAge, s.State(ctx, 1))

	_, err = s.Profile(ctx, 1)
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestStartSequenceClearsBuffer(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.StartSequence(ctx, 1)
	_, err := s.RecordField(ctx, 1, form.FieldName, "Anna")
	require.NoError(t, err)

	s.StartSequence(ctx, 1)
	assert.Equal(t, form.StateAwaitingName, s.State(ctx, 1))
	_, err = s.RecordField(ctx, 1, form.FieldName, "Bob")
	require.NoError(t, err, "name must be writable again after restart")
}

func TestOldProfileReadableDuringRerun(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.StartSequence(ctx, 1)
	fillAll(t, s, 1)
	first, err := s.Finalize(ctx, 1)
	require.NoError(t, err)

	s.StartSequence(ctx, 1)
	_, err = s.RecordField(ctx, 1, form.FieldName, "Bob")
	require.NoError(t, err)

	p, err := s.Profile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, first, p)
}

func TestStartSequenceAfterCompletionTakesRestartEdge(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	first := s.StartSequence(ctx, 1)
	fillAll(t, s, 1)
	_, err := s.Finalize(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, form.StateCompleted, s.State(ctx, 1))

	next, ok := form.Next(form.StateCompleted, form.EdgeRestart)
	require.True(t, ok)

	second := s.StartSequence(ctx, 1)
	assert.NotEqual(t, first, second)
	assert.Equal(t, next, s.State(ctx, 1))

	_, err = s.Finalize(ctx, 1)
	require.ErrorIs(t, err, ErrIncompleteSession, "restart must begin with an empty buffer")
	fillAll(t, s, 1)
	_, err = s.Finalize(ctx, 1)
	require.NoError(t, err)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	s.Cancel(ctx, 1)
	assert.Equal(t, form.StateIdle, s.State(ctx, 1))

	s.StartSequence(ctx, 1)
	_, err := s.RecordField(ctx, 1, form.FieldName, "Anna")
	require.NoError(t, err)
	s.Cancel(ctx, 1)
	assert.Equal(t, form.StateIdle, s.State(ctx, 1))

	_, err = s.Finalize(ctx, 1)
	require.ErrorIs(t, err, ErrIncompleteSession)
}

func TestCancelAfterCompletionKeepsProfile(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.StartSequence(ctx, 1)
	fillAll(t, s, 1)
	_, err := s.Finalize(ctx, 1)
	require.NoError(t, err)

	s.Cancel(ctx, 1)
	assert.Equal(t, form.StateIdle, s.State(ctx, 1))
	_, err = s.Profile(ctx, 1)
	require.NoError(t, err)
}

type failingProfiles struct {
	ProfileRepository
	fail bool
}

func (f *failingProfiles) Save(ctx context.Context, p form.Profile) error {
	if f.fail {
		return errors.New("disk on fire")
	}
	return f.ProfileRepository.Save(ctx, p)
}

func TestFinalizeRepositoryFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	repo := &failingProfiles{ProfileRepository: NewMemoryProfiles(), fail: true}
	s := NewMemoryStore(WithProfiles(repo))
	s.StartSequence(ctx, 1)
	fillAll(t, s, 1)

	_, err := s.Finalize(ctx, 1)
	require.Error(t, err)
	assert.Equal(t, form.StateAwaitingNewsOptIn, s.State(ctx, 1))

	repo.fail = false
	_, err = s.Finalize(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, form.StateCompleted, s.State(ctx, 1))
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.StartSequence(ctx, 1)
	s.StartSequence(ctx, 2)
	fillAll(t, s, 2)
	_, err := s.Finalize(ctx, 2)
	require.NoError(t, err)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{ActiveSessions: 1, Profiles: 1}, st)
}

func TestLockSerializesPerUser(t *testing.T) {
	s := NewMemoryStore()
	var (
		inFlight atomic.Int32
		maxSeen  atomic.Int32
		wg       sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.Lock(7)
			defer unlock()
			n := inFlight.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			inFlight.Add(-1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxSeen.Load())
	assert.Equal(t, 0, s.(*memoryStore).locks.size())
}

func TestLockDifferentUsersIndependent(t *testing.T) {
	s := NewMemoryStore()
	unlockA := s.Lock(1)
	done := make(chan struct{})
	go func() {
		unlock := s.Lock(2)
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for user 2 blocked by user 1")
	}
	unlockA()
	unlockA()
}
