package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/m3rciful/formbot/core/form"
)

type memoryProfiles struct {
	mu     sync.RWMutex
	byUser map[form.UserID]form.Profile
}

// NewMemoryProfiles constructs a ProfileRepository that lives as long as the process.
func NewMemoryProfiles() ProfileRepository {
	return &memoryProfiles{byUser: make(map[form.UserID]form.Profile)}
}

// Save stores p, replacing any earlier profile of the same user.
func (r *memoryProfiles) Save(_ context.Context, p form.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[p.UserID] = p
	return nil
}

// Get returns the profile of user.
func (r *memoryProfiles) Get(_ context.Context, user form.UserID) (form.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byUser[user]
	if !ok {
		return form.Profile{}, fmt.Errorf("%w: user %d", ErrProfileNotFound, user)
	}
	return p, nil
}

// Count returns the number of stored profiles.
func (r *memoryProfiles) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser), nil
}
