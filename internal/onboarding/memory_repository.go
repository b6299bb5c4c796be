package onboarding

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu     sync.RWMutex
	ttl    time.Duration
	now    func() time.Time
	drafts map[string]Draft
	locks  map[string]time.Time
}

// NewMemoryRepository builds an in-memory draft store. Drafts untouched for
// longer than ttl are dropped on access; a zero ttl keeps them forever.
func NewMemoryRepository(ttl time.Duration) Repository {
	return &memoryRepository{
		ttl:    ttl,
		now:    time.Now,
		drafts: make(map[string]Draft),
		locks:  make(map[string]time.Time),
	}
}

func (r *memoryRepository) Save(_ context.Context, d Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweep()
	r.drafts[d.ID] = d
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Draft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drafts[id]
	if !ok || r.expired(d) {
		return Draft{}, ErrDraftNotFound
	}
	return d, nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, id)
	return nil
}

func (r *memoryRepository) Lock(_ context.Context, id string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if until, held := r.locks[id]; held && now.Before(until) {
		return false, nil
	}
	r.locks[id] = now.Add(ttl)
	return true, nil
}

func (r *memoryRepository) Unlock(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locks, id)
	return nil
}

func (r *memoryRepository) expired(d Draft) bool {
	return r.ttl > 0 && r.now().Sub(d.UpdatedAt) > r.ttl
}

// sweep must be called with the write lock held.
func (r *memoryRepository) sweep() {
	for id, d := range r.drafts {
		if r.expired(d) {
			delete(r.drafts, id)
		}
	}
}
