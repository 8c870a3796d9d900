package catalog

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRepository is an in-process catalog for tests and local runs.
type MemoryRepository struct {
	mu       sync.RWMutex
	services map[string]Service
}

func NewMemoryRepository(services ...Service) *MemoryRepository {
	r := &MemoryRepository{services: make(map[string]Service, len(services))}
	for _, s := range services {
		r.services[s.ID] = s
	}
	return r
}

func (r *MemoryRepository) Upsert(_ context.Context, svc Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[svc.ID] = svc
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, id)
	}
	return &svc, nil
}

func (r *MemoryRepository) GetMany(_ context.Context, ids []string) ([]Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	found := make(map[string]Service, len(ids))
	for _, id := range ids {
		if svc, ok := r.services[id]; ok {
			found[id] = svc
		}
	}
	if err := missing(ids, found); err != nil {
		return nil, err
	}
	return ordered(ids, found), nil
}
