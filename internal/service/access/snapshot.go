package access

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/Tate5000/Thera-stack/internal/model"
	"github.com/Tate5000/Thera-stack/internal/repository"
)

// SnapshotProvider supplies point-in-time relationship indexes to the
// decision functions. Current may serve a cached copy inside the freshness
// bound; Refresh guarantees an index no older than that bound, rebuilding
// from the repository when the cached one has aged out.
type SnapshotProvider interface {
	Current(ctx context.Context) (*RelationshipIndex, error)
	Refresh(ctx context.Context) (*RelationshipIndex, error)
}

const snapshotCacheKey = "relationship_index"

// CachedSnapshotProvider reads assignments from the repository and caches
// the built index for the configured freshness bound. A cache miss (expiry)
// is what makes relationship data "stale": the next read rebuilds instead of
// trusting the old copy.
type CachedSnapshotProvider struct {
	assignments repository.AssignmentRepository
	cache       *cache.Cache
	ttl         time.Duration
	mu          sync.Mutex
}

func NewCachedSnapshotProvider(assignments repository.AssignmentRepository, ttl time.Duration) *CachedSnapshotProvider {
	return &CachedSnapshotProvider{
		assignments: assignments,
		cache:       cache.New(ttl, 2*ttl),
		ttl:         ttl,
	}
}

func (p *CachedSnapshotProvider) Current(ctx context.Context) (*RelationshipIndex, error) {
	if v, ok := p.cache.Get(snapshotCacheKey); ok {
		return v.(*RelationshipIndex), nil
	}
	return p.Refresh(ctx)
}

func (p *CachedSnapshotProvider) Refresh(ctx context.Context) (*RelationshipIndex, error) {
	// Serialize rebuilds so a burst of expired reads hits the repository once.
	p.mu.Lock()
	defer p.mu.Unlock()

	if v, ok := p.cache.Get(snapshotCacheKey); ok {
		ix := v.(*RelationshipIndex)
		if ix.Age() < p.ttl {
			return ix, nil
		}
	}

	assignments, err := p.assignments.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}
	ix, err := NewRelationshipIndex(&model.RelationshipSnapshot{
		Assignments: assignments,
		TakenAt:     time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build relationship index: %w", err)
	}
	p.cache.Set(snapshotCacheKey, ix, p.ttl)
	return ix, nil
}

// Invalidate drops the cached index so the next read rebuilds. Called by the
// assignment writer after a change.
func (p *CachedSnapshotProvider) Invalidate() {
	p.cache.Delete(snapshotCacheKey)
}
