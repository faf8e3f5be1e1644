package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"villa_dnft/internal/adapters/observability"
	"villa_dnft/internal/domain"
)

// Snapshot is the visible villa set for one owner.
// Stale is set when the latest query failed and older data is being served.
type Snapshot struct {
	Owner     string         `json:"owner"`
	Villas    []domain.Villa `json:"villas"`
	Stale     bool           `json:"stale"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// refreshTimeout bounds a shared query once it is detached from its callers.
const refreshTimeout = 30 * time.Second

// RefreshService lists the villas an owner holds and keeps the last good
// snapshot per owner so a failed query never clears the view.
type RefreshService struct {
	chain    domain.ChainQuerier
	cache    domain.Cache
	contract *domain.Contract
	cacheTTL time.Duration
	now      func() time.Time

	group singleflight.Group

	mu        sync.Mutex
	snapshots map[string]Snapshot
}

func NewRefreshService(q domain.ChainQuerier, c domain.Cache, contract *domain.Contract, ttl time.Duration) *RefreshService {
	return &RefreshService{
		chain:     q,
		cache:     c,
		contract:  contract,
		cacheTTL:  ttl,
		now:       time.Now,
		snapshots: map[string]Snapshot{},
	}
}

// Refresh queries the chain for owner's villas. Concurrent calls for the same
// owner share one query, which runs detached from any single caller's
// context. A caller whose ctx ends first gets the held snapshot marked stale.
// A blank owner or an unconfigured package yields an empty snapshot without
// querying.
func (s *RefreshService) Refresh(ctx context.Context, owner string) Snapshot {
	owner = normOwner(owner)
	if owner == "" || !s.contract.Configured() {
		return Snapshot{Owner: owner, Villas: []domain.Villa{}}
	}

	ch := s.group.DoChan(owner, func() (any, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return s.refresh(qctx, owner), nil
	})
	select {
	case res := <-ch:
		return res.Val.(Snapshot)
	case <-ctx.Done():
		snap, ok := s.held(owner)
		if !ok {
			snap = Snapshot{Owner: owner, Villas: []domain.Villa{}}
		}
		snap.Stale = true
		return snap
	}
}

func (s *RefreshService) refresh(ctx context.Context, owner string) Snapshot {
	raw, err := s.chain.ListOwnedObjects(ctx, owner, s.contract.VillaType())
	if err != nil {
		err = fmt.Errorf("%w: owner %s: %v", domain.ErrQueryFailed, owner, err)
		log.Warn().Err(err).Str("owner", owner).Msg("villa refresh failed, keeping last snapshot")
		observability.ObserveRefresh("failed")

		prev, ok := s.Cached(ctx, owner)
		if !ok {
			prev = Snapshot{Owner: owner, Villas: []domain.Villa{}}
		}
		prev.Stale = true
		return prev
	}

	snap := Snapshot{Owner: owner, Villas: mapVillas(raw), FetchedAt: s.now().UTC()}
	s.store(ctx, snap)
	observability.ObserveRefresh("ok")
	log.Debug().Str("owner", owner).Int("villas", len(snap.Villas)).Msg("villa refresh ok")
	return snap
}

// Cached returns the held snapshot for owner without querying: memory first,
// then the shared cache.
func (s *RefreshService) Cached(ctx context.Context, owner string) (Snapshot, bool) {
	owner = normOwner(owner)
	if owner == "" {
		return Snapshot{}, false
	}
	if snap, ok := s.held(owner); ok {
		return snap, true
	}
	var snap Snapshot
	if s.cache == nil {
		return Snapshot{}, false
	}
	if hit, err := s.cache.Get(ctx, s.key(owner), &snap); err != nil || !hit {
		return Snapshot{}, false
	}
	s.mu.Lock()
	if _, exists := s.snapshots[owner]; !exists {
		s.snapshots[owner] = snap
	}
	s.mu.Unlock()
	return copySnapshot(snap), true
}

// Invalidate drops owner's snapshot so the next Cached call misses.
func (s *RefreshService) Invalidate(ctx context.Context, owner string) {
	owner = normOwner(owner)
	if owner == "" {
		return
	}
	s.mu.Lock()
	delete(s.snapshots, owner)
	s.mu.Unlock()
	if s.cache != nil {
		_ = s.cache.Del(ctx, s.key(owner))
	}
}

// held is the in-memory snapshot only.
func (s *RefreshService) held(owner string) (Snapshot, bool) {
	s.mu.Lock()
	snap, ok := s.snapshots[owner]
	s.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	return copySnapshot(snap), true
}

func (s *RefreshService) store(ctx context.Context, snap Snapshot) {
	s.mu.Lock()
	s.snapshots[snap.Owner] = snap
	s.mu.Unlock()
	if s.cache != nil {
		if err := s.cache.Set(ctx, s.key(snap.Owner), snap, int(s.cacheTTL.Seconds())); err != nil {
			log.Warn().Err(err).Str("owner", snap.Owner).Msg("snapshot cache write failed")
		}
	}
}

func (s *RefreshService) key(owner string) string {
	return fmt.Sprintf("villas:%s:%s", strings.ToLower(s.contract.PackageID), owner)
}

// addresses are hex, so case carries no meaning
func normOwner(owner string) string {
	return strings.ToLower(strings.TrimSpace(owner))
}

// copy slice to avoid aliasing the held snapshot's backing array
func copySnapshot(in Snapshot) Snapshot {
	out := in
	out.Villas = make([]domain.Villa, len(in.Villas))
	copy(out.Villas, in.Villas)
	return out
}
