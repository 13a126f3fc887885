package cache

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"
)

// geneStore caches one entity kind per gene. Entries are loaded lazily and
// evicted by gene. Concurrent loads of the same gene and generation are
// collapsed, so a read that starts after an eviction never joins a load that
// began before it. A load that raced an eviction is returned to its callers
// but not stored.
type geneStore[T any] struct {
	kind    string
	load    func(ctx context.Context, entrezGeneID int) ([]T, error)
	metrics *Metrics

	mu      sync.RWMutex
	entries map[int][]T
	gens    map[int]uint64 // bumped on each eviction of the gene
	epoch   uint64         // bumped on each clear

	group singleflight.Group
}

func newGeneStore[T any](kind string, metrics *Metrics, load func(context.Context, int) ([]T, error)) *geneStore[T] {
	return &geneStore[T]{
		kind:    kind,
		load:    load,
		metrics: metrics,
		entries: make(map[int][]T),
		gens:    make(map[int]uint64),
	}
}

// get returns the cached entry of a gene, loading it on a miss.
func (s *geneStore[T]) get(ctx context.Context, entrezGeneID int) ([]T, error) {
	s.mu.RLock()
	v, ok := s.entries[entrezGeneID]
	gen, epoch := s.gens[entrezGeneID], s.epoch
	s.mu.RUnlock()
	if ok {
		s.metrics.Hits.WithLabelValues(s.kind).Inc()
		return v, nil
	}
	s.metrics.Misses.WithLabelValues(s.kind).Inc()

	key := fmt.Sprintf("%d/%d/%d", entrezGeneID, gen, epoch)
	res, err, _ := s.group.Do(key, func() (any, error) {
		v, err := s.load(ctx, entrezGeneID)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if s.gens[entrezGeneID] == gen && s.epoch == epoch {
			s.entries[entrezGeneID] = v
		}
		s.mu.Unlock()
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]T), nil
}

// peek returns the cached entry without loading.
func (s *geneStore[T]) peek(entrezGeneID int) ([]T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[entrezGeneID]
	return v, ok
}

// replace swaps in a complete set of entries.
func (s *geneStore[T]) replace(entries map[int][]T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
	s.epoch++
}

// evict drops the entry of one gene.
func (s *geneStore[T]) evict(entrezGeneID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entrezGeneID]; ok {
		s.metrics.Evictions.WithLabelValues(s.kind).Inc()
	}
	delete(s.entries, entrezGeneID)
	s.gens[entrezGeneID]++
}

// clear drops every entry.
func (s *geneStore[T]) clear() {
	s.replace(make(map[int][]T))
}

// genes returns the ids of the cached genes in ascending order.
func (s *geneStore[T]) genes() []int {
	s.mu.RLock()
	ids := make([]int, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Apply handles invalidation events.
func (s *geneStore[T]) Apply(_ context.Context, ev Event) error {
	switch ev.Kind {
	case EventUpdateGene:
		s.evict(ev.GeneID)
	case EventReset:
		s.clear()
	}
	return nil
}
