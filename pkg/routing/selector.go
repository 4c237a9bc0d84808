// Package routing implements the gateway's backend selector (C5): given a
// model name, return a healthy backend using round-robin, with a variant
// that excludes backends already tried in the current request's failover
// loop.
package routing

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/multiverse-hub/inference-gateway/pkg/apierrors"
	"github.com/multiverse-hub/inference-gateway/pkg/registry"
)

// counterOverflowLimit bounds the atomic cursor before it is reset, the
// same overflow-reset idiom used for per-model round-robin rings.
const counterOverflowLimit = 1_000_000_000

// Selector returns a healthy backend per model using round-robin, giving
// each model its own cursor so traffic to one model never perturbs another's
// rotation.
type Selector struct {
	store registry.Store

	mu      sync.Mutex
	cursors map[string]*atomic.Int64
}

// NewSelector constructs a Selector backed by store.
func NewSelector(store registry.Store) *Selector {
	return &Selector{
		store:   store,
		cursors: make(map[string]*atomic.Int64),
	}
}

// Select returns a healthy backend for modelName, or a NoHealthyServer
// apierrors.Error if the model is known but has no Healthy backend, or a
// ModelNotFound apierrors.Error if no active server is registered for the
// model at all.
func (s *Selector) Select(ctx context.Context, modelName string) (*registry.ServerRecord, error) {
	candidates, err := s.store.FindHealthy(ctx, modelName)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, s.noCandidateError(ctx, modelName)
	}

	cursor := s.cursorFor(modelName)
	index := s.nextIndex(cursor, len(candidates))
	return candidates[index], nil
}

// SelectExcluding behaves like Select but skips any candidate whose
// registration_id appears in excluded, for use during bounded failover so
// a retry never lands on a backend that already failed this request.
func (s *Selector) SelectExcluding(ctx context.Context, modelName string, excluded map[string]bool) (*registry.ServerRecord, error) {
	candidates, err := s.store.FindHealthy(ctx, modelName)
	if err != nil {
		return nil, err
	}

	remaining := make([]*registry.ServerRecord, 0, len(candidates))
	for _, c := range candidates {
		if !excluded[c.RegistrationID] {
			remaining = append(remaining, c)
		}
	}
	if len(remaining) == 0 {
		return nil, s.noCandidateError(ctx, modelName)
	}

	cursor := s.cursorFor(modelName)
	index := s.nextIndex(cursor, len(remaining))
	return remaining[index], nil
}

func (s *Selector) noCandidateError(ctx context.Context, modelName string) error {
	all, err := s.store.List(ctx, registry.Filter{ModelName: modelName})
	if err == nil && len(all) > 0 {
		return apierrors.New(apierrors.KindNoHealthyServer, "model is registered but has no healthy backend")
	}
	return apierrors.New(apierrors.KindModelNotFound, "no active server is registered for this model")
}

func (s *Selector) cursorFor(modelName string) *atomic.Int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cursors[modelName]
	if !ok {
		c = &atomic.Int64{}
		s.cursors[modelName] = c
	}
	return c
}

// nextIndex advances cursor and returns an index into a slice of length n,
// resetting the cursor on overflow so it never grows unbounded.
func (s *Selector) nextIndex(cursor *atomic.Int64, n int) int {
	count := cursor.Add(1) - 1
	if count >= counterOverflowLimit {
		cursor.CompareAndSwap(count+1, 0)
		count = 0
	}
	return int(count % int64(n))
}
