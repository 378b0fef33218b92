package importer

import (
	"context"
	"errors"

	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// memo caches code lookups for the duration of one import call. Missing codes
// are cached too so a repeated bad code costs one query.
type memo[K comparable, V any] struct {
	load  func(ctx context.Context, key K) (V, error)
	found map[K]V
	miss  map[K]struct{}
}

func newMemo[K comparable, V any](load func(ctx context.Context, key K) (V, error)) *memo[K, V] {
	return &memo[K, V]{load: load, found: map[K]V{}, miss: map[K]struct{}{}}
}

// get returns the value and whether it exists. Errors other than not found are returned.
func (m *memo[K, V]) get(ctx context.Context, key K) (V, bool, error) {
	if v, ok := m.found[key]; ok {
		return v, true, nil
	}
	var zero V
	if _, ok := m.miss[key]; ok {
		return zero, false, nil
	}
	v, err := m.load(ctx, key)
	if errors.Is(err, shared.ErrNotFound) {
		m.miss[key] = struct{}{}
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	m.found[key] = v
	return v, true, nil
}
