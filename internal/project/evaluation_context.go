package project

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// EvaluationContext is a cache shared by all evaluations within one graph
// build. Concurrent requests for the same key are collapsed into a single
// computation. Failed computations are not cached.
//
// A nil *EvaluationContext is valid and caches nothing. The zero value is an
// empty context ready for use.
type EvaluationContext struct {
	group        singleflight.Group
	mu           sync.RWMutex
	cache        map[string]any
	computations atomic.Int64
}

// NewEvaluationContext returns an empty evaluation context.
func NewEvaluationContext() *EvaluationContext {
	return &EvaluationContext{cache: make(map[string]any)}
}

// Computations returns how many times a value was actually computed.
func (e *EvaluationContext) Computations() int64 {
	if e == nil {
		return 0
	}
	return e.computations.Load()
}

func (e *EvaluationContext) lookup(key string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.cache[key]
	return v, ok
}

func (e *EvaluationContext) loadOrCompute(key string, compute func() (any, error)) (any, error) {
	if v, ok := e.lookup(key); ok {
		return v, nil
	}
	v, err, _ := e.group.Do(key, func() (any, error) {
		if v, ok := e.lookup(key); ok {
			return v, nil
		}
		e.computations.Add(1)
		v, err := compute()
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		if e.cache == nil {
			e.cache = make(map[string]any)
		}
		e.cache[key] = v
		e.mu.Unlock()
		return v, nil
	})
	return v, err
}

// Load returns the cached value for key, computing it at most once across
// concurrent callers.
func Load[T any](e *EvaluationContext, key string, compute func() (T, error)) (T, error) {
	if e == nil {
		return compute()
	}
	v, err := e.loadOrCompute(key, func() (any, error) { return compute() })
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("evaluation cache entry %q holds %T", key, v)
	}
	return typed, nil
}
