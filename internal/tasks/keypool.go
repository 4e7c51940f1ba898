package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/melodysyncer/melodysyncer/internal/shared"
	"golang.org/x/sync/errgroup"
)

// DefaultKey is the pool entry used when no API key is configured.
// It is never accepted as a caller override.
const DefaultKey = "default"

// KeyPool is an ordered list of API keys. Earlier keys are preferred.
type KeyPool []string

// NewKeyPool builds the per-request pool: the caller's override (if any) first, then the
// configured keys in order. Blank and duplicate entries are skipped. An empty pool
// holds only [DefaultKey].
func NewKeyPool(configured []string, override string) KeyPool {
	pool := make(KeyPool, 0, len(configured)+1)
	seen := make(map[string]bool, len(configured)+1)
	add := func(k string) {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			return
		}
		seen[k] = true
		pool = append(pool, k)
	}

	if o := strings.TrimSpace(override); o != DefaultKey {
		add(o)
	}
	for _, k := range configured {
		add(k)
	}

	if len(pool) == 0 {
		pool = append(pool, DefaultKey)
	}
	return pool
}

// KeyedFetch performs one upstream call with a single key.
type KeyedFetch[T any] func(ctx context.Context, key string) (T, error)

// Sequential tries each key in order and returns the first successful result.
//
// Failures move on to the next key. When every key fails the result wraps
// [shared.ErrKeysExhausted]; a cancelled context stops iteration early with the context error.
func Sequential[T any](ctx context.Context, keys KeyPool, fetch KeyedFetch[T]) (T, error) {
	var zero T
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, err := fetch(ctx, key)
		if err == nil {
			return v, nil
		}
	}
	return zero, fmt.Errorf("%w: %d keys tried", shared.ErrKeysExhausted, len(keys))
}

// Race calls every key concurrently, waits for all of them, and returns the result of the
// lowest-index key that succeeded with a non-empty result.
//
// Completion order never affects the choice. If some keys succeeded but every success was
// empty, the first empty success is returned with a nil error. If no key succeeded the
// result wraps [shared.ErrKeysExhausted].
func Race[T any](ctx context.Context, keys KeyPool, fetch KeyedFetch[T], empty func(T) bool) (T, error) {
	type outcome struct {
		value T
		err   error
	}

	outcomes := make([]outcome, len(keys))
	var g errgroup.Group
	for i, key := range keys {
		g.Go(func() error {
			v, err := fetch(ctx, key)
			outcomes[i] = outcome{value: v, err: err}
			return nil
		})
	}
	g.Wait()

	firstEmpty := -1
	for i, o := range outcomes {
		if o.err != nil {
			continue
		}
		if !empty(o.value) {
			return o.value, nil
		}
		if firstEmpty < 0 {
			firstEmpty = i
		}
	}

	if firstEmpty >= 0 {
		return outcomes[firstEmpty].value, nil
	}

	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	return zero, fmt.Errorf("%w: %d keys tried", shared.ErrKeysExhausted, len(keys))
}
