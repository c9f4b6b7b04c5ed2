package utils

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/fla-erp/ledger_backend/config"
	"github.com/sirupsen/logrus"
)

const lockRetryInterval = 50 * time.Millisecond

// process-local fallback when redis is not configured
var localLocks = &keyedMutex{entries: make(map[string]*keyedMutexEntry)}

type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedMutexEntry
}

type keyedMutexEntry struct {
	ch   chan struct{}
	refs int
}

func (k *keyedMutex) lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &keyedMutexEntry{ch: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return func() { k.release(key, e, true) }, nil
	case <-ctx.Done():
		k.release(key, e, false)
		return nil, ctx.Err()
	}
}

func (k *keyedMutex) release(key string, e *keyedMutexEntry, held bool) {
	if held {
		<-e.ch
	}
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()
}

// ObtainLock serializes work on key across instances (redis) or within the
// process (no redis). Waits up to the lock TTL before giving up with a
// ConcurrencyConflictError.
func ObtainLock(ctx context.Context, key string) (release func(), err error) {
	locker := config.GetRedisLock()
	if locker == nil {
		return localLocks.lock(ctx, key)
	}

	ttl := config.LockTTL()
	retries := int(ttl / lockRetryInterval)
	lock, err := locker.Obtain(ctx, "lock:"+key, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(lockRetryInterval), retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, NewConcurrencyConflictError(key, err)
	} else if err != nil {
		config.LogError(config.GetLogger(), "lock.go", "ObtainLock", "Error obtaining lock", key, err)
		return nil, err
	}
	return func() {
		if releaseErr := lock.Release(context.Background()); releaseErr != nil && !errors.Is(releaseErr, redislock.ErrLockNotHeld) {
			config.GetLogger().WithFields(logrus.Fields{
				"field": "ObtainLock",
				"key":   key,
			}).Warn("failed to release redis lock: " + releaseErr.Error())
		}
	}, nil
}

// ObtainLocks takes every key in sorted order so two callers sharing keys never deadlock.
func ObtainLocks(ctx context.Context, keys ...string) (release func(), err error) {
	sorted := UniqueSlice(keys)
	sort.Strings(sorted)

	releases := make([]func(), 0, len(sorted))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, key := range sorted {
		r, err := ObtainLock(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, r)
	}
	return releaseAll, nil
}

// WithLock runs fn while holding every key.
func WithLock(ctx context.Context, fn func() error, keys ...string) error {
	release, err := ObtainLocks(ctx, keys...)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
